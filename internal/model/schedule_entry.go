package model

import (
	"time"

	"github.com/jobayadurrasid/Smart-Campus/internal/timeslot"
)

// ScheduleEntry 周课表条目 — 对应 schedule_entries
// (course_id, academic_year, semester, day_of_week, start_time) 唯一
type ScheduleEntry struct {
	ScheduleEntryID uint             `gorm:"column:id;primaryKey;autoIncrement"  json:"id"`
	CourseID        string           `gorm:"type:varchar(20);not null"           json:"course_id"`
	AcademicYear    int              `gorm:"not null"                            json:"academic_year"`
	Semester        Semester         `gorm:"type:varchar(10);not null"           json:"semester"`
	DayOfWeek       timeslot.Weekday `gorm:"type:smallint;not null"              json:"day_of_week"` // 0-4
	StartTime       timeslot.Clock   `gorm:"type:time;not null"                  json:"start_time"`
	EndTime         timeslot.Clock   `gorm:"type:time;not null"                  json:"end_time"`
	IsActive        bool             `gorm:"not null;default:true"               json:"is_active"`
	GroupCode       *string          `gorm:"type:varchar(20)"                    json:"group_code,omitempty"`
	DeactivatedAt   *time.Time       `                                           json:"deactivated_at,omitempty"`
	BaseModel

	// 关联
	Course *Course `gorm:"foreignKey:CourseID;references:CourseID" json:"course,omitempty"`
}

// TableName 指定表名
func (ScheduleEntry) TableName() string { return "schedule_entries" }

// Slot 条目对应的周时段
func (e *ScheduleEntry) Slot() timeslot.Slot {
	return timeslot.Slot{Day: e.DayOfWeek, Start: e.StartTime, End: e.EndTime}
}

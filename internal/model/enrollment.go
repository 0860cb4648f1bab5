package model

import "time"

// Enrollment 选课表 — 对应 enrollments，(student_id, course_id) 唯一
type Enrollment struct {
	EnrollmentID uint      `gorm:"primaryKey;autoIncrement"                              json:"enrollment_id"`
	StudentID    string    `gorm:"type:varchar(12);not null;uniqueIndex:uq_enrollment"   json:"student_id"`
	CourseID     string    `gorm:"type:varchar(20);not null;uniqueIndex:uq_enrollment"   json:"course_id"`
	EnrolledAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"                    json:"enrolled_at"`
}

// TableName 指定表名
func (Enrollment) TableName() string { return "enrollments" }

package model

// Course 课程表 — 对应 courses
type Course struct {
	CourseID       string   `gorm:"type:varchar(20);primaryKey"  json:"course_id"` // <SHORT>-<NNN>
	Name           string   `gorm:"type:varchar(150);not null"   json:"name"`
	Credits        int      `gorm:"type:smallint;not null"       json:"credits"`
	DepartmentCode string   `gorm:"type:varchar(3);not null"     json:"department_code"`
	Semester       Semester `gorm:"type:varchar(10);not null"    json:"semester"`
	TeacherID      *string  `gorm:"type:varchar(12)"             json:"teacher_id,omitempty"`
	BaseModel

	// 关联
	Department *Department `gorm:"foreignKey:DepartmentCode;references:Code" json:"department,omitempty"`
	Teacher    *Person     `gorm:"foreignKey:TeacherID;references:PersonID" json:"teacher,omitempty"`
}

// TableName 指定表名
func (Course) TableName() string { return "courses" }

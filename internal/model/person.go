package model

import "time"

// 角色（以库中 role 列为准，不从编号反推）
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// Person 人员表 — 对应 persons
type Person struct {
	PersonID         string     `gorm:"type:varchar(12);primaryKey"          json:"person_id"` // year(4)+role(2)+dept(3)+seq(3)
	Email            string     `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	FullName         string     `gorm:"type:varchar(100);not null"           json:"full_name"`
	Role             string     `gorm:"type:varchar(20);not null"            json:"role"`
	DepartmentCode   string     `gorm:"type:varchar(3);not null"             json:"department_code"`
	DateOfEnrollment *time.Time `gorm:"type:date"                            json:"date_of_enrollment,omitempty"`
	BaseModel

	// 关联
	Department *Department `gorm:"foreignKey:DepartmentCode;references:Code" json:"department,omitempty"`
}

// TableName 指定表名
func (Person) TableName() string { return "persons" }

// GroupCode 学生所属班组：编号前 4 位（入学年份）+ 院系码
func (p *Person) GroupCode() string {
	if len(p.PersonID) < 4 {
		return ""
	}
	return p.PersonID[:4] + p.DepartmentCode
}

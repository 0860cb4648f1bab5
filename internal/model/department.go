package model

// Department 院系表 — 对应 departments
type Department struct {
	Code      string `gorm:"type:varchar(3);primaryKey"  json:"code"` // 3 位院系码，参与人员编号
	Name      string `gorm:"type:varchar(100);not null"  json:"name"`
	ShortName string `gorm:"type:varchar(10);not null"   json:"short_name"` // 课程编号前缀
	BaseModel
}

// TableName 指定表名
func (Department) TableName() string { return "departments" }

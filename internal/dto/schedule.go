package dto

// ── 班组课表模块 DTO ──

// ScheduleEntryInput 期望的单条课表条目
type ScheduleEntryInput struct {
	CourseID  string `json:"course_id"   binding:"required,max=20"`
	DayOfWeek *int   `json:"day_of_week" binding:"required,min=0,max=4"` // 0=Monday … 4=Friday
	StartTime string `json:"start_time"  binding:"required,hhmm"`       // "09:00"
	EndTime   string `json:"end_time"    binding:"required,hhmm"`       // "10:30"
}

// ReconcileGroupScheduleRequest 提交班组期望课表
// group_code 的合法性由业务层判断，以便返回精确原因
type ReconcileGroupScheduleRequest struct {
	GroupCode    string               `json:"group_code"`
	AcademicYear int                  `json:"academic_year" binding:"required,min=1900,max=9999"`
	Semester     string               `json:"semester"      binding:"required,semester"`
	Entries      []ScheduleEntryInput `json:"entries"       binding:"dive"`
}

// ScheduleQuery 课表查询参数
type ScheduleQuery struct {
	AcademicYear int    `form:"academic_year" binding:"required,min=1900,max=9999"`
	Semester     string `form:"semester"      binding:"required,semester"`
}

// ── 响应 ──

// ReconcileResult 班组课表提交结果
type ReconcileResult struct {
	Message   string `json:"message"`
	GroupCode string `json:"group_code"`
	Applied   int    `json:"applied"`
	Inserted  int    `json:"inserted"`
	Updated   int    `json:"updated"`
	// SkippedCourses 因非全员选修被过滤掉的课程
	SkippedCourses []string `json:"skipped_courses"`
}

// ScheduleEntryResponse 课表条目响应
type ScheduleEntryResponse struct {
	ID           uint    `json:"id"`
	CourseID     string  `json:"course_id"`
	CourseName   string  `json:"course_name,omitempty"`
	TeacherID    *string `json:"teacher_id,omitempty"`
	AcademicYear int     `json:"academic_year"`
	Semester     string  `json:"semester"`
	DayOfWeek    int     `json:"day_of_week"`
	DayName      string  `json:"day_name"`
	StartTime    string  `json:"start_time"`
	EndTime      string  `json:"end_time"`
	IsActive     bool    `json:"is_active"`
	GroupCode    *string `json:"group_code,omitempty"`
}

package dto

// ── 课程与选课模块 DTO ──

// CreateCourseRequest 创建课程请求
type CreateCourseRequest struct {
	Name           string  `json:"name"            binding:"required,min=2,max=150"`
	Credits        int     `json:"credits"         binding:"required,min=1,max=30"`
	DepartmentCode string  `json:"department_code" binding:"required,len=3"`
	Semester       string  `json:"semester"        binding:"required,semester"`
	TeacherID      *string `json:"teacher_id"      binding:"omitempty,len=12"`
}

// CourseResponse 课程信息响应
type CourseResponse struct {
	CourseID       string  `json:"course_id"`
	Name           string  `json:"name"`
	Credits        int     `json:"credits"`
	DepartmentCode string  `json:"department_code"`
	Semester       string  `json:"semester"`
	TeacherID      *string `json:"teacher_id,omitempty"`
}

// EnrollRequest 选课请求
type EnrollRequest struct {
	StudentID string `json:"student_id" binding:"required,len=12"`
	CourseID  string `json:"course_id"  binding:"required,max=20"`
}

// EnrollmentResponse 选课记录响应
type EnrollmentResponse struct {
	EnrollmentID uint   `json:"enrollment_id"`
	StudentID    string `json:"student_id"`
	CourseID     string `json:"course_id"`
	EnrolledAt   string `json:"enrolled_at"`
}

// CommonCoursesRequest 求多名学生的共同课程
type CommonCoursesRequest struct {
	StudentIDs []string `json:"student_ids" binding:"required,min=1,dive,required"`
}

// CommonCoursesResponse 共同课程（按编号升序）
type CommonCoursesResponse struct {
	CourseIDs []string `json:"course_ids"`
}

// BulkEnrollRequest 批量选课：同一课程，多名学生
type BulkEnrollRequest struct {
	CourseID   string   `json:"course_id"   binding:"required,max=20"`
	StudentIDs []string `json:"student_ids" binding:"required,min=1,max=500,dive,required"`
}

// BulkEnrollResult 单个学生的选课结果
type BulkEnrollResult struct {
	StudentID    string `json:"student_id"`
	Enrolled     bool   `json:"enrolled"`
	EnrollmentID uint   `json:"enrollment_id,omitempty"`
	Error        string `json:"error,omitempty"`
}

// BulkEnrollResponse 批量选课结果，逐个学生报告
type BulkEnrollResponse struct {
	CourseID      string             `json:"course_id"`
	EnrolledCount int                `json:"enrolled_count"`
	FailedCount   int                `json:"failed_count"`
	Results       []BulkEnrollResult `json:"results"`
}

package dto

// ── 人员模块 DTO ──

// CreatePersonRequest 登记人员（不含凭据，凭据由身份服务管理）
type CreatePersonRequest struct {
	Email            string `json:"email"              binding:"required,email,max=255"`
	FullName         string `json:"full_name"          binding:"required,min=2,max=100"`
	Role             string `json:"role"               binding:"required,oneof=admin teacher student"`
	DepartmentCode   string `json:"department_code"    binding:"required,len=3"`
	EnrollmentYear   int    `json:"enrollment_year"    binding:"required,min=1000,max=9999"`
	DateOfEnrollment string `json:"date_of_enrollment" binding:"omitempty,datetime=2006-01-02"`
}

// PersonResponse 人员信息响应
type PersonResponse struct {
	PersonID         string  `json:"person_id"`
	Email            string  `json:"email"`
	FullName         string  `json:"full_name"`
	Role             string  `json:"role"`
	DepartmentCode   string  `json:"department_code"`
	GroupCode        string  `json:"group_code,omitempty"` // 仅学生
	DateOfEnrollment *string `json:"date_of_enrollment,omitempty"`
}

package dto

// ── 院系模块 DTO ──

// CreateDepartmentRequest 创建院系
type CreateDepartmentRequest struct {
	Code      string `json:"code"       binding:"required,len=3,alphanum"`
	Name      string `json:"name"       binding:"required,min=2,max=100"`
	ShortName string `json:"short_name" binding:"required,min=2,max=10,alphanum"`
}

// DepartmentResponse 院系信息响应
type DepartmentResponse struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
}

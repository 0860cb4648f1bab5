package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/jobayadurrasid/Smart-Campus/internal/dto"
	"github.com/jobayadurrasid/Smart-Campus/internal/service"
	"github.com/jobayadurrasid/Smart-Campus/pkg/response"
)

// DepartmentHandler 院系模块 HTTP 处理器
type DepartmentHandler struct {
	deptSvc service.DepartmentService
}

// NewDepartmentHandler 创建 DepartmentHandler
func NewDepartmentHandler(deptSvc service.DepartmentService) *DepartmentHandler {
	return &DepartmentHandler{deptSvc: deptSvc}
}

// ListDepartments 获取院系列表
// GET /api/v1/departments
func (h *DepartmentHandler) ListDepartments(c *gin.Context) {
	depts, err := h.deptSvc.List(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": depts})
}

// CreateDepartment 创建院系
// POST /api/v1/departments
func (h *DepartmentHandler) CreateDepartment(c *gin.Context) {
	var req dto.CreateDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, 14001, err)
		return
	}

	dept, err := h.deptSvc.Create(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDepartmentExists):
			response.Conflict(c, 14101, err.Error())
		default:
			if !handleCommonError(c, err) {
				response.InternalError(c)
			}
		}
		return
	}

	response.Created(c, dept)
}

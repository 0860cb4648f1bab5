package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jobayadurrasid/Smart-Campus/internal/service"
	"github.com/jobayadurrasid/Smart-Campus/pkg/response"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Schedule   *ScheduleHandler
	Person     *PersonHandler
	Course     *CourseHandler
	Department *DepartmentHandler
	Export     *ExportHandler
	Token      *TokenHandler
	Health     *HealthHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service, health *HealthHandler) *Handler {
	return &Handler{
		Schedule:   NewScheduleHandler(svc.GroupSchedule, svc.Query),
		Person:     NewPersonHandler(svc.Person),
		Course:     NewCourseHandler(svc.Course),
		Department: NewDepartmentHandler(svc.Department),
		Export:     NewExportHandler(svc.Export),
		Token:      NewTokenHandler(svc.Token),
		Health:     health,
	}
}

// bindFailed 请求绑定 / 校验失败，details 带上校验器给出的字段原因
func bindFailed(c *gin.Context, code int, err error) {
	response.ErrorWithDetails(c, http.StatusBadRequest, code, service.ErrInvalidRequest.Error(), err.Error())
}

// handleCommonError 各模块共用的兜底映射，返回是否已处理
func handleCommonError(c *gin.Context, err error) bool {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		response.BadRequest(c, 10001, err.Error())
	case errors.Is(err, service.ErrPersistence):
		response.InternalError(c)
	default:
		return false
	}
	return true
}

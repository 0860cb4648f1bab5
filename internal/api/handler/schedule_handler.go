package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jobayadurrasid/Smart-Campus/internal/dto"
	"github.com/jobayadurrasid/Smart-Campus/internal/model"
	"github.com/jobayadurrasid/Smart-Campus/internal/service"
	"github.com/jobayadurrasid/Smart-Campus/pkg/response"
)

// ScheduleHandler 班组课表模块 HTTP 处理器
type ScheduleHandler struct {
	groupSvc service.GroupScheduleService
	querySvc service.ScheduleQueryService
}

// NewScheduleHandler 创建 ScheduleHandler
func NewScheduleHandler(groupSvc service.GroupScheduleService, querySvc service.ScheduleQueryService) *ScheduleHandler {
	return &ScheduleHandler{groupSvc: groupSvc, querySvc: querySvc}
}

// ReconcileGroup 提交班组期望课表
// POST /api/v1/schedules/group
func (h *ScheduleHandler) ReconcileGroup(c *gin.Context) {
	var req dto.ReconcileGroupScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, 13001, err)
		return
	}

	result, err := h.groupSvc.Reconcile(c.Request.Context(), &req)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, result)
}

// DeactivateEntry 停用单条课表条目
// PUT /api/v1/schedules/entries/:id/deactivate
func (h *ScheduleHandler) DeactivateEntry(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.BadRequest(c, 13001, "invalid schedule entry id")
		return
	}

	entry, err := h.groupSvc.DeactivateEntry(c.Request.Context(), uint(id))
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, entry)
}

// GetGroupSchedule 班组课表
// GET /api/v1/schedules/group/:group_code?academic_year=&semester=
func (h *ScheduleHandler) GetGroupSchedule(c *gin.Context) {
	var q dto.ScheduleQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindFailed(c, 13001, err)
		return
	}

	entries, err := h.querySvc.ForGroup(c.Request.Context(), c.Param("group_code"), q.AcademicYear, q.Semester)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, gin.H{"list": entries})
}

// GetTeacherSchedule 教师课表
// GET /api/v1/schedules/teacher/:teacher_id?academic_year=&semester=
func (h *ScheduleHandler) GetTeacherSchedule(c *gin.Context) {
	var q dto.ScheduleQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindFailed(c, 13001, err)
		return
	}

	entries, err := h.querySvc.ForTeacher(c.Request.Context(), c.Param("teacher_id"), q.AcademicYear, q.Semester)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, gin.H{"list": entries})
}

// GetStudentSchedule 学生课表，学生只能查看本人
// GET /api/v1/schedules/student/:student_id?academic_year=&semester=
func (h *ScheduleHandler) GetStudentSchedule(c *gin.Context) {
	studentID := c.Param("student_id")

	role, ok := MustGetRole(c)
	if !ok {
		return
	}
	if role == model.RoleStudent {
		callerID, ok := MustGetPersonID(c)
		if !ok {
			return
		}
		if callerID != studentID {
			response.Forbidden(c, 10003, "students may only view their own schedule")
			return
		}
	}

	var q dto.ScheduleQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindFailed(c, 13001, err)
		return
	}

	entries, err := h.querySvc.ForStudent(c.Request.Context(), studentID, q.AcademicYear, q.Semester)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, gin.H{"list": entries})
}

// handleScheduleError 统一处理课表模块业务错误，message 为精确原因
func (h *ScheduleHandler) handleScheduleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTeacherConflict):
		response.BadRequest(c, 13101, err.Error())
	case errors.Is(err, service.ErrEmptyGroup):
		response.BadRequest(c, 13102, err.Error())
	case errors.Is(err, service.ErrNoCommonCourses):
		response.BadRequest(c, 13103, err.Error())
	case errors.Is(err, service.ErrUnassignedTeacher):
		response.BadRequest(c, 13104, err.Error())
	case errors.Is(err, service.ErrEntryNotFound):
		response.NotFound(c, 13105, err.Error())
	default:
		if !handleCommonError(c, err) {
			response.InternalError(c)
		}
	}
}

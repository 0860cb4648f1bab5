package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/jobayadurrasid/Smart-Campus/internal/dto"
	"github.com/jobayadurrasid/Smart-Campus/internal/service"
	"github.com/jobayadurrasid/Smart-Campus/pkg/response"
)

// CourseHandler 课程与选课模块 HTTP 处理器
type CourseHandler struct {
	courseSvc service.CourseService
}

// NewCourseHandler 创建 CourseHandler
func NewCourseHandler(courseSvc service.CourseService) *CourseHandler {
	return &CourseHandler{courseSvc: courseSvc}
}

// CreateCourse 创建课程并生成课程编号
// POST /api/v1/courses
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	var req dto.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, 12001, err)
		return
	}

	course, err := h.courseSvc.CreateCourse(c.Request.Context(), &req)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.Created(c, course)
}

// Enroll 学生选课
// POST /api/v1/enrollments
func (h *CourseHandler) Enroll(c *gin.Context) {
	var req dto.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, 12001, err)
		return
	}

	enrollment, err := h.courseSvc.Enroll(c.Request.Context(), &req)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.Created(c, enrollment)
}

// BulkEnroll 同一课程批量选课，逐个学生返回结果
// POST /api/v1/enrollments/bulk
func (h *CourseHandler) BulkEnroll(c *gin.Context) {
	var req dto.BulkEnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, 12001, err)
		return
	}

	result, err := h.courseSvc.BulkEnroll(c.Request.Context(), &req)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	// 部分失败也返回 200，失败原因见 results
	response.OK(c, result)
}

// CommonCourses 多名学生共同选修的课程
// POST /api/v1/courses/common
func (h *CourseHandler) CommonCourses(c *gin.Context) {
	var req dto.CommonCoursesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, 12001, err)
		return
	}

	result, err := h.courseSvc.CommonCourses(c.Request.Context(), req.StudentIDs)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OK(c, result)
}

func (h *CourseHandler) handleCourseError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrDepartmentNotFound):
		response.BadRequest(c, 12101, err.Error())
	case errors.Is(err, service.ErrPersonNotFound):
		response.NotFound(c, 12102, err.Error())
	case errors.Is(err, service.ErrCourseNotFound):
		response.NotFound(c, 12103, err.Error())
	case errors.Is(err, service.ErrNotATeacher), errors.Is(err, service.ErrNotAStudent):
		response.BadRequest(c, 12104, err.Error())
	case errors.Is(err, service.ErrDuplicateCourse):
		response.Conflict(c, 12105, err.Error())
	case errors.Is(err, service.ErrAlreadyEnrolled):
		response.Conflict(c, 12106, err.Error())
	case errors.Is(err, service.ErrExhaustedSequence):
		response.Conflict(c, 12107, err.Error())
	default:
		if !handleCommonError(c, err) {
			response.InternalError(c)
		}
	}
}

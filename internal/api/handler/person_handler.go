package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/jobayadurrasid/Smart-Campus/internal/dto"
	"github.com/jobayadurrasid/Smart-Campus/internal/service"
	"github.com/jobayadurrasid/Smart-Campus/pkg/response"
)

// PersonHandler 人员模块 HTTP 处理器
type PersonHandler struct {
	personSvc service.PersonService
}

// NewPersonHandler 创建 PersonHandler
func NewPersonHandler(personSvc service.PersonService) *PersonHandler {
	return &PersonHandler{personSvc: personSvc}
}

// Register 登记人员并生成编号
// POST /api/v1/persons
func (h *PersonHandler) Register(c *gin.Context) {
	var req dto.CreatePersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, 11001, err)
		return
	}

	person, err := h.personSvc.Register(c.Request.Context(), &req)
	if err != nil {
		h.handlePersonError(c, err)
		return
	}

	response.Created(c, person)
}

// GetPerson 人员详情
// GET /api/v1/persons/:id
func (h *PersonHandler) GetPerson(c *gin.Context) {
	person, err := h.personSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handlePersonError(c, err)
		return
	}

	response.OK(c, person)
}

// GetMe 当前登录人员
// GET /api/v1/persons/me
func (h *PersonHandler) GetMe(c *gin.Context) {
	id, ok := MustGetPersonID(c)
	if !ok {
		return
	}

	person, err := h.personSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handlePersonError(c, err)
		return
	}

	response.OK(c, person)
}

func (h *PersonHandler) handlePersonError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPersonNotFound):
		response.NotFound(c, 11101, err.Error())
	case errors.Is(err, service.ErrDepartmentNotFound):
		response.BadRequest(c, 11102, err.Error())
	case errors.Is(err, service.ErrEmailExists):
		response.Conflict(c, 11103, err.Error())
	case errors.Is(err, service.ErrExhaustedSequence):
		response.Conflict(c, 11104, err.Error())
	default:
		if !handleCommonError(c, err) {
			response.InternalError(c)
		}
	}
}

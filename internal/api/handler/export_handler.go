package handler

import (
	"errors"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jobayadurrasid/Smart-Campus/internal/dto"
	"github.com/jobayadurrasid/Smart-Campus/internal/service"
	"github.com/jobayadurrasid/Smart-Campus/pkg/response"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeICS  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportGroupSchedule 导出班组课表，格式由文件扩展名决定
// GET /api/v1/export/schedules/group/:file?academic_year=&semester=
// file 形如 2025CSE.xlsx 或 2025CSE.ics
func (h *ExportHandler) ExportGroupSchedule(c *gin.Context) {
	file := c.Param("file")
	dot := strings.LastIndexByte(file, '.')
	if dot <= 0 {
		response.BadRequest(c, 16001, "file must be <group_code>.xlsx or <group_code>.ics")
		return
	}
	groupCode, ext := file[:dot], strings.ToLower(file[dot+1:])

	var q dto.ScheduleQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindFailed(c, 16001, err)
		return
	}

	var (
		data        []byte
		filename    string
		contentType string
		err         error
	)
	switch ext {
	case "xlsx":
		buf, name, e := h.exportSvc.ExportGroupXLSX(c.Request.Context(), groupCode, q.AcademicYear, q.Semester)
		if e == nil {
			data = buf.Bytes()
		}
		filename, contentType, err = name, contentTypeXLSX, e
	case "ics":
		data, filename, err = h.exportSvc.ExportGroupICS(c.Request.Context(), groupCode, q.AcademicYear, q.Semester)
		contentType = contentTypeICS
	default:
		response.BadRequest(c, 16002, "unsupported export format: "+ext)
		return
	}
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	c.Header("Content-Description", "File Transfer")
	response.Attachment(c, url.PathEscape(filename), contentType, data)
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExportNoEntries):
		response.NotFound(c, 16101, err.Error())
	case errors.Is(err, service.ErrExportGenerateFail):
		response.InternalError(c)
	default:
		if !handleCommonError(c, err) {
			response.InternalError(c)
		}
	}
}

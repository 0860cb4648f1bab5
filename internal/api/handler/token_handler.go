package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jobayadurrasid/Smart-Campus/internal/dto"
	"github.com/jobayadurrasid/Smart-Campus/internal/service"
	"github.com/jobayadurrasid/Smart-Campus/pkg/response"
)

// TokenHandler 令牌吊销 HTTP 处理器
type TokenHandler struct {
	tokenSvc service.TokenService
}

// NewTokenHandler 创建 TokenHandler
func NewTokenHandler(tokenSvc service.TokenService) *TokenHandler {
	return &TokenHandler{tokenSvc: tokenSvc}
}

// RevokeToken 吊销访问令牌（管理员）
// POST /api/v1/tokens/revoke
func (h *TokenHandler) RevokeToken(c *gin.Context) {
	var req dto.RevokeTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, 15001, err)
		return
	}
	adminID, ok := MustGetPersonID(c)
	if !ok {
		return
	}

	resp, err := h.tokenSvc.Revoke(c.Request.Context(), &req, adminID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRevocationUnavailable):
			response.Error(c, http.StatusServiceUnavailable, 15101, err.Error())
		default:
			if !handleCommonError(c, err) {
				response.InternalError(c)
			}
		}
		return
	}

	response.OK(c, resp)
}

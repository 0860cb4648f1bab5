package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jobayadurrasid/Smart-Campus/internal/api/middleware"
	"github.com/jobayadurrasid/Smart-Campus/pkg/response"
)

// MustGetPersonID 从 Gin 上下文中安全提取 person_id。
// 如果 JWT 中间件未正确注入，返回 false 并写入 401 响应，调用方应直接 return。
func MustGetPersonID(c *gin.Context) (string, bool) {
	return mustGetString(c, middleware.ContextPersonID)
}

// MustGetRole 从 Gin 上下文中安全提取 role。
func MustGetRole(c *gin.Context) (string, bool) {
	return mustGetString(c, middleware.ContextRole)
}

func mustGetString(c *gin.Context, key string) (string, bool) {
	v, exists := c.Get(key)
	if !exists {
		response.Unauthorized(c, 10002, "not authenticated")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "not authenticated")
		return "", false
	}
	return s, true
}

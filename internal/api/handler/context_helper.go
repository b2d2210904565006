package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"oqas/backend/pkg/jwt"
	"oqas/backend/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (int64, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, 11002, "未认证")
		return 0, false
	}
	id, ok := v.(int64)
	if !ok || id == 0 {
		response.Unauthorized(c, 11002, "未认证")
		return 0, false
	}
	return id, true
}

// MustGetRole 从 Gin 上下文中安全提取 role。
func MustGetRole(c *gin.Context) (string, bool) {
	v, exists := c.Get("role")
	if !exists {
		response.Unauthorized(c, 11002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 11002, "未认证")
		return "", false
	}
	return s, true
}

// MustGetClaims 提取 JWT 中间件注入的完整声明（登出需要 JTI 与过期时间）
func MustGetClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, exists := c.Get("claims")
	if !exists {
		response.Unauthorized(c, 11002, "未认证")
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	if !ok {
		response.Unauthorized(c, 11002, "未认证")
		return nil, false
	}
	return claims, true
}

// parsePathID 解析路径中的数字 ID；非法时写入 400 响应并返回 false
func parsePathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, 10001, name+" 必须为正整数")
		return 0, false
	}
	return id, true
}

// [自证通过] internal/api/handler/context_helper.go

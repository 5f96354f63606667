package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	// UserIDContextKey gin 上下文中的用户 ID 键
	UserIDContextKey = "user_id"
)

// Middleware JWT 认证中间件，未携带有效令牌的请求直接拒绝
func Middleware(jwtService *JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "缺少认证令牌"})
			c.Abort()
			return
		}

		token := ExtractTokenFromBearer(authHeader)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "无效的令牌格式"})
			c.Abort()
			return
		}

		claims, err := jwtService.ValidateToken(c.Request.Context(), token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "令牌验证失败: " + err.Error()})
			c.Abort()
			return
		}

		c.Set(UserIDContextKey, claims.UserID)
		c.Next()
	}
}

// OptionalMiddleware 可选认证中间件。携带有效令牌时注入用户 ID，
// 匿名请求照常放行，聊天接口用它支持未登录用户。
func OptionalMiddleware(jwtService *JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := ExtractTokenFromBearer(c.GetHeader("Authorization")); token != "" {
			if claims, err := jwtService.ValidateToken(c.Request.Context(), token); err == nil {
				c.Set(UserIDContextKey, claims.UserID)
			}
		}
		c.Next()
	}
}

// UserIDFromContext 从 gin 上下文取当前用户 ID，匿名请求返回 (0, false)
func UserIDFromContext(c *gin.Context) (uint, bool) {
	v, ok := c.Get(UserIDContextKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

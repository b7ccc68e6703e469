// Package middleware 提供 HTTP 中间件
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"shape-forge-api/pkg/logger"
	"shape-forge-api/pkg/utils"

	"github.com/gin-gonic/gin"
)

// gin.Context 中的键
const (
	ContextUserID = "user_id"
	ContextEmail  = "email"
)

// DefaultSessionCookie 默认会话 Cookie 名称
const DefaultSessionCookie = "sf_session"

// AuthConfig 认证配置
type AuthConfig struct {
	// Secret JWT 密钥
	Secret string
	// Issuer JWT 签发者
	Issuer string
	// CookieName 会话 Cookie 名称，未携带 Authorization 头时读取
	CookieName string
}

// Auth 认证中间件，支持 Bearer 头与会话 Cookie
func Auth(cfg AuthConfig) gin.HandlerFunc {
	jwtManager := utils.NewJWTManager(cfg.Secret, cfg.Issuer)
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultSessionCookie
	}

	return func(c *gin.Context) {
		token, err := extractToken(c, cfg.CookieName)
		if err != nil {
			abortUnauthorized(c, err.Error())
			return
		}

		claims, err := jwtManager.ParseToken(token, utils.TokenTypeSession)
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, utils.ErrExpiredToken) {
				msg = "token expired"
			}
			abortUnauthorized(c, msg)
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextEmail, claims.Email)

		ctx := logger.WithContext(c.Request.Context(), logger.UserIDKey, claims.UserID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// extractToken 优先读取 Authorization 头，其次读取会话 Cookie
func extractToken(c *gin.Context, cookieName string) (string, error) {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", errors.New("invalid authorization format")
		}
		return parts[1], nil
	}
	if cookie, err := c.Cookie(cookieName); err == nil && cookie != "" {
		return cookie, nil
	}
	return "", errors.New("missing authorization")
}

// abortUnauthorized 终止请求并返回 401
func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code":     http.StatusUnauthorized,
		"message":  msg,
		"trace_id": c.GetString("trace_id"),
	})
}

// GetUserIDFromGin 从 Gin Context 中获取用户 ID
func GetUserIDFromGin(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

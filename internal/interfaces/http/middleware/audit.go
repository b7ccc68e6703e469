// Package middleware 提供 HTTP 中间件
package middleware

import (
	"context"
	"net/http"
	"time"

	"shape-forge-api/internal/infrastructure/messaging"
	"shape-forge-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// AuditPublisher 审计事件投递端口
type AuditPublisher interface {
	PublishAuditLog(ctx context.Context, log *messaging.AuditLogMessage) (string, error)
}

// AuditConfig 审计配置
type AuditConfig struct {
	// Enabled 是否启用审计
	Enabled bool
	// SkipPaths 跳过审计的路径
	SkipPaths []string
	// PublishTimeout 投递审计事件的超时时间
	PublishTimeout time.Duration
}

// Audit 审计日志中间件。
// 所有请求写入结构化日志；publisher 非空时，写操作额外投递到审计流，由 job-worker 归档。
func Audit(cfg AuditConfig, publisher AuditPublisher) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = time.Second
	}

	skipMap := make(map[string]bool)
	for _, path := range cfg.SkipPaths {
		skipMap[path] = true
	}

	return func(c *gin.Context) {
		if skipMap[c.Request.URL.Path] {
			c.Next()
			return
		}

		start := time.Now()

		c.Next()

		duration := time.Since(start)
		ctx := c.Request.Context()

		logger.Info(ctx, "api audit",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", duration.Milliseconds(),
			"ip", c.ClientIP(),
			"user_id", GetUserIDFromGin(c),
			"request_id", c.GetString("request_id"),
		)

		if publisher == nil || !isMutating(c.Request.Method) {
			return
		}

		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.PublishTimeout)
		defer cancel()
		if _, err := publisher.PublishAuditLog(pubCtx, &messaging.AuditLogMessage{
			UserID:     GetUserIDFromGin(c),
			Method:     c.Request.Method,
			Path:       c.Request.URL.Path,
			Status:     c.Writer.Status(),
			DurationMS: duration.Milliseconds(),
			RequestID:  c.GetString("request_id"),
			TraceID:    c.GetString("trace_id"),
			IPAddress:  c.ClientIP(),
			UserAgent:  c.Request.UserAgent(),
		}); err != nil {
			logger.Warn(ctx, "failed to publish audit log", "error", err.Error())
		}
	}
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// DefaultAuditSkipPaths 默认跳过审计的路径
var DefaultAuditSkipPaths = []string{
	"/health",
	"/ready",
	"/live",
	"/metrics",
}

// Package router 提供 HTTP 路由配置
package router

import (
	"time"

	"shape-forge-api/internal/config"
	"shape-forge-api/internal/interfaces/http/handler"
	"shape-forge-api/internal/interfaces/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterHandlers 路由依赖的处理器集合
type RouterHandlers struct {
	Health     *handler.HealthHandler
	Auth       *handler.AuthHandler
	Account    *handler.AccountHandler
	Generation *handler.GenerationHandler
	Credits    *handler.CreditsHandler
	Checkout   *handler.CheckoutHandler
}

// Router HTTP 路由器
type Router struct {
	engine   *gin.Engine
	cfg      *config.Config
	handlers *RouterHandlers
	authCfg  middleware.AuthConfig
	limiter  middleware.RateLimiter
	auditPub middleware.AuditPublisher
}

// NewWithDeps 创建带完整依赖的路由器，limiter 与 auditPub 可为 nil
func NewWithDeps(
	cfg *config.Config,
	handlers *RouterHandlers,
	authCfg middleware.AuthConfig,
	limiter middleware.RateLimiter,
	auditPub middleware.AuditPublisher,
) *Router {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := &Router{
		engine:   gin.New(),
		cfg:      cfg,
		handlers: handlers,
		authCfg:  authCfg,
		limiter:  limiter,
		auditPub: auditPub,
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// setupMiddleware 配置中间件
func (r *Router) setupMiddleware() {
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())

	r.engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: r.cfg.Security.CORS.AllowedOrigins,
		AllowedMethods: r.cfg.Security.CORS.AllowedMethods,
		AllowedHeaders: r.cfg.Security.CORS.AllowedHeaders,
	}))

	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name))
		r.engine.Use(middleware.TraceContext())
	}

	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics())
	}

	r.engine.Use(middleware.Audit(middleware.AuditConfig{
		Enabled:   true,
		SkipPaths: middleware.DefaultAuditSkipPaths,
	}, r.auditPub))
}

// setupRoutes 配置路由
func (r *Router) setupRoutes() {
	r.engine.GET("/health", r.handlers.Health.Health)
	r.engine.GET("/ready", r.handlers.Health.Ready)
	r.engine.GET("/live", r.handlers.Health.Live)

	if r.cfg.Observability.Metrics.Enabled {
		path := r.cfg.Observability.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.engine.GET(path, gin.WrapH(promhttp.Handler()))
	}

	rl := r.cfg.Security.RateLimit
	generationLimit := middleware.RateLimit(middleware.RateLimitConfig{
		Enabled: rl.Enabled,
		Limit:   rl.GenerationsPerMinute,
		Window:  time.Minute,
	}, r.limiter)

	RegisterV1Routes(r.engine.Group("/v1"), r.handlers, middleware.Auth(r.authCfg), generationLimit)
}

// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(v1 *gin.RouterGroup, h *RouterHandlers, auth gin.HandlerFunc, generationLimit gin.HandlerFunc) {
	// 公开接口
	authGroup := v1.Group("/auth")
	{
		authGroup.GET("/login", h.Auth.Login)
		authGroup.GET("/callback", h.Auth.Callback)
		authGroup.POST("/logout", h.Auth.Logout)
	}
	v1.GET("/pricing", h.Checkout.Pricing)
	v1.GET("/checkout/complete", h.Checkout.Complete)
	v1.POST("/payments/webhook", h.Checkout.Webhook)

	// 需要登录
	protected := v1.Group("", auth)

	account := protected.Group("/account")
	{
		account.GET("", h.Account.Get)
		account.PUT("", h.Account.Update)
		account.DELETE("", h.Account.Delete)
	}

	generations := protected.Group("/generations")
	{
		generations.POST("", generationLimit, h.Generation.Generate)
		generations.GET("", h.Generation.List)
		generations.GET("/recent", h.Generation.Recent)
		generations.GET("/:id", h.Generation.Get)
	}

	protected.GET("/dashboard/stats", h.Generation.Stats)

	credits := protected.Group("/credits")
	{
		credits.GET("", h.Credits.Balance)
		credits.GET("/transactions", h.Credits.Transactions)
		credits.POST("/bonus", h.Credits.Bonus)
	}

	protected.POST("/checkout", h.Checkout.Create)
}

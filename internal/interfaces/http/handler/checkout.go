package handler

import (
	"io"
	"net/http"
	"strings"

	"shape-forge-api/internal/application/checkout"
	"shape-forge-api/internal/interfaces/http/dto"
	"shape-forge-api/internal/interfaces/http/middleware"
	"shape-forge-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// maxWebhookBodyBytes Stripe 事件体上限
const maxWebhookBodyBytes = 64 << 10

// CheckoutHandler 积分购买处理器
type CheckoutHandler struct {
	checkout    *checkout.Service
	frontendURL string
}

// NewCheckoutHandler 创建积分购买处理器
func NewCheckoutHandler(checkoutSvc *checkout.Service, frontendURL string) *CheckoutHandler {
	return &CheckoutHandler{
		checkout:    checkoutSvc,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

// Pricing 积分包列表
// @Summary 积分包
// @Tags Checkout
// @Produce json
// @Success 200 {object} dto.Response[dto.PricingResponse]
// @Router /v1/pricing [get]
func (h *CheckoutHandler) Pricing(c *gin.Context) {
	dto.Success(c, dto.PricingResponse{
		Packs:           h.checkout.Packs(),
		PaymentsEnabled: h.checkout.Enabled(),
	})
}

// Create 创建收银台会话
// @Summary 购买积分
// @Tags Checkout
// @Accept json
// @Produce json
// @Param body body dto.CheckoutRequest true "积分包"
// @Success 200 {object} dto.Response[dto.CheckoutResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /v1/checkout [post]
func (h *CheckoutHandler) Create(c *gin.Context) {
	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	session, err := h.checkout.CreateSession(c.Request.Context(), middleware.GetUserIDFromGin(c), req.PackID)
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.CheckoutResponse{SessionID: session.ID, URL: session.URL})
}

// Complete 支付完成回跳，入账后跳转到前端
// @Summary 支付回跳
// @Tags Checkout
// @Param session_id query string true "收银台会话 ID"
// @Success 302
// @Router /v1/checkout/complete [get]
func (h *CheckoutHandler) Complete(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.Redirect(http.StatusFound, h.frontendURL+"/pricing")
		return
	}

	ctx := c.Request.Context()
	if _, err := h.checkout.Complete(ctx, sessionID); err != nil {
		logger.Error(ctx, "checkout completion failed", err, "session_id", sessionID)
		c.Redirect(http.StatusFound, h.frontendURL+"/dashboard?error=purchase_failed")
		return
	}
	c.Redirect(http.StatusFound, h.frontendURL+"/dashboard?success=purchase")
}

// Webhook Stripe 事件回调
// @Summary Stripe Webhook
// @Tags Checkout
// @Accept json
// @Produce json
// @Success 200 {object} dto.Response[dto.WebhookResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/payments/webhook [post]
func (h *CheckoutHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		dto.BadRequest(c, "failed to read body")
		return
	}

	if err := h.checkout.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.WebhookResponse{Received: true})
}

package dto

import "shape-forge-api/internal/application/checkout"

// PricingResponse 积分包列表
type PricingResponse struct {
	Packs           []checkout.Pack `json:"packs"`
	PaymentsEnabled bool            `json:"payments_enabled"`
}

// CheckoutRequest 创建收银台会话请求
type CheckoutRequest struct {
	PackID string `json:"pack_id" binding:"required"`
}

// CheckoutResponse 收银台会话
type CheckoutResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// WebhookResponse Webhook 处理结果
type WebhookResponse struct {
	Received bool `json:"received"`
}

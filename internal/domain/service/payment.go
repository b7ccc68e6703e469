package service

import (
	"context"
	"errors"
)

// ErrInvalidSignature Webhook 签名校验失败
var ErrInvalidSignature = errors.New("invalid webhook signature")

// CheckoutRequest 创建收银台会话的请求
type CheckoutRequest struct {
	UserID      string
	PackID      string
	ProductName string
	Credits     int
	// PriceID 支付平台中预先配置的价格 ID，为空时按 UnitAmount/Currency 临时定价
	PriceID    string
	UnitAmount int64
	Currency   string
	SuccessURL string
	CancelURL  string
}

// CheckoutSession 收银台会话
type CheckoutSession struct {
	ID        string
	URL       string
	UserID    string
	Paid      bool
	PaymentID string
	Metadata  map[string]string
}

// WebhookEvent 支付平台推送的事件
type WebhookEvent struct {
	ID      string
	Type    string
	Session *CheckoutSession
}

// 关注的事件类型，两者都携带收银台会话
const (
	EventCheckoutCompleted             = "checkout.session.completed"
	EventCheckoutAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
)

// IsCheckoutPaymentEvent 是否为可能完成支付的收银台事件
func IsCheckoutPaymentEvent(eventType string) bool {
	return eventType == EventCheckoutCompleted || eventType == EventCheckoutAsyncPaymentSucceeded
}

// PaymentGateway 支付平台端口
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error)
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}

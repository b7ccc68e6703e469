// Package payment 提供 Stripe 收银台适配
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"shape-forge-api/internal/config"
	"shape-forge-api/internal/domain/service"
)

var tracer = otel.Tracer("payment")

// 会话元数据键
const (
	metadataCredits = "credits"
	metadataPackID  = "pack_id"
)

// StripeGateway 基于 Stripe Checkout 的支付实现
type StripeGateway struct {
	api           *client.API
	webhookSecret string
}

// NewStripeGateway 创建 Stripe 客户端，APIURL 非空时指向该地址（用于测试替身）
func NewStripeGateway(cfg *config.StripeConfig) *StripeGateway {
	var backends *stripe.Backends
	if cfg.APIURL != "" {
		backends = stripe.NewBackendsWithConfig(&stripe.BackendConfig{
			URL: stripe.String(cfg.APIURL),
		})
	}
	return &StripeGateway{
		api:           client.New(cfg.SecretKey, backends),
		webhookSecret: cfg.WebhookSecret,
	}
}

// CreateCheckoutSession 创建一次性付款会话
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req service.CheckoutRequest) (*service.CheckoutSession, error) {
	ctx, span := tracer.Start(ctx, "stripe.CreateCheckoutSession",
		trace.WithAttributes(
			attribute.String("user_id", req.UserID),
			attribute.String("pack_id", req.PackID),
		))
	defer span.End()

	item := &stripe.CheckoutSessionLineItemParams{Quantity: stripe.Int64(1)}
	if req.PriceID != "" {
		item.Price = stripe.String(req.PriceID)
	} else {
		item.PriceData = &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency:   stripe.String(req.Currency),
			UnitAmount: stripe.Int64(req.UnitAmount),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name: stripe.String(req.ProductName),
			},
		}
	}

	params := &stripe.CheckoutSessionParams{
		Mode:                stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes:  stripe.StringSlice([]string{"card"}),
		LineItems:           []*stripe.CheckoutSessionLineItemParams{item},
		AllowPromotionCodes: stripe.Bool(true),
		ClientReferenceID:   stripe.String(req.UserID),
		SuccessURL:          stripe.String(req.SuccessURL),
		CancelURL:           stripe.String(req.CancelURL),
	}
	params.Context = ctx
	params.AddMetadata(metadataCredits, strconv.Itoa(req.Credits))
	params.AddMetadata(metadataPackID, req.PackID)

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	return toSession(sess), nil
}

// GetCheckoutSession 查询会话
func (g *StripeGateway) GetCheckoutSession(ctx context.Context, sessionID string) (*service.CheckoutSession, error) {
	ctx, span := tracer.Start(ctx, "stripe.GetCheckoutSession",
		trace.WithAttributes(attribute.String("session_id", sessionID)))
	defer span.End()

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := g.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to retrieve checkout session: %w", err)
	}
	return toSession(sess), nil
}

// ParseWebhook 校验签名并解析事件
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*service.WebhookEvent, error) {
	if g.webhookSecret == "" {
		return nil, errors.New("webhook secret not configured")
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", service.ErrInvalidSignature, err)
	}

	out := &service.WebhookEvent{ID: event.ID, Type: string(event.Type)}
	if service.IsCheckoutPaymentEvent(out.Type) {
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("failed to decode checkout session: %w", err)
		}
		out.Session = toSession(&sess)
	}
	return out, nil
}

func toSession(sess *stripe.CheckoutSession) *service.CheckoutSession {
	out := &service.CheckoutSession{
		ID:       sess.ID,
		URL:      sess.URL,
		UserID:   sess.ClientReferenceID,
		Paid:     sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		Metadata: sess.Metadata,
	}
	if sess.PaymentIntent != nil {
		out.PaymentID = sess.PaymentIntent.ID
	}
	if out.Metadata == nil {
		out.Metadata = map[string]string{}
	}
	return out
}

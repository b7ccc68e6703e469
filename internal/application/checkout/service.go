// Package checkout 提供积分包购买：创建支付会话与支付完成入账
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"shape-forge-api/internal/application/billing"
	"shape-forge-api/internal/domain/entity"
	"shape-forge-api/internal/domain/service"
	apperrors "shape-forge-api/pkg/errors"
	"shape-forge-api/pkg/logger"
	"shape-forge-api/pkg/metrics"
)

// MetadataCredits 会话元数据中记录积分数量的键
const MetadataCredits = "credits"

// Pack 可购买的积分包
type Pack struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Credits       int    `json:"credits"`
	PriceCents    int64  `json:"price_cents"`
	Currency      string `json:"currency"`
	StripePriceID string `json:"-"`
	Popular       bool   `json:"popular"`
}

type Config struct {
	// BaseURL API 对外地址，用于支付成功回跳
	BaseURL string
	// FrontendURL 前端地址，用于取消支付回跳
	FrontendURL    string
	Packs          []Pack
	DefaultCredits int
}

// CompleteResult 支付完成入账结果
type CompleteResult struct {
	UserID  string
	Credits int
	// Applied 为 false 表示该支付此前已入账
	Applied bool
}

type Service struct {
	gateway service.PaymentGateway
	billing *billing.Service
	cfg     Config
}

// NewService 创建服务，gateway 为 nil 时支付功能关闭
func NewService(gateway service.PaymentGateway, billingSvc *billing.Service, cfg Config) *Service {
	if cfg.DefaultCredits <= 0 {
		cfg.DefaultCredits = 100
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.FrontendURL = strings.TrimRight(cfg.FrontendURL, "/")
	return &Service{gateway: gateway, billing: billingSvc, cfg: cfg}
}

// Enabled 支付功能是否可用
func (s *Service) Enabled() bool {
	return s.gateway != nil
}

// Packs 全部积分包
func (s *Service) Packs() []Pack {
	out := make([]Pack, len(s.cfg.Packs))
	copy(out, s.cfg.Packs)
	return out
}

func (s *Service) pack(id string) (Pack, bool) {
	for _, p := range s.cfg.Packs {
		if p.ID == id {
			return p, true
		}
	}
	return Pack{}, false
}

// CreateSession 为积分包创建收银台会话
func (s *Service) CreateSession(ctx context.Context, userID, packID string) (*service.CheckoutSession, error) {
	if !s.Enabled() {
		return nil, apperrors.ErrPaymentsDisabled
	}
	pack, ok := s.pack(packID)
	if !ok {
		return nil, apperrors.ErrPackNotFound.WithDetail(packID)
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, service.CheckoutRequest{
		UserID:      userID,
		PackID:      pack.ID,
		ProductName: fmt.Sprintf("%d Credits", pack.Credits),
		Credits:     pack.Credits,
		PriceID:     pack.StripePriceID,
		UnitAmount:  pack.PriceCents,
		Currency:    pack.Currency,
		SuccessURL:  s.cfg.BaseURL + "/v1/checkout/complete?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:   s.cfg.FrontendURL + "/pricing",
	})
	if err != nil {
		metrics.CheckoutTotal.WithLabelValues("create", "error").Inc()
		return nil, apperrors.ErrPaymentFailed.WithError(err)
	}

	metrics.CheckoutTotal.WithLabelValues("create", "success").Inc()
	logger.Info(ctx, "checkout session created", "user_id", userID, "pack", pack.ID, "session_id", session.ID)
	return session, nil
}

// Complete 支付完成回跳时入账，重复调用不会重复入账
func (s *Service) Complete(ctx context.Context, sessionID string) (*CompleteResult, error) {
	if !s.Enabled() {
		return nil, apperrors.ErrPaymentsDisabled
	}
	if strings.TrimSpace(sessionID) == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("missing session_id")
	}

	session, err := s.gateway.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		metrics.CheckoutTotal.WithLabelValues("complete", "error").Inc()
		return nil, apperrors.ErrPaymentFailed.WithError(err)
	}

	res, err := s.apply(ctx, session)
	s.observe("complete", res, err)
	return res, err
}

// HandleWebhook 处理支付平台推送。
// checkout.session.completed 覆盖即时支付；延迟到账的支付方式在
// checkout.session.async_payment_succeeded 时才变为已支付。
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if !s.Enabled() {
		return apperrors.ErrPaymentsDisabled
	}

	event, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		metrics.CheckoutTotal.WithLabelValues("webhook", "rejected").Inc()
		if errors.Is(err, service.ErrInvalidSignature) {
			return apperrors.ErrInvalidParam.WithDetail("invalid webhook signature")
		}
		return apperrors.ErrInvalidParam.WithError(err)
	}

	if !service.IsCheckoutPaymentEvent(event.Type) || event.Session == nil {
		logger.Debug(ctx, "ignoring webhook event", "event_id", event.ID, "type", event.Type)
		return nil
	}

	res, err := s.apply(ctx, event.Session)
	if errors.Is(err, apperrors.ErrPaymentNotCompleted) {
		// 延迟到账的支付方式会在后续事件中确认
		logger.Info(ctx, "checkout completed without payment", "session_id", event.Session.ID)
		return nil
	}
	s.observe("webhook", res, err)
	return err
}

func (s *Service) observe(op string, res *CompleteResult, err error) {
	switch {
	case err != nil:
		metrics.CheckoutTotal.WithLabelValues(op, "error").Inc()
	case res != nil && !res.Applied:
		metrics.CheckoutTotal.WithLabelValues(op, "duplicate").Inc()
	default:
		metrics.CheckoutTotal.WithLabelValues(op, "success").Inc()
	}
}

// apply 校验会话并按支付 ID 幂等入账
func (s *Service) apply(ctx context.Context, session *service.CheckoutSession) (*CompleteResult, error) {
	if !session.Paid {
		return nil, apperrors.ErrPaymentNotCompleted
	}
	if session.UserID == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("checkout session has no user reference")
	}

	credits := s.cfg.DefaultCredits
	if raw := session.Metadata[MetadataCredits]; raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			credits = n
		}
	}

	paymentID := session.PaymentID
	if paymentID == "" {
		paymentID = session.ID
	}

	applied, err := s.billing.Grant(ctx, billing.GrantInput{
		UserID:            session.UserID,
		Amount:            credits,
		Type:              entity.TransactionPurchase,
		Description:       fmt.Sprintf("Purchased %d credits", credits),
		ExternalPaymentID: paymentID,
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "checkout credited",
		"user_id", session.UserID,
		"credits", credits,
		"payment_id", paymentID,
		"applied", applied,
	)
	return &CompleteResult{UserID: session.UserID, Credits: credits, Applied: applied}, nil
}

package wire

import (
	"shape-forge-api/internal/application/account"
	"shape-forge-api/internal/application/billing"
	"shape-forge-api/internal/application/checkout"
	"shape-forge-api/internal/application/generation"
	"shape-forge-api/internal/application/quota"
	"shape-forge-api/internal/config"
	"shape-forge-api/internal/domain/repository"
	"shape-forge-api/internal/domain/service"
	"shape-forge-api/internal/infrastructure/engine"
	"shape-forge-api/internal/infrastructure/identity"
	"shape-forge-api/internal/infrastructure/messaging"
	"shape-forge-api/internal/infrastructure/payment"
	"shape-forge-api/internal/infrastructure/persistence/postgres"
	"shape-forge-api/internal/infrastructure/persistence/redis"
	"shape-forge-api/internal/interfaces/http/handler"
	"shape-forge-api/internal/interfaces/http/middleware"
)

// DataLayer 数据层依赖容器
type DataLayer struct {
	// PostgreSQL
	PgClient       *postgres.Client
	TxManager      *postgres.TxManager
	UserRepo       *postgres.UserRepository
	GenerationRepo *postgres.GenerationRepository
	CreditRepo     *postgres.CreditRepository
	CreditTxnRepo  *postgres.CreditTransactionRepository

	// Redis
	RedisClient *redis.Client
	Cache       *redis.Cache
	RateLimiter *redis.RateLimiter

	// Messaging
	Producer *messaging.Producer
}

// WorkerApp job-worker 依赖容器
type WorkerApp struct {
	PgClient    *postgres.Client
	RedisClient *redis.Client
	Producer    *messaging.Producer
	Generations *generation.Service
}

// BootstrapApp bootstrap 依赖容器，仅依赖 PostgreSQL
type BootstrapApp struct {
	PgClient *postgres.Client
	Accounts *account.Service
}

// ProvidePostgresClient 提供 PostgreSQL 客户端
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClient 提供 Redis 客户端
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideMessagingProducer 提供消息生产者
func ProvideMessagingProducer(redisClient *redis.Client, cfg *config.Config) *messaging.Producer {
	maxLen := cfg.Messaging.RedisStream.MaxLen
	if maxLen <= 0 {
		maxLen = 100000
	}
	return messaging.NewProducer(redisClient.Redis(), int64(maxLen))
}

// ProvideNoCache bootstrap 不连接 Redis，余额直接读库
func ProvideNoCache() billing.Cache {
	return nil
}

// ProvideAuthConfig 提供认证配置
func ProvideAuthConfig(cfg *config.Config) middleware.AuthConfig {
	return middleware.AuthConfig{
		Secret:     cfg.Security.JWT.Secret,
		Issuer:     cfg.Security.JWT.Issuer,
		CookieName: cfg.Security.Session.CookieName,
	}
}

// ProvideSessionConfig 提供会话 Cookie 配置
func ProvideSessionConfig(cfg *config.Config) handler.SessionConfig {
	return handler.SessionConfig{
		CookieName:  cfg.Security.Session.CookieName,
		Domain:      cfg.Security.Session.Domain,
		Secure:      cfg.Security.Session.Secure,
		TTL:         cfg.Security.JWT.Expiration,
		StateTTL:    cfg.Identity.StateTTL,
		FrontendURL: cfg.App.PublicFrontendURL(),
	}
}

// ProvideMockCreditsConfig 提供赠送积分开关
func ProvideMockCreditsConfig(cfg *config.Config) handler.MockCreditsConfig {
	mc := cfg.Features.MockCredits
	return handler.MockCreditsConfig{
		Enabled:   mc.Enabled,
		Amount:    mc.Amount,
		MaxAmount: mc.MaxAmount,
	}
}

// ProvideShapeEngine 按配置选择生成引擎
func ProvideShapeEngine(cfg *config.Config) (service.ShapeEngine, error) {
	return engine.New(&cfg.Generation.Engine)
}

// ProvideIdentityProvider 提供 OAuth 身份提供方
func ProvideIdentityProvider(cfg *config.Config) service.IdentityProvider {
	return identity.NewOAuthProvider(&cfg.Identity, cfg.App.BaseURL)
}

// ProvidePaymentGateway 未配置 Stripe 密钥时返回 nil，收银台接口返回 503
func ProvidePaymentGateway(cfg *config.Config) service.PaymentGateway {
	if !cfg.Payment.Stripe.Enabled() {
		return nil
	}
	return payment.NewStripeGateway(&cfg.Payment.Stripe)
}

// ProvideGenerationPublisher 仅异步模式下投递生成任务
func ProvideGenerationPublisher(cfg *config.Config, producer *messaging.Producer) generation.Publisher {
	if !cfg.Generation.Async || producer == nil {
		return nil
	}
	return producer
}

// ProvideBillingService 提供积分服务
func ProvideBillingService(
	tx repository.Transactor,
	credits repository.CreditRepository,
	txns repository.CreditTransactionRepository,
	cache billing.Cache,
	cfg *config.Config,
) *billing.Service {
	return billing.NewService(tx, credits, txns, cache, billing.Config{
		BalanceTTL:        cfg.Cache.BalanceTTL,
		TransactionsLimit: cfg.Billing.TransactionsLimit,
	})
}

// ProvideGenerationService 提供形状生成服务
func ProvideGenerationService(
	tx repository.Transactor,
	gens repository.GenerationRepository,
	billingSvc *billing.Service,
	shapeEngine service.ShapeEngine,
	quotaChecker *quota.GenerationQuotaChecker,
	publisher generation.Publisher,
	cfg *config.Config,
) *generation.Service {
	return generation.NewService(tx, gens, billingSvc, shapeEngine, quotaChecker, publisher, generation.Config{
		Cost:        cfg.Generation.Cost,
		Async:       cfg.Generation.Async,
		RecentLimit: cfg.Generation.RecentLimit,
		DailyLimit:  cfg.Generation.DailyLimit,
	})
}

// ProvideAccountService 提供账户服务
func ProvideAccountService(
	tx repository.Transactor,
	users repository.UserRepository,
	gens repository.GenerationRepository,
	billingSvc *billing.Service,
	idp service.IdentityProvider,
	cfg *config.Config,
) *account.Service {
	return account.NewService(tx, users, gens, billingSvc, idp, account.Config{
		SignupBonus: cfg.Billing.SignupBonus,
	})
}

// ProvideCheckoutService 提供收银台服务
func ProvideCheckoutService(gateway service.PaymentGateway, billingSvc *billing.Service, cfg *config.Config) *checkout.Service {
	packs := make([]checkout.Pack, 0, len(cfg.Billing.Packs))
	for _, p := range cfg.Billing.Packs {
		packs = append(packs, checkout.Pack{
			ID:            p.ID,
			Name:          p.Name,
			Credits:       p.Credits,
			PriceCents:    p.PriceCents,
			Currency:      p.Currency,
			StripePriceID: p.StripePriceID,
			Popular:       p.Popular,
		})
	}
	return checkout.NewService(gateway, billingSvc, checkout.Config{
		BaseURL:        cfg.App.BaseURL,
		FrontendURL:    cfg.App.PublicFrontendURL(),
		Packs:          packs,
		DefaultCredits: cfg.Billing.DefaultPurchaseCredits,
	})
}

// ProvideHealthHandler 提供健康检查处理器
func ProvideHealthHandler(pg *postgres.Client, redisClient *redis.Client, cfg *config.Config) *handler.HealthHandler {
	return handler.NewHealthHandler(pg, redisClient).WithVersion(cfg.App.Version)
}

// ProvideCheckoutHandler 提供收银台处理器
func ProvideCheckoutHandler(checkoutSvc *checkout.Service, cfg *config.Config) *handler.CheckoutHandler {
	return handler.NewCheckoutHandler(checkoutSvc, cfg.App.PublicFrontendURL())
}

//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"shape-forge-api/internal/application/billing"
	"shape-forge-api/internal/application/quota"
	"shape-forge-api/internal/config"
	"shape-forge-api/internal/domain/repository"
	"shape-forge-api/internal/infrastructure/messaging"
	"shape-forge-api/internal/infrastructure/persistence/postgres"
	"shape-forge-api/internal/infrastructure/persistence/redis"
	"shape-forge-api/internal/interfaces/http/handler"
	"shape-forge-api/internal/interfaces/http/middleware"
	"shape-forge-api/internal/interfaces/http/router"
)

// InitializeDataLayer 初始化数据层
func InitializeDataLayer(ctx context.Context, cfg *config.Config) (*DataLayer, func(), error) {
	wire.Build(
		PostgresSet,
		RedisSet,
		MessagingSet,
		wire.Struct(new(DataLayer), "*"),
	)
	return nil, nil, nil
}

// InitializeBootstrap 仅初始化 PostgreSQL 与账户服务（用于 bootstrap）
func InitializeBootstrap(ctx context.Context, cfg *config.Config) (*BootstrapApp, func(), error) {
	wire.Build(
		RepoSet,
		ProvideNoCache,
		ProvideBillingService,
		ProvideIdentityProvider,
		ProvideAccountService,
		wire.Struct(new(BootstrapApp), "*"),
	)
	return nil, nil, nil
}

// InitializeWorker 初始化 job-worker
func InitializeWorker(ctx context.Context, cfg *config.Config) (*WorkerApp, func(), error) {
	wire.Build(
		RepoSet,
		RedisSet,
		MessagingSet,
		ServiceSet,
		wire.Struct(new(WorkerApp), "*"),
	)
	return nil, nil, nil
}

// InitializeApp 初始化整个应用（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		RepoSet,
		RedisSet,
		MessagingSet,
		ServiceSet,
		ProvideIdentityProvider,
		ProvideAccountService,
		ProvidePaymentGateway,
		RouterSet,
	)
	return nil, nil, nil
}

// PostgresSet PostgreSQL 提供者集合
var PostgresSet = wire.NewSet(
	ProvidePostgresClient,
	postgres.NewTxManager,
	postgres.NewUserRepository,
	postgres.NewGenerationRepository,
	postgres.NewCreditRepository,
	postgres.NewCreditTransactionRepository,
)

// RepoSet 整合了具体实现与接口绑定的集合
var RepoSet = wire.NewSet(
	PostgresSet,
	wire.Bind(new(repository.Transactor), new(*postgres.TxManager)),
	wire.Bind(new(repository.UserRepository), new(*postgres.UserRepository)),
	wire.Bind(new(repository.GenerationRepository), new(*postgres.GenerationRepository)),
	wire.Bind(new(repository.CreditRepository), new(*postgres.CreditRepository)),
	wire.Bind(new(repository.CreditTransactionRepository), new(*postgres.CreditTransactionRepository)),
)

// RedisSet Redis 提供者集合
var RedisSet = wire.NewSet(
	ProvideRedisClient,
	redis.NewCache,
	redis.NewRateLimiter,
	wire.Bind(new(billing.Cache), new(*redis.Cache)),
	wire.Bind(new(middleware.RateLimiter), new(*redis.RateLimiter)),
)

// MessagingSet 消息队列提供者集合
var MessagingSet = wire.NewSet(
	ProvideMessagingProducer,
	wire.Bind(new(middleware.AuditPublisher), new(*messaging.Producer)),
)

// ServiceSet 积分与生成服务
var ServiceSet = wire.NewSet(
	ProvideBillingService,
	ProvideShapeEngine,
	quota.NewGenerationQuotaChecker,
	ProvideGenerationPublisher,
	ProvideGenerationService,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	ProvideAuthConfig,
	ProvideSessionConfig,
	ProvideMockCreditsConfig,
	ProvideCheckoutService,
	ProvideHealthHandler,
	ProvideCheckoutHandler,
	handler.NewAuthHandler,
	handler.NewAccountHandler,
	handler.NewGenerationHandler,
	handler.NewCreditsHandler,
	wire.Struct(new(router.RouterHandlers), "*"),
	router.NewWithDeps,
)

// Package config 提供配置加载和管理功能
package config

import (
	"fmt"
	"time"
)

// Config 应用配置根结构
type Config struct {
	App           AppConfig           `yaml:"app" mapstructure:"app"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Database      DatabaseConfig      `yaml:"database" mapstructure:"database"`
	Cache         CacheConfig         `yaml:"cache" mapstructure:"cache"`
	Messaging     MessagingConfig     `yaml:"messaging" mapstructure:"messaging"`
	Identity      IdentityConfig      `yaml:"identity" mapstructure:"identity"`
	Payment       PaymentConfig       `yaml:"payment" mapstructure:"payment"`
	Billing       BillingConfig       `yaml:"billing" mapstructure:"billing"`
	Generation    GenerationConfig    `yaml:"generation" mapstructure:"generation"`
	Worker        WorkerConfig        `yaml:"worker" mapstructure:"worker"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
	Security      SecurityConfig      `yaml:"security" mapstructure:"security"`
	Features      FeaturesConfig      `yaml:"features" mapstructure:"features"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Version string `yaml:"version" mapstructure:"version"`
	Env     string `yaml:"env" mapstructure:"env"`
	// BaseURL API 对外访问地址，用于拼接 OAuth 回调与支付回跳地址
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	// FrontendURL 前端页面地址，为空时与 BaseURL 相同
	FrontendURL string `yaml:"frontend_url" mapstructure:"frontend_url"`
}

// PublicFrontendURL 返回前端地址
func (c AppConfig) PublicFrontendURL() string {
	if c.FrontendURL != "" {
		return c.FrontendURL
	}
	return c.BaseURL
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTP HTTPServerConfig `yaml:"http" mapstructure:"http"`
}

// HTTPServerConfig HTTP 服务器配置
type HTTPServerConfig struct {
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Postgres PostgresConfig `yaml:"postgres" mapstructure:"postgres"`
}

// PostgresConfig PostgreSQL 配置
type PostgresConfig struct {
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port"`
	User            string        `yaml:"user" mapstructure:"user"`
	Password        string        `yaml:"password" mapstructure:"password"`
	Database        string        `yaml:"database" mapstructure:"database"`
	SSLMode         string        `yaml:"ssl_mode" mapstructure:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" mapstructure:"conn_max_idle_time"`
	// AutoMigrate 启动时执行内嵌迁移
	AutoMigrate bool `yaml:"auto_migrate" mapstructure:"auto_migrate"`
}

// DSN 返回 gorm/pgx 使用的 key=value 形式连接串
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// URL 返回 golang-migrate 使用的 URL 形式连接串
func (c PostgresConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Redis RedisConfig `yaml:"redis" mapstructure:"redis"`
	// BalanceTTL 积分余额缓存时长
	BalanceTTL time.Duration `yaml:"balance_ttl" mapstructure:"balance_ttl"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	Password     string        `yaml:"password" mapstructure:"password"`
	DB           int           `yaml:"db" mapstructure:"db"`
	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// MessagingConfig 消息队列配置
type MessagingConfig struct {
	RedisStream RedisStreamConfig `yaml:"redis_stream" mapstructure:"redis_stream"`
}

// RedisStreamConfig Redis Stream 配置
type RedisStreamConfig struct {
	MaxLen        int           `yaml:"max_len" mapstructure:"max_len"`
	BlockTimeout  time.Duration `yaml:"block_timeout" mapstructure:"block_timeout"`
	ClaimInterval time.Duration `yaml:"claim_interval" mapstructure:"claim_interval"`
	RetryLimit    int           `yaml:"retry_limit" mapstructure:"retry_limit"`
	RetryBackoff  BackoffConfig `yaml:"retry_backoff" mapstructure:"retry_backoff"`
}

// BackoffConfig 退避配置
type BackoffConfig struct {
	Initial    time.Duration `yaml:"initial" mapstructure:"initial"`
	Max        time.Duration `yaml:"max" mapstructure:"max"`
	Multiplier float64       `yaml:"multiplier" mapstructure:"multiplier"`
}

// IdentityConfig 外部身份提供方 (OAuth2/OIDC) 配置
type IdentityConfig struct {
	ClientID     string   `yaml:"client_id" mapstructure:"client_id"`
	ClientSecret string   `yaml:"client_secret" mapstructure:"client_secret"`
	AuthURL      string   `yaml:"auth_url" mapstructure:"auth_url"`
	TokenURL     string   `yaml:"token_url" mapstructure:"token_url"`
	UserInfoURL  string   `yaml:"userinfo_url" mapstructure:"userinfo_url"`
	Scopes       []string `yaml:"scopes" mapstructure:"scopes"`
	// RedirectPath 回调路径，拼接在 app.base_url 之后
	RedirectPath string        `yaml:"redirect_path" mapstructure:"redirect_path"`
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	StateTTL     time.Duration `yaml:"state_ttl" mapstructure:"state_ttl"`
}

// PaymentConfig 支付配置
type PaymentConfig struct {
	Stripe StripeConfig `yaml:"stripe" mapstructure:"stripe"`
}

// StripeConfig Stripe 配置
type StripeConfig struct {
	SecretKey     string `yaml:"secret_key" mapstructure:"secret_key"`
	WebhookSecret string `yaml:"webhook_secret" mapstructure:"webhook_secret"`
	// APIURL 覆盖 Stripe API 地址 (stripe-mock 或测试)
	APIURL string `yaml:"api_url" mapstructure:"api_url"`
}

// Enabled 是否配置了支付
func (c StripeConfig) Enabled() bool {
	return c.SecretKey != ""
}

// BillingConfig 积分计费配置
type BillingConfig struct {
	SignupBonus            int          `yaml:"signup_bonus" mapstructure:"signup_bonus"`
	DefaultPurchaseCredits int          `yaml:"default_purchase_credits" mapstructure:"default_purchase_credits"`
	TransactionsLimit      int          `yaml:"transactions_limit" mapstructure:"transactions_limit"`
	Packs                  []PackConfig `yaml:"packs" mapstructure:"packs"`
}

// PackConfig 积分包配置
type PackConfig struct {
	ID            string `yaml:"id" mapstructure:"id"`
	Name          string `yaml:"name" mapstructure:"name"`
	Credits       int    `yaml:"credits" mapstructure:"credits"`
	PriceCents    int64  `yaml:"price_cents" mapstructure:"price_cents"`
	Currency      string `yaml:"currency" mapstructure:"currency"`
	StripePriceID string `yaml:"stripe_price_id" mapstructure:"stripe_price_id"`
	Popular       bool   `yaml:"popular" mapstructure:"popular"`
}

// GenerationConfig 形状生成配置
type GenerationConfig struct {
	Cost        int          `yaml:"cost" mapstructure:"cost"`
	Async       bool         `yaml:"async" mapstructure:"async"`
	RecentLimit int          `yaml:"recent_limit" mapstructure:"recent_limit"`
	DailyLimit  int          `yaml:"daily_limit" mapstructure:"daily_limit"`
	Engine      EngineConfig `yaml:"engine" mapstructure:"engine"`
}

// EngineConfig 生成引擎配置
type EngineConfig struct {
	// Type simulated 或 http
	Type           string        `yaml:"type" mapstructure:"type"`
	Delay          time.Duration `yaml:"delay" mapstructure:"delay"`
	ModelURLPrefix string        `yaml:"model_url_prefix" mapstructure:"model_url_prefix"`
	Endpoint       string        `yaml:"endpoint" mapstructure:"endpoint"`
	Timeout        time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// WorkerConfig 异步任务 Worker 配置
type WorkerConfig struct {
	ReconcileSchedule string        `yaml:"reconcile_schedule" mapstructure:"reconcile_schedule"`
	StaleAfter        time.Duration `yaml:"stale_after" mapstructure:"stale_after"`
}

// ObservabilityConfig 可观测性配置
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// TracingConfig 追踪配置
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	JWT       JWTConfig       `yaml:"jwt" mapstructure:"jwt"`
	Session   SessionConfig   `yaml:"session" mapstructure:"session"`
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	CORS      CORSConfig      `yaml:"cors" mapstructure:"cors"`
}

// JWTConfig JWT 配置
type JWTConfig struct {
	Secret     string        `yaml:"secret" mapstructure:"secret"`
	Issuer     string        `yaml:"issuer" mapstructure:"issuer"`
	Expiration time.Duration `yaml:"expiration" mapstructure:"expiration"`
}

// SessionConfig 会话 Cookie 配置
type SessionConfig struct {
	CookieName string `yaml:"cookie_name" mapstructure:"cookie_name"`
	Domain     string `yaml:"domain" mapstructure:"domain"`
	Secure     bool   `yaml:"secure" mapstructure:"secure"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// GenerationsPerMinute 单用户每分钟生成请求数
	GenerationsPerMinute int `yaml:"generations_per_minute" mapstructure:"generations_per_minute"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
}

// FeaturesConfig 功能开关配置
type FeaturesConfig struct {
	MockCredits MockCreditsFeature `yaml:"mock_credits" mapstructure:"mock_credits"`
}

// MockCreditsFeature 开发环境赠送积分开关
type MockCreditsFeature struct {
	Enabled   bool `yaml:"enabled" mapstructure:"enabled"`
	Amount    int  `yaml:"amount" mapstructure:"amount"`
	MaxAmount int  `yaml:"max_amount" mapstructure:"max_amount"`
}

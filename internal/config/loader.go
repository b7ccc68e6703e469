// Package config 提供配置加载功能
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// Load 加载配置文件
// 按优先级加载：默认配置 -> 环境配置 -> 环境变量
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	dir := os.Getenv("CONFIG_DIR")
	if dir == "" {
		dir = "configs"
	}

	// 1. 加载默认配置
	if err := loadConfigFile(v, filepath.Join(dir, "config.yaml"), false); err != nil {
		return nil, err
	}

	// 2. 加载环境特定配置
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	envFile := filepath.Join(dir, fmt.Sprintf("config.%s.yaml", env))
	if err := loadConfigFile(v, envFile, true); err != nil {
		return nil, err
	}

	// 3. 绑定环境变量 (直接覆盖)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 设置默认值 (兜底)
	setDefaults(v)

	// 解析配置
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Security.JWT.Secret == "" {
		return fmt.Errorf("security.jwt.secret is required")
	}
	if c.Generation.Cost <= 0 {
		return fmt.Errorf("generation.cost must be positive, got %d", c.Generation.Cost)
	}
	seen := make(map[string]struct{}, len(c.Billing.Packs))
	for _, p := range c.Billing.Packs {
		if p.ID == "" || p.Credits <= 0 || p.PriceCents <= 0 {
			return fmt.Errorf("invalid credit pack %q", p.ID)
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("duplicate credit pack %q", p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	switch c.Generation.Engine.Type {
	case "simulated":
	case "http":
		if c.Generation.Engine.Endpoint == "" {
			return fmt.Errorf("generation.engine.endpoint is required for http engine")
		}
	default:
		return fmt.Errorf("unknown generation.engine.type %q", c.Generation.Engine.Type)
	}
	return nil
}

// loadConfigFile 读取文件，执行环境变量替换，并加载到 viper
func loadConfigFile(v *viper.Viper, path string, optional bool) error {
	content, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	// 执行环境变量替换
	expanded := expandEnv(string(content))

	// 加载到 viper
	reader := strings.NewReader(expanded)
	if v.ConfigFileUsed() == "" {
		if err := v.ReadConfig(reader); err != nil {
			return fmt.Errorf("failed to read processed config %s: %w", path, err)
		}
		// 手动标记已加载文件，防止后续 ReadInConfig 报错
		v.SetConfigFile(path)
	} else {
		if err := v.MergeConfig(reader); err != nil {
			return fmt.Errorf("failed to merge processed config %s: %w", path, err)
		}
	}

	return nil
}

// 匹配 ${VAR} 或 ${VAR:default}
// g1: 变量名, g2: 默认值部分（含冒号）, g3: 默认值内容
var envPattern = regexp.MustCompile(`\${(\w+)(:([^}]*))?}`)

// expandEnv 替换字符串中的 ${VAR:default} 占位符
func expandEnv(s string) string {
	re := envPattern
	return re.ReplaceAllStringFunc(s, func(match string) string {
		submatch := re.FindStringSubmatch(match)
		key := submatch[1]
		hasDefault := submatch[2] != ""
		defVal := submatch[3]

		val, ok := os.LookupEnv(key)
		if ok {
			return val
		}
		if hasDefault {
			return defVal
		}
		return match // 保留原样以便识别未定义的变量
	})
}

// MustLoad 加载配置，失败时 panic
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// setDefaults 设置配置默认值
func setDefaults(v *viper.Viper) {
	// 应用默认值
	v.SetDefault("app.name", "shape-forge-api")
	v.SetDefault("app.version", "v0.0.0")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.base_url", "http://localhost:8080")

	// HTTP 服务器默认值
	v.SetDefault("server.http.host", "0.0.0.0")
	v.SetDefault("server.http.port", 8080)
	v.SetDefault("server.http.read_timeout", "30s")
	v.SetDefault("server.http.write_timeout", "60s")
	v.SetDefault("server.http.idle_timeout", "120s")
	v.SetDefault("server.http.shutdown_timeout", "30s")

	// 数据库默认值
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.database", "shape_forge")
	v.SetDefault("database.postgres.ssl_mode", "disable")
	v.SetDefault("database.postgres.max_open_conns", 50)
	v.SetDefault("database.postgres.max_idle_conns", 10)
	v.SetDefault("database.postgres.conn_max_lifetime", "30m")
	v.SetDefault("database.postgres.conn_max_idle_time", "5m")
	v.SetDefault("database.postgres.auto_migrate", false)

	// Redis 默认值
	v.SetDefault("cache.redis.host", "localhost")
	v.SetDefault("cache.redis.port", 6379)
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.pool_size", 100)
	v.SetDefault("cache.redis.min_idle_conns", 10)
	v.SetDefault("cache.redis.dial_timeout", "5s")
	v.SetDefault("cache.redis.read_timeout", "3s")
	v.SetDefault("cache.redis.write_timeout", "3s")
	v.SetDefault("cache.balance_ttl", "5m")

	// 消息队列默认值
	v.SetDefault("messaging.redis_stream.max_len", 100000)
	v.SetDefault("messaging.redis_stream.block_timeout", "5s")
	v.SetDefault("messaging.redis_stream.claim_interval", "30s")
	v.SetDefault("messaging.redis_stream.retry_limit", 3)
	v.SetDefault("messaging.redis_stream.retry_backoff.initial", "1s")
	v.SetDefault("messaging.redis_stream.retry_backoff.max", "30s")
	v.SetDefault("messaging.redis_stream.retry_backoff.multiplier", 2.0)

	// 身份提供方默认值
	v.SetDefault("identity.scopes", []string{"openid", "email", "profile"})
	v.SetDefault("identity.redirect_path", "/v1/auth/callback")
	v.SetDefault("identity.timeout", "10s")
	v.SetDefault("identity.state_ttl", "10m")

	// 计费默认值
	v.SetDefault("billing.signup_bonus", 0)
	v.SetDefault("billing.default_purchase_credits", 100)
	v.SetDefault("billing.transactions_limit", 20)
	v.SetDefault("billing.packs", []map[string]any{
		{"id": "starter", "name": "Starter", "credits": 100, "price_cents": 1000, "currency": "usd"},
		{"id": "pro", "name": "Pro", "credits": 500, "price_cents": 4500, "currency": "usd", "popular": true},
		{"id": "studio", "name": "Studio", "credits": 1000, "price_cents": 8000, "currency": "usd"},
	})

	// 生成默认值
	v.SetDefault("generation.cost", 10)
	v.SetDefault("generation.async", false)
	v.SetDefault("generation.recent_limit", 10)
	v.SetDefault("generation.daily_limit", 0)
	v.SetDefault("generation.engine.type", "simulated")
	v.SetDefault("generation.engine.delay", "2s")
	v.SetDefault("generation.engine.model_url_prefix", "/models")
	v.SetDefault("generation.engine.timeout", "60s")

	// Worker 默认值
	v.SetDefault("worker.reconcile_schedule", "@every 1m")
	v.SetDefault("worker.stale_after", "10m")

	// 可观测性默认值
	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "json")
	v.SetDefault("observability.tracing.enabled", false)
	v.SetDefault("observability.tracing.endpoint", "localhost:4317")
	v.SetDefault("observability.tracing.sample_rate", 1.0)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.path", "/metrics")

	// 安全默认值
	v.SetDefault("security.jwt.issuer", "shape-forge")
	v.SetDefault("security.jwt.expiration", "168h")
	v.SetDefault("security.session.cookie_name", "sf_session")
	v.SetDefault("security.session.secure", false)
	v.SetDefault("security.rate_limit.enabled", true)
	v.SetDefault("security.rate_limit.generations_per_minute", 20)
	v.SetDefault("security.cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("security.cors.allowed_headers", []string{"Origin", "Content-Type", "Authorization", "Idempotency-Key", "X-Request-ID"})

	// 功能开关默认值
	v.SetDefault("features.mock_credits.enabled", false)
	v.SetDefault("features.mock_credits.amount", 100)
	v.SetDefault("features.mock_credits.max_amount", 1000)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestLoad_DefaultsAndEnvExpansion(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.yaml", `
app:
  base_url: ${TEST_BASE_URL:http://fallback}
security:
  jwt:
    secret: ${TEST_JWT_SECRET}
`)
	t.Setenv("CONFIG_DIR", dir)
	t.Setenv("APP_ENV", "unit")
	t.Setenv("TEST_JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://fallback", cfg.App.BaseURL)
	assert.Equal(t, "http://fallback", cfg.App.PublicFrontendURL())
	assert.Equal(t, "s3cret", cfg.Security.JWT.Secret)
	assert.Equal(t, 10, cfg.Generation.Cost)
	assert.Equal(t, 2*time.Second, cfg.Generation.Engine.Delay)
	assert.Equal(t, "simulated", cfg.Generation.Engine.Type)
	assert.Equal(t, 20, cfg.Billing.TransactionsLimit)
	require.Len(t, cfg.Billing.Packs, 3)
	assert.Equal(t, 500, cfg.Billing.Packs[1].Credits)
	assert.True(t, cfg.Billing.Packs[1].Popular)
	assert.Equal(t, []string{"openid", "email", "profile"}, cfg.Identity.Scopes)
}

func TestLoad_EnvironmentFileOverrides(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.yaml", `
security:
  jwt:
    secret: base
generation:
  cost: 10
`)
	writeConfig(t, dir, "config.staging.yaml", `
generation:
  cost: 25
  async: true
`)
	t.Setenv("CONFIG_DIR", dir)
	t.Setenv("APP_ENV", "staging")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Generation.Cost)
	assert.True(t, cfg.Generation.Async)
	assert.Equal(t, "base", cfg.Security.JWT.Secret)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("CONFIG_DIR", t.TempDir())
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Security:   SecurityConfig{JWT: JWTConfig{Secret: "x"}},
			Generation: GenerationConfig{Cost: 10, Engine: EngineConfig{Type: "simulated"}},
			Billing: BillingConfig{Packs: []PackConfig{
				{ID: "starter", Credits: 100, PriceCents: 1000},
			}},
		}
	}
	require.NoError(t, valid().Validate())

	cfg := valid()
	cfg.Security.JWT.Secret = ""
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Generation.Cost = 0
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Billing.Packs = append(cfg.Billing.Packs, PackConfig{ID: "starter", Credits: 1, PriceCents: 1})
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Generation.Engine.Type = "http"
	assert.Error(t, cfg.Validate())
	cfg.Generation.Engine.Endpoint = "http://engine"
	assert.NoError(t, cfg.Validate())
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("EXPAND_SET", "value")
	assert.Equal(t, "a=value b=def c=${EXPAND_UNSET_NO_DEFAULT} d=",
		expandEnv("a=${EXPAND_SET:x} b=${EXPAND_UNSET:def} c=${EXPAND_UNSET_NO_DEFAULT} d=${EXPAND_EMPTY_DEFAULT:}"))
}

func TestPostgresConfig_ConnectionStrings(t *testing.T) {
	c := PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "d", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=d sslmode=disable", c.DSN())
	assert.Equal(t, "postgres://u:p@db:5432/d?sslmode=disable", c.URL())
}

package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shape-forge-api/internal/application/account"
	"shape-forge-api/internal/application/billing"
	"shape-forge-api/internal/application/checkout"
	"shape-forge-api/internal/application/generation"
	"shape-forge-api/internal/application/quota"
	"shape-forge-api/internal/config"
	"shape-forge-api/internal/domain/entity"
	"shape-forge-api/internal/domain/service"
	"shape-forge-api/internal/infrastructure/engine"
	"shape-forge-api/internal/infrastructure/messaging"
	"shape-forge-api/internal/infrastructure/persistence/postgres"
	"shape-forge-api/internal/infrastructure/persistence/redis"
	"shape-forge-api/internal/interfaces/http/dto"
	"shape-forge-api/internal/interfaces/http/handler"
	"shape-forge-api/internal/interfaces/http/middleware"
	"shape-forge-api/internal/testutil"
	"shape-forge-api/pkg/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeIdentity struct {
	ident *service.Identity
}

func (f *fakeIdentity) AuthCodeURL(state string) string {
	return "https://idp.example/authorize?state=" + url.QueryEscape(state)
}

func (f *fakeIdentity) Exchange(ctx context.Context, code string) (*service.Identity, error) {
	if code != "good-code" {
		return nil, errors.New("bad code")
	}
	return f.ident, nil
}

type fakeGateway struct {
	sessions map[string]*service.CheckoutSession
	event    *service.WebhookEvent
}

func (g *fakeGateway) CreateCheckoutSession(ctx context.Context, req service.CheckoutRequest) (*service.CheckoutSession, error) {
	return &service.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.example/cs_test_1", UserID: req.UserID}, nil
}

func (g *fakeGateway) GetCheckoutSession(ctx context.Context, id string) (*service.CheckoutSession, error) {
	s, ok := g.sessions[id]
	if !ok {
		return nil, errors.New("no such session")
	}
	return s, nil
}

func (g *fakeGateway) ParseWebhook(payload []byte, signature string) (*service.WebhookEvent, error) {
	if signature != "valid" {
		return nil, service.ErrInvalidSignature
	}
	return g.event, nil
}

type fakeAuditPublisher struct {
	logs []*messaging.AuditLogMessage
}

func (p *fakeAuditPublisher) PublishAuditLog(ctx context.Context, log *messaging.AuditLogMessage) (string, error) {
	p.logs = append(p.logs, log)
	return "1-0", nil
}

type envelope struct {
	Code    int              `json:"code"`
	Message string           `json:"message"`
	Data    json.RawMessage  `json:"data"`
	Meta    *dto.PageMeta    `json:"meta"`
	Error   *dto.ErrorDetail `json:"error"`
}

type fixture struct {
	engine   *gin.Engine
	accounts *account.Service
	billing  *billing.Service
	gateway  *fakeGateway
	audits   *fakeAuditPublisher
	jwt      *utils.JWTManager
}

const (
	testSecret   = "test-secret"
	testIssuer   = "shape-forge"
	testFrontend = "https://app.example"
)

func newFixture(t *testing.T) *fixture {
	t.Helper()

	client := testutil.NewSQLiteClient(t)
	tx := postgres.NewTxManager(client)
	users := postgres.NewUserRepository(client)
	gens := postgres.NewGenerationRepository(client)

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	redisClient := redis.NewClientFromRedis(rdb)

	billingSvc := billing.NewService(tx, postgres.NewCreditRepository(client), postgres.NewCreditTransactionRepository(client),
		redis.NewCache(redisClient), billing.Config{})
	idp := &fakeIdentity{ident: &service.Identity{Subject: "u1", Email: "ada@example.com", Name: "Ada"}}
	accountSvc := account.NewService(tx, users, gens, billingSvc, idp, account.Config{SignupBonus: 20})
	genSvc := generation.NewService(tx, gens, billingSvc, engine.NewSimulatedEngine(0, ""),
		quota.NewGenerationQuotaChecker(gens), nil, generation.Config{Cost: 10})
	gw := &fakeGateway{sessions: map[string]*service.CheckoutSession{}}
	checkoutSvc := checkout.NewService(gw, billingSvc, checkout.Config{
		BaseURL:     "https://api.example",
		FrontendURL: testFrontend,
		Packs:       []checkout.Pack{{ID: "starter", Name: "Starter", Credits: 100, PriceCents: 1000, Currency: "usd"}},
	})

	cfg := &config.Config{
		App: config.AppConfig{Name: "shape-forge-test", Env: "test"},
		Security: config.SecurityConfig{
			JWT:       config.JWTConfig{Secret: testSecret, Issuer: testIssuer},
			RateLimit: config.RateLimitConfig{Enabled: true, GenerationsPerMinute: 3},
		},
	}
	authCfg := middleware.AuthConfig{Secret: testSecret, Issuer: testIssuer}
	session := handler.SessionConfig{FrontendURL: testFrontend}

	audits := &fakeAuditPublisher{}
	r := NewWithDeps(cfg, &RouterHandlers{
		Health:     handler.NewHealthHandler(client, redisClient),
		Auth:       handler.NewAuthHandler(accountSvc, authCfg, session),
		Account:    handler.NewAccountHandler(accountSvc, authCfg, session),
		Generation: handler.NewGenerationHandler(genSvc),
		Credits:    handler.NewCreditsHandler(billingSvc, handler.MockCreditsConfig{Enabled: true, Amount: 50, MaxAmount: 500}),
		Checkout:   handler.NewCheckoutHandler(checkoutSvc, testFrontend),
	}, authCfg, redis.NewRateLimiter(redisClient), audits)

	return &fixture{
		engine:   r.Engine(),
		accounts: accountSvc,
		billing:  billingSvc,
		gateway:  gw,
		audits:   audits,
		jwt:      utils.NewJWTManager(testSecret, testIssuer),
	}
}

// signUp 创建用户并返回会话 Token
func (f *fixture) signUp(t *testing.T, id, email string) string {
	t.Helper()
	_, _, err := f.accounts.EnsureUser(context.Background(), &service.Identity{Subject: id, Email: email, Name: "Test"})
	require.NoError(t, err)
	token, err := f.jwt.GenerateSessionToken(id, email, time.Hour)
	require.NoError(t, err)
	return token
}

func (f *fixture) do(t *testing.T, method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if data != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestHealthEndpoints(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/ready", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var ready struct {
		Status string `json:"status"`
		Checks map[string]struct {
			Status string `json:"status"`
		} `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ready))
	assert.Equal(t, "ok", ready.Status)
	assert.Equal(t, "ok", ready.Checks["postgres"].Status)
	assert.Equal(t, "ok", ready.Checks["redis"].Status)
}

func TestAuthFlow_LoginCallbackAndSession(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/v1/auth/login?next=/history", "", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "idp.example", loc.Host)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)
	nonce := cookieByName(rec, "sf_oauth_nonce")
	require.NotNil(t, nonce)

	req := httptest.NewRequest(http.MethodGet, "/v1/auth/callback?code=good-code&state="+url.QueryEscape(state), nil)
	req.AddCookie(&http.Cookie{Name: nonce.Name, Value: nonce.Value})
	rec = httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, testFrontend+"/history", rec.Header().Get("Location"))
	session := cookieByName(rec, middleware.DefaultSessionCookie)
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)

	// 会话 Cookie 可直接访问受保护接口
	req = httptest.NewRequest(http.MethodGet, "/v1/account", nil)
	req.AddCookie(&http.Cookie{Name: session.Name, Value: session.Value})
	rec = httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var acct dto.AccountResponse
	decode(t, rec, &acct)
	assert.Equal(t, "u1", acct.ID)
	assert.Equal(t, "ada@example.com", acct.Email)

	// 注册赠送积分
	token, err := f.jwt.GenerateSessionToken("u1", "ada@example.com", time.Hour)
	require.NoError(t, err)
	var credits dto.CreditsResponse
	decode(t, f.do(t, http.MethodGet, "/v1/credits", token, nil), &credits)
	assert.Equal(t, 20, credits.Credits)

	rec = f.do(t, http.MethodPost, "/v1/auth/logout", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	cleared := cookieByName(rec, middleware.DefaultSessionCookie)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
}

func TestAuthCallback_Failures(t *testing.T) {
	f := newFixture(t)

	state, err := f.jwt.GenerateStateToken("nonce-1", "/dashboard", time.Minute)
	require.NoError(t, err)

	cases := []struct {
		name   string
		query  string
		cookie string
		reason string
	}{
		{"nonce mismatch", "code=good-code&state=" + url.QueryEscape(state), "other", "invalid_state"},
		{"bad state", "code=good-code&state=garbage", "nonce-1", "invalid_state"},
		{"idp error", "error=access_denied", "nonce-1", "access_denied"},
		{"exchange failure", "code=bad&state=" + url.QueryEscape(state), "nonce-1", "auth_failed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/auth/callback?"+tc.query, nil)
			req.AddCookie(&http.Cookie{Name: "sf_oauth_nonce", Value: tc.cookie})
			rec := httptest.NewRecorder()
			f.engine.ServeHTTP(rec, req)

			require.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, testFrontend+"/sign-in?error="+tc.reason, rec.Header().Get("Location"))
			assert.Nil(t, cookieByName(rec, middleware.DefaultSessionCookie))
		})
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/v1/credits", "/v1/account", "/v1/generations", "/v1/dashboard/stats"} {
		rec := f.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}

	rec := f.do(t, http.MethodGet, "/v1/credits", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	state, err := f.jwt.GenerateStateToken("n", "/", time.Minute)
	require.NoError(t, err)
	rec = f.do(t, http.MethodGet, "/v1/credits", state, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGenerate_DebitsUntilInsufficientThenRateLimits(t *testing.T) {
	f := newFixture(t)
	token := f.signUp(t, "u1", "ada@example.com")
	body := map[string]any{"parameters": map[string]any{"type": "cube", "width": 120}}

	rec := f.do(t, http.MethodPost, "/v1/generations", token, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out dto.GenerateResponse
	decode(t, rec, &out)
	assert.Equal(t, entity.GenerationStatusCompleted, out.Status)
	assert.Equal(t, 10, out.CreditsRemaining)
	assert.Equal(t, "/models/1.glb", out.ModelURL)

	rec = f.do(t, http.MethodPost, "/v1/generations", token, body)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &out)
	assert.Equal(t, 0, out.CreditsRemaining)

	rec = f.do(t, http.MethodPost, "/v1/generations", token, body)
	require.Equal(t, http.StatusPaymentRequired, rec.Code)
	var short dto.InsufficientCreditsData
	env := decode(t, rec, &short)
	assert.Equal(t, "Insufficient credits. Please purchase more credits.", env.Message)
	assert.Equal(t, 0, short.Credits)
	assert.Equal(t, 10, short.Required)

	rec = f.do(t, http.MethodPost, "/v1/generations", token, body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestGenerate_InvalidParameters(t *testing.T) {
	f := newFixture(t)
	token := f.signUp(t, "u1", "ada@example.com")

	rec := f.do(t, http.MethodPost, "/v1/generations", token, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/v1/generations", token, map[string]any{"parameters": map[string]any{"type": "sphere"}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decode(t, rec, nil)
	assert.Equal(t, "Invalid parameters", env.Message)
	require.NotNil(t, env.Error)
	assert.Equal(t, "1001", env.Error.ErrorCode)

	rec = f.do(t, http.MethodPost, "/v1/generations", token, map[string]any{"parameters": map[string]any{"type": "gear", "teeth": 3}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var credits dto.CreditsResponse
	decode(t, f.do(t, http.MethodGet, "/v1/credits", token, nil), &credits)
	assert.Equal(t, 20, credits.Credits)
}

func TestGenerate_IdempotencyKey(t *testing.T) {
	f := newFixture(t)
	token := f.signUp(t, "u1", "ada@example.com")
	body := map[string]any{"parameters": map[string]any{"type": "cylinder"}}

	var first, second dto.GenerateResponse
	decode(t, f.do(t, http.MethodPost, "/v1/generations", token, body, middleware.IdempotencyKeyHeader, "req-1"), &first)
	rec := f.do(t, http.MethodPost, "/v1/generations", token, body, middleware.IdempotencyKeyHeader, "req-1")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &second)

	assert.Equal(t, first.GenerationID, second.GenerationID)
	assert.True(t, second.Replayed)
	assert.Equal(t, 10, second.CreditsRemaining)
}

func TestGenerations_ListRecentGetAndStats(t *testing.T) {
	f := newFixture(t)
	token := f.signUp(t, "u1", "ada@example.com")
	other := f.signUp(t, "u2", "bob@example.com")

	rec := f.do(t, http.MethodPost, "/v1/generations", token, map[string]any{"parameters": map[string]any{"type": "gear"}})
	require.Equal(t, http.StatusOK, rec.Code)
	var created dto.GenerateResponse
	decode(t, rec, &created)

	var list dto.GenerationListResponse
	env := decode(t, f.do(t, http.MethodGet, "/v1/generations?page=1&page_size=5", token, nil), &list)
	require.Len(t, list.Items, 1)
	require.NotNil(t, env.Meta)
	assert.Equal(t, 1, env.Meta.Total)
	assert.Equal(t, entity.ShapeGear, list.Items[0].Parameters.Type)
	require.NotNil(t, list.Items[0].Parameters.Teeth)
	assert.Equal(t, 12, *list.Items[0].Parameters.Teeth)

	rec = f.do(t, http.MethodGet, "/v1/generations?shape=sphere", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	decode(t, f.do(t, http.MethodGet, "/v1/generations/recent", token, nil), &list)
	assert.Len(t, list.Items, 1)

	path := "/v1/generations/" + strconv.FormatInt(created.GenerationID, 10)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, path, token, nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, path, other, nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/v1/generations/abc", token, nil).Code)

	var stats generation.Stats
	decode(t, f.do(t, http.MethodGet, "/v1/dashboard/stats", token, nil), &stats)
	assert.Equal(t, 10, stats.Credits)
	assert.Equal(t, int64(1), stats.TotalShapes)
	assert.Equal(t, int64(1), stats.ShapesThisMonth)
	assert.Equal(t, 10, stats.CreditsUsedThisMonth)
}

func TestCredits_BonusAndTransactions(t *testing.T) {
	f := newFixture(t)
	token := f.signUp(t, "u1", "ada@example.com")

	rec := f.do(t, http.MethodPost, "/v1/credits/bonus", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var credits dto.CreditsResponse
	env := decode(t, rec, &credits)
	assert.Equal(t, "Mock credits added", env.Message)
	assert.Equal(t, 70, credits.Credits)

	rec = f.do(t, http.MethodPost, "/v1/credits/bonus", token, map[string]any{"amount": 1000})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var txns dto.TransactionListResponse
	decode(t, f.do(t, http.MethodGet, "/v1/credits/transactions", token, nil), &txns)
	require.Len(t, txns.Items, 2)
	assert.Equal(t, entity.TransactionBonus, txns.Items[0].Type)
	assert.Equal(t, 50, txns.Items[0].Amount)
}

func TestCheckout_CreateCompleteIsIdempotent(t *testing.T) {
	f := newFixture(t)
	token := f.signUp(t, "u1", "ada@example.com")

	var pricing dto.PricingResponse
	decode(t, f.do(t, http.MethodGet, "/v1/pricing", "", nil), &pricing)
	require.Len(t, pricing.Packs, 1)
	assert.True(t, pricing.PaymentsEnabled)

	rec := f.do(t, http.MethodPost, "/v1/checkout", token, map[string]any{"pack_id": "starter"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var sess dto.CheckoutResponse
	decode(t, rec, &sess)
	assert.Equal(t, "cs_test_1", sess.SessionID)

	rec = f.do(t, http.MethodPost, "/v1/checkout", token, map[string]any{"pack_id": "enterprise"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	f.gateway.sessions["cs_test_1"] = &service.CheckoutSession{
		ID: "cs_test_1", UserID: "u1", Paid: true, PaymentID: "pi_1",
		Metadata: map[string]string{checkout.MetadataCredits: "100"},
	}

	for i := 0; i < 2; i++ {
		rec = f.do(t, http.MethodGet, "/v1/checkout/complete?session_id=cs_test_1", "", nil)
		require.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, testFrontend+"/dashboard?success=purchase", rec.Header().Get("Location"))
	}

	var credits dto.CreditsResponse
	decode(t, f.do(t, http.MethodGet, "/v1/credits", token, nil), &credits)
	assert.Equal(t, 120, credits.Credits)

	rec = f.do(t, http.MethodGet, "/v1/checkout/complete", "", nil)
	assert.Equal(t, testFrontend+"/pricing", rec.Header().Get("Location"))

	rec = f.do(t, http.MethodGet, "/v1/checkout/complete?session_id=cs_missing", "", nil)
	assert.Equal(t, testFrontend+"/dashboard?error=purchase_failed", rec.Header().Get("Location"))
}

func TestPaymentsWebhook(t *testing.T) {
	f := newFixture(t)
	token := f.signUp(t, "u1", "ada@example.com")

	rec := f.do(t, http.MethodPost, "/v1/payments/webhook", "", map[string]any{"id": "evt_1"}, "Stripe-Signature", "forged")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.gateway.event = &service.WebhookEvent{
		ID:   "evt_1",
		Type: service.EventCheckoutCompleted,
		Session: &service.CheckoutSession{
			ID: "cs_2", UserID: "u1", Paid: true, PaymentID: "pi_2",
			Metadata: map[string]string{checkout.MetadataCredits: "500"},
		},
	}
	for i := 0; i < 2; i++ {
		rec = f.do(t, http.MethodPost, "/v1/payments/webhook", "", map[string]any{"id": "evt_1"}, "Stripe-Signature", "valid")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	var credits dto.CreditsResponse
	decode(t, f.do(t, http.MethodGet, "/v1/credits", token, nil), &credits)
	assert.Equal(t, 520, credits.Credits)
}

func TestAccount_UpdateAndDelete(t *testing.T) {
	f := newFixture(t)
	token := f.signUp(t, "u1", "ada@example.com")

	rec := f.do(t, http.MethodPut, "/v1/account", token, map[string]any{"name": "Ada L", "email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "email")

	rec = f.do(t, http.MethodPut, "/v1/account", token, map[string]any{"email": "ada@lovelace.dev"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPut, "/v1/account", token, map[string]any{"name": "Ada L", "email": "ada@lovelace.dev"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var acct dto.AccountResponse
	decode(t, rec, &acct)
	assert.Equal(t, "Ada L", acct.Name)
	assert.Equal(t, "ada@lovelace.dev", acct.Email)

	rec = f.do(t, http.MethodDelete, "/v1/account", token, map[string]any{"confirm_email": "ada@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodDelete, "/v1/account", token, map[string]any{"confirm_email": "ADA@lovelace.dev"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/v1/account", token, nil).Code)
}

func TestAudit_PublishesMutatingRequests(t *testing.T) {
	f := newFixture(t)
	token := f.signUp(t, "u1", "ada@example.com")

	f.do(t, http.MethodGet, "/v1/credits", token, nil)
	f.do(t, http.MethodPost, "/v1/credits/bonus", token, nil, middleware.RequestIDHeader, "rid-1")

	require.Len(t, f.audits.logs, 1)
	log := f.audits.logs[0]
	assert.Equal(t, http.MethodPost, log.Method)
	assert.Equal(t, "/v1/credits/bonus", log.Path)
	assert.Equal(t, "u1", log.UserID)
	assert.Equal(t, http.StatusOK, log.Status)
	assert.Equal(t, "rid-1", log.RequestID)
}

package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shape-forge-api/internal/infrastructure/messaging"
	"shape-forge-api/pkg/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testAuth = AuthConfig{Secret: "secret", Issuer: "shape-forge"}

func newAuthEngine() *gin.Engine {
	r := gin.New()
	r.GET("/me", Auth(testAuth), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserIDFromGin(c), "email": c.GetString(ContextEmail)})
	})
	return r
}

func TestAuth(t *testing.T) {
	m := utils.NewJWTManager(testAuth.Secret, testAuth.Issuer)
	session, err := m.GenerateSessionToken("u1", "a@example.com", time.Hour)
	require.NoError(t, err)
	expired, err := m.GenerateSessionToken("u1", "a@example.com", -time.Minute)
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		cookie string
		want   int
		msg    string
	}{
		{name: "bearer", header: "Bearer " + session, want: http.StatusOK},
		{name: "cookie", cookie: session, want: http.StatusOK},
		{name: "missing", want: http.StatusUnauthorized, msg: "missing authorization"},
		{name: "bad format", header: "Token " + session, want: http.StatusUnauthorized, msg: "invalid authorization format"},
		{name: "garbage", header: "Bearer nope", want: http.StatusUnauthorized, msg: "invalid token"},
		{name: "expired", header: "Bearer " + expired, want: http.StatusUnauthorized, msg: "token expired"},
	}

	r := newAuthEngine()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: DefaultSessionCookie, Value: tc.cookie})
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tc.want, rec.Code)
			if tc.msg != "" {
				assert.Contains(t, rec.Body.String(), tc.msg)
			} else {
				assert.Contains(t, rec.Body.String(), `"user_id":"u1"`)
			}
		})
	}
}

type stubLimiter struct {
	allowed   bool
	remaining int
	err       error
	keys      []string
}

func (s *stubLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	s.keys = append(s.keys, key)
	return s.allowed, s.remaining, s.err
}

func serveRateLimited(limiter RateLimiter, cfg RateLimitConfig) *httptest.ResponseRecorder {
	r := gin.New()
	r.POST("/v1/generations", func(c *gin.Context) {
		c.Set(ContextUserID, "u1")
		c.Next()
	}, RateLimit(cfg, limiter), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/generations", nil))
	return rec
}

func TestRateLimit(t *testing.T) {
	cfg := RateLimitConfig{Enabled: true, Limit: 2, Window: 30 * time.Second}

	t.Run("allowed", func(t *testing.T) {
		l := &stubLimiter{allowed: true, remaining: 1}
		rec := serveRateLimited(l, cfg)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{"ratelimit:u1:POST:/v1/generations"}, l.keys)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))
	})

	t.Run("rejected", func(t *testing.T) {
		rec := serveRateLimited(&stubLimiter{}, cfg)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "30", rec.Header().Get("Retry-After"))
		assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	})

	t.Run("fails open", func(t *testing.T) {
		rec := serveRateLimited(&stubLimiter{err: errors.New("redis down")}, cfg)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("disabled", func(t *testing.T) {
		l := &stubLimiter{}
		rec := serveRateLimited(l, RateLimitConfig{})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, l.keys)
	})
}

type capturePublisher struct {
	logs []*messaging.AuditLogMessage
	err  error
}

func (p *capturePublisher) PublishAuditLog(ctx context.Context, log *messaging.AuditLogMessage) (string, error) {
	p.logs = append(p.logs, log)
	return "1-0", p.err
}

func TestAudit(t *testing.T) {
	pub := &capturePublisher{}
	r := gin.New()
	r.Use(RequestID(), Audit(AuditConfig{Enabled: true, SkipPaths: DefaultAuditSkipPaths}, pub))
	ok := func(c *gin.Context) { c.Status(http.StatusNoContent) }
	r.GET("/v1/credits", ok)
	r.POST("/v1/credits/bonus", ok)
	r.DELETE("/v1/account", ok)
	r.POST("/health", ok)

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/v1/credits", nil),
		httptest.NewRequest(http.MethodPost, "/v1/credits/bonus", nil),
		httptest.NewRequest(http.MethodDelete, "/v1/account", nil),
		httptest.NewRequest(http.MethodPost, "/health", nil),
	} {
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	require.Len(t, pub.logs, 2)
	assert.Equal(t, "/v1/credits/bonus", pub.logs[0].Path)
	assert.Equal(t, http.MethodDelete, pub.logs[1].Method)
	assert.Equal(t, http.StatusNoContent, pub.logs[1].Status)
	assert.NotEmpty(t, pub.logs[0].RequestID)
}

func TestAudit_PublishFailureDoesNotAffectResponse(t *testing.T) {
	r := gin.New()
	r.Use(Audit(AuditConfig{Enabled: true}, &capturePublisher{err: errors.New("stream down")}))
	r.POST("/v1/checkout", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/checkout", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "abc", rec.Body.String())
	assert.Equal(t, "abc", rec.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("a", 200))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.NotEqual(t, strings.Repeat("a", 200), rec.Body.String())
	assert.NotEmpty(t, rec.Body.String())
}

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shape-forge-api/internal/application/billing"
	"shape-forge-api/internal/application/quota"
	apperrors "shape-forge-api/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestSanitizeNext(t *testing.T) {
	cases := map[string]string{
		"":                      "/dashboard",
		"/history":              "/history",
		"/history?page=2":       "/history?page=2",
		"https://evil.example/": "/dashboard",
		"//evil.example":        "/dashboard",
		`/\evil.example`:        "/dashboard",
		"dashboard":             "/dashboard",
		"javascript:alert(1)":   "/dashboard",
	}
	for in, want := range cases {
		assert.Equal(t, want, sanitizeNext(in), "next=%q", in)
	}
}

type checkerFunc func(ctx context.Context) error

func (f checkerFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

func TestHealthHandler_Ready(t *testing.T) {
	healthy := checkerFunc(func(context.Context) error { return nil })
	broken := checkerFunc(func(context.Context) error { return errors.New("connection refused") })

	cases := []struct {
		name   string
		checks []namedCheck
		want   int
		status map[string]string
	}{
		{
			name:   "all ok",
			checks: []namedCheck{{name: "postgres", checker: healthy}, {name: "redis", checker: healthy}},
			want:   http.StatusOK,
			status: map[string]string{"postgres": "ok", "redis": "ok"},
		},
		{
			name:   "redis down",
			checks: []namedCheck{{name: "postgres", checker: healthy}, {name: "redis", checker: broken}},
			want:   http.StatusServiceUnavailable,
			status: map[string]string{"postgres": "ok", "redis": "error"},
		},
		{
			name:   "not configured",
			checks: []namedCheck{{name: "postgres"}},
			want:   http.StatusServiceUnavailable,
			status: map[string]string{"postgres": "missing"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := &HealthHandler{checks: tc.checks}
			r := gin.New()
			r.GET("/ready", h.Ready)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
			require.Equal(t, tc.want, rec.Code)

			var resp readinessResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			for name, status := range tc.status {
				require.Contains(t, resp.Checks, name)
				assert.Equal(t, status, resp.Checks[name].Status)
			}
		})
	}
}

func TestNewHealthHandler_NilClients(t *testing.T) {
	h := NewHealthHandler(nil, nil).WithVersion("1.2.3")
	require.Len(t, h.checks, 2)
	assert.Nil(t, h.checks[0].checker)
	assert.Nil(t, h.checks[1].checker)
	assert.Equal(t, "1.2.3", h.version)
}

func TestRespondError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
		body string
	}{
		{"insufficient", &billing.InsufficientCreditsError{UserID: "u1", Required: 10, Available: 3},
			http.StatusPaymentRequired, `"credits":3`},
		{"quota", quota.GenerationQuotaExceededError{UserID: "u1", Used: 5, Max: 5}, http.StatusTooManyRequests, "used 5 of 5"},
		{"app error", apperrors.ErrGenerationNotFound, http.StatusNotFound, `"error_code":"` + string(apperrors.CodeGenerationNotFound)},
		{"internal", errors.New("pq: connection reset"), http.StatusInternalServerError, internalErrorMessage},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			respondError(c, tc.err)
			assert.Equal(t, tc.want, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.body)
			assert.NotContains(t, rec.Body.String(), "pq:")
		})
	}
}

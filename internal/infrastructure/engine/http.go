package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"shape-forge-api/internal/domain/entity"
	"shape-forge-api/internal/domain/service"
	"shape-forge-api/pkg/logger"
)

const maxErrorBody = 4 << 10

// HTTPEngine 调用外部几何服务
type HTTPEngine struct {
	endpoint   string
	client     *http.Client
	maxRetries uint
}

// NewHTTPEngine 创建 HTTP 引擎客户端
func NewHTTPEngine(endpoint string, timeout time.Duration) *HTTPEngine {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPEngine{
		endpoint: endpoint,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		maxRetries: 3,
	}
}

type engineRequest struct {
	GenerationID int64                  `json:"generation_id"`
	UserID       string                 `json:"user_id"`
	Parameters   entity.ShapeParameters `json:"parameters"`
}

type engineResponse struct {
	FileURL string `json:"file_url"`
	Format  string `json:"format"`
}

// Generate 实现 service.ShapeEngine，5xx 与网络错误按指数退避重试
func (e *HTTPEngine) Generate(ctx context.Context, req service.ShapeRequest) (*service.ShapeResult, error) {
	ctx, span := tracer.Start(ctx, "engine.HTTP.Generate",
		trace.WithAttributes(
			attribute.Int64("generation.id", req.GenerationID),
			attribute.String("shape.type", string(req.Parameters.Type)),
		))
	defer span.End()

	body, err := json.Marshal(engineRequest{
		GenerationID: req.GenerationID,
		UserID:       req.UserID,
		Parameters:   req.Parameters,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal engine request: %w", err)
	}

	attempt := 0
	result, err := backoff.Retry(ctx, func() (*service.ShapeResult, error) {
		attempt++
		res, err := e.do(ctx, body)
		if err != nil && attempt > 1 {
			logger.Warn(ctx, "shape engine retry failed", "attempt", attempt, "error", err)
		}
		return res, err
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(e.maxRetries),
	)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return result, nil
}

func (e *HTTPEngine) do(ctx context.Context, body []byte) (*service.ShapeResult, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to build engine request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return nil, fmt.Errorf("engine request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		err := fmt.Errorf("engine returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	var out engineResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to decode engine response: %w", err))
	}
	if out.FileURL == "" {
		return nil, backoff.Permanent(fmt.Errorf("engine response missing file_url"))
	}
	if out.Format == "" {
		out.Format = FormatGLB
	}
	return &service.ShapeResult{FileURL: out.FileURL, Format: out.Format}, nil
}

// Package identity 提供基于 OAuth2/OIDC 的外部身份提供方适配
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"golang.org/x/oauth2"

	"shape-forge-api/internal/config"
	"shape-forge-api/internal/domain/service"
)

var tracer = otel.Tracer("identity")

// OAuthProvider 授权码流程实现
type OAuthProvider struct {
	conf        *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

// NewOAuthProvider 创建身份提供方客户端，回调地址为 baseURL + RedirectPath
func NewOAuthProvider(cfg *config.IdentityConfig, baseURL string) *OAuthProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OAuthProvider{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
			RedirectURL: strings.TrimRight(baseURL, "/") + cfg.RedirectPath,
			Scopes:      cfg.Scopes,
		},
		userInfoURL: cfg.UserInfoURL,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// AuthCodeURL 登录跳转地址
func (p *OAuthProvider) AuthCodeURL(state string) string {
	return p.conf.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// userInfo OIDC userinfo 响应
type userInfo struct {
	Sub   string `json:"sub"`
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Exchange 授权码换取令牌并读取用户信息
func (p *OAuthProvider) Exchange(ctx context.Context, code string) (*service.Identity, error) {
	ctx, span := tracer.Start(ctx, "identity.Exchange")
	defer span.End()

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	token, err := p.conf.Exchange(ctx, code)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build userinfo request: %w", err)
	}
	resp, err := p.conf.Client(ctx, token).Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("userinfo returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode userinfo: %w", err)
	}

	subject := info.Sub
	if subject == "" {
		subject = info.ID
	}
	if subject == "" {
		return nil, fmt.Errorf("userinfo has no subject")
	}

	return &service.Identity{
		Subject: subject,
		Email:   info.Email,
		Name:    info.Name,
	}, nil
}

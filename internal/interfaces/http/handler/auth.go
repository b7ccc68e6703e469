// Package handler 提供 HTTP 请求处理器
package handler

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"shape-forge-api/internal/application/account"
	"shape-forge-api/internal/interfaces/http/dto"
	"shape-forge-api/internal/interfaces/http/middleware"
	"shape-forge-api/pkg/logger"
	"shape-forge-api/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	nonceCookieName   = "sf_oauth_nonce"
	defaultNextPath   = "/dashboard"
	defaultSessionTTL = 7 * 24 * time.Hour
	defaultStateTTL   = 10 * time.Minute
)

// SessionConfig 会话 Cookie 与登录流程配置
type SessionConfig struct {
	CookieName  string
	Domain      string
	Secure      bool
	TTL         time.Duration
	StateTTL    time.Duration
	FrontendURL string
}

func (s SessionConfig) withDefaults() SessionConfig {
	if s.CookieName == "" {
		s.CookieName = middleware.DefaultSessionCookie
	}
	if s.TTL <= 0 {
		s.TTL = defaultSessionTTL
	}
	if s.StateTTL <= 0 {
		s.StateTTL = defaultStateTTL
	}
	s.FrontendURL = strings.TrimRight(s.FrontendURL, "/")
	return s
}

func (s SessionConfig) setCookie(c *gin.Context, name, value string, ttl time.Duration) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, int(ttl.Seconds()), "/", s.Domain, s.Secure, true)
}

func (s SessionConfig) clearCookie(c *gin.Context, name string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, "", -1, "/", s.Domain, s.Secure, true)
}

// AuthHandler 认证处理器，登录委托给外部身份提供方
type AuthHandler struct {
	accounts   *account.Service
	jwtManager *utils.JWTManager
	session    SessionConfig
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(accounts *account.Service, authCfg middleware.AuthConfig, session SessionConfig) *AuthHandler {
	session = session.withDefaults()
	if authCfg.CookieName != "" {
		session.CookieName = authCfg.CookieName
	}
	return &AuthHandler{
		accounts:   accounts,
		jwtManager: utils.NewJWTManager(authCfg.Secret, authCfg.Issuer),
		session:    session,
	}
}

// Login 跳转到身份提供方
// @Summary 登录
// @Description 生成带 nonce 的 state，跳转到身份提供方授权页
// @Tags Auth
// @Param next query string false "登录后跳转的本站路径"
// @Success 302
// @Router /v1/auth/login [get]
func (h *AuthHandler) Login(c *gin.Context) {
	ctx := c.Request.Context()
	next := sanitizeNext(c.Query("next"))
	nonce := uuid.NewString()

	state, err := h.jwtManager.GenerateStateToken(nonce, next, h.session.StateTTL)
	if err != nil {
		logger.Error(ctx, "failed to sign oauth state", err)
		dto.InternalError(c, internalErrorMessage)
		return
	}

	h.session.setCookie(c, nonceCookieName, nonce, h.session.StateTTL)
	c.Redirect(http.StatusFound, h.accounts.LoginURL(state))
}

// Callback 身份提供方回调
// @Summary 登录回调
// @Description 校验 state，换取用户身份并写入会话 Cookie
// @Tags Auth
// @Param code query string true "授权码"
// @Param state query string true "state"
// @Success 302
// @Router /v1/auth/callback [get]
func (h *AuthHandler) Callback(c *gin.Context) {
	ctx := c.Request.Context()

	if errParam := c.Query("error"); errParam != "" {
		logger.Warn(ctx, "identity provider returned error", "error", errParam)
		h.redirectLogin(c, "access_denied")
		return
	}

	claims, err := h.jwtManager.ParseToken(c.Query("state"), utils.TokenTypeState)
	if err != nil {
		h.redirectLogin(c, "invalid_state")
		return
	}
	nonce, err := c.Cookie(nonceCookieName)
	if err != nil || nonce == "" || nonce != claims.Nonce {
		h.redirectLogin(c, "invalid_state")
		return
	}
	h.session.clearCookie(c, nonceCookieName)

	user, err := h.accounts.SignIn(ctx, c.Query("code"))
	if err != nil {
		logger.Error(ctx, "sign in failed", err)
		h.redirectLogin(c, "auth_failed")
		return
	}

	token, err := h.jwtManager.GenerateSessionToken(user.ID, user.Email, h.session.TTL)
	if err != nil {
		logger.Error(ctx, "failed to sign session token", err)
		h.redirectLogin(c, "auth_failed")
		return
	}

	h.session.setCookie(c, h.session.CookieName, token, h.session.TTL)
	logger.Info(ctx, "user signed in", "user_id", user.ID)
	c.Redirect(http.StatusFound, h.session.FrontendURL+sanitizeNext(claims.Next))
}

// Logout 登出
// @Summary 登出
// @Tags Auth
// @Success 200 {object} dto.Response[map[string]bool]
// @Router /v1/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	h.session.clearCookie(c, h.session.CookieName)
	dto.Success(c, gin.H{"logged_out": true})
}

func (h *AuthHandler) redirectLogin(c *gin.Context, reason string) {
	c.Redirect(http.StatusFound, h.session.FrontendURL+"/sign-in?error="+url.QueryEscape(reason))
}

// sanitizeNext 只允许站内相对路径，防止开放重定向
func sanitizeNext(next string) string {
	next = strings.TrimSpace(next)
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return defaultNextPath
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return defaultNextPath
	}
	return next
}

// Package utils 提供通用工具函数
package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// Token 类型
const (
	TokenTypeSession = "session"
	TokenTypeState   = "state"
)

// Claims JWT 声明结构
type Claims struct {
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	Type   string `json:"type"` // "session" or "state"
	// state 类型专用
	Nonce string `json:"nonce,omitempty"`
	Next  string `json:"next,omitempty"`
	jwt.RegisteredClaims
}

// JWTManager JWT 管理器
type JWTManager struct {
	secret string
	issuer string
	now    func() time.Time
}

// NewJWTManager 创建 JWT 管理器
func NewJWTManager(secret, issuer string) *JWTManager {
	return &JWTManager{
		secret: secret,
		issuer: issuer,
		now:    time.Now,
	}
}

// GenerateSessionToken 生成登录会话 Token
func (m *JWTManager) GenerateSessionToken(userID, email string, ttl time.Duration) (string, error) {
	return m.sign(Claims{
		UserID: userID,
		Email:  email,
		Type:   TokenTypeSession,
	}, userID, ttl)
}

// GenerateStateToken 生成 OAuth state，携带防重放 nonce 与登录后跳转路径
func (m *JWTManager) GenerateStateToken(nonce, next string, ttl time.Duration) (string, error) {
	return m.sign(Claims{
		Type:  TokenTypeState,
		Nonce: nonce,
		Next:  next,
	}, "", ttl)
}

func (m *JWTManager) sign(claims Claims, subject string, ttl time.Duration) (string, error) {
	now := m.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		Issuer:    m.issuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.secret))
}

// ParseToken 解析并验证 Token，并校验 Token 类型
func (m *JWTManager) ParseToken(tokenString, expectedType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(m.secret), nil
	}, jwt.WithIssuer(m.issuer), jwt.WithTimeFunc(m.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if expectedType != "" && claims.Type != expectedType {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

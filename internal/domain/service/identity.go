package service

import "context"

// Identity 外部身份提供方返回的用户身份
type Identity struct {
	Subject string
	Email   string
	Name    string
}

// IdentityProvider 外部身份提供方端口 (OAuth2 授权码流程)
type IdentityProvider interface {
	// AuthCodeURL 返回跳转到身份提供方的登录地址
	AuthCodeURL(state string) string

	// Exchange 使用授权码换取用户身份
	Exchange(ctx context.Context, code string) (*Identity, error)
}

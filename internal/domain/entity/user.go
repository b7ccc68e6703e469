// Package entity 定义领域实体
package entity

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// 用户资料约束
const (
	UserNameMaxLength = 100
)

var validate = validator.New()

// User 用户资料实体
// ID 与外部身份提供方的用户 ID 一致，本地仅保存镜像信息
type User struct {
	ID        string    `json:"id" gorm:"primaryKey;type:text"`
	Name      string    `json:"name" gorm:"size:100"`
	Email     string    `json:"email" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 表名
func (User) TableName() string {
	return "profiles"
}

// NewUser 创建用户资料
func NewUser(id, email, name string) *User {
	return &User{
		ID:    id,
		Email: strings.TrimSpace(email),
		Name:  strings.TrimSpace(name),
	}
}

// DisplayName 展示名，未设置姓名时回退到邮箱前缀
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	if at := strings.IndexByte(u.Email, '@'); at > 0 {
		return u.Email[:at]
	}
	return u.Email
}

// ValidateProfile 校验可编辑的资料字段
func ValidateProfile(name, email string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNameRequired
	}
	if utf8.RuneCountInString(name) > UserNameMaxLength {
		return ErrNameTooLong
	}
	if err := validate.Var(strings.TrimSpace(email), "required,email"); err != nil {
		return ErrInvalidEmail
	}
	return nil
}

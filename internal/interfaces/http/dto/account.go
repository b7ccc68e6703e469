// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"shape-forge-api/internal/domain/entity"
)

// AccountResponse 当前用户资料
type AccountResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UpdateAccountRequest 更新资料请求
type UpdateAccountRequest struct {
	Name  string `json:"name" binding:"required,max=100"`
	Email string `json:"email" binding:"required,email"`
}

// DeleteAccountRequest 注销账号请求，需回填邮箱确认
type DeleteAccountRequest struct {
	ConfirmEmail string `json:"confirm_email" binding:"required"`
}

// ToAccountResponse 实体转换为响应
func ToAccountResponse(u *entity.User) *AccountResponse {
	if u == nil {
		return nil
	}
	return &AccountResponse{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		DisplayName: u.DisplayName(),
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

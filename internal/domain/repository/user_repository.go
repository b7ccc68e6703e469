// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"shape-forge-api/internal/domain/entity"
)

// UserRepository 用户资料仓储接口
type UserRepository interface {
	// Create 创建用户资料
	Create(ctx context.Context, user *entity.User) error

	// GetByID 根据 ID 获取用户，不存在返回 nil
	GetByID(ctx context.Context, id string) (*entity.User, error)

	// Update 更新姓名与邮箱
	Update(ctx context.Context, user *entity.User) error

	// Delete 删除用户资料
	Delete(ctx context.Context, id string) error
}

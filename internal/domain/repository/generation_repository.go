package repository

import (
	"context"
	"time"

	"shape-forge-api/internal/domain/entity"
)

// GenerationFilter 生成记录过滤条件
type GenerationFilter struct {
	Status entity.GenerationStatus
	Shape  entity.ShapeType
}

// GenerationRepository 形状生成记录仓储接口
type GenerationRepository interface {
	// Create 创建生成记录
	Create(ctx context.Context, gen *entity.ShapeGeneration) error

	// GetByID 根据 ID 获取记录，不存在返回 nil
	GetByID(ctx context.Context, id int64) (*entity.ShapeGeneration, error)

	// GetByIDForUpdate 在事务中获取并锁定记录，不存在返回 nil
	GetByIDForUpdate(ctx context.Context, id int64) (*entity.ShapeGeneration, error)

	// GetByIdempotencyKey 根据用户与幂等键获取记录
	GetByIdempotencyKey(ctx context.Context, userID, key string) (*entity.ShapeGeneration, error)

	// Update 更新记录
	Update(ctx context.Context, gen *entity.ShapeGeneration) error

	// ListByUser 分页获取用户生成记录（时间倒序）
	ListByUser(ctx context.Context, userID string, filter *GenerationFilter, pagination Pagination) (*PagedResult[*entity.ShapeGeneration], error)

	// Recent 获取用户最近的生成记录
	Recent(ctx context.Context, userID string, limit int) ([]*entity.ShapeGeneration, error)

	// CountByUser 统计用户生成次数，since 为 nil 时统计全部
	CountByUser(ctx context.Context, userID string, since *time.Time) (int64, error)

	// ListStale 获取早于 cutoff 仍未结束的记录
	ListStale(ctx context.Context, cutoff time.Time, limit int) ([]*entity.ShapeGeneration, error)

	// DeleteByUser 删除用户全部生成记录
	DeleteByUser(ctx context.Context, userID string) error
}

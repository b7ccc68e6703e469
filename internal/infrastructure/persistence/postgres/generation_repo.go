package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shape-forge-api/internal/domain/entity"
	"shape-forge-api/internal/domain/repository"
)

// GenerationRepository 形状生成记录仓储实现
type GenerationRepository struct {
	client *Client
}

// NewGenerationRepository 创建生成记录仓储
func NewGenerationRepository(client *Client) *GenerationRepository {
	return &GenerationRepository{client: client}
}

// Create 创建生成记录
func (r *GenerationRepository) Create(ctx context.Context, gen *entity.ShapeGeneration) error {
	ctx, span := tracer.Start(ctx, "postgres.GenerationRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(gen).Error; err != nil {
		span.RecordError(err)
		return wrapErr("create generation", err)
	}
	return nil
}

// GetByID 根据 ID 获取记录
func (r *GenerationRepository) GetByID(ctx context.Context, id int64) (*entity.ShapeGeneration, error) {
	ctx, span := tracer.Start(ctx, "postgres.GenerationRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var gen entity.ShapeGeneration
	if err := db.First(&gen, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, wrapErr("get generation", err)
	}
	return &gen, nil
}

// GetByIDForUpdate 行锁读取，需在事务中调用
func (r *GenerationRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entity.ShapeGeneration, error) {
	ctx, span := tracer.Start(ctx, "postgres.GenerationRepository.GetByIDForUpdate")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var gen entity.ShapeGeneration
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&gen, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, wrapErr("lock generation", err)
	}
	return &gen, nil
}

// GetByIdempotencyKey 根据用户与幂等键获取记录
func (r *GenerationRepository) GetByIdempotencyKey(ctx context.Context, userID, key string) (*entity.ShapeGeneration, error) {
	ctx, span := tracer.Start(ctx, "postgres.GenerationRepository.GetByIdempotencyKey")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var gen entity.ShapeGeneration
	if err := db.First(&gen, "user_id = ? AND idempotency_key = ?", userID, key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, wrapErr("get generation by idempotency key", err)
	}
	return &gen, nil
}

// Update 更新记录
func (r *GenerationRepository) Update(ctx context.Context, gen *entity.ShapeGeneration) error {
	ctx, span := tracer.Start(ctx, "postgres.GenerationRepository.Update")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Save(gen).Error; err != nil {
		span.RecordError(err)
		return wrapErr("update generation", err)
	}
	return nil
}

// ListByUser 分页获取用户生成记录
func (r *GenerationRepository) ListByUser(ctx context.Context, userID string, filter *repository.GenerationFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.ShapeGeneration], error) {
	ctx, span := tracer.Start(ctx, "postgres.GenerationRepository.ListByUser")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.ShapeGeneration{}).Where("user_id = ?", userID)

	if filter != nil {
		if filter.Status != "" {
			query = query.Where("status = ?", filter.Status)
		}
		if filter.Shape != "" {
			query = query.Where("parameters->>'type' = ?", filter.Shape)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, wrapErr("count generations", err)
	}

	var gens []*entity.ShapeGeneration
	if err := query.Order("created_at DESC").
		Order("id DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&gens).Error; err != nil {
		span.RecordError(err)
		return nil, wrapErr("list generations", err)
	}

	return repository.NewPagedResult(gens, total, pagination), nil
}

// Recent 获取最近的生成记录
func (r *GenerationRepository) Recent(ctx context.Context, userID string, limit int) ([]*entity.ShapeGeneration, error) {
	ctx, span := tracer.Start(ctx, "postgres.GenerationRepository.Recent")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var gens []*entity.ShapeGeneration
	if err := db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&gens).Error; err != nil {
		span.RecordError(err)
		return nil, wrapErr("list recent generations", err)
	}
	return gens, nil
}

// CountByUser 统计用户生成次数
func (r *GenerationRepository) CountByUser(ctx context.Context, userID string, since *time.Time) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.GenerationRepository.CountByUser")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.ShapeGeneration{}).Where("user_id = ?", userID)
	if since != nil {
		query = query.Where("created_at >= ?", *since)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		span.RecordError(err)
		return 0, wrapErr("count user generations", err)
	}
	return count, nil
}

// ListStale 获取超时未结束的记录
func (r *GenerationRepository) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]*entity.ShapeGeneration, error) {
	ctx, span := tracer.Start(ctx, "postgres.GenerationRepository.ListStale")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var gens []*entity.ShapeGeneration
	if err := db.Where("status IN ? AND created_at < ?",
		[]entity.GenerationStatus{entity.GenerationStatusPending, entity.GenerationStatusProcessing}, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&gens).Error; err != nil {
		span.RecordError(err)
		return nil, wrapErr("list stale generations", err)
	}
	return gens, nil
}

// DeleteByUser 删除用户全部生成记录
func (r *GenerationRepository) DeleteByUser(ctx context.Context, userID string) error {
	ctx, span := tracer.Start(ctx, "postgres.GenerationRepository.DeleteByUser")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Delete(&entity.ShapeGeneration{}, "user_id = ?", userID).Error; err != nil {
		span.RecordError(err)
		return wrapErr("delete generations", err)
	}
	return nil
}

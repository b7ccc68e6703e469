// Package generation 提供形状生成的编排：扣费、调用引擎、失败退款
package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shape-forge-api/internal/application/billing"
	"shape-forge-api/internal/application/quota"
	"shape-forge-api/internal/domain/entity"
	"shape-forge-api/internal/domain/repository"
	"shape-forge-api/internal/domain/service"
	"shape-forge-api/internal/infrastructure/messaging"
	apperrors "shape-forge-api/pkg/errors"
	"shape-forge-api/pkg/logger"
	"shape-forge-api/pkg/metrics"
)

const (
	maxIdempotencyKeyLength = 128
	reconcileBatchSize      = 100
)

// Publisher 异步生成任务发布端口
type Publisher interface {
	PublishShapeGen(ctx context.Context, job *messaging.ShapeGenMessage) (string, error)
}

type Config struct {
	Cost        int
	Async       bool
	RecentLimit int
	DailyLimit  int
}

type GenerateInput struct {
	UserID         string
	Parameters     entity.ShapeParameters
	IdempotencyKey string
	RequestID      string
}

type GenerateOutput struct {
	Generation       *entity.ShapeGeneration
	CreditsRemaining int
	// Replayed 为 true 表示命中幂等键，返回的是已有记录
	Replayed bool
}

// Stats 仪表盘统计
type Stats struct {
	Credits              int   `json:"credits"`
	TotalShapes          int64 `json:"total_shapes"`
	ShapesThisMonth      int64 `json:"shapes_this_month"`
	CreditsUsedThisMonth int   `json:"credits_used_this_month"`
}

type Service struct {
	tx        repository.Transactor
	gens      repository.GenerationRepository
	billing   *billing.Service
	engine    service.ShapeEngine
	quota     *quota.GenerationQuotaChecker
	publisher Publisher
	cfg       Config
	now       func() time.Time
}

func NewService(
	tx repository.Transactor,
	gens repository.GenerationRepository,
	billingSvc *billing.Service,
	engine service.ShapeEngine,
	quotaChecker *quota.GenerationQuotaChecker,
	publisher Publisher,
	cfg Config,
) *Service {
	if cfg.Cost <= 0 {
		cfg.Cost = 10
	}
	if cfg.RecentLimit <= 0 {
		cfg.RecentLimit = 10
	}
	return &Service{
		tx:        tx,
		gens:      gens,
		billing:   billingSvc,
		engine:    engine,
		quota:     quotaChecker,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Generate 扣费并生成形状。
// 同步模式下等待引擎返回；异步模式下投递任务后立即返回 pending 记录。
func (s *Service) Generate(ctx context.Context, in GenerateInput) (*GenerateOutput, error) {
	params, err := in.Parameters.Normalize()
	if err != nil {
		return nil, apperrors.ErrInvalidParam.WithDetail(err.Error())
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if len(key) > maxIdempotencyKeyLength {
		return nil, apperrors.ErrInvalidParam.WithDetail("idempotency key too long")
	}
	if key != "" {
		if existing, err := s.gens.GetByIdempotencyKey(ctx, in.UserID, key); err != nil {
			return nil, err
		} else if existing != nil {
			return s.replay(ctx, existing)
		}
	}

	gen := entity.NewShapeGeneration(in.UserID, params, s.cfg.Cost)
	if key != "" {
		gen.IdempotencyKey = &key
	}

	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		// 先锁余额行，同一用户的配额计数与插入串行执行
		if err := s.billing.LockAccount(ctx, in.UserID); err != nil {
			return err
		}
		if s.quota != nil {
			if _, _, err := s.quota.CheckDaily(ctx, in.UserID, s.cfg.DailyLimit); err != nil {
				return err
			}
		}
		if err := s.gens.Create(ctx, gen); err != nil {
			return err
		}
		return s.billing.Charge(ctx, in.UserID, gen.CreditsUsed, &gen.ID, gen.Description())
	})
	if err != nil {
		// 并发请求使用相同幂等键时，返回先提交的记录
		if key != "" && errors.Is(err, repository.ErrDuplicate) {
			if existing, getErr := s.gens.GetByIdempotencyKey(ctx, in.UserID, key); getErr == nil && existing != nil {
				return s.replay(ctx, existing)
			}
		}
		var insufficient *billing.InsufficientCreditsError
		if errors.As(err, &insufficient) {
			metrics.ShapeGenerationTotal.WithLabelValues(string(params.Type), "rejected").Inc()
		}
		return nil, err
	}

	s.billing.Invalidate(ctx, in.UserID)
	ctx = logger.WithContext(ctx, logger.GenerationIDKey, gen.ID)
	logger.Info(ctx, "shape generation accepted", "shape", params.Type, "cost", gen.CreditsUsed, "async", s.cfg.Async)

	if s.cfg.Async && s.publisher != nil {
		_, err := s.publisher.PublishShapeGen(ctx, &messaging.ShapeGenMessage{
			GenerationID: gen.ID,
			UserID:       gen.UserID,
			Shape:        string(params.Type),
			RequestID:    in.RequestID,
		})
		if err != nil {
			logger.Error(ctx, "failed to enqueue shape generation", err)
			s.failAndRefund(ctx, gen.ID, "failed to enqueue generation")
			return nil, apperrors.ErrGenerationFailed.WithError(err)
		}
	} else {
		completed, err := s.run(ctx, gen)
		if err != nil {
			return nil, apperrors.ErrGenerationFailed.WithError(err)
		}
		gen = completed
	}

	remaining, err := s.billing.Balance(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	return &GenerateOutput{Generation: gen, CreditsRemaining: remaining}, nil
}

func (s *Service) replay(ctx context.Context, gen *entity.ShapeGeneration) (*GenerateOutput, error) {
	remaining, err := s.billing.Balance(ctx, gen.UserID)
	if err != nil {
		return nil, err
	}
	return &GenerateOutput{Generation: gen, CreditsRemaining: remaining, Replayed: true}, nil
}

// Process 由 worker 调用，执行已扣费的异步生成；已结束的记录直接跳过
func (s *Service) Process(ctx context.Context, generationID int64) error {
	gen, err := s.gens.GetByID(ctx, generationID)
	if err != nil {
		return err
	}
	if gen == nil {
		return apperrors.ErrGenerationNotFound.WithDetail(fmt.Sprintf("id=%d", generationID))
	}
	if gen.IsTerminal() {
		logger.Info(ctx, "generation already finished, skipping", "status", gen.Status)
		return nil
	}
	_, err = s.run(ctx, gen)
	return err
}

// run 调用引擎并落库结果，失败时标记失败并退款
func (s *Service) run(ctx context.Context, gen *entity.ShapeGeneration) (*entity.ShapeGeneration, error) {
	shape := string(gen.Shape())

	gen, err := s.transition(ctx, gen.ID, (*entity.ShapeGeneration).Start)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := s.engine.Generate(ctx, service.ShapeRequest{
		GenerationID: gen.ID,
		UserID:       gen.UserID,
		Parameters:   gen.Parameters.Data(),
	})
	metrics.ShapeGenerationDuration.WithLabelValues(shape).Observe(time.Since(start).Seconds())
	if err != nil {
		logger.Error(ctx, "shape engine failed", err, "shape", shape)
		s.failAndRefund(ctx, gen.ID, err.Error())
		return nil, err
	}

	completed, err := s.transition(ctx, gen.ID, func(g *entity.ShapeGeneration) error {
		return g.Complete(result.FileURL)
	})
	if err != nil {
		// 已被对账任务判定超时并退款
		if errors.Is(err, entity.ErrAlreadyTerminal) {
			logger.Warn(ctx, "generation finished after it was reconciled", "generation_id", gen.ID)
		}
		return nil, err
	}

	metrics.ShapeGenerationTotal.WithLabelValues(shape, string(entity.GenerationStatusCompleted)).Inc()
	logger.Info(ctx, "shape generation completed", "shape", shape, "file_url", result.FileURL, "duration_ms", completed.Duration().Milliseconds())
	return completed, nil
}

// transition 在行锁下修改记录状态
func (s *Service) transition(ctx context.Context, id int64, apply func(*entity.ShapeGeneration) error) (*entity.ShapeGeneration, error) {
	var out *entity.ShapeGeneration
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		cur, err := s.gens.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if cur == nil {
			return apperrors.ErrGenerationNotFound
		}
		if err := apply(cur); err != nil {
			return err
		}
		out = cur
		return s.gens.Update(ctx, cur)
	})
	return out, err
}

// failAndRefund 标记失败并退还积分，记录已结束时不做任何事。
// 不受调用方 ctx 取消影响，保证退款落库。
func (s *Service) failAndRefund(ctx context.Context, generationID int64, reason string) bool {
	ctx = context.WithoutCancel(ctx)

	var failed *entity.ShapeGeneration
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		cur, err := s.gens.GetByIDForUpdate(ctx, generationID)
		if err != nil {
			return err
		}
		if cur == nil || cur.IsTerminal() {
			return nil
		}
		if err := cur.Fail(reason); err != nil {
			return err
		}
		if err := s.gens.Update(ctx, cur); err != nil {
			return err
		}
		failed = cur
		if cur.CreditsUsed <= 0 {
			return nil
		}
		return s.billing.Refund(ctx, cur.UserID, cur.CreditsUsed, &cur.ID, fmt.Sprintf("Refund for shape generation #%d", cur.ID))
	})
	if err != nil {
		logger.Error(ctx, "failed to mark generation failed", err, "generation_id", generationID)
		return false
	}
	if failed == nil {
		return false
	}

	s.billing.Invalidate(ctx, failed.UserID)
	metrics.ShapeGenerationTotal.WithLabelValues(string(failed.Shape()), string(entity.GenerationStatusFailed)).Inc()
	return true
}

// Get 获取用户自己的生成记录
func (s *Service) Get(ctx context.Context, userID string, id int64) (*entity.ShapeGeneration, error) {
	gen, err := s.gens.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if gen == nil || gen.UserID != userID {
		return nil, apperrors.ErrGenerationNotFound
	}
	return gen, nil
}

// Recent 最近的生成记录
func (s *Service) Recent(ctx context.Context, userID string) ([]*entity.ShapeGeneration, error) {
	return s.gens.Recent(ctx, userID, s.cfg.RecentLimit)
}

// List 分页历史
func (s *Service) List(ctx context.Context, userID string, filter *repository.GenerationFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.ShapeGeneration], error) {
	if filter != nil && filter.Shape != "" && !filter.Shape.IsValid() {
		return nil, apperrors.ErrInvalidParam.WithDetail(entity.ErrUnknownShape.Error())
	}
	return s.gens.ListByUser(ctx, userID, filter, pagination)
}

// Stats 仪表盘统计，月份按 UTC 计算
func (s *Service) Stats(ctx context.Context, userID string) (*Stats, error) {
	now := s.now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	credits, err := s.billing.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}
	total, err := s.gens.CountByUser(ctx, userID, nil)
	if err != nil {
		return nil, err
	}
	thisMonth, err := s.gens.CountByUser(ctx, userID, &monthStart)
	if err != nil {
		return nil, err
	}
	used, err := s.billing.UsageSince(ctx, userID, monthStart)
	if err != nil {
		return nil, err
	}

	return &Stats{
		Credits:              credits,
		TotalShapes:          total,
		ShapesThisMonth:      thisMonth,
		CreditsUsedThisMonth: used,
	}, nil
}

// Reconcile 将超时未结束的记录标记为失败并退款，返回处理数量
func (s *Service) Reconcile(ctx context.Context, staleAfter time.Duration) (int, error) {
	cutoff := s.now().UTC().Add(-staleAfter)
	stale, err := s.gens.ListStale(ctx, cutoff, reconcileBatchSize)
	if err != nil {
		return 0, err
	}

	reconciled := 0
	for _, gen := range stale {
		if ctx.Err() != nil {
			return reconciled, ctx.Err()
		}
		if s.failAndRefund(ctx, gen.ID, "generation timed out") {
			reconciled++
			metrics.StaleGenerationsReconciled.Inc()
		}
	}
	if reconciled > 0 {
		logger.Warn(ctx, "reconciled stale generations", "count", reconciled, "cutoff", cutoff)
	}
	return reconciled, nil
}

// Package quota 提供用户生成配额相关能力
package quota

import (
	"context"
	"fmt"
	"time"

	"shape-forge-api/internal/domain/repository"
	apperrors "shape-forge-api/pkg/errors"
)

// GenerationQuotaExceededError 表示用户当日生成次数已耗尽
type GenerationQuotaExceededError struct {
	UserID string
	Max    int64
	Used   int64
}

func (e GenerationQuotaExceededError) Error() string {
	return fmt.Sprintf("generation quota exceeded: user=%s used=%d max=%d", e.UserID, e.Used, e.Max)
}

// Unwrap 映射到 429 业务错误
func (e GenerationQuotaExceededError) Unwrap() error {
	return apperrors.ErrQuotaExceeded
}

// GenerationQuotaChecker 用于检查用户每日生成次数
type GenerationQuotaChecker struct {
	genRepo repository.GenerationRepository
	now     func() time.Time
}

func NewGenerationQuotaChecker(genRepo repository.GenerationRepository) *GenerationQuotaChecker {
	return &GenerationQuotaChecker{
		genRepo: genRepo,
		now:     time.Now,
	}
}

// CheckDaily 检查用户是否还有当日（UTC）生成配额，limit <= 0 表示不限。
// 返回已用次数与上限，便于客户端展示。
func (c *GenerationQuotaChecker) CheckDaily(ctx context.Context, userID string, limit int) (used int64, max int64, err error) {
	if limit <= 0 {
		return 0, 0, nil
	}
	max = int64(limit)

	now := c.now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	used, err = c.genRepo.CountByUser(ctx, userID, &start)
	if err != nil {
		return 0, max, err
	}
	if used >= max {
		return used, max, GenerationQuotaExceededError{
			UserID: userID,
			Max:    max,
			Used:   used,
		}
	}
	return used, max, nil
}

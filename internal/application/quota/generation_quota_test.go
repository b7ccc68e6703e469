package quota

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shape-forge-api/internal/domain/repository"
	apperrors "shape-forge-api/pkg/errors"
)

type countingRepo struct {
	repository.GenerationRepository
	count int64
	since *time.Time
	err   error
}

func (r *countingRepo) CountByUser(ctx context.Context, userID string, since *time.Time) (int64, error) {
	r.since = since
	return r.count, r.err
}

func TestCheckDaily_Unlimited(t *testing.T) {
	checker := NewGenerationQuotaChecker(&countingRepo{count: 1000})
	used, max, err := checker.CheckDaily(context.Background(), "u1", 0)
	require.NoError(t, err)
	assert.Zero(t, used)
	assert.Zero(t, max)
}

func TestCheckDaily_CountsFromUTCMidnight(t *testing.T) {
	repo := &countingRepo{count: 2}
	checker := NewGenerationQuotaChecker(repo)
	loc := time.FixedZone("UTC+8", 8*3600)
	checker.now = func() time.Time { return time.Date(2026, 3, 2, 5, 30, 0, 0, loc) }

	used, max, err := checker.CheckDaily(context.Background(), "u1", 3)
	require.NoError(t, err)
	assert.Equal(t, int64(2), used)
	assert.Equal(t, int64(3), max)
	require.NotNil(t, repo.since)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), *repo.since)
}

func TestCheckDaily_Exceeded(t *testing.T) {
	checker := NewGenerationQuotaChecker(&countingRepo{count: 3})
	_, _, err := checker.CheckDaily(context.Background(), "u1", 3)

	var quotaErr GenerationQuotaExceededError
	require.ErrorAs(t, err, &quotaErr)
	assert.Equal(t, int64(3), quotaErr.Used)
	assert.ErrorIs(t, err, apperrors.ErrQuotaExceeded)
}

func TestCheckDaily_RepoError(t *testing.T) {
	boom := errors.New("db down")
	checker := NewGenerationQuotaChecker(&countingRepo{err: boom})
	_, _, err := checker.CheckDaily(context.Background(), "u1", 3)
	assert.ErrorIs(t, err, boom)
}


// Package billing 提供积分余额与流水账本能力
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"shape-forge-api/internal/domain/entity"
	"shape-forge-api/internal/domain/repository"
	apperrors "shape-forge-api/pkg/errors"
	"shape-forge-api/pkg/logger"
	"shape-forge-api/pkg/metrics"
)

// BalanceKey 余额缓存键
func BalanceKey(userID string) string {
	return "credits:" + userID
}

// Cache 余额读穿缓存
type Cache interface {
	GetOrLoadSafe(ctx context.Context, key string, ttl time.Duration, loader func() (interface{}, error)) ([]byte, error)
	Delete(ctx context.Context, keys ...string) error
}

// InsufficientCreditsError 余额不足
type InsufficientCreditsError struct {
	UserID    string
	Required  int
	Available int
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: user=%s required=%d available=%d", e.UserID, e.Required, e.Available)
}

// Unwrap 映射到 402 业务错误
func (e *InsufficientCreditsError) Unwrap() error {
	return apperrors.ErrInsufficientCredits
}

type Config struct {
	BalanceTTL        time.Duration
	TransactionsLimit int
}

// GrantInput 入账请求
type GrantInput struct {
	UserID      string
	Amount      int
	Type        entity.TransactionType
	Description string
	// ExternalPaymentID 非空时按支付 ID 幂等
	ExternalPaymentID string
	GenerationID      *int64
}

// Service 积分账本服务
type Service struct {
	tx      repository.Transactor
	credits repository.CreditRepository
	txns    repository.CreditTransactionRepository
	cache   Cache
	cfg     Config
}

func NewService(tx repository.Transactor, credits repository.CreditRepository, txns repository.CreditTransactionRepository, cache Cache, cfg Config) *Service {
	if cfg.BalanceTTL <= 0 {
		cfg.BalanceTTL = 5 * time.Minute
	}
	if cfg.TransactionsLimit <= 0 {
		cfg.TransactionsLimit = 20
	}
	return &Service{tx: tx, credits: credits, txns: txns, cache: cache, cfg: cfg}
}

// EnsureAccount 确保余额记录存在
func (s *Service) EnsureAccount(ctx context.Context, userID string) error {
	return s.credits.EnsureExists(ctx, userID)
}

// Balance 查询余额，无记录时为 0
func (s *Service) Balance(ctx context.Context, userID string) (int, error) {
	if s.cache == nil {
		return s.loadBalance(ctx, userID)
	}

	var loadErr error
	raw, err := s.cache.GetOrLoadSafe(ctx, BalanceKey(userID), s.cfg.BalanceTTL, func() (interface{}, error) {
		v, err := s.loadBalance(ctx, userID)
		loadErr = err
		return v, err
	})
	if loadErr != nil {
		return 0, loadErr
	}
	if err == nil {
		if n, decodeErr := decodeBalance(raw); decodeErr == nil {
			return n, nil
		}
	}
	// 缓存不可用时直接读库
	logger.Warn(ctx, "balance cache unavailable", "user_id", userID, "error", err)
	return s.loadBalance(ctx, userID)
}

func (s *Service) loadBalance(ctx context.Context, userID string) (int, error) {
	row, err := s.credits.GetByUserID(ctx, userID)
	if err != nil {
		return 0, err
	}
	if row == nil {
		return 0, nil
	}
	return row.Credits, nil
}

// Invalidate 使余额缓存失效，需在事务提交后调用
func (s *Service) Invalidate(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, BalanceKey(userID)); err != nil {
		logger.Warn(ctx, "failed to invalidate balance cache", "user_id", userID, "error", err)
	}
}

// Charge 条件扣减并写入消费流水。
// 可在外层事务中调用；余额不足时返回 *InsufficientCreditsError，不修改任何数据。
func (s *Service) Charge(ctx context.Context, userID string, amount int, generationID *int64, description string) error {
	txn, err := entity.NewCreditTransaction(userID, amount, entity.TransactionUsage, description)
	if err != nil {
		return err
	}
	txn.GenerationID = generationID

	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		account, err := s.credits.GetForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if account == nil || !account.CanAfford(amount) {
			available := 0
			if account != nil {
				available = account.Credits
			}
			return &InsufficientCreditsError{UserID: userID, Required: amount, Available: available}
		}

		ok, err := s.credits.Debit(ctx, userID, amount)
		if err != nil {
			return err
		}
		if !ok {
			return &InsufficientCreditsError{UserID: userID, Required: amount, Available: account.Credits}
		}
		return s.txns.Create(ctx, txn)
	})
	if err != nil {
		return err
	}

	s.Invalidate(ctx, userID)
	metrics.CreditsDebited.Add(float64(amount))
	return nil
}

// LockAccount 在当前事务中锁定用户余额行，调用方需已开启事务
func (s *Service) LockAccount(ctx context.Context, userID string) error {
	_, err := s.credits.GetForUpdate(ctx, userID)
	return err
}

// Grant 入账并写入流水，返回本次是否实际入账。
// 带 ExternalPaymentID 的重复请求返回 false。
func (s *Service) Grant(ctx context.Context, in GrantInput) (bool, error) {
	if in.Type == entity.TransactionUsage {
		return false, entity.ErrInvalidTxnType
	}
	txn, err := entity.NewCreditTransaction(in.UserID, in.Amount, in.Type, in.Description)
	if err != nil {
		return false, err
	}
	txn.GenerationID = in.GenerationID
	if in.ExternalPaymentID != "" {
		paymentID := in.ExternalPaymentID
		txn.ExternalPaymentID = &paymentID
	}

	errReplay := errors.New("payment already applied")
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if in.ExternalPaymentID != "" {
			exists, err := s.txns.ExistsByExternalPaymentID(ctx, in.ExternalPaymentID)
			if err != nil {
				return err
			}
			if exists {
				return errReplay
			}
		}
		if err := s.credits.Credit(ctx, in.UserID, in.Amount); err != nil {
			return err
		}
		if err := s.txns.Create(ctx, txn); err != nil {
			// 并发入账时由唯一约束兜底
			if in.ExternalPaymentID != "" && errors.Is(err, repository.ErrDuplicate) {
				return errReplay
			}
			return err
		}
		return nil
	})
	if errors.Is(err, errReplay) {
		logger.Info(ctx, "payment already credited", "user_id", in.UserID, "payment_id", in.ExternalPaymentID)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	s.Invalidate(ctx, in.UserID)
	metrics.CreditsGranted.WithLabelValues(string(in.Type)).Add(float64(in.Amount))
	return true, nil
}

// Refund 退还生成消耗的积分
func (s *Service) Refund(ctx context.Context, userID string, amount int, generationID *int64, description string) error {
	_, err := s.Grant(ctx, GrantInput{
		UserID:       userID,
		Amount:       amount,
		Type:         entity.TransactionRefund,
		Description:  description,
		GenerationID: generationID,
	})
	return err
}

// Transactions 最近的流水记录
func (s *Service) Transactions(ctx context.Context, userID string) ([]*entity.CreditTransaction, error) {
	return s.txns.ListByUser(ctx, userID, s.cfg.TransactionsLimit)
}

// UsageSince 自 since 以来的净消耗（扣除退款）
func (s *Service) UsageSince(ctx context.Context, userID string, since time.Time) (int, error) {
	sum, err := s.txns.SumByTypesSince(ctx, userID,
		[]entity.TransactionType{entity.TransactionUsage, entity.TransactionRefund}, since)
	if err != nil {
		return 0, err
	}
	if sum >= 0 {
		return 0, nil
	}
	return -sum, nil
}

// DeleteAccount 删除余额与流水，需在外层事务中调用
func (s *Service) DeleteAccount(ctx context.Context, userID string) error {
	if err := s.txns.DeleteByUser(ctx, userID); err != nil {
		return err
	}
	return s.credits.DeleteByUser(ctx, userID)
}

func decodeBalance(raw []byte) (int, error) {
	var n int
	err := json.Unmarshal(raw, &n)
	return n, err
}

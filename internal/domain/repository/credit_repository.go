package repository

import (
	"context"
	"time"

	"shape-forge-api/internal/domain/entity"
)

// CreditRepository 积分余额仓储接口
type CreditRepository interface {
	// GetByUserID 获取余额记录，不存在返回 nil
	GetByUserID(ctx context.Context, userID string) (*entity.UserCredits, error)

	// GetForUpdate 加行锁读取余额记录，需在事务中调用，不存在返回 nil
	GetForUpdate(ctx context.Context, userID string) (*entity.UserCredits, error)

	// EnsureExists 余额记录不存在时创建 0 余额记录
	EnsureExists(ctx context.Context, userID string) error

	// Debit 条件扣减：仅当余额 >= amount 时扣减，返回是否扣减成功
	Debit(ctx context.Context, userID string, amount int) (bool, error)

	// Credit 增加余额，记录不存在时创建
	Credit(ctx context.Context, userID string, amount int) error

	// DeleteByUser 删除用户余额记录
	DeleteByUser(ctx context.Context, userID string) error
}

// CreditTransactionRepository 积分流水仓储接口
type CreditTransactionRepository interface {
	// Create 追加流水
	Create(ctx context.Context, txn *entity.CreditTransaction) error

	// ListByUser 按时间倒序获取最近流水
	ListByUser(ctx context.Context, userID string, limit int) ([]*entity.CreditTransaction, error)

	// ExistsByExternalPaymentID 检查支付是否已入账
	ExistsByExternalPaymentID(ctx context.Context, paymentID string) (bool, error)

	// SumByTypesSince 统计指定类型自某时刻以来的金额合计
	SumByTypesSince(ctx context.Context, userID string, types []entity.TransactionType, since time.Time) (int, error)

	// DeleteByUser 删除用户全部流水
	DeleteByUser(ctx context.Context, userID string) error
}

package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shape-forge-api/internal/domain/entity"
)

// CreditRepository 积分余额仓储实现
type CreditRepository struct {
	client *Client
}

// NewCreditRepository 创建积分余额仓储
func NewCreditRepository(client *Client) *CreditRepository {
	return &CreditRepository{client: client}
}

// GetByUserID 获取余额记录
func (r *CreditRepository) GetByUserID(ctx context.Context, userID string) (*entity.UserCredits, error) {
	ctx, span := tracer.Start(ctx, "postgres.CreditRepository.GetByUserID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var credits entity.UserCredits
	if err := db.First(&credits, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, wrapErr("get user credits", err)
	}
	return &credits, nil
}

// GetForUpdate 以 SELECT ... FOR UPDATE 读取余额记录，同一用户的扣费与配额检查由此串行化
func (r *CreditRepository) GetForUpdate(ctx context.Context, userID string) (*entity.UserCredits, error) {
	ctx, span := tracer.Start(ctx, "postgres.CreditRepository.GetForUpdate")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var credits entity.UserCredits
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&credits, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, wrapErr("lock user credits", err)
	}
	return &credits, nil
}

// EnsureExists 余额记录不存在时创建
func (r *CreditRepository) EnsureExists(ctx context.Context, userID string) error {
	ctx, span := tracer.Start(ctx, "postgres.CreditRepository.EnsureExists")
	defer span.End()

	db := getDB(ctx, r.client.db)
	row := &entity.UserCredits{UserID: userID, Credits: 0}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(row).Error
	if err != nil {
		span.RecordError(err)
		return wrapErr("ensure user credits", err)
	}
	return nil
}

// Debit 条件扣减，余额不足时不修改任何行
func (r *CreditRepository) Debit(ctx context.Context, userID string, amount int) (bool, error) {
	ctx, span := tracer.Start(ctx, "postgres.CreditRepository.Debit")
	defer span.End()

	db := getDB(ctx, r.client.db)
	result := db.Model(&entity.UserCredits{}).
		Where("user_id = ? AND credits >= ?", userID, amount).
		Updates(map[string]interface{}{
			"credits":    gorm.Expr("credits - ?", amount),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		span.RecordError(result.Error)
		return false, wrapErr("debit user credits", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// Credit 增加余额，记录不存在时以 amount 作为初始余额插入
func (r *CreditRepository) Credit(ctx context.Context, userID string, amount int) error {
	ctx, span := tracer.Start(ctx, "postgres.CreditRepository.Credit")
	defer span.End()

	db := getDB(ctx, r.client.db)
	row := &entity.UserCredits{UserID: userID, Credits: amount}
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"credits":    gorm.Expr("user_credits.credits + ?", amount),
			"updated_at": time.Now().UTC(),
		}),
	}).Create(row).Error
	if err != nil {
		span.RecordError(err)
		return wrapErr("credit user credits", err)
	}
	return nil
}

// DeleteByUser 删除余额记录
func (r *CreditRepository) DeleteByUser(ctx context.Context, userID string) error {
	ctx, span := tracer.Start(ctx, "postgres.CreditRepository.DeleteByUser")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Delete(&entity.UserCredits{}, "user_id = ?", userID).Error; err != nil {
		span.RecordError(err)
		return wrapErr("delete user credits", err)
	}
	return nil
}

// CreditTransactionRepository 积分流水仓储实现
type CreditTransactionRepository struct {
	client *Client
}

// NewCreditTransactionRepository 创建积分流水仓储
func NewCreditTransactionRepository(client *Client) *CreditTransactionRepository {
	return &CreditTransactionRepository{client: client}
}

// Create 追加流水
func (r *CreditTransactionRepository) Create(ctx context.Context, txn *entity.CreditTransaction) error {
	ctx, span := tracer.Start(ctx, "postgres.CreditTransactionRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(txn).Error; err != nil {
		span.RecordError(err)
		return wrapErr("create credit transaction", err)
	}
	return nil
}

// ListByUser 获取最近流水
func (r *CreditTransactionRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*entity.CreditTransaction, error) {
	ctx, span := tracer.Start(ctx, "postgres.CreditTransactionRepository.ListByUser")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var txns []*entity.CreditTransaction
	if err := db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&txns).Error; err != nil {
		span.RecordError(err)
		return nil, wrapErr("list credit transactions", err)
	}
	return txns, nil
}

// ExistsByExternalPaymentID 检查支付是否已入账
func (r *CreditTransactionRepository) ExistsByExternalPaymentID(ctx context.Context, paymentID string) (bool, error) {
	ctx, span := tracer.Start(ctx, "postgres.CreditTransactionRepository.ExistsByExternalPaymentID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var count int64
	if err := db.Model(&entity.CreditTransaction{}).
		Where("external_payment_id = ?", paymentID).
		Count(&count).Error; err != nil {
		span.RecordError(err)
		return false, wrapErr("check external payment", err)
	}
	return count > 0, nil
}

// SumByTypesSince 统计金额合计
func (r *CreditTransactionRepository) SumByTypesSince(ctx context.Context, userID string, types []entity.TransactionType, since time.Time) (int, error) {
	ctx, span := tracer.Start(ctx, "postgres.CreditTransactionRepository.SumByTypesSince")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var sum int
	if err := db.Model(&entity.CreditTransaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ? AND type IN ? AND created_at >= ?", userID, types, since).
		Scan(&sum).Error; err != nil {
		span.RecordError(err)
		return 0, wrapErr("sum credit transactions", err)
	}
	return sum, nil
}

// DeleteByUser 删除用户全部流水
func (r *CreditTransactionRepository) DeleteByUser(ctx context.Context, userID string) error {
	ctx, span := tracer.Start(ctx, "postgres.CreditTransactionRepository.DeleteByUser")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Delete(&entity.CreditTransaction{}, "user_id = ?", userID).Error; err != nil {
		span.RecordError(err)
		return wrapErr("delete credit transactions", err)
	}
	return nil
}

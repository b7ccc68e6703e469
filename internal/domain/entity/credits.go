package entity

import "time"

// TransactionType 积分流水类型
type TransactionType string

const (
	TransactionPurchase TransactionType = "purchase"
	TransactionUsage    TransactionType = "usage"
	TransactionBonus    TransactionType = "bonus"
	TransactionRefund   TransactionType = "refund"
)

// IsValid 检查流水类型
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionPurchase, TransactionUsage, TransactionBonus, TransactionRefund:
		return true
	}
	return false
}

// IsCredit 是否为入账类型
func (t TransactionType) IsCredit() bool {
	return t == TransactionPurchase || t == TransactionBonus || t == TransactionRefund
}

// UserCredits 用户积分余额
type UserCredits struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID    string    `json:"user_id" gorm:"type:text;not null;uniqueIndex"`
	Credits   int       `json:"credits" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 表名
func (UserCredits) TableName() string {
	return "user_credits"
}

// CanAfford 余额是否足够
func (c *UserCredits) CanAfford(amount int) bool {
	return c.Credits >= amount
}

// CreditTransaction 积分流水（只追加）
// Amount 为有符号数：入账为正，消费为负
type CreditTransaction struct {
	ID                int64           `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID            string          `json:"user_id" gorm:"type:text;not null;index"`
	Amount            int             `json:"amount" gorm:"not null"`
	Type              TransactionType `json:"type" gorm:"size:20;not null"`
	Description       string          `json:"description"`
	ExternalPaymentID *string         `json:"external_payment_id,omitempty" gorm:"size:255;uniqueIndex"`
	GenerationID      *int64          `json:"generation_id,omitempty" gorm:"index"`
	CreatedAt         time.Time       `json:"created_at" gorm:"index"`
}

// TableName 表名
func (CreditTransaction) TableName() string {
	return "credit_transactions"
}

// NewCreditTransaction 创建流水，消费类型自动取负值
func NewCreditTransaction(userID string, amount int, txType TransactionType, description string) (*CreditTransaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if !txType.IsValid() {
		return nil, ErrInvalidTxnType
	}
	signed := amount
	if !txType.IsCredit() {
		signed = -amount
	}
	return &CreditTransaction{
		UserID:      userID,
		Amount:      signed,
		Type:        txType,
		Description: description,
	}, nil
}

package dto

import (
	"time"

	"shape-forge-api/internal/domain/entity"
)

// CreditsResponse 余额
type CreditsResponse struct {
	Credits int `json:"credits"`
}

// TransactionResponse 积分流水
type TransactionResponse struct {
	ID           int64                  `json:"id"`
	Amount       int                    `json:"amount"`
	Type         entity.TransactionType `json:"type"`
	Description  string                 `json:"description"`
	GenerationID *int64                 `json:"generation_id,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

// TransactionListResponse 积分流水列表
type TransactionListResponse struct {
	Items []*TransactionResponse `json:"items"`
}

// BonusCreditsRequest 开发环境赠送积分请求，amount 缺省时使用配置值
type BonusCreditsRequest struct {
	Amount int `json:"amount" binding:"omitempty,min=1"`
}

// ToTransactionListResponse 流水列表转换为响应
func ToTransactionListResponse(txns []*entity.CreditTransaction) *TransactionListResponse {
	items := make([]*TransactionResponse, len(txns))
	for i, t := range txns {
		items[i] = &TransactionResponse{
			ID:           t.ID,
			Amount:       t.Amount,
			Type:         t.Type,
			Description:  t.Description,
			GenerationID: t.GenerationID,
			CreatedAt:    t.CreatedAt,
		}
	}
	return &TransactionListResponse{Items: items}
}

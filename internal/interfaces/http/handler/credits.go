package handler

import (
	"fmt"

	"shape-forge-api/internal/application/billing"
	"shape-forge-api/internal/domain/entity"
	"shape-forge-api/internal/interfaces/http/dto"
	"shape-forge-api/internal/interfaces/http/middleware"
	apperrors "shape-forge-api/pkg/errors"

	"github.com/gin-gonic/gin"
)

// MockCreditsConfig 开发环境赠送积分配置
type MockCreditsConfig struct {
	Enabled   bool
	Amount    int
	MaxAmount int
}

// CreditsHandler 积分处理器
type CreditsHandler struct {
	billing *billing.Service
	mock    MockCreditsConfig
}

// NewCreditsHandler 创建积分处理器
func NewCreditsHandler(billingSvc *billing.Service, mock MockCreditsConfig) *CreditsHandler {
	if mock.Amount <= 0 {
		mock.Amount = 100
	}
	if mock.MaxAmount <= 0 {
		mock.MaxAmount = 1000
	}
	return &CreditsHandler{billing: billingSvc, mock: mock}
}

// Balance 当前余额
// @Summary 积分余额
// @Tags Credits
// @Produce json
// @Success 200 {object} dto.Response[dto.CreditsResponse]
// @Router /v1/credits [get]
func (h *CreditsHandler) Balance(c *gin.Context) {
	credits, err := h.billing.Balance(c.Request.Context(), middleware.GetUserIDFromGin(c))
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.CreditsResponse{Credits: credits})
}

// Transactions 最近的积分流水
// @Summary 积分流水
// @Tags Credits
// @Produce json
// @Success 200 {object} dto.Response[dto.TransactionListResponse]
// @Router /v1/credits/transactions [get]
func (h *CreditsHandler) Transactions(c *gin.Context) {
	txns, err := h.billing.Transactions(c.Request.Context(), middleware.GetUserIDFromGin(c))
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.ToTransactionListResponse(txns))
}

// Bonus 开发环境赠送积分，功能关闭时返回 404
// @Summary 赠送测试积分
// @Tags Credits
// @Accept json
// @Produce json
// @Param body body dto.BonusCreditsRequest false "赠送数量"
// @Success 200 {object} dto.Response[dto.CreditsResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/credits/bonus [post]
func (h *CreditsHandler) Bonus(c *gin.Context) {
	if !h.mock.Enabled {
		dto.NotFound(c, "not found")
		return
	}

	var req dto.BonusCreditsRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			dto.BadRequest(c, "invalid request body: "+err.Error())
			return
		}
	}
	amount := req.Amount
	if amount == 0 {
		amount = h.mock.Amount
	}
	if amount > h.mock.MaxAmount {
		respondError(c, apperrors.ErrInvalidParam.WithDetail(fmt.Sprintf("amount must not exceed %d", h.mock.MaxAmount)))
		return
	}

	ctx := c.Request.Context()
	userID := middleware.GetUserIDFromGin(c)
	if _, err := h.billing.Grant(ctx, billing.GrantInput{
		UserID:      userID,
		Amount:      amount,
		Type:        entity.TransactionBonus,
		Description: "Mock credits added",
	}); err != nil {
		respondError(c, err)
		return
	}

	credits, err := h.billing.Balance(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	dto.SuccessWithMessage(c, "Mock credits added", dto.CreditsResponse{Credits: credits})
}

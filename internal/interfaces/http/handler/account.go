package handler

import (
	"shape-forge-api/internal/application/account"
	"shape-forge-api/internal/interfaces/http/dto"
	"shape-forge-api/internal/interfaces/http/middleware"

	"github.com/gin-gonic/gin"
)

// AccountHandler 账户处理器
type AccountHandler struct {
	accounts *account.Service
	session  SessionConfig
}

// NewAccountHandler 创建账户处理器
func NewAccountHandler(accounts *account.Service, authCfg middleware.AuthConfig, session SessionConfig) *AccountHandler {
	session = session.withDefaults()
	if authCfg.CookieName != "" {
		session.CookieName = authCfg.CookieName
	}
	return &AccountHandler{accounts: accounts, session: session}
}

// Get 获取当前用户资料
// @Summary 获取当前用户资料
// @Tags Account
// @Produce json
// @Success 200 {object} dto.Response[dto.AccountResponse]
// @Failure 401 {object} dto.ErrorResponse
// @Router /v1/account [get]
func (h *AccountHandler) Get(c *gin.Context) {
	user, err := h.accounts.Profile(c.Request.Context(), middleware.GetUserIDFromGin(c))
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.ToAccountResponse(user))
}

// Update 更新姓名与邮箱
// @Summary 更新当前用户资料
// @Tags Account
// @Accept json
// @Produce json
// @Param body body dto.UpdateAccountRequest true "资料"
// @Success 200 {object} dto.Response[dto.AccountResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/account [put]
func (h *AccountHandler) Update(c *gin.Context) {
	var req dto.UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	user, err := h.accounts.UpdateProfile(c.Request.Context(), middleware.GetUserIDFromGin(c), req.Name, req.Email)
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.ToAccountResponse(user))
}

// Delete 注销账户并清除会话
// @Summary 注销账户
// @Tags Account
// @Accept json
// @Param body body dto.DeleteAccountRequest true "确认邮箱"
// @Success 200 {object} dto.Response[map[string]bool]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/account [delete]
func (h *AccountHandler) Delete(c *gin.Context) {
	var req dto.DeleteAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	if err := h.accounts.Delete(c.Request.Context(), middleware.GetUserIDFromGin(c), req.ConfirmEmail); err != nil {
		respondError(c, err)
		return
	}

	h.session.clearCookie(c, h.session.CookieName)
	dto.Success(c, gin.H{"deleted": true})
}

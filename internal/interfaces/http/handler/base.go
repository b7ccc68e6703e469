package handler

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"shape-forge-api/internal/application/billing"
	"shape-forge-api/internal/application/quota"
	"shape-forge-api/internal/interfaces/http/dto"
	apperrors "shape-forge-api/pkg/errors"
	"shape-forge-api/pkg/logger"
)

// internalErrorMessage 对外统一的 500 提示，具体原因只写日志
const internalErrorMessage = "Internal server error"

// respondError 将应用错误映射为 HTTP 响应
func respondError(c *gin.Context, err error) {
	ctx := c.Request.Context()

	var insufficient *billing.InsufficientCreditsError
	if errors.As(err, &insufficient) {
		dto.ErrorWithData(c, 402, apperrors.ErrInsufficientCredits.Message,
			&dto.ErrorDetail{ErrorCode: string(apperrors.CodeInsufficientCredits)},
			&dto.InsufficientCreditsData{Credits: insufficient.Available, Required: insufficient.Required})
		return
	}

	var quotaErr quota.GenerationQuotaExceededError
	if errors.As(err, &quotaErr) {
		c.Header("Retry-After", strconv.Itoa(secondsUntilUTCMidnight()))
		dto.ErrorWithDetail(c, 429, apperrors.ErrQuotaExceeded.Message, &dto.ErrorDetail{
			ErrorCode: string(apperrors.CodeQuotaExceeded),
			Details:   "used " + strconv.FormatInt(quotaErr.Used, 10) + " of " + strconv.FormatInt(quotaErr.Max, 10),
		})
		return
	}

	if !apperrors.IsAppError(err) {
		logger.Error(ctx, "request failed", err)
		dto.InternalError(c, internalErrorMessage)
		return
	}

	appErr := apperrors.AsAppError(err)
	if appErr.HTTPStatus >= 500 {
		logger.Error(ctx, "request failed", err, "error_code", string(appErr.Code))
	}

	message := appErr.Message
	if appErr.HTTPStatus == 500 {
		message = internalErrorMessage
	}
	dto.ErrorWithDetail(c, appErr.HTTPStatus, message, &dto.ErrorDetail{
		ErrorCode: string(appErr.Code),
		Details:   appErr.Detail,
	})
}

// secondsUntilUTCMidnight 每日配额在 UTC 零点重置
func secondsUntilUTCMidnight() int {
	now := time.Now().UTC()
	next := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
	return int(next.Sub(now).Seconds()) + 1
}

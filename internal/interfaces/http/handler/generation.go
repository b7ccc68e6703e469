package handler

import (
	"shape-forge-api/internal/application/generation"
	"shape-forge-api/internal/domain/entity"
	"shape-forge-api/internal/domain/repository"
	"shape-forge-api/internal/interfaces/http/dto"
	"shape-forge-api/internal/interfaces/http/middleware"

	"github.com/gin-gonic/gin"
)

// GenerationHandler 形状生成处理器
type GenerationHandler struct {
	generations *generation.Service
}

// NewGenerationHandler 创建形状生成处理器
func NewGenerationHandler(generations *generation.Service) *GenerationHandler {
	return &GenerationHandler{generations: generations}
}

// Generate 扣费并生成形状
// @Summary 生成形状
// @Description 每次生成扣除固定积分；同步模式返回 200，异步模式返回 202
// @Tags Generations
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "幂等键"
// @Param body body dto.GenerateRequest true "形状参数"
// @Success 200 {object} dto.Response[dto.GenerateResponse]
// @Success 202 {object} dto.Response[dto.GenerateResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 402 {object} dto.ErrorResponse
// @Failure 429 {object} dto.ErrorResponse
// @Router /v1/generations [post]
func (h *GenerationHandler) Generate(c *gin.Context) {
	var req dto.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Parameters == nil || req.Parameters.Type == "" {
		dto.BadRequest(c, "Invalid parameters")
		return
	}

	out, err := h.generations.Generate(c.Request.Context(), generation.GenerateInput{
		UserID:         middleware.GetUserIDFromGin(c),
		Parameters:     *req.Parameters,
		IdempotencyKey: c.GetHeader(middleware.IdempotencyKeyHeader),
		RequestID:      c.GetString("request_id"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	resp := dto.ToGenerateResponse(out)
	if out.Generation.IsTerminal() {
		dto.Success(c, resp)
		return
	}
	dto.Accepted(c, resp)
}

// List 分页历史
// @Summary 生成历史
// @Tags Generations
// @Produce json
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页条数" default(20)
// @Param status query string false "状态过滤"
// @Param shape query string false "形状过滤"
// @Success 200 {object} dto.Response[dto.GenerationListResponse]
// @Router /v1/generations [get]
func (h *GenerationHandler) List(c *gin.Context) {
	pageReq := dto.BindPage(c)
	filter := &repository.GenerationFilter{
		Status: entity.GenerationStatus(c.Query("status")),
		Shape:  entity.ShapeType(c.Query("shape")),
	}

	result, err := h.generations.List(c.Request.Context(), middleware.GetUserIDFromGin(c), filter,
		repository.NewPagination(pageReq.Page, pageReq.PageSize))
	if err != nil {
		respondError(c, err)
		return
	}

	dto.SuccessWithPage(c, dto.ToGenerationListResponse(result.Items),
		dto.NewPageMeta(pageReq.Page, pageReq.PageSize, int(result.Total)))
}

// Recent 最近的生成记录
// @Summary 最近生成
// @Tags Generations
// @Produce json
// @Success 200 {object} dto.Response[dto.GenerationListResponse]
// @Router /v1/generations/recent [get]
func (h *GenerationHandler) Recent(c *gin.Context) {
	gens, err := h.generations.Recent(c.Request.Context(), middleware.GetUserIDFromGin(c))
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.ToGenerationListResponse(gens))
}

// Get 生成记录详情
// @Summary 生成详情
// @Tags Generations
// @Produce json
// @Param id path int true "生成记录 ID"
// @Success 200 {object} dto.Response[dto.GenerationResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/generations/{id} [get]
func (h *GenerationHandler) Get(c *gin.Context) {
	id, ok := dto.BindGenerationID(c)
	if !ok {
		dto.NotFound(c, "generation not found")
		return
	}

	gen, err := h.generations.Get(c.Request.Context(), middleware.GetUserIDFromGin(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.ToGenerationResponse(gen))
}

// Stats 仪表盘统计
// @Summary 仪表盘统计
// @Tags Dashboard
// @Produce json
// @Success 200 {object} dto.Response[generation.Stats]
// @Router /v1/dashboard/stats [get]
func (h *GenerationHandler) Stats(c *gin.Context) {
	stats, err := h.generations.Stats(c.Request.Context(), middleware.GetUserIDFromGin(c))
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, stats)
}

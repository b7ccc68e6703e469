package dto

import (
	"time"

	"shape-forge-api/internal/application/generation"
	"shape-forge-api/internal/domain/entity"
)

// GenerateRequest 生成请求
type GenerateRequest struct {
	Parameters *entity.ShapeParameters `json:"parameters"`
}

// GenerateResponse 生成结果
type GenerateResponse struct {
	GenerationID     int64                   `json:"generation_id"`
	Status           entity.GenerationStatus `json:"status"`
	ModelURL         string                  `json:"model_url,omitempty"`
	CreditsRemaining int                     `json:"credits_remaining"`
	Replayed         bool                    `json:"replayed,omitempty"`
}

// GenerationResponse 生成记录详情
type GenerationResponse struct {
	ID           int64                   `json:"id"`
	Parameters   entity.ShapeParameters  `json:"parameters"`
	Status       entity.GenerationStatus `json:"status"`
	ModelURL     string                  `json:"model_url,omitempty"`
	CreditsUsed  int                     `json:"credits_used"`
	ErrorMessage string                  `json:"error_message,omitempty"`
	CreatedAt    time.Time               `json:"created_at"`
	CompletedAt  *time.Time              `json:"completed_at,omitempty"`
}

// GenerationListResponse 生成记录列表
type GenerationListResponse struct {
	Items []*GenerationResponse `json:"items"`
}

// InsufficientCreditsData 402 响应中附带的余额
type InsufficientCreditsData struct {
	Credits  int `json:"credits"`
	Required int `json:"required"`
}

// ToGenerateResponse 生成输出转换为响应
func ToGenerateResponse(out *generation.GenerateOutput) *GenerateResponse {
	return &GenerateResponse{
		GenerationID:     out.Generation.ID,
		Status:           out.Generation.Status,
		ModelURL:         out.Generation.ModelURL(),
		CreditsRemaining: out.CreditsRemaining,
		Replayed:         out.Replayed,
	}
}

// ToGenerationResponse 实体转换为响应
func ToGenerationResponse(g *entity.ShapeGeneration) *GenerationResponse {
	if g == nil {
		return nil
	}
	return &GenerationResponse{
		ID:           g.ID,
		Parameters:   g.Parameters.Data(),
		Status:       g.Status,
		ModelURL:     g.ModelURL(),
		CreditsUsed:  g.CreditsUsed,
		ErrorMessage: g.ErrorMessage,
		CreatedAt:    g.CreatedAt,
		CompletedAt:  g.CompletedAt,
	}
}

// ToGenerationListResponse 实体列表转换为响应
func ToGenerationListResponse(gens []*entity.ShapeGeneration) *GenerationListResponse {
	items := make([]*GenerationResponse, len(gens))
	for i, g := range gens {
		items[i] = ToGenerationResponse(g)
	}
	return &GenerationListResponse{Items: items}
}

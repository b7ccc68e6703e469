// Package service 定义领域层依赖的外部能力端口
package service

import (
	"context"

	"shape-forge-api/internal/domain/entity"
)

// ShapeRequest 一次形状生成请求
type ShapeRequest struct {
	GenerationID int64
	UserID       string
	Parameters   entity.ShapeParameters
}

// ShapeResult 生成结果
type ShapeResult struct {
	FileURL string
	Format  string
}

// ShapeEngine 几何生成引擎端口。
// 实现需要尊重 ctx 的取消，超时后返回 ctx.Err()。
type ShapeEngine interface {
	Generate(ctx context.Context, req ShapeRequest) (*ShapeResult, error)
}

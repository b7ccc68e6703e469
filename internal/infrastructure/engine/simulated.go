// Package engine 提供形状生成引擎实现
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"shape-forge-api/internal/domain/service"
)

var tracer = otel.Tracer("engine")

// FormatGLB 模型文件格式
const FormatGLB = "glb"

// SimulatedEngine 模拟引擎：等待固定时长后返回约定的模型地址
type SimulatedEngine struct {
	delay  time.Duration
	prefix string
}

// NewSimulatedEngine 创建模拟引擎
func NewSimulatedEngine(delay time.Duration, modelURLPrefix string) *SimulatedEngine {
	if modelURLPrefix == "" {
		modelURLPrefix = "/models"
	}
	return &SimulatedEngine{
		delay:  delay,
		prefix: strings.TrimRight(modelURLPrefix, "/"),
	}
}

// Generate 实现 service.ShapeEngine
func (e *SimulatedEngine) Generate(ctx context.Context, req service.ShapeRequest) (*service.ShapeResult, error) {
	ctx, span := tracer.Start(ctx, "engine.Simulated.Generate",
		trace.WithAttributes(
			attribute.Int64("generation.id", req.GenerationID),
			attribute.String("shape.type", string(req.Parameters.Type)),
		))
	defer span.End()

	if e.delay > 0 {
		timer := time.NewTimer(e.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			span.RecordError(ctx.Err())
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return &service.ShapeResult{
		FileURL: fmt.Sprintf("%s/%d.%s", e.prefix, req.GenerationID, FormatGLB),
		Format:  FormatGLB,
	}, nil
}

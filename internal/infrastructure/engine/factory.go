package engine

import (
	"fmt"

	"shape-forge-api/internal/config"
	"shape-forge-api/internal/domain/service"
)

// 引擎类型
const (
	TypeSimulated = "simulated"
	TypeHTTP      = "http"
)

// New 按配置创建引擎
func New(cfg *config.EngineConfig) (service.ShapeEngine, error) {
	switch cfg.Type {
	case "", TypeSimulated:
		return NewSimulatedEngine(cfg.Delay, cfg.ModelURLPrefix), nil
	case TypeHTTP:
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("engine endpoint is required for type %q", TypeHTTP)
		}
		return NewHTTPEngine(cfg.Endpoint, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown engine type %q", cfg.Type)
	}
}

package entity

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// GenerationStatus 生成状态
type GenerationStatus string

const (
	GenerationStatusPending    GenerationStatus = "pending"
	GenerationStatusProcessing GenerationStatus = "processing"
	GenerationStatusCompleted  GenerationStatus = "completed"
	GenerationStatusFailed     GenerationStatus = "failed"
)

// ShapeGeneration 形状生成记录
type ShapeGeneration struct {
	ID             int64                                `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID         string                               `json:"user_id" gorm:"type:text;not null;index;uniqueIndex:idx_generation_idempotency,priority:1"`
	Parameters     datatypes.JSONType[ShapeParameters] `json:"parameters" gorm:"not null"`
	Status         GenerationStatus                     `json:"status" gorm:"size:20;not null;default:pending"`
	FileURL        *string                              `json:"file_url,omitempty"`
	CreditsUsed    int                                  `json:"credits_used" gorm:"not null;default:0"`
	IdempotencyKey *string                              `json:"-" gorm:"size:128;uniqueIndex:idx_generation_idempotency,priority:2"`
	ErrorMessage   string                               `json:"error_message,omitempty"`
	CreatedAt      time.Time                            `json:"created_at" gorm:"index"`
	UpdatedAt      time.Time                            `json:"updated_at"`
	StartedAt      *time.Time                           `json:"started_at,omitempty"`
	CompletedAt    *time.Time                           `json:"completed_at,omitempty"`
}

// TableName 表名
func (ShapeGeneration) TableName() string {
	return "shape_generations"
}

// NewShapeGeneration 创建待处理的生成记录
func NewShapeGeneration(userID string, params ShapeParameters, cost int) *ShapeGeneration {
	return &ShapeGeneration{
		UserID:      userID,
		Parameters:  datatypes.NewJSONType(params),
		Status:      GenerationStatusPending,
		CreditsUsed: cost,
	}
}

// Shape 返回形状类型
func (g *ShapeGeneration) Shape() ShapeType {
	return g.Parameters.Data().Type
}

// Description 账本中使用的描述
func (g *ShapeGeneration) Description() string {
	return fmt.Sprintf("Shape generation #%d", g.ID)
}

// IsTerminal 是否已结束
func (g *ShapeGeneration) IsTerminal() bool {
	return g.Status == GenerationStatusCompleted || g.Status == GenerationStatusFailed
}

// Start 开始处理
func (g *ShapeGeneration) Start() error {
	if g.IsTerminal() {
		return ErrAlreadyTerminal
	}
	now := time.Now().UTC()
	g.Status = GenerationStatusProcessing
	g.StartedAt = &now
	return nil
}

// Complete 生成完成
func (g *ShapeGeneration) Complete(fileURL string) error {
	if g.IsTerminal() {
		return ErrAlreadyTerminal
	}
	now := time.Now().UTC()
	g.Status = GenerationStatusCompleted
	g.FileURL = &fileURL
	g.ErrorMessage = ""
	g.CompletedAt = &now
	return nil
}

// Fail 生成失败
func (g *ShapeGeneration) Fail(errMsg string) error {
	if g.IsTerminal() {
		return ErrAlreadyTerminal
	}
	now := time.Now().UTC()
	g.Status = GenerationStatusFailed
	g.ErrorMessage = errMsg
	g.CompletedAt = &now
	return nil
}

// Duration 处理耗时，未开始或未结束时返回 0
func (g *ShapeGeneration) Duration() time.Duration {
	if g.StartedAt == nil || g.CompletedAt == nil {
		return 0
	}
	return g.CompletedAt.Sub(*g.StartedAt)
}

// ModelURL 返回模型文件地址
func (g *ShapeGeneration) ModelURL() string {
	if g.FileURL == nil {
		return ""
	}
	return *g.FileURL
}

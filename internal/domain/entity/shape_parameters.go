package entity

import (
	"fmt"
	"math"
)

// ShapeType 形状类型
type ShapeType string

const (
	ShapeCylinder ShapeType = "cylinder"
	ShapeCube     ShapeType = "cube"
	ShapeGear     ShapeType = "gear"
)

// IsValid 检查形状类型是否受支持
func (t ShapeType) IsValid() bool {
	switch t {
	case ShapeCylinder, ShapeCube, ShapeGear:
		return true
	}
	return false
}

// ShapeParameters 参数化形状的输入参数
// 尺寸字段为 nil 表示未提供，归一化时取默认值
type ShapeParameters struct {
	Type   ShapeType `json:"type"`
	Radius *float64  `json:"radius,omitempty"`
	Height *float64  `json:"height,omitempty"`
	Width  *float64  `json:"width,omitempty"`
	Depth  *float64  `json:"depth,omitempty"`
	Teeth  *int      `json:"teeth,omitempty"`
}

// dimension 单个尺寸的取值范围与默认值
type dimension struct {
	name     string
	min, max float64
	def      float64
}

var shapeDimensions = map[ShapeType][]dimension{
	ShapeCylinder: {
		{name: "radius", min: 10, max: 100, def: 50},
		{name: "height", min: 20, max: 200, def: 100},
	},
	ShapeCube: {
		{name: "width", min: 20, max: 200, def: 100},
		{name: "height", min: 20, max: 200, def: 100},
		{name: "depth", min: 20, max: 200, def: 100},
	},
	ShapeGear: {
		{name: "radius", min: 20, max: 100, def: 50},
		{name: "teeth", min: 6, max: 50, def: 12},
		{name: "height", min: 5, max: 50, def: 20},
	},
}

// ParameterError 参数越界错误
type ParameterError struct {
	Shape ShapeType
	Field string
	Value float64
	Min   float64
	Max   float64
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("%s %s must be between %g and %g, got %g", e.Shape, e.Field, e.Min, e.Max, e.Value)
}

// Normalize 校验参数并补齐默认值，仅保留该形状使用的尺寸
func (p ShapeParameters) Normalize() (ShapeParameters, error) {
	dims, ok := shapeDimensions[p.Type]
	if !ok {
		return ShapeParameters{}, fmt.Errorf("%w: %q", ErrUnknownShape, p.Type)
	}

	out := ShapeParameters{Type: p.Type}
	for _, d := range dims {
		if d.name == "teeth" {
			teeth := int(d.def)
			if p.Teeth != nil {
				teeth = *p.Teeth
			}
			if float64(teeth) < d.min || float64(teeth) > d.max {
				return ShapeParameters{}, &ParameterError{Shape: p.Type, Field: d.name, Value: float64(teeth), Min: d.min, Max: d.max}
			}
			out.Teeth = &teeth
			continue
		}

		v := d.def
		if src := p.field(d.name); src != nil {
			v = *src
		}
		if math.IsNaN(v) || v < d.min || v > d.max {
			return ShapeParameters{}, &ParameterError{Shape: p.Type, Field: d.name, Value: v, Min: d.min, Max: d.max}
		}
		out.set(d.name, v)
	}
	return out, nil
}

func (p ShapeParameters) field(name string) *float64 {
	switch name {
	case "radius":
		return p.Radius
	case "height":
		return p.Height
	case "width":
		return p.Width
	case "depth":
		return p.Depth
	}
	return nil
}

func (p *ShapeParameters) set(name string, v float64) {
	switch name {
	case "radius":
		p.Radius = &v
	case "height":
		p.Height = &v
	case "width":
		p.Width = &v
	case "depth":
		p.Depth = &v
	}
}

package entity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func f(v float64) *float64 { return &v }
func i(v int) *int         { return &v }

func TestShapeParameters_NormalizeDefaults(t *testing.T) {
	tests := []struct {
		name  string
		input ShapeParameters
		want  ShapeParameters
	}{
		{
			name:  "cylinder",
			input: ShapeParameters{Type: ShapeCylinder},
			want:  ShapeParameters{Type: ShapeCylinder, Radius: f(50), Height: f(100)},
		},
		{
			name:  "cube",
			input: ShapeParameters{Type: ShapeCube, Width: f(30)},
			want:  ShapeParameters{Type: ShapeCube, Width: f(30), Height: f(100), Depth: f(100)},
		},
		{
			name:  "gear drops unrelated dimensions",
			input: ShapeParameters{Type: ShapeGear, Width: f(150), Teeth: i(24)},
			want:  ShapeParameters{Type: ShapeGear, Radius: f(50), Teeth: i(24), Height: f(20)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.input.Normalize()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestShapeParameters_NormalizeRejects(t *testing.T) {
	_, err := ShapeParameters{Type: "sphere"}.Normalize()
	assert.True(t, errors.Is(err, ErrUnknownShape))

	_, err = ShapeParameters{Type: ShapeCylinder, Radius: f(5)}.Normalize()
	var pe *ParameterError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "radius", pe.Field)
	assert.Equal(t, 10.0, pe.Min)

	_, err = ShapeParameters{Type: ShapeGear, Teeth: i(51)}.Normalize()
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "teeth", pe.Field)

	_, err = ShapeParameters{Type: ShapeCube, Depth: f(201)}.Normalize()
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "depth", pe.Field)
}

func TestShapeParameters_NormalizeProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		shape := rapid.SampledFrom([]ShapeType{ShapeCylinder, ShapeCube, ShapeGear}).Draw(t, "shape")
		in := ShapeParameters{Type: shape}
		if rapid.Bool().Draw(t, "hasRadius") {
			in.Radius = f(rapid.Float64Range(-10, 300).Draw(t, "radius"))
		}
		if rapid.Bool().Draw(t, "hasHeight") {
			in.Height = f(rapid.Float64Range(-10, 300).Draw(t, "height"))
		}
		if rapid.Bool().Draw(t, "hasTeeth") {
			in.Teeth = i(rapid.IntRange(0, 80).Draw(t, "teeth"))
		}

		out, err := in.Normalize()
		if err != nil {
			var pe *ParameterError
			if !errors.As(err, &pe) {
				t.Fatalf("unexpected error type: %v", err)
			}
			return
		}

		// 归一化结果中的所有尺寸均落在该形状的取值范围内，且结果幂等
		for _, d := range shapeDimensions[shape] {
			var v float64
			if d.name == "teeth" {
				v = float64(*out.Teeth)
			} else {
				v = *out.field(d.name)
			}
			if v < d.min || v > d.max {
				t.Fatalf("%s %s out of range: %g", shape, d.name, v)
			}
		}
		again, err := out.Normalize()
		if err != nil {
			t.Fatalf("normalize not idempotent: %v", err)
		}
		assert.Equal(t, out, again)
	})
}

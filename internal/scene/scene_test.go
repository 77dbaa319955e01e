package scene

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutlineChar(t *testing.T) {
	tests := []struct {
		deg  float64
		want rune
	}{
		{0, '-'}, {45, '\\'}, {90, '|'}, {135, '/'},
		{180, '-'}, {225, '\\'}, {270, '|'}, {315, '/'}, {-90, '|'},
	}
	for _, tt := range tests {
		assert.Equal(t, string(tt.want), string(OutlineChar(tt.deg*math.Pi/180)), "angle %v", tt.deg)
	}
}

func TestNormalizeAngle(t *testing.T) {
	assert.InDelta(t, math.Pi, NormalizeAngle(-math.Pi), 1e-9)
	assert.InDelta(t, 0, NormalizeAngle(2*math.Pi), 1e-9)
	assert.InDelta(t, 0.5, NormalizeAngle(4*math.Pi+0.5), 1e-9)
}

func TestRotateQuarterTurn(t *testing.T) {
	x, y := Rotate(1, 0, math.Pi/2)
	assert.InDelta(t, 0, x, 1e-9)
	assert.InDelta(t, 1, y, 1e-9)
}

func TestEllipseRadius(t *testing.T) {
	assert.InDelta(t, 1, EllipseRadius(4, 0, 4, 2), 1e-9)
	assert.InDelta(t, 1, EllipseRadius(0, -2, 4, 2), 1e-9)
	assert.Less(t, EllipseRadius(1, 1, 4, 2), 1.0)
	assert.True(t, math.IsInf(EllipseRadius(1, 1, 0, 2), 1))
}

func TestTween(t *testing.T) {
	start := time.Unix(0, 0)
	tw := NewTween(start, 300*time.Millisecond)

	assert.Equal(t, 0.0, tw.Progress(start.Add(-time.Second)))
	assert.InDelta(t, 0.5, tw.Progress(start.Add(150*time.Millisecond)), 1e-9)
	assert.InDelta(t, 0.75, tw.Eased(start.Add(150*time.Millisecond)), 1e-9)
	assert.False(t, tw.Done(start.Add(299*time.Millisecond)))
	assert.True(t, tw.Done(start.Add(300*time.Millisecond)))
	assert.Equal(t, 1.0, Tween{}.Progress(start))
	assert.Equal(t, 5.0, Lerp(0, 10, 0.5))
}

func TestRenderFace(t *testing.T) {
	assert.Empty(t, RenderFace(4, 2, Face{}), "too small to draw")

	out := RenderFace(40, 16, Face{})
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 16)
	for _, l := range lines {
		assert.Equal(t, 40, lipgloss.Width(l))
	}

	open := RenderFace(40, 16, Face{})
	closed := RenderFace(40, 16, Face{BlinkLeft: 1, BlinkRight: 1})
	assert.Contains(t, open, "o")
	assert.NotContains(t, closed, "o")

	assert.NotContains(t, open, "O")
	assert.Contains(t, RenderFace(40, 16, Face{JawOpen: 1}), "O")
}

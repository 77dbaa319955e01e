package scene

import (
	"math"

	"faceplay.klederson.com/internal/config"
)

// CellOffset converts a cell to coordinates relative to a center point,
// correcting for terminal aspect ratio so that dy is in column units.
func CellOffset(col, row, centerX, centerY int) (dx, dy float64) {
	return float64(col - centerX), float64(row-centerY) / config.AspectRatio
}

// Rotate rotates (x, y) by angle radians, clockwise on screen.
func Rotate(x, y, angle float64) (float64, float64) {
	sin, cos := math.Sincos(angle)
	return x*cos - y*sin, x*sin + y*cos
}

// EllipseRadius returns how far (x, y) lies from the center of an ellipse
// with semi-axes rx and ry: 1 on the outline, < 1 inside.
func EllipseRadius(x, y, rx, ry float64) float64 {
	if rx <= 0 || ry <= 0 {
		return math.Inf(1)
	}
	return math.Sqrt((x/rx)*(x/rx) + (y/ry)*(y/ry))
}

// NormalizeAngle wraps an angle to [0, 2π).
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

// OutlineChar returns the character that best follows a curve whose
// tangent is perpendicular to the given angle (0 = north, clockwise).
func OutlineChar(angle float64) rune {
	sector := int(math.Round(NormalizeAngle(angle)/(math.Pi/4))) % 8

	switch sector {
	case 0, 4: // North, South
		return '-'
	case 1, 5: // NE, SW
		return '\\'
	case 2, 6: // East, West
		return '|'
	default: // SE, NW
		return '/'
	}
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

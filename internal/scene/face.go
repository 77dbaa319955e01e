package scene

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"faceplay.klederson.com/internal/config"
)

var (
	colorSkin    = lipgloss.Color("#7FDBFF")
	colorFeature = lipgloss.Color("#FFFFFF")
	colorShade   = lipgloss.Color("#1B4F72")
	colorMouth   = lipgloss.Color("#FF6F91")

	styleOutline = lipgloss.NewStyle().Foreground(colorSkin).Bold(true)
	styleFeature = lipgloss.NewStyle().Foreground(colorFeature).Bold(true)
	styleShade   = lipgloss.NewStyle().Foreground(colorShade)
	styleMouth   = lipgloss.NewStyle().Foreground(colorMouth).Bold(true)
)

// Face describes what to draw: where the face sits in the view and its
// expression. Offsets are normalized to [-1, 1] of the view half-size.
type Face struct {
	OffsetX, OffsetY float64
	Yaw, Roll        float64
	BlinkLeft        float64
	BlinkRight       float64
	JawOpen          float64
	Smile            float64
	Textured         bool // fill the face with shading
}

// RenderFace draws a face mask into a width x height cell area.
func RenderFace(width, height int, f Face) string {
	if width < 8 || height < 4 {
		return ""
	}

	centerX := width/2 + int(math.Round(f.OffsetX*float64(width)/4))
	centerY := height/2 + int(math.Round(f.OffsetY*float64(height)/4))

	// Semi-axes in column units; yaw narrows the visible width.
	halfRows := float64(height) / 2 / config.AspectRatio
	ry := math.Min(0.85*halfRows, (float64(width)/2-1)/0.75)
	rx := ry * 0.75 * (0.6 + 0.4*math.Cos(f.Yaw))
	shift := math.Sin(f.Yaw) * rx * 0.35 // features drift toward the turn

	var sb strings.Builder
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			dx, dy := CellOffset(col, row, centerX, centerY)
			x, y := Rotate(dx, dy, -f.Roll)
			sb.WriteString(faceCell(x, y, rx, ry, shift, f))
		}
		if row < height-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func faceCell(x, y, rx, ry, shift float64, f Face) string {
	r := EllipseRadius(x, y, rx, ry)
	if r > 1.08 {
		return " "
	}
	if r > 0.92 {
		return styleOutline.Render(string(OutlineChar(math.Atan2(x, -y))))
	}

	// Feature coordinates normalized to the ellipse.
	nx := (x - shift) / rx
	ny := y / ry

	if ch, ok := eyeChar(nx, ny, -0.38, f.BlinkLeft); ok {
		return styleFeature.Render(ch)
	}
	if ch, ok := eyeChar(nx, ny, 0.38, f.BlinkRight); ok {
		return styleFeature.Render(ch)
	}
	if math.Abs(nx) < 0.08 && ny > -0.05 && ny < 0.2 {
		return styleFeature.Render("|")
	}
	if ch, ok := mouthChar(nx, ny, f.JawOpen, f.Smile); ok {
		return styleMouth.Render(ch)
	}

	if f.Textured && r > 0.55 {
		return styleShade.Render(".")
	}
	return " "
}

func eyeChar(nx, ny, eyeX, blink float64) (string, bool) {
	if math.Abs(nx-eyeX) > 0.14 || math.Abs(ny+0.3) > 0.09 {
		return "", false
	}
	if blink > 0.5 {
		return "-", true
	}
	return "o", true
}

func mouthChar(nx, ny, jawOpen, smile float64) (string, bool) {
	half := 0.3 + 0.1*smile
	if math.Abs(nx) > half {
		return "", false
	}
	// Smiling lifts the corners of the mouth.
	lip := 0.45 - smile*0.15*(nx/half)*(nx/half)
	gap := 0.05 + jawOpen*0.2

	switch {
	case math.Abs(ny-lip) < 0.06:
		return "~", true
	case jawOpen > 0.2 && ny > lip && ny < lip+gap:
		return "O", true
	}
	return "", false
}

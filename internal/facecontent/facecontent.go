// Package facecontent holds the content strategies that can be bound to a
// tracked face.
package facecontent

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"faceplay.klederson.com/internal/ar"
	"faceplay.klederson.com/internal/scene"
)

// maskDrawable renders the face mask for the latest anchor state.
type maskDrawable struct {
	face scene.Face
}

func (d *maskDrawable) Draw(width, height int) string {
	return scene.RenderFace(width, height, d.face)
}

func faceFromAnchor(a *ar.Anchor, textured bool) scene.Face {
	return scene.Face{
		OffsetX:    a.Pose.X,
		OffsetY:    a.Pose.Y,
		Yaw:        a.Pose.Yaw,
		Roll:       a.Pose.Roll,
		BlinkLeft:  a.Coefficient(ar.EyeBlinkLeft),
		BlinkRight: a.Coefficient(ar.EyeBlinkRight),
		JawOpen:    a.Coefficient(ar.JawOpen),
		Smile:      a.Coefficient(ar.MouthSmile),
		Textured:   textured,
	}
}

// TexturedFace overlays a shaded mask that follows the face.
type TexturedFace struct {
	node *ar.Node
}

// NewTexturedFace creates the default content strategy.
func NewTexturedFace() *TexturedFace {
	return &TexturedFace{}
}

func (c *TexturedFace) Name() string { return "Textured face" }

func (c *TexturedFace) NodeFor(anchor *ar.Anchor) *ar.Node {
	n := ar.NewNode("textured-face")
	n.Drawable = &maskDrawable{face: faceFromAnchor(anchor, true)}
	c.node = n
	return n
}

func (c *TexturedFace) ContentNode() *ar.Node { return c.node }

func (c *TexturedFace) DidUpdate(contentNode *ar.Node, anchor *ar.Anchor) {
	if d, ok := contentNode.Drawable.(*maskDrawable); ok {
		d.face = faceFromAnchor(anchor, true)
	}
}

// PoseAxes shows an unshaded mask with the head pose and expression readout.
type PoseAxes struct {
	node *ar.Node
}

// NewPoseAxes creates the pose readout content strategy.
func NewPoseAxes() *PoseAxes {
	return &PoseAxes{}
}

func (c *PoseAxes) Name() string { return "Pose axes" }

func (c *PoseAxes) NodeFor(anchor *ar.Anchor) *ar.Node {
	n := ar.NewNode("pose-axes")
	n.Drawable = &axesDrawable{anchor: anchor.Clone()}
	c.node = n
	return n
}

func (c *PoseAxes) ContentNode() *ar.Node { return c.node }

func (c *PoseAxes) DidUpdate(contentNode *ar.Node, anchor *ar.Anchor) {
	if d, ok := contentNode.Drawable.(*axesDrawable); ok {
		d.anchor = anchor.Clone()
	}
}

var (
	readoutLabel = lipgloss.NewStyle().Foreground(lipgloss.Color("#5DADE2"))
	readoutValue = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
)

type axesDrawable struct {
	anchor *ar.Anchor
}

func (d *axesDrawable) Draw(width, height int) string {
	readout := []string{
		readoutRow("yaw", degrees(d.anchor.Pose.Yaw)),
		readoutRow("pitch", degrees(d.anchor.Pose.Pitch)),
		readoutRow("roll", degrees(d.anchor.Pose.Roll)),
		readoutRow("jaw", fmt.Sprintf("%3.0f%%", 100*d.anchor.Coefficient(ar.JawOpen))),
		readoutRow("smile", fmt.Sprintf("%3.0f%%", 100*d.anchor.Coefficient(ar.MouthSmile))),
	}

	maskH := height - len(readout)
	if maskH < 4 {
		return strings.Join(readout, "\n")
	}
	mask := scene.RenderFace(width, maskH, faceFromAnchor(d.anchor, false))
	return mask + "\n" + strings.Join(readout, "\n")
}

func readoutRow(label, value string) string {
	return readoutLabel.Render(fmt.Sprintf(" %-6s", label)) + readoutValue.Render(value)
}

func degrees(rad float64) string {
	return fmt.Sprintf("%+4.0f°", rad*180/math.Pi)
}

// Strategies returns the content strategies in cycling order.
func Strategies() []ar.ContentController {
	return []ar.ContentController{NewTexturedFace(), NewPoseAxes()}
}

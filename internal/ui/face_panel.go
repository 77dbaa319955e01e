package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// FacePanel is the main screen body.
type FacePanel struct {
	Title    string
	Content  string  // pre-rendered drawable output, "" when nothing is tracked
	Notice   string  // shown instead of content when set
	Button   string  // start button label
	Progress float64 // start animation progress in [0, 1]
}

// FaceContentSize returns the cell area available to the drawable inside a
// panel of the given size.
func FaceContentSize(width, height int) (int, int) {
	w := width - 4
	h := height - 2 - 2 - buttonRows
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return w, h
}

const buttonRows = 3

// RenderFacePanel renders the bordered face view with the start button below.
func RenderFacePanel(width, height int, p FacePanel) string {
	innerW := width - 4
	innerH := height - 2
	if innerW < 10 {
		innerW = 10
	}
	if innerH < buttonRows+3 {
		innerH = buttonRows + 3
	}
	contentW, contentH := FaceContentSize(width, height)

	title := StylePanelTitle.Render(p.Title)
	separator := StyleSeparator.Render(strings.Repeat("-", innerW))

	var body string
	switch {
	case p.Notice != "":
		body = lipgloss.Place(contentW, contentH, lipgloss.Center, lipgloss.Center, StyleHelp.Render(p.Notice))
	case p.Content == "":
		body = lipgloss.Place(contentW, contentH, lipgloss.Center, lipgloss.Center, StyleHelp.Render("Looking for a face..."))
	default:
		body = clampLines(p.Content, contentH)
	}

	button := renderStartButton(innerW, p.Button, p.Progress)
	content := strings.Join([]string{title, separator, body, button}, "\n")
	rendered := StylePanelBorder.Width(width - 2).Height(innerH).Render(content)
	return clampLines(rendered, height)
}

// renderStartButton draws the button; as progress goes to 1 it shrinks and
// sinks out of its row block.
func renderStartButton(width int, label string, progress float64) string {
	progress = math.Max(0, math.Min(1, progress))

	full := len(label) + 8
	if full > width {
		full = width
	}
	w := int(math.Round(float64(full) * (1 - 0.6*progress)))
	if w < len(label)+2 {
		w = len(label) + 2
	}
	drop := int(math.Round(progress * float64(buttonRows-1)))

	btn := StyleStartButton.Width(w).Render(label)
	if progress >= 1 {
		btn = StyleHelp.Render(fmt.Sprintf("[ %s ]", label))
	}

	rows := make([]string, buttonRows)
	rows[drop] = lipgloss.PlaceHorizontal(width, lipgloss.Center, btn)
	return strings.Join(rows, "\n")
}

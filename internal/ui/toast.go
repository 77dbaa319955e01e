package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// ToastKind selects the toast background.
type ToastKind int

const (
	ToastSuccess ToastKind = iota
	ToastFailure
)

// Toast is a transient banner shown above the status bar.
type Toast struct {
	Kind        ToastKind
	Title       string
	Description string
}

// RenderToast renders a one-line banner of the given width.
func RenderToast(width int, t Toast) string {
	bg := ColorSuccess
	if t.Kind == ToastFailure {
		bg = ColorFailure
	}
	text := StyleToastTitle.Background(bg).Render(" "+t.Title+": ") +
		StyleToastBody.Background(bg).Render(t.Description+" ")

	return lipgloss.NewStyle().
		Background(bg).
		Width(width).
		MaxHeight(1).
		Render(text)
}

package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Alert is a modal with a single action.
type Alert struct {
	Title   string
	Message string
	Action  string
}

// RenderAlert centers the alert box in a width x height area.
func RenderAlert(width, height int, a Alert) string {
	boxW := width * 2 / 3
	if boxW < 30 {
		boxW = 30
	}
	if boxW > 64 {
		boxW = 64
	}

	body := []string{StyleAlertTitle.Render(a.Title), ""}
	if a.Message != "" {
		body = append(body, strings.Split(a.Message, "\n")...)
		body = append(body, "")
	}
	action := StyleAlertAction.Render(a.Action) + StyleHelp.Render("  [enter]")
	body = append(body, action)

	box := StyleAlertBox.Width(boxW).Render(strings.Join(body, "\n"))
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}

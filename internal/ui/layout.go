package ui

import "github.com/charmbracelet/lipgloss"

// ComposeLayout stacks the menu bar, the body, an optional toast and the
// status bar.
func ComposeLayout(menuBar, body, toast, statusBar string) string {
	if toast == "" {
		return lipgloss.JoinVertical(lipgloss.Left, menuBar, body, statusBar)
	}
	return lipgloss.JoinVertical(lipgloss.Left, menuBar, body, toast, statusBar)
}

package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"faceplay.klederson.com/internal/config"
)

// KeyHint is one entry of the menu bar, rendered as "[K]label".
type KeyHint struct {
	Key, Label string
}

// RenderMenuBar renders the top menu bar with the hints for the active screen
// and a right-aligned context label.
func RenderMenuBar(width int, hints []KeyHint, context string) string {
	title := fmt.Sprintf(" %s v%s ", config.AppName, config.AppVersion)

	var menu strings.Builder
	for _, k := range hints {
		menu.WriteString("  " + StyleMenuKey.Render("["+k.Key+"]") + StyleMenuLabel.Render(k.Label))
	}

	left := StyleMenuKey.Render(title) + menu.String()
	right := StyleMenuLabel.Render(context) + " "

	gap := width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 0 {
		gap = 0
	}

	return StyleMenuBar.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}

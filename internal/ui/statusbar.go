package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// StatusInfo is what the bottom bar reports.
type StatusInfo struct {
	Tracking   bool   // an AR session is running
	Connected  string // name of the connected peripheral, "" if none
	Scanning   bool
	Discovered int
	Phase      string // game start phase
}

// RenderStatusBar renders the bottom status bar.
func RenderStatusBar(width int, s StatusInfo) string {
	tracking := StyleStatusIdle.Render("[NO AR]")
	if s.Tracking {
		tracking = StyleStatusActive.Render("[TRACKING]")
	}

	device := StyleStatusIdle.Render("no device")
	if s.Connected != "" {
		device = StyleStateConnected.Render(s.Connected)
	}

	scan := ""
	if s.Scanning {
		scan = "  " + StyleStatusActive.Render("scanning") + StyleMenuLabel.Render(" ("+itoa(s.Discovered)+")")
	}

	content := tracking + StyleMenuLabel.Render("  Device: ") + device + scan +
		StyleMenuLabel.Render("  Game: ") + StyleStatusActive.Render(s.Phase)

	gap := width - lipgloss.Width(content) - 2
	if gap < 0 {
		gap = 0
	}
	return StyleStatusBar.Width(width).Render(content + strings.Repeat(" ", gap))
}

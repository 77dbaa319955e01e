package ui

import (
	"fmt"
	"strings"

	"faceplay.klederson.com/internal/bluetooth"
)

// ListSection is one titled group of rows in the peripheral list.
type ListSection struct {
	Title       string
	Peripherals []bluetooth.Peripheral
}

// ListView carries everything the peripheral list needs to draw itself.
type ListView struct {
	Sections []ListSection
	Cursor   int // flat index across all sections
	Scanning bool
	Spinner  string // current spinner frame, shown while connecting
}

// Rows returns the number of selectable rows across all sections.
func (v ListView) Rows() int {
	n := 0
	for _, s := range v.Sections {
		n += len(s.Peripherals)
	}
	return n
}

// RenderPeripheralList renders the sectioned peripheral list panel. The title
// and separator stay fixed; the rows scroll to keep the cursor visible.
func RenderPeripheralList(v ListView, width, height int) string {
	innerW := width - 4
	if innerW < 20 {
		innerW = 20
	}
	innerH := height - 2
	if innerH < 4 {
		innerH = 4
	}

	scan := StyleStatusIdle.Render("[stopped]")
	if v.Scanning {
		scan = StyleStatusActive.Render("[searching]")
	}
	title := StylePanelTitle.Render(fmt.Sprintf("CONNECT A DEVICE [%d]", v.Rows())) + " " + scan
	separator := StyleSeparator.Render(strings.Repeat("-", innerW))
	header := []string{title, separator}

	body := listBody(v, innerW)
	space := innerH - len(header)
	if space < 1 {
		space = 1
	}

	// Scroll so the cursor row stays in view.
	start := 0
	if at := cursorLine(v); at >= space {
		start = at - space + 1
	}
	if start > len(body) {
		start = len(body)
	}
	body = body[start:]
	if len(body) > space {
		body = body[:space]
	}
	for len(body) < space {
		body = append(body, "")
	}

	content := strings.Join(append(header, body...), "\n")
	rendered := StylePanelActive.Width(width - 2).Height(innerH).Render(content)
	return clampLines(rendered, height)
}

// listBody lays out sections as a title line followed by one line per row.
func listBody(v ListView, w int) []string {
	if v.Rows() == 0 {
		hint := " Press [s] to search for devices"
		if v.Scanning {
			hint = " Searching..."
		}
		return []string{"", StyleHelp.Render(hint)}
	}

	var lines []string
	row := 0
	for _, s := range v.Sections {
		if len(s.Peripherals) == 0 {
			continue
		}
		lines = append(lines, StyleSectionTitle.Render(" "+strings.ToUpper(s.Title)))
		for _, p := range s.Peripherals {
			lines = append(lines, renderPeripheralRow(p, w, row == v.Cursor, v.Spinner))
			row++
		}
	}
	return lines
}

// cursorLine maps the cursor to its line in listBody.
func cursorLine(v ListView) int {
	line, row := 0, 0
	for _, s := range v.Sections {
		if len(s.Peripherals) == 0 {
			continue
		}
		line++
		for range s.Peripherals {
			if row == v.Cursor {
				return line
			}
			line++
			row++
		}
	}
	return 0
}

func renderPeripheralRow(p bluetooth.Peripheral, w int, isCursor bool, spinner string) string {
	marker := "  "
	if isCursor {
		marker = ">>"
	}

	state := " "
	switch p.State {
	case bluetooth.StateConnecting:
		state = spinner
	case bluetooth.StateConnected:
		state = "*"
	}
	if state == "" {
		state = "~"
	}

	nameW := w - 36
	if nameW < 6 {
		nameW = 6
	}
	name := truncRaw(p.DisplayName(), nameW)
	trend := truncRaw(renderSparkline(p.History, 8), 8)
	rssi := fmt.Sprintf("%4ddBm", int(p.RSSI))
	dist := fmt.Sprintf("~%4.1fm", p.Distance)

	if isCursor {
		raw := fmt.Sprintf("%s %s %s %s %s %s", marker, state, name, trend, rssi, dist)
		return StyleCursorRow.Render(truncRaw(raw, w))
	}

	stateSty := StyleHelp
	switch p.State {
	case bluetooth.StateConnecting:
		stateSty = StyleStateConnecting
	case bluetooth.StateConnected:
		stateSty = StyleStateConnected
	}
	return fmt.Sprintf("%s %s %s %s %s %s",
		marker,
		stateSty.Render(state),
		StylePeripheralName.Render(name),
		StyleHelp.Render(trend),
		StylePeripheralRSSI.Render(rssi),
		StylePeripheralAddr.Render(dist),
	)
}

// renderSparkline scales the last width samples to a five-level ramp.
func renderSparkline(values []float64, width int) string {
	if len(values) == 0 {
		return ""
	}

	chars := []byte{'_', '.', '-', '~', '^'}

	minV, maxV := values[0], values[0]
	for _, v := range values {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}

	rng := maxV - minV
	if rng < 1 {
		rng = 1
	}

	start := 0
	if len(values) > width {
		start = len(values) - width
	}

	var sb strings.Builder
	for i := start; i < len(values); i++ {
		idx := int((values[i] - minV) / rng * float64(len(chars)-1))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(chars) {
			idx = len(chars) - 1
		}
		sb.WriteByte(chars[idx])
	}

	return sb.String()
}

// truncRaw pads or truncates a raw string to exactly w runes.
func truncRaw(s string, w int) string {
	r := []rune(s)
	if len(r) > w {
		return string(r[:w])
	}
	if len(r) < w {
		return s + strings.Repeat(" ", w-len(r))
	}
	return s
}

// clampLines forces a rendered block to exactly n lines. lipgloss Height()
// only sets a minimum.
func clampLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	for len(lines) < n {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func itoa(n int) string {
	return fmt.Sprintf("%d", n)
}

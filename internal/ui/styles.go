package ui

import "github.com/charmbracelet/lipgloss"

// Palette
var (
	ColorAccent    = lipgloss.Color("#7FDBFF")
	ColorText      = lipgloss.Color("#D6EAF8")
	ColorMuted     = lipgloss.Color("#5D6D7E")
	ColorDim       = lipgloss.Color("#2C3E50")
	ColorBarBg     = lipgloss.Color("#0B1F2E")
	ColorBorder    = lipgloss.Color("#2E86C1")
	ColorBorderHot = lipgloss.Color("#7FDBFF")
	ColorSuccess   = lipgloss.Color("#27AE60")
	ColorFailure   = lipgloss.Color("#C0392B")
	ColorWarning   = lipgloss.Color("#F5B041")
	ColorButton    = lipgloss.Color("#5DADE2")
)

// Pre-built styles
var (
	StyleMenuBar = lipgloss.NewStyle().
			Background(ColorBarBg).
			Foreground(ColorAccent).
			Bold(true).
			Padding(0, 1)

	StyleMenuKey = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)

	StyleMenuLabel = lipgloss.NewStyle().
			Foreground(ColorText)

	StyleStatusBar = lipgloss.NewStyle().
			Background(ColorBarBg).
			Foreground(ColorText).
			Padding(0, 1)

	StyleStatusActive = lipgloss.NewStyle().
				Foreground(ColorAccent).
				Bold(true)

	StyleStatusIdle = lipgloss.NewStyle().
			Foreground(ColorWarning).
			Bold(true)

	StylePanelBorder = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorBorder)

	StylePanelActive = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorBorderHot)

	StylePanelTitle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true).
			Padding(0, 1)

	StyleSectionTitle = lipgloss.NewStyle().
				Foreground(ColorMuted).
				Bold(true)

	StyleSeparator = lipgloss.NewStyle().
			Foreground(ColorDim)

	StylePeripheralName = lipgloss.NewStyle().
				Foreground(ColorText).
				Bold(true)

	StylePeripheralAddr = lipgloss.NewStyle().
				Foreground(ColorMuted)

	StylePeripheralRSSI = lipgloss.NewStyle().
				Foreground(ColorAccent)

	StyleStateConnecting = lipgloss.NewStyle().
				Foreground(ColorWarning).
				Bold(true)

	StyleStateConnected = lipgloss.NewStyle().
				Foreground(ColorSuccess).
				Bold(true)

	StyleCursorRow = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#000000")).
			Background(ColorAccent).
			Bold(true)

	StyleHelp = lipgloss.NewStyle().
			Foreground(ColorMuted)

	StyleToastTitle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	StyleToastBody = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true)

	StyleAlertBox = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(ColorFailure).
			Padding(1, 2)

	StyleAlertTitle = lipgloss.NewStyle().
			Foreground(ColorFailure).
			Bold(true)

	StyleAlertAction = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#000000")).
				Background(ColorButton).
				Bold(true).
				Padding(0, 2)

	StyleStartButton = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FFFFFF")).
				Background(ColorButton).
				Bold(true).
				Align(lipgloss.Center)
)

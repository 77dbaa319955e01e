package app

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"faceplay.klederson.com/internal/ar"
	"faceplay.klederson.com/internal/bluetooth"
	"faceplay.klederson.com/internal/config"
	"faceplay.klederson.com/internal/connectflow"
	"faceplay.klederson.com/internal/mainscreen"
	"faceplay.klederson.com/internal/ui"
)

// shared holds state shared between the Bubble Tea model copies and main.go.
// Because Bubble Tea uses value receivers, pointer fields ensure all copies
// see the same underlying data.
type shared struct {
	connector *bluetooth.Connector
	screen    *mainscreen.Model
	flow      *connectflow.Model // nil while the flow is not presented
	recents   *connectflow.Recents
	program   *tea.Program
}

// send delivers msg to the running program. Before Attach it drops msg.
func (s *shared) send(msg tea.Msg) {
	if s.program != nil {
		s.program.Send(msg)
	}
}

// AppModel is the root Bubble Tea model. It coordinates the main screen and
// the connection flow presented on top of it.
type AppModel struct {
	width  int
	height int

	cfg    *config.Config
	logger *logrus.Logger

	toast    *ui.Toast
	toastSeq int

	shared *shared
}

// New creates the app over a radio adapter and a face-tracking provider.
func New(cfg *config.Config, adapter bluetooth.Adapter, provider ar.Provider, logger *logrus.Logger) AppModel {
	if logger == nil {
		logger = logrus.New()
	}
	sh := &shared{
		connector: bluetooth.NewConnector(adapter, logger, bluetooth.ConnectorOptions{
			ConnectTimeout: cfg.ConnectTimeout,
		}),
		recents: connectflow.NewRecents(5),
	}
	sh.screen = mainscreen.New(provider, mainscreen.NewDelegate(sh.send), mainscreen.Options{Logger: logger})

	return AppModel{
		cfg:    cfg,
		logger: logger,
		shared: sh,
	}
}

// Attach routes asynchronous connector and session events through p.
// Must be called before p.Run().
func (m *AppModel) Attach(p *tea.Program) {
	m.shared.program = p
	m.shared.connector.SetHandlers(bluetooth.Handlers{
		OnDiscover: func(d bluetooth.Discovery) {
			m.shared.send(connectflow.DiscoveredMsg(d))
		},
		OnScanError: func(gen uint64, err error) {
			m.shared.send(connectflow.ScanErrorMsg{Generation: gen, Err: err})
		},
		OnDisconnect: func(p bluetooth.Peripheral) {
			m.shared.send(connectflow.DisconnectedMsg{Peripheral: p})
		},
	})
}

func (m AppModel) Init() tea.Cmd {
	return func() tea.Msg { return appearMsg{} }
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if s := msg.String(); s == "ctrl+c" || s == "q" || s == "Q" {
			m.shutdown()
			return m, tea.Quit
		}
		if m.shared.flow != nil {
			return m, m.shared.flow.Update(msg)
		}
		return m, m.shared.screen.Update(msg)

	case appearMsg:
		m.shared.screen.Appear()
		return m, nil

	case toastExpiredMsg:
		if msg.seq == m.toastSeq {
			m.toast = nil
		}
		return m, nil

	// Connection flow

	case mainscreen.ConnectDeviceRequestedMsg:
		return m, m.presentFlow()

	case connectflow.FlowClosedMsg:
		m.shared.flow = nil
		m.shared.screen.Appear()
		return m, nil

	case connectflow.ToastMsg:
		cmd := m.showToast(ui.Toast(msg))
		return m, cmd

	case connectflow.DisconnectedMsg:
		toast := m.showToast(ui.Toast{
			Kind:        ui.ToastFailure,
			Title:       "Disconnected",
			Description: msg.Peripheral.DisplayName(),
		})
		if m.shared.flow == nil {
			m.shared.recents.Remember(msg.Peripheral)
			return m, toast
		}
		return m, tea.Batch(toast, m.shared.flow.Update(msg))

	case connectflow.DiscoveredMsg, connectflow.ScanErrorMsg, connectflow.ConnectResultMsg,
		connectflow.EvictMsg, spinner.TickMsg:
		if m.shared.flow == nil {
			return m, nil
		}
		return m, m.shared.flow.Update(msg)

	// Start-game handshake

	case mainscreen.PrepareGameStartMsg:
		return m, m.shared.screen.StartAnimation()

	case mainscreen.GameStartPreparedMsg:
		m.logger.Info("Game start prepared")
		cmd := m.showToast(ui.Toast{Kind: ui.ToastSuccess, Title: "Ready", Description: "Game starting"})
		return m, cmd
	}

	// Session callbacks and animation frames.
	return m, m.shared.screen.Update(msg)
}

func (m AppModel) presentFlow() tea.Cmd {
	if m.shared.flow != nil {
		return nil
	}
	flow := connectflow.New(m.shared.connector, m.shared.recents, connectflow.Options{
		DeviceTimeout: m.cfg.DeviceTimeout,
		Logger:        m.logger,
	})
	m.shared.flow = flow
	return tea.Batch(flow.Init(), flow.StartSearch())
}

func (m *AppModel) showToast(t ui.Toast) tea.Cmd {
	m.toast = &t
	m.toastSeq++
	seq := m.toastSeq
	return tea.Tick(m.cfg.ToastDuration, func(time.Time) tea.Msg {
		return toastExpiredMsg{seq: seq}
	})
}

func (m AppModel) shutdown() {
	if m.shared.flow != nil {
		m.shared.flow.Close()
		m.shared.flow = nil
	}
	m.shared.screen.Pause()
	if err := m.shared.connector.Close(); err != nil {
		m.logger.WithError(err).Warn("Closing connector")
	}
}

func (m AppModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing " + config.AppName + "..."
	}

	bodyH := m.height - 2
	toast := ""
	if m.toast != nil {
		toast = ui.RenderToast(m.width, *m.toast)
		bodyH--
	}
	if bodyH < 8 {
		bodyH = 8
	}

	label := m.cfg.Adapter
	if m.cfg.Demo {
		label = "demo"
	}

	var hints []ui.KeyHint
	var body string
	discovered := 0
	if flow := m.shared.flow; flow != nil {
		hints = flow.Hints()
		body = flow.View(m.width, bodyH)
		discovered = flow.Discovered()
	} else {
		hints = m.shared.screen.Hints()
		body = m.shared.screen.View(m.width, bodyH)
	}
	hints = append(hints, ui.KeyHint{Key: "Q", Label: "uit"})

	connected := ""
	if p, ok := m.shared.connector.ConnectedPeripheral(); ok {
		connected = p.DisplayName()
	}

	menuBar := ui.RenderMenuBar(m.width, hints, label)
	statusBar := ui.RenderStatusBar(m.width, ui.StatusInfo{
		Tracking:   m.shared.screen.Tracking(),
		Connected:  connected,
		Scanning:   m.shared.connector.Scanning(),
		Discovered: discovered,
		Phase:      m.shared.screen.Phase().String(),
	})

	return ui.ComposeLayout(menuBar, body, toast, statusBar)
}

// Presented reports whether the connection flow is on screen.
func (m AppModel) Presented() bool {
	return m.shared.flow != nil
}

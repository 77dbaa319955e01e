// Package connectflow is the manual connection flow: search for nearby
// peripherals, pick one, connect, confirm and close.
package connectflow

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"faceplay.klederson.com/internal/bluetooth"
	"faceplay.klederson.com/internal/config"
	"faceplay.klederson.com/internal/ui"
)

// Connector is the part of bluetooth.Connector the flow drives.
type Connector interface {
	StartDiscovery() (uint64, error)
	StopDiscovery()
	Connect(ctx context.Context, p bluetooth.Peripheral) (bluetooth.Peripheral, error)
	ConnectedPeripheral() (bluetooth.Peripheral, bool)
}

// SectionKind identifies a list section.
type SectionKind int

const (
	SectionConnected SectionKind = iota
	SectionRecent
	SectionDiscovered
	sectionCount
)

// Section is a titled group of peripherals in the list.
type Section struct {
	Title       string
	Peripherals []bluetooth.Peripheral
}

// Options configures a flow.
type Options struct {
	DeviceTimeout time.Duration // discovered peripherals unseen this long are dropped
	Logger        *logrus.Logger
}

// Model is the connection flow. It is not safe for concurrent use; all
// methods run on the Bubble Tea event loop.
type Model struct {
	connector     Connector
	recents       *Recents
	store         *bluetooth.PeripheralStore
	logger        *logrus.Logger
	deviceTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	sections   [sectionCount]Section
	cursor     int
	scanning   bool
	generation uint64
	attempt    uint64
	pending    string // address of the attempt in flight
	closed     bool

	spinner spinner.Model
}

// New creates a flow over connector. recents may be shared between
// presentations so the Recent section survives the flow being closed.
func New(connector Connector, recents *Recents, opts Options) *Model {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	if recents == nil {
		recents = NewRecents(5)
	}
	if opts.DeviceTimeout <= 0 {
		opts.DeviceTimeout = config.Default().DeviceTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())

	s := spinner.New()
	s.Spinner = spinner.Line
	s.Style = ui.StyleStateConnecting

	m := &Model{
		connector:     connector,
		recents:       recents,
		store:         bluetooth.NewPeripheralStore(),
		logger:        opts.Logger,
		deviceTimeout: opts.DeviceTimeout,
		ctx:           ctx,
		cancel:        cancel,
		spinner:       s,
	}
	m.sections[SectionConnected].Title = "Connected"
	m.sections[SectionRecent].Title = "Recent"
	m.sections[SectionDiscovered].Title = "Discovered"
	m.refresh()
	return m
}

// Init starts the eviction tick.
func (m *Model) Init() tea.Cmd {
	return evictCmd()
}

// StartSearch clears the discovered section and asks the connector for a new
// search. The section is empty when StartSearch returns; discoveries arrive
// later as DiscoveredMsg.
func (m *Model) StartSearch() tea.Cmd {
	m.store.Clear()
	m.sections[SectionDiscovered].Peripherals = nil
	m.refresh()

	gen, err := m.connector.StartDiscovery()
	if err != nil {
		m.scanning = false
		m.logger.WithError(err).Error("Could not start search")
		return toastCmd(ui.ToastFailure, "Search failed", err.Error())
	}
	m.generation = gen
	m.scanning = true
	return nil
}

// StopSearch asks the connector to stop searching. It is safe to call when
// no search is running.
func (m *Model) StopSearch() {
	m.connector.StopDiscovery()
	m.scanning = false
}

// Connect starts a connection attempt to p. While an attempt is pending
// further calls are rejected with bluetooth.ErrConnectInProgress. The
// attempt resolves exactly once with a ConnectResultMsg.
func (m *Model) Connect(p bluetooth.Peripheral) tea.Cmd {
	if m.pending != "" {
		m.logger.WithFields(logrus.Fields{
			"address": p.Address,
			"pending": m.pending,
		}).Info("Connect rejected")
		return toastCmd(ui.ToastFailure, "Connection failed", bluetooth.ErrConnectInProgress.Error())
	}

	m.attempt++
	id := m.attempt
	m.pending = p.Address
	m.store.SetState(p.Address, bluetooth.StateConnecting)
	m.refresh()

	ctx, c := m.ctx, m.connector
	attempt := func() tea.Msg {
		connected, err := c.Connect(ctx, p)
		return ConnectResultMsg{Attempt: id, Address: p.Address, Peripheral: connected, Err: err}
	}
	return tea.Batch(attempt, m.spinner.Tick)
}

// Close cancels an attempt in flight and stops the search.
func (m *Model) Close() {
	if m.closed {
		return
	}
	m.closed = true
	m.cancel()
	m.StopSearch()
}

// Update handles flow messages and keys.
func (m *Model) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case DiscoveredMsg:
		if m.closed || !m.scanning || msg.Generation != m.generation {
			return nil
		}
		m.store.UpsertDiscovery(bluetooth.Discovery(msg))
		m.refresh()
		return nil

	case ScanErrorMsg:
		if msg.Generation != m.generation || !m.scanning {
			return nil
		}
		m.scanning = false
		return toastCmd(ui.ToastFailure, "Search failed", msg.Err.Error())

	case ConnectResultMsg:
		return m.handleResult(msg)

	case DisconnectedMsg:
		m.recents.Remember(msg.Peripheral)
		m.store.SetState(msg.Peripheral.Address, bluetooth.StateDiscovered)
		m.refresh()
		return nil

	case EvictMsg:
		if m.closed {
			return nil
		}
		if n := m.store.Evict(m.deviceTimeout); n > 0 {
			m.logger.WithField("count", n).Debug("Evicted stale peripherals")
			m.refresh()
		}
		return evictCmd()

	case spinner.TickMsg:
		if m.pending == "" {
			return nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return cmd
	}
	return nil
}

func (m *Model) handleResult(msg ConnectResultMsg) tea.Cmd {
	log := m.logger.WithFields(logrus.Fields{
		"attempt": msg.Attempt,
		"address": msg.Address,
	})
	if msg.Attempt != m.attempt || m.pending != msg.Address {
		log.Debug("Ignoring stale connection result")
		return nil
	}
	m.pending = ""

	if msg.Err != nil {
		m.store.SetState(msg.Address, bluetooth.StateDiscovered)
		m.refresh()
		if m.closed || errors.Is(msg.Err, context.Canceled) {
			return nil
		}
		return toastCmd(ui.ToastFailure, "Connection failed", msg.Err.Error())
	}

	m.store.SetState(msg.Address, bluetooth.StateConnected)
	m.refresh()

	connected, ok := m.connector.ConnectedPeripheral()
	if !ok || connected.Name == "" {
		log.Info("Connected peripheral has no name, keeping the flow open")
		return nil
	}

	m.recents.Remember(connected)
	cmds := []tea.Cmd{
		toastCmd(ui.ToastSuccess, "Successfully connected", connected.Name),
		func() tea.Msg { return FlowClosedMsg{Connected: &connected} },
	}
	m.Close()
	return tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "s", "S":
		return m.StartSearch()

	case "p", "P":
		m.StopSearch()

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < m.rows()-1 {
			m.cursor++
		}

	case "enter":
		if p, ok := m.Selected(); ok {
			return m.Connect(p)
		}

	case "esc":
		m.Close()
		return func() tea.Msg { return FlowClosedMsg{} }
	}
	return nil
}

// refresh rebuilds the sections from the connector, the recents and the store.
func (m *Model) refresh() {
	shown := make(map[string]bool)

	m.sections[SectionConnected].Peripherals = nil
	if p, ok := m.connector.ConnectedPeripheral(); ok {
		m.sections[SectionConnected].Peripherals = []bluetooth.Peripheral{p}
		shown[p.Address] = true
	}

	m.sections[SectionRecent].Peripherals = nil
	for _, p := range m.recents.List() {
		if shown[p.Address] {
			continue
		}
		if live, ok := m.store.Get(p.Address); ok {
			p = live
		}
		m.sections[SectionRecent].Peripherals = append(m.sections[SectionRecent].Peripherals, p)
		shown[p.Address] = true
	}

	m.sections[SectionDiscovered].Peripherals = nil
	for _, p := range m.store.Snapshot() {
		if shown[p.Address] {
			continue
		}
		m.sections[SectionDiscovered].Peripherals = append(m.sections[SectionDiscovered].Peripherals, p)
	}

	if n := m.rows(); m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) rows() int {
	n := 0
	for _, s := range m.sections {
		n += len(s.Peripherals)
	}
	return n
}

// Section returns the peripherals currently listed in a section.
func (m *Model) Section(k SectionKind) Section {
	return m.sections[k]
}

// Selected returns the peripheral under the cursor.
func (m *Model) Selected() (bluetooth.Peripheral, bool) {
	i := m.cursor
	for _, s := range m.sections {
		if i < len(s.Peripherals) {
			return s.Peripherals[i], true
		}
		i -= len(s.Peripherals)
	}
	return bluetooth.Peripheral{}, false
}

// Scanning reports whether the flow believes a search is running.
func (m *Model) Scanning() bool { return m.scanning }

// Pending reports whether a connection attempt is in flight.
func (m *Model) Pending() bool { return m.pending != "" }

// Closed reports whether the flow has finished.
func (m *Model) Closed() bool { return m.closed }

// Discovered returns how many peripherals the current search has found.
func (m *Model) Discovered() int { return m.store.Count() }

// Hints lists the flow's keys for the menu bar.
func (m *Model) Hints() []ui.KeyHint {
	return []ui.KeyHint{
		{Key: "S", Label: "earch"},
		{Key: "P", Label: "ause"},
		{Key: "Enter", Label: " connect"},
		{Key: "Esc", Label: " back"},
	}
}

// View renders the peripheral list panel.
func (m *Model) View(width, height int) string {
	v := ui.ListView{Cursor: m.cursor, Scanning: m.scanning, Spinner: m.spinner.View()}
	for _, s := range m.sections {
		v.Sections = append(v.Sections, ui.ListSection{Title: s.Title, Peripherals: s.Peripherals})
	}
	return ui.RenderPeripheralList(v, width, height)
}

func toastCmd(kind ui.ToastKind, title, description string) tea.Cmd {
	return func() tea.Msg {
		return ToastMsg{Kind: kind, Title: title, Description: description}
	}
}

func evictCmd() tea.Cmd {
	return tea.Tick(config.EvictInterval, func(t time.Time) tea.Msg {
		return EvictMsg(t)
	})
}

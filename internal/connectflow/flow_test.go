package connectflow

import (
	"context"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"faceplay.klederson.com/internal/bluetooth"
	"faceplay.klederson.com/internal/ui"
)

// fakeConnector records calls and resolves connects through connectFn.
type fakeConnector struct {
	mu        sync.Mutex
	gen       uint64
	scanning  bool
	starts    int
	stops     int
	startErr  error
	connected *bluetooth.Peripheral
	connectFn func(ctx context.Context, p bluetooth.Peripheral) (bluetooth.Peripheral, error)
}

func (f *fakeConnector) StartDiscovery() (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	if f.startErr != nil {
		return 0, f.startErr
	}
	f.gen++
	f.scanning = true
	return f.gen, nil
}

func (f *fakeConnector) StopDiscovery() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	f.scanning = false
}

func (f *fakeConnector) Connect(ctx context.Context, p bluetooth.Peripheral) (bluetooth.Peripheral, error) {
	if f.connectFn != nil {
		got, err := f.connectFn(ctx, p)
		if err != nil {
			return bluetooth.Peripheral{}, err
		}
		p = got
	}
	p.State = bluetooth.StateConnected
	f.mu.Lock()
	f.connected = &p
	f.mu.Unlock()
	return p, nil
}

func (f *fakeConnector) ConnectedPeripheral() (bluetooth.Peripheral, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connected == nil {
		return bluetooth.Peripheral{}, false
	}
	return *f.connected, true
}

func newFlow(t *testing.T, c *fakeConnector) *Model {
	t.Helper()
	logger, _ := test.NewNullLogger()
	return New(c, NewRecents(3), Options{Logger: logger})
}

// collect runs cmd and flattens batches into the messages they produce.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func findMsg[T any](msgs []tea.Msg) (T, bool) {
	for _, m := range msgs {
		if v, ok := m.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func discover(m *Model, gen uint64, addr, name string, rssi int16) {
	m.Update(DiscoveredMsg{Generation: gen, Address: addr, Name: name, RSSI: rssi})
}

func TestStartSearchClearsDiscoveredSection(t *testing.T) {
	c := &fakeConnector{}
	m := newFlow(t, c)

	require.Nil(t, m.StartSearch())
	discover(m, 1, "AA:BB:CC:DD:EE:01", "Pulse Strap", -60)
	discover(m, 1, "AA:BB:CC:DD:EE:02", "Ruuvi Tag", -70)
	require.Len(t, m.Section(SectionDiscovered).Peripherals, 2)

	m.StartSearch()
	assert.Empty(t, m.Section(SectionDiscovered).Peripherals)
	assert.Equal(t, 0, m.Discovered())
	assert.True(t, m.Scanning())

	// Still in flight from the first search.
	discover(m, 1, "AA:BB:CC:DD:EE:01", "Pulse Strap", -60)
	assert.Empty(t, m.Section(SectionDiscovered).Peripherals)

	discover(m, 2, "AA:BB:CC:DD:EE:03", "Tile Tracker", -55)
	assert.Len(t, m.Section(SectionDiscovered).Peripherals, 1)
}

func TestStartSearchFailure(t *testing.T) {
	c := &fakeConnector{startErr: bluetooth.ErrAdapterUnavailable}
	m := newFlow(t, c)

	msgs := collect(m.StartSearch())
	toast, ok := findMsg[ToastMsg](msgs)
	require.True(t, ok)
	assert.Equal(t, ui.ToastFailure, toast.Kind)
	assert.Contains(t, toast.Description, "unavailable")
	assert.False(t, m.Scanning())
}

func TestStopSearchWithoutScan(t *testing.T) {
	c := &fakeConnector{}
	m := newFlow(t, c)

	assert.NotPanics(t, m.StopSearch)
	assert.NotPanics(t, m.StopSearch)
	assert.False(t, m.Scanning())
	assert.Equal(t, 0, m.rows())

	discover(m, 0, "AA:BB:CC:DD:EE:01", "Pulse Strap", -60)
	assert.Equal(t, 0, m.rows(), "no search, no results")
}

func TestConnectSuccessClosesFlow(t *testing.T) {
	c := &fakeConnector{}
	m := newFlow(t, c)
	m.StartSearch()
	discover(m, 1, "AA:BB:CC:DD:EE:01", "Pulse Strap", -60)

	p, ok := m.Selected()
	require.True(t, ok)
	msgs := collect(m.Connect(p))
	assert.True(t, m.Pending())
	assert.Equal(t, bluetooth.StateConnecting, m.Section(SectionDiscovered).Peripherals[0].State)

	result, ok := findMsg[ConnectResultMsg](msgs)
	require.True(t, ok)
	require.NoError(t, result.Err)

	out := collect(m.Update(result))
	toast, ok := findMsg[ToastMsg](out)
	require.True(t, ok)
	assert.Equal(t, ui.ToastSuccess, toast.Kind)
	assert.Equal(t, "Successfully connected", toast.Title)
	assert.Equal(t, "Pulse Strap", toast.Description)

	closed, ok := findMsg[FlowClosedMsg](out)
	require.True(t, ok)
	require.NotNil(t, closed.Connected)
	assert.Equal(t, "AA:BB:CC:DD:EE:01", closed.Connected.Address)

	assert.True(t, m.Closed())
	assert.False(t, m.Pending())
	assert.False(t, m.Scanning())
	assert.False(t, c.scanning, "discovery stopped after connecting")
}

func TestConnectResultHandledOnce(t *testing.T) {
	c := &fakeConnector{}
	m := newFlow(t, c)
	m.StartSearch()
	discover(m, 1, "AA:BB:CC:DD:EE:01", "Pulse Strap", -60)
	p, _ := m.Selected()

	result, _ := findMsg[ConnectResultMsg](collect(m.Connect(p)))
	require.NotNil(t, m.Update(result))
	assert.Nil(t, m.Update(result), "a result is acted on at most once")
	assert.Nil(t, m.Update(ConnectResultMsg{Attempt: 42, Address: p.Address}))
}

func TestConnectWithoutNameKeepsFlowOpen(t *testing.T) {
	c := &fakeConnector{}
	m := newFlow(t, c)
	m.StartSearch()
	discover(m, 1, "AA:BB:CC:DD:EE:09", "", -60)
	p, _ := m.Selected()

	result, _ := findMsg[ConnectResultMsg](collect(m.Connect(p)))
	assert.Nil(t, m.Update(result), "no toast, no close")
	assert.False(t, m.Closed())
	assert.True(t, m.Scanning())
	assert.Len(t, m.Section(SectionConnected).Peripherals, 1)
	assert.Empty(t, m.Section(SectionDiscovered).Peripherals)
}

func TestConcurrentConnectRejected(t *testing.T) {
	release := make(chan struct{})
	c := &fakeConnector{connectFn: func(ctx context.Context, p bluetooth.Peripheral) (bluetooth.Peripheral, error) {
		<-release
		return p, nil
	}}
	m := newFlow(t, c)
	m.StartSearch()
	discover(m, 1, "AA:BB:CC:DD:EE:01", "Pulse Strap", -50)
	discover(m, 1, "AA:BB:CC:DD:EE:02", "Ruuvi Tag", -70)

	first, _ := m.Selected()
	pending := m.Connect(first)
	require.NotNil(t, pending)

	second := m.Section(SectionDiscovered).Peripherals[1]
	toast, ok := findMsg[ToastMsg](collect(m.Connect(second)))
	require.True(t, ok)
	assert.Equal(t, ui.ToastFailure, toast.Kind)
	assert.Equal(t, bluetooth.ErrConnectInProgress.Error(), toast.Description)
	assert.Equal(t, bluetooth.StateDiscovered, second.State)

	close(release)
	result, ok := findMsg[ConnectResultMsg](collect(pending))
	require.True(t, ok)
	assert.Equal(t, first.Address, result.Address)
	assert.NotNil(t, m.Update(result))
}

func TestConnectFailureRevertsState(t *testing.T) {
	c := &fakeConnector{connectFn: func(ctx context.Context, p bluetooth.Peripheral) (bluetooth.Peripheral, error) {
		return bluetooth.Peripheral{}, bluetooth.ErrConnectTimeout
	}}
	m := newFlow(t, c)
	m.StartSearch()
	discover(m, 1, "AA:BB:CC:DD:EE:01", "Flaky Beacon", -60)
	p, _ := m.Selected()

	result, _ := findMsg[ConnectResultMsg](collect(m.Connect(p)))
	require.ErrorIs(t, result.Err, bluetooth.ErrConnectTimeout)

	toast, ok := findMsg[ToastMsg](collect(m.Update(result)))
	require.True(t, ok)
	assert.Equal(t, ui.ToastFailure, toast.Kind)
	assert.Equal(t, "Connection failed", toast.Title)
	assert.False(t, m.Closed())
	assert.False(t, m.Pending())
	assert.Equal(t, bluetooth.StateDiscovered, m.Section(SectionDiscovered).Peripherals[0].State)
}

func TestCloseCancelsPendingAttempt(t *testing.T) {
	c := &fakeConnector{connectFn: func(ctx context.Context, p bluetooth.Peripheral) (bluetooth.Peripheral, error) {
		<-ctx.Done()
		return bluetooth.Peripheral{}, ctx.Err()
	}}
	m := newFlow(t, c)
	m.StartSearch()
	discover(m, 1, "AA:BB:CC:DD:EE:01", "Flaky Beacon", -60)
	p, _ := m.Selected()

	pending := m.Connect(p)
	m.Close()

	result, ok := findMsg[ConnectResultMsg](collect(pending))
	require.True(t, ok)
	assert.ErrorIs(t, result.Err, context.Canceled)
	assert.Nil(t, m.Update(result), "no toast once the flow is gone")
}

func TestScanError(t *testing.T) {
	c := &fakeConnector{}
	m := newFlow(t, c)
	m.StartSearch()

	assert.Nil(t, m.Update(ScanErrorMsg{Generation: 7, Err: bluetooth.ErrAdapterUnavailable}))
	assert.True(t, m.Scanning())

	toast, ok := findMsg[ToastMsg](collect(m.Update(ScanErrorMsg{Generation: 1, Err: bluetooth.ErrAdapterUnavailable})))
	require.True(t, ok)
	assert.Equal(t, "Search failed", toast.Title)
	assert.False(t, m.Scanning())
}

func TestDisconnectMovesToRecent(t *testing.T) {
	c := &fakeConnector{}
	m := newFlow(t, c)
	m.StartSearch()
	discover(m, 1, "AA:BB:CC:DD:EE:09", "", -60)
	p, _ := m.Selected()
	result, _ := findMsg[ConnectResultMsg](collect(m.Connect(p)))
	m.Update(result)
	require.Len(t, m.Section(SectionConnected).Peripherals, 1)

	c.mu.Lock()
	lost := *c.connected
	c.connected = nil
	c.mu.Unlock()
	m.Update(DisconnectedMsg{Peripheral: lost})

	assert.Empty(t, m.Section(SectionConnected).Peripherals)
	require.Len(t, m.Section(SectionRecent).Peripherals, 1)
	assert.Equal(t, p.Address, m.Section(SectionRecent).Peripherals[0].Address)
	assert.Empty(t, m.Section(SectionDiscovered).Peripherals, "listed once, under Recent")
}

func TestKeys(t *testing.T) {
	c := &fakeConnector{}
	m := newFlow(t, c)

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
	assert.True(t, m.Scanning())
	discover(m, 1, "AA:BB:CC:DD:EE:01", "Pulse Strap", -50)
	discover(m, 1, "AA:BB:CC:DD:EE:02", "Ruuvi Tag", -70)

	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	p, _ := m.Selected()
	assert.Equal(t, "Ruuvi Tag", p.Name, "cursor stops at the last row")

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("k")})
	p, _ = m.Selected()
	assert.Equal(t, "Pulse Strap", p.Name)

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")})
	assert.False(t, m.Scanning())

	cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	_, ok := findMsg[ConnectResultMsg](collect(cmd))
	assert.True(t, ok)

	closed, ok := findMsg[FlowClosedMsg](collect(m.Update(tea.KeyMsg{Type: tea.KeyEsc})))
	require.True(t, ok)
	assert.Nil(t, closed.Connected)
	assert.True(t, m.Closed())
}

func TestViewRendersSections(t *testing.T) {
	c := &fakeConnector{}
	m := newFlow(t, c)
	m.StartSearch()
	discover(m, 1, "AA:BB:CC:DD:EE:01", "Pulse Strap", -50)

	out := m.View(60, 12)
	assert.Contains(t, out, "Pulse Strap")
	assert.Contains(t, out, "DISCOVERED")
	assert.NotEmpty(t, m.Hints())
}

func TestRecents(t *testing.T) {
	r := NewRecents(2)
	r.Remember(bluetooth.Peripheral{Address: "A", Name: "one", State: bluetooth.StateConnected})
	r.Remember(bluetooth.Peripheral{Address: "B", Name: "two"})
	r.Remember(bluetooth.Peripheral{Address: "A", Name: "one"})

	got := r.List()
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Address)
	assert.Equal(t, "B", got[1].Address)
	assert.Equal(t, bluetooth.StateDisconnected, got[0].State)

	r.Remember(bluetooth.Peripheral{Address: "C"})
	got = r.List()
	assert.Equal(t, []string{"C", "A"}, []string{got[0].Address, got[1].Address})
}

// vendorOnlyAdapter advertises one peripheral with Apple manufacturer data
// and no local name, and accepts every connection.
type vendorOnlyAdapter struct{}

func (vendorOnlyAdapter) Enable() error { return nil }

func (vendorOnlyAdapter) Scan(ctx context.Context, handler func(bluetooth.ScanResult)) error {
	handler(bluetooth.ScanResult{Address: "AA:BB:CC:DD:EE:FF", RSSI: -55, CompanyID: 0x004C, HasCompanyID: true})
	<-ctx.Done()
	return nil
}

func (vendorOnlyAdapter) Connect(context.Context, string) (bluetooth.Link, error) {
	return nopLink{}, nil
}

type nopLink struct{}

func (nopLink) Disconnect() error   { return nil }
func (nopLink) OnDisconnect(func()) {}

func TestVendorLabelledPeripheralConnectsSilently(t *testing.T) {
	logger, _ := test.NewNullLogger()
	connector := bluetooth.NewConnector(vendorOnlyAdapter{}, logger, bluetooth.ConnectorOptions{})
	discovered := make(chan bluetooth.Discovery, 1)
	connector.SetHandlers(bluetooth.Handlers{
		OnDiscover: func(d bluetooth.Discovery) { discovered <- d },
	})
	t.Cleanup(func() { _ = connector.Close() })

	recents := NewRecents(3)
	m := New(connector, recents, Options{Logger: logger})
	require.Nil(t, m.StartSearch())

	select {
	case d := <-discovered:
		m.Update(DiscoveredMsg(d))
	case <-time.After(time.Second):
		t.Fatal("no discovery")
	}

	p, ok := m.Selected()
	require.True(t, ok)
	assert.Empty(t, p.Name)
	assert.Equal(t, "Apple EE:FF", p.DisplayName())
	assert.Contains(t, m.View(60, 12), "Apple EE:FF")

	result, ok := findMsg[ConnectResultMsg](collect(m.Connect(p)))
	require.True(t, ok)
	require.NoError(t, result.Err)

	assert.Nil(t, m.Update(result), "no success message for an unnamed device")
	assert.False(t, m.Closed())
	assert.Empty(t, recents.List())

	connected, ok := connector.ConnectedPeripheral()
	require.True(t, ok)
	assert.Empty(t, connected.Name)
	assert.Equal(t, "Apple EE:FF", connected.Vendor)
}

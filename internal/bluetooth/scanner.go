package bluetooth

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"tinygo.org/x/bluetooth"
)

// TinyGoAdapter drives the host radio through tinygo.org/x/bluetooth.
// The library exposes a single default adapter per host.
type TinyGoAdapter struct {
	adapter *bluetooth.Adapter
	logger  *logrus.Logger

	enableOnce sync.Once
	enableErr  error

	mu    sync.Mutex
	links map[string]*tinyGoLink // keyed by peripheral address

	scanMu sync.Mutex // the library runs one scan at a time
}

// NewTinyGoAdapter wraps the host's default BLE adapter.
func NewTinyGoAdapter(logger *logrus.Logger) *TinyGoAdapter {
	if logger == nil {
		logger = logrus.New()
	}
	return &TinyGoAdapter{
		adapter: bluetooth.DefaultAdapter,
		logger:  logger,
		links:   make(map[string]*tinyGoLink),
	}
}

func (a *TinyGoAdapter) Enable() error {
	a.enableOnce.Do(func() {
		if err := a.adapter.Enable(); err != nil {
			a.enableErr = fmt.Errorf("%w: %v (try running with sudo or setcap cap_net_admin+ep)", ErrAdapterUnavailable, err)
			return
		}

		// Disconnects arrive on the adapter-level handler; route them to the link.
		a.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
			if connected {
				return
			}
			addr := device.Address.String()
			a.mu.Lock()
			link, ok := a.links[addr]
			delete(a.links, addr)
			a.mu.Unlock()
			if ok {
				link.fireDisconnect()
			}
		})
	})
	return a.enableErr
}

func (a *TinyGoAdapter) Scan(ctx context.Context, handler func(ScanResult)) error {
	a.scanMu.Lock()
	defer a.scanMu.Unlock()
	if ctx.Err() != nil {
		return nil
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = a.adapter.StopScan()
		case <-done:
		}
	}()

	err := a.adapter.Scan(func(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
		if ctx.Err() != nil {
			return
		}
		sr := ScanResult{
			Address:   result.Address.String(),
			LocalName: result.LocalName(),
			RSSI:      result.RSSI,
		}
		if mfrs := result.ManufacturerData(); len(mfrs) > 0 {
			sr.CompanyID = mfrs[0].CompanyID
			sr.HasCompanyID = true
		}
		handler(sr)
	})
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("scan: %w", err)
	}
	return nil
}

func (a *TinyGoAdapter) Connect(ctx context.Context, address string) (Link, error) {
	var addr bluetooth.Address
	addr.Set(address)

	// The library's Connect blocks with its own timeout; ctx bounds our wait.
	type connectResult struct {
		device bluetooth.Device
		err    error
	}
	ch := make(chan connectResult, 1)
	go func() {
		device, err := a.adapter.Connect(addr, bluetooth.ConnectionParams{})
		ch <- connectResult{device, err}
	}()

	select {
	case <-ctx.Done():
		go func() {
			// Release a connection that lands after we gave up.
			if res := <-ch; res.err == nil {
				_ = res.device.Disconnect()
			}
		}()
		return nil, ctx.Err()
	case res := <-ch:
		if res.err != nil {
			return nil, res.err
		}
		link := &tinyGoLink{device: res.device}
		a.mu.Lock()
		a.links[address] = link
		a.mu.Unlock()
		a.logger.WithField("address", address).Debug("BLE link established")
		return link, nil
	}
}

var _ Adapter = (*TinyGoAdapter)(nil)

type tinyGoLink struct {
	device bluetooth.Device

	mu           sync.Mutex
	disconnectCb func()
}

func (l *tinyGoLink) Disconnect() error {
	return l.device.Disconnect()
}

func (l *tinyGoLink) OnDisconnect(cb func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.disconnectCb = cb
}

func (l *tinyGoLink) fireDisconnect() {
	l.mu.Lock()
	cb := l.disconnectCb
	l.mu.Unlock()
	if cb != nil {
		cb()
	}
}

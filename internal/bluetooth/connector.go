package bluetooth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ConnectorOptions configures connection behavior.
type ConnectorOptions struct {
	ConnectTimeout time.Duration // upper bound for a single connection attempt
}

// DefaultConnectorOptions returns sensible defaults.
func DefaultConnectorOptions() ConnectorOptions {
	return ConnectorOptions{
		ConnectTimeout: 10 * time.Second,
	}
}

// Discovery is a scan result tagged with the search that produced it.
type Discovery struct {
	Generation uint64
	Address    string
	Name       string // advertised local name only
	Vendor     string
	RSSI       int16
}

// Handlers receive asynchronous connector events. They are called from
// adapter goroutines and must not block; UI code forwards them to its own
// event loop.
type Handlers struct {
	OnDiscover   func(Discovery)
	OnScanError  func(generation uint64, err error)
	OnDisconnect func(Peripheral)
}

// Connector sequences discovery and connection attempts on one Adapter.
// It is owned by the app session and handed to each flow that needs it.
type Connector struct {
	adapter Adapter
	logger  *logrus.Logger
	opts    ConnectorOptions

	mu         sync.Mutex
	handlers   Handlers
	generation uint64
	scanCancel context.CancelFunc
	scanDone   chan struct{} // closed when the latest adapter Scan returns
	pending    string // address of the unresolved attempt, "" if none
	connected  *Peripheral
	link       Link
}

// NewConnector creates a connector over adapter.
func NewConnector(adapter Adapter, logger *logrus.Logger, opts ConnectorOptions) *Connector {
	if logger == nil {
		logger = logrus.New()
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectorOptions().ConnectTimeout
	}
	return &Connector{
		adapter: adapter,
		logger:  logger,
		opts:    opts,
	}
}

// SetHandlers replaces the event handlers.
func (c *Connector) SetHandlers(h Handlers) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = h
}

// StartDiscovery begins a new search, cancelling any search in progress.
// The adapter scan of the new search starts only after the previous one has
// returned. It returns the generation number carried by every Discovery of
// this search.
func (c *Connector) StartDiscovery() (uint64, error) {
	if err := c.adapter.Enable(); err != nil {
		return 0, err
	}

	c.mu.Lock()
	if c.scanCancel != nil {
		c.scanCancel()
	}
	c.generation++
	gen := c.generation
	ctx, cancel := context.WithCancel(context.Background())
	c.scanCancel = cancel
	previous := c.scanDone
	done := make(chan struct{})
	c.scanDone = done
	c.mu.Unlock()

	c.logger.WithField("generation", gen).Info("Starting BLE discovery")

	go func() {
		defer close(done)
		if previous != nil {
			<-previous
		}
		if ctx.Err() != nil {
			return
		}
		err := c.adapter.Scan(ctx, func(sr ScanResult) {
			c.dispatchDiscovery(gen, sr)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			c.logger.WithError(err).WithField("generation", gen).Warn("BLE discovery failed")
			c.mu.Lock()
			onErr := c.handlers.OnScanError
			if c.generation == gen && c.scanCancel != nil {
				c.scanCancel()
				c.scanCancel = nil
			}
			c.mu.Unlock()
			if onErr != nil {
				onErr(gen, err)
			}
		}
	}()

	return gen, nil
}

func (c *Connector) dispatchDiscovery(gen uint64, sr ScanResult) {
	c.mu.Lock()
	current := c.generation == gen && c.scanCancel != nil
	onDiscover := c.handlers.OnDiscover
	c.mu.Unlock()

	if !current || onDiscover == nil {
		return
	}
	onDiscover(Discovery{
		Generation: gen,
		Address:    sr.Address,
		Name:       sr.LocalName,
		Vendor:     vendorLabel(sr),
		RSSI:       sr.RSSI,
	})
}

// StopDiscovery stops the search in progress. Calling it with no active
// search does nothing.
func (c *Connector) StopDiscovery() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.scanCancel == nil {
		return
	}
	c.scanCancel()
	c.scanCancel = nil
	c.logger.WithField("generation", c.generation).Info("Stopped BLE discovery")
}

// Scanning reports whether a search is in progress.
func (c *Connector) Scanning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scanCancel != nil
}

// Generation returns the generation of the most recent search.
func (c *Connector) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// Connect attempts a connection to p and blocks until it resolves, ctx is
// cancelled, or the connect timeout elapses. Only one attempt may be
// pending; a concurrent call fails with ErrConnectInProgress and leaves the
// pending attempt untouched. A successful connection replaces any previous one.
func (c *Connector) Connect(ctx context.Context, p Peripheral) (Peripheral, error) {
	c.mu.Lock()
	if c.pending != "" {
		pending := c.pending
		c.mu.Unlock()
		return Peripheral{}, fmt.Errorf("connect to %s: %w (pending %s)", p.Address, ErrConnectInProgress, pending)
	}
	c.pending = p.Address
	c.mu.Unlock()

	log := c.logger.WithFields(logrus.Fields{
		"address": p.Address,
		"name":    p.DisplayName(),
	})
	log.Info("Connecting to peripheral")

	link, err := c.dial(ctx, p.Address)

	c.mu.Lock()
	c.pending = ""
	if err != nil {
		c.mu.Unlock()
		log.WithError(err).Warn("Connection attempt failed")
		return Peripheral{}, fmt.Errorf("connect to %s: %w", p.Address, err)
	}

	previous := c.link
	connected := p
	connected.State = StateConnected
	c.connected = &connected
	c.link = link
	c.mu.Unlock()

	if previous != nil {
		if err := previous.Disconnect(); err != nil {
			c.logger.WithError(err).Debug("Disconnecting replaced link")
		}
	}
	link.OnDisconnect(func() { c.linkLost(link) })

	log.Info("Connected to peripheral")
	return connected, nil
}

func (c *Connector) dial(ctx context.Context, address string) (Link, error) {
	if err := c.adapter.Enable(); err != nil {
		return nil, err
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.opts.ConnectTimeout)
	defer cancel()

	link, err := c.adapter.Connect(dialCtx, address)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, ErrConnectTimeout
		}
		return nil, err
	}
	return link, nil
}

// linkLost clears the connection if link is still the active one.
func (c *Connector) linkLost(link Link) {
	c.mu.Lock()
	if c.link != link || c.connected == nil {
		c.mu.Unlock()
		return
	}
	lost := *c.connected
	lost.State = StateDisconnected
	c.connected = nil
	c.link = nil
	onDisconnect := c.handlers.OnDisconnect
	c.mu.Unlock()

	c.logger.WithField("address", lost.Address).Warn("Peripheral disconnected")
	if onDisconnect != nil {
		onDisconnect(lost)
	}
}

// Pending reports whether a connection attempt is unresolved.
func (c *Connector) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending != ""
}

// ConnectedPeripheral returns the currently connected peripheral, if any.
func (c *Connector) ConnectedPeripheral() (Peripheral, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected == nil {
		return Peripheral{}, false
	}
	return *c.connected, true
}

// Disconnect tears down the active connection, if any.
func (c *Connector) Disconnect() error {
	c.mu.Lock()
	link := c.link
	c.link = nil
	c.connected = nil
	c.mu.Unlock()

	if link == nil {
		return nil
	}
	if err := link.Disconnect(); err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	return nil
}

// Close stops discovery and drops the active connection.
func (c *Connector) Close() error {
	c.StopDiscovery()
	return c.Disconnect()
}

package bluetooth

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"
)

var demoPeripheralTemplates = []struct {
	Name      string
	CompanyID uint16
	Reachable bool
}{
	{"FaceBand Sensor", 0x0059, true},
	{"Pulse Strap", 0x038F, true},
	{"Tile Tracker", 0x02FF, true},
	{"Galaxy Buds Pro", 0x0075, true},
	{"Fitbit Charge 6", 0x03DA, true},
	{"ESP32 Paddle", 0x015D, true},
	{"Ruuvi Tag", 0x0499, true},
	// No local name: listed under the vendor label.
	{"", 0x004C, true},
	// No name and no known vendor.
	{"", 0x0000, true},
	// Never completes a connection.
	{"Flaky Beacon", 0x0059, false},
}

type demoPeripheral struct {
	address   string
	name      string
	companyID uint16
	reachable bool
	baseRSSI  float64
	phase     float64
	amplitude float64
	active    bool
}

// DemoAdapter simulates a radio with a fixed set of nearby peripherals for
// demo mode. Connections succeed after a short delay except for peripherals
// marked unreachable, which never answer. With a link lifetime set, links
// drop on their own after a random time up to that lifetime.
type DemoAdapter struct {
	peripherals  []demoPeripheral
	tick         time.Duration
	connectDelay time.Duration
	linkLifetime time.Duration

	mu    sync.Mutex
	rng   *rand.Rand
	links map[string]*demoLink
}

// NewDemoAdapter creates a demo adapter with randomized signal behavior.
func NewDemoAdapter() *DemoAdapter {
	a := newDemoAdapter(rand.New(rand.NewSource(time.Now().UnixNano())), 200*time.Millisecond, 700*time.Millisecond)
	a.linkLifetime = 3 * time.Minute
	return a
}

func newDemoAdapter(rng *rand.Rand, tick, connectDelay time.Duration) *DemoAdapter {
	peripherals := make([]demoPeripheral, len(demoPeripheralTemplates))
	for i, tmpl := range demoPeripheralTemplates {
		peripherals[i] = demoPeripheral{
			address:   randomMAC(rng),
			name:      tmpl.Name,
			companyID: tmpl.CompanyID,
			reachable: tmpl.Reachable,
			baseRSSI:  -40 - rng.Float64()*50, // -40 to -90 dBm
			phase:     rng.Float64() * 2 * math.Pi,
			amplitude: 3 + rng.Float64()*8, // 3-11 dBm fluctuation
			active:    true,
		}
	}
	return &DemoAdapter{
		peripherals:  peripherals,
		tick:         tick,
		connectDelay: connectDelay,
		rng:          rng,
		links:        make(map[string]*demoLink),
	}
}

func (a *DemoAdapter) Enable() error { return nil }

func (a *DemoAdapter) Scan(ctx context.Context, handler func(ScanResult)) error {
	ticker := time.NewTicker(a.tick)
	defer ticker.Stop()

	t := 0.0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			t += a.tick.Seconds()
			for _, sr := range a.advertise(t) {
				if ctx.Err() != nil {
					return nil
				}
				handler(sr)
			}
		}
	}
}

// advertise produces one round of advertisements at simulated time t.
func (a *DemoAdapter) advertise(t float64) []ScanResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	results := make([]ScanResult, 0, len(a.peripherals))
	for i := range a.peripherals {
		p := &a.peripherals[i]

		// Devices drift in and out of range now and then.
		if a.rng.Float64() < 0.005 {
			p.active = !p.active
		}
		if !p.active {
			continue
		}

		rssi := p.baseRSSI + p.amplitude*math.Sin(t*0.5+p.phase) + (a.rng.Float64()-0.5)*4
		results = append(results, ScanResult{
			Address:      p.address,
			LocalName:    p.name,
			RSSI:         int16(rssi),
			CompanyID:    p.companyID,
			HasCompanyID: p.companyID != 0,
		})
	}
	return results
}

func (a *DemoAdapter) Connect(ctx context.Context, address string) (Link, error) {
	a.mu.Lock()
	var target *demoPeripheral
	for i := range a.peripherals {
		if a.peripherals[i].address == address {
			target = &a.peripherals[i]
			break
		}
	}
	a.mu.Unlock()

	if target == nil {
		return nil, fmt.Errorf("demo: unknown peripheral %s", address)
	}
	if !target.reachable {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(a.connectDelay):
	}

	link := &demoLink{adapter: a, address: address, done: make(chan struct{})}
	a.mu.Lock()
	a.links[address] = link
	var lifetime time.Duration
	if a.linkLifetime > 0 {
		lifetime = a.linkLifetime/2 + time.Duration(a.rng.Int63n(int64(a.linkLifetime/2)+1))
	}
	a.mu.Unlock()

	if lifetime > 0 {
		go func() {
			select {
			case <-link.done:
			case <-time.After(lifetime):
				a.Drop(address)
			}
		}()
	}
	return link, nil
}

// Drop simulates the peripheral at address going out of range.
func (a *DemoAdapter) Drop(address string) {
	a.mu.Lock()
	link, ok := a.links[address]
	delete(a.links, address)
	a.mu.Unlock()
	if ok {
		link.fire()
	}
}

var _ Adapter = (*DemoAdapter)(nil)

type demoLink struct {
	adapter *DemoAdapter
	address string
	done    chan struct{}
	once    sync.Once

	mu           sync.Mutex
	disconnectCb func()
}

func (l *demoLink) Disconnect() error {
	l.adapter.mu.Lock()
	if l.adapter.links[l.address] == l {
		delete(l.adapter.links, l.address)
	}
	l.adapter.mu.Unlock()
	l.once.Do(func() { close(l.done) })
	return nil
}

func (l *demoLink) OnDisconnect(cb func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.disconnectCb = cb
}

func (l *demoLink) fire() {
	l.mu.Lock()
	cb := l.disconnectCb
	l.mu.Unlock()
	if cb != nil {
		cb()
	}
}

func randomMAC(rng *rand.Rand) string {
	b := make([]byte, 6)
	for i := range b {
		b[i] = byte(rng.Intn(256))
	}
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", b[0], b[1], b[2], b[3], b[4], b[5])
}

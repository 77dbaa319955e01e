package bluetooth

import (
	"sort"
	"sync"
	"time"

	"faceplay.klederson.com/internal/config"
)

type storedPeripheral struct {
	Peripheral
	history *RSSIRing
}

// PeripheralStore is a thread-safe store for the peripherals found by one search.
type PeripheralStore struct {
	mu          sync.RWMutex
	peripherals map[string]*storedPeripheral
}

// NewPeripheralStore creates a new empty PeripheralStore.
func NewPeripheralStore() *PeripheralStore {
	return &PeripheralStore{
		peripherals: make(map[string]*storedPeripheral),
	}
}

// UpsertDiscovery adds or updates the peripheral behind a scan result. Known
// peripherals get their RSSI smoothed with an EMA and keep their connection
// state. The vendor label is stored apart from the advertised name.
func (s *PeripheralStore) UpsertDiscovery(d Discovery) {
	s.upsertAt(d.Address, d.Name, d.Vendor, float64(d.RSSI), time.Now())
}

func (s *PeripheralStore) upsertAt(address, name, vendor string, rssi float64, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.peripherals[address]; ok {
		existing.RSSI = existing.RSSI*(1-config.SmoothingAlpha) + rssi*config.SmoothingAlpha
		existing.Distance = RSSIToDistance(existing.RSSI, config.MeasuredPower, config.PathLossExp)
		existing.LastSeen = now
		existing.history.Push(rssi)
		if name != "" {
			existing.Name = name
		}
		if vendor != "" {
			existing.Vendor = vendor
		}
		return
	}

	history := NewRSSIRing(config.RSSIHistoryLen)
	history.Push(rssi)
	s.peripherals[address] = &storedPeripheral{
		Peripheral: Peripheral{
			Address:  address,
			Name:     name,
			Vendor:   vendor,
			RSSI:     rssi,
			Distance: RSSIToDistance(rssi, config.MeasuredPower, config.PathLossExp),
			State:    StateDiscovered,
			LastSeen: now,
		},
		history: history,
	}
}

// SetState updates the connection state of a known peripheral.
// Returns false if the peripheral is not in the store.
func (s *PeripheralStore) SetState(address string, state PeripheralState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.peripherals[address]
	if !ok {
		return false
	}
	p.State = state
	return true
}

// Get returns a copy of the peripheral with the given address.
func (s *PeripheralStore) Get(address string) (Peripheral, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.peripherals[address]
	if !ok {
		return Peripheral{}, false
	}
	return p.snapshot(), true
}

// Clear drops every peripheral.
func (s *PeripheralStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.peripherals = make(map[string]*storedPeripheral)
}

// Evict removes peripherals not seen within the timeout. Peripherals that are
// connecting or connected are never evicted. Returns the number removed.
func (s *PeripheralStore) Evict(timeout time.Duration) int {
	return s.evictAt(timeout, time.Now())
}

func (s *PeripheralStore) evictAt(timeout time.Duration, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-timeout)
	count := 0
	for addr, p := range s.peripherals {
		if p.State == StateConnecting || p.State == StateConnected {
			continue
		}
		if p.LastSeen.Before(cutoff) {
			delete(s.peripherals, addr)
			count++
		}
	}
	return count
}

// Snapshot returns a sorted copy of all peripherals (strongest RSSI first).
func (s *PeripheralStore) Snapshot() []Peripheral {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Peripheral, 0, len(s.peripherals))
	for _, p := range s.peripherals {
		result = append(result, p.snapshot())
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].RSSI != result[j].RSSI {
			return result[i].RSSI > result[j].RSSI
		}
		return result[i].Address < result[j].Address
	})
	return result
}

// Count returns the number of tracked peripherals.
func (s *PeripheralStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.peripherals)
}

func (p *storedPeripheral) snapshot() Peripheral {
	cp := p.Peripheral
	cp.History = p.history.Values()
	return cp
}

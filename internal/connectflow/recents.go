package connectflow

import "faceplay.klederson.com/internal/bluetooth"

// Recents remembers the peripherals connected during this session, newest
// first. It outlives individual presentations of the flow.
type Recents struct {
	max   int
	items []bluetooth.Peripheral
}

// NewRecents creates a history holding at most max peripherals.
func NewRecents(max int) *Recents {
	if max < 1 {
		max = 1
	}
	return &Recents{max: max}
}

// Remember moves p to the front, dropping the oldest entry when full.
func (r *Recents) Remember(p bluetooth.Peripheral) {
	p.State = bluetooth.StateDisconnected
	p.History = nil
	for i, it := range r.items {
		if it.Address == p.Address {
			r.items = append(r.items[:i], r.items[i+1:]...)
			break
		}
	}
	r.items = append([]bluetooth.Peripheral{p}, r.items...)
	if len(r.items) > r.max {
		r.items = r.items[:r.max]
	}
}

// List returns a copy of the remembered peripherals.
func (r *Recents) List() []bluetooth.Peripheral {
	out := make([]bluetooth.Peripheral, len(r.items))
	copy(out, r.items)
	return out
}

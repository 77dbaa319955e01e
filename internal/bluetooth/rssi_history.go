package bluetooth

// RSSIRing is a circular buffer for RSSI history values.
type RSSIRing struct {
	buf   []float64
	pos   int
	count int
}

// NewRSSIRing creates a new circular buffer with the given capacity.
func NewRSSIRing(capacity int) *RSSIRing {
	if capacity < 1 {
		capacity = 1
	}
	return &RSSIRing{
		buf: make([]float64, capacity),
	}
}

// Push adds a value, overwriting the oldest once full.
func (r *RSSIRing) Push(val float64) {
	r.buf[r.pos] = val
	r.pos = (r.pos + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

// Values returns all stored values in chronological order.
func (r *RSSIRing) Values() []float64 {
	if r.count == 0 {
		return nil
	}
	result := make([]float64, r.count)
	if r.count < len(r.buf) {
		copy(result, r.buf[:r.count])
		return result
	}
	n := copy(result, r.buf[r.pos:])
	copy(result[n:], r.buf[:r.pos])
	return result
}

// Len returns the number of stored values.
func (r *RSSIRing) Len() int {
	return r.count
}

package scene

import "time"

// Tween tracks a fixed-duration transition driven by wall-clock time.
type Tween struct {
	StartTime time.Time
	Duration  time.Duration
}

// NewTween starts a transition of the given duration at now.
func NewTween(now time.Time, d time.Duration) Tween {
	return Tween{StartTime: now, Duration: d}
}

// Progress returns linear progress in [0, 1] at now.
func (t Tween) Progress(now time.Time) float64 {
	if t.Duration <= 0 {
		return 1
	}
	p := float64(now.Sub(t.StartTime)) / float64(t.Duration)
	return Clamp(p, 0, 1)
}

// Eased returns ease-out progress in [0, 1] at now.
func (t Tween) Eased(now time.Time) float64 {
	p := t.Progress(now)
	return 1 - (1-p)*(1-p)
}

// Done reports whether the transition has finished at now.
func (t Tween) Done(now time.Time) bool {
	return t.Progress(now) >= 1
}

// Lerp interpolates from a to b by p.
func Lerp(a, b, p float64) float64 {
	return a + (b-a)*p
}

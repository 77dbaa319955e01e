package ar

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// SimulatedOptions tunes the simulated face.
type SimulatedOptions struct {
	Tick           time.Duration // interval between anchor updates
	AcquireDelay   time.Duration // time from Run to the first anchor
	ReacquireEvery time.Duration // face is lost and found again as a new anchor; 0 disables
}

// DefaultSimulatedOptions returns the options used by demo mode.
func DefaultSimulatedOptions() SimulatedOptions {
	return SimulatedOptions{
		Tick:           50 * time.Millisecond,
		AcquireDelay:   400 * time.Millisecond,
		ReacquireEvery: 45 * time.Second,
	}
}

// SimulatedProvider drives a synthetic face so the AR screen can run on
// hosts without a camera.
type SimulatedProvider struct {
	opts   SimulatedOptions
	logger *logrus.Logger
}

// NewSimulatedProvider creates a provider producing synthetic face anchors.
func NewSimulatedProvider(opts SimulatedOptions, logger *logrus.Logger) *SimulatedProvider {
	if logger == nil {
		logger = logrus.New()
	}
	def := DefaultSimulatedOptions()
	if opts.Tick <= 0 {
		opts.Tick = def.Tick
	}
	if opts.AcquireDelay < 0 {
		opts.AcquireDelay = 0
	}
	return &SimulatedProvider{opts: opts, logger: logger}
}

func (p *SimulatedProvider) FaceTrackingSupported() bool { return true }

func (p *SimulatedProvider) NewSession(delegate SessionDelegate) Session {
	return &SimulatedSession{
		delegate: delegate,
		opts:     p.opts,
		logger:   p.logger,
	}
}

// SimulatedSession is the session returned by SimulatedProvider.
type SimulatedSession struct {
	delegate SessionDelegate
	opts     SimulatedOptions
	logger   *logrus.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	runs   int
	cfg    Configuration
}

// Run (re)starts tracking. Every run acquires a fresh anchor after the
// acquire delay; options are recorded for logging only since the simulation
// has no prior world state to keep.
func (s *SimulatedSession) Run(cfg Configuration, opts RunOptions) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	s.runs++
	s.cfg = cfg
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.logger.WithFields(logrus.Fields{
		"run":              s.runs,
		"light_estimation": cfg.LightEstimation,
		"reset_tracking":   opts.Has(ResetTracking),
		"remove_anchors":   opts.Has(RemoveExistingAnchors),
	}).Info("AR session running")

	go s.loop(ctx, s.runs)
}

// Pause stops tracking until the next Run.
func (s *SimulatedSession) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Runs returns how many times Run has been called.
func (s *SimulatedSession) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

// Fail reports err to the delegate as if the sensor failed. Delivery is
// asynchronous so it may be called from the delegate's own event loop.
func (s *SimulatedSession) Fail(err error) {
	s.logger.WithError(err).Warn("AR session failure injected")
	go s.delegate.DidFail(err)
}

func (s *SimulatedSession) loop(ctx context.Context, run int) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(s.opts.AcquireDelay):
	}

	newFace := func() (*Anchor, *Node) {
		a := NewAnchor()
		a.Run = run
		return a, NewNode("face")
	}

	anchor, node := newFace()
	acquired := time.Now()
	t := 0.0
	SimulateFace(t, anchor)
	if ctx.Err() != nil {
		return
	}
	s.delegate.DidAdd(node, anchor.Clone())

	ticker := time.NewTicker(s.opts.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if s.opts.ReacquireEvery > 0 && time.Since(acquired) >= s.opts.ReacquireEvery {
			anchor, node = newFace()
			acquired = time.Now()
			s.logger.WithField("anchor", anchor.ID).Debug("Simulated face reacquired")
			SimulateFace(t, anchor)
			if ctx.Err() != nil {
				return
			}
			s.delegate.DidAdd(node, anchor.Clone())
			continue
		}

		t += s.opts.Tick.Seconds()
		SimulateFace(t, anchor)
		if ctx.Err() != nil {
			return
		}
		s.delegate.DidUpdate(node, anchor.Clone())
	}
}

// SimulateFace sets the anchor's pose and expression for simulated time t
// (seconds). The motion is a smooth sway with periodic blinks.
func SimulateFace(t float64, a *Anchor) {
	a.Pose = Pose{
		X:     0.35 * math.Sin(t*0.7),
		Y:     0.15 * math.Sin(t*0.5+1),
		Z:     -0.5 + 0.05*math.Sin(t*0.3),
		Yaw:   0.4 * math.Sin(t*0.6),
		Pitch: 0.1 * math.Sin(t*0.4),
		Roll:  0.15 * math.Sin(t*0.9),
	}

	blink := 0.0
	if phase := math.Mod(t, 3.2); phase < 0.15 {
		blink = 1
	}
	a.BlendShapes[EyeBlinkLeft] = blink
	a.BlendShapes[EyeBlinkRight] = blink
	a.BlendShapes[JawOpen] = math.Pow(math.Max(0, math.Sin(t*0.8)), 2)
	a.BlendShapes[MouthSmile] = 0.5 + 0.5*math.Sin(t*0.3)
}

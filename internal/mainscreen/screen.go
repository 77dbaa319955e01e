// Package mainscreen is the main gameplay screen: it owns the face-tracking
// session, binds the active content strategy to the tracked face and runs the
// start-game handshake with its host.
package mainscreen

import (
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"faceplay.klederson.com/internal/ar"
	"faceplay.klederson.com/internal/config"
	"faceplay.klederson.com/internal/facecontent"
	"faceplay.klederson.com/internal/scene"
	"faceplay.klederson.com/internal/ui"
)

// Phase is the state of the start-game handshake.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePreparing
	PhasePrepared
)

func (p Phase) String() string {
	switch p {
	case PhasePreparing:
		return "preparing"
	case PhasePrepared:
		return "prepared"
	default:
		return "idle"
	}
}

const (
	alertTitle    = "The AR session failed."
	restartAction = "Restart Session"
)

// Options configures the screen.
type Options struct {
	// Controllers are the content strategies in cycling order. Empty means
	// facecontent.Strategies().
	Controllers []ar.ContentController
	Logger      *logrus.Logger
}

// failer is implemented by sessions that can simulate a failure.
type failer interface {
	Fail(err error)
}

// Model is the main screen. It is not safe for concurrent use.
type Model struct {
	provider ar.Provider
	delegate ar.SessionDelegate
	session  ar.Session
	logger   *logrus.Logger

	controllers []ar.ContentController
	current     int

	run         int // Run calls made on session
	tracked     *ar.Anchor
	trackedNode *ar.Node
	anchorNodes []*ar.Node

	alert *ui.Alert
	phase Phase
	tween scene.Tween
	now   func() time.Time
}

// New creates the screen. The session is created on the first ResetTracking
// and only when the provider supports face tracking.
func New(provider ar.Provider, delegate ar.SessionDelegate, opts Options) *Model {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	if len(opts.Controllers) == 0 {
		opts.Controllers = facecontent.Strategies()
	}
	return &Model{
		provider:    provider,
		delegate:    delegate,
		logger:      opts.Logger,
		controllers: opts.Controllers,
		now:         time.Now,
	}
}

// Appear runs every time the screen is presented.
func (m *Model) Appear() {
	m.ResetTracking()
}

// ResetTracking (re)runs the session from scratch. Without face tracking
// support it does nothing and the screen stays idle.
func (m *Model) ResetTracking() {
	if !m.provider.FaceTrackingSupported() {
		m.logger.Debug("Face tracking not supported, staying idle")
		return
	}
	if m.session == nil {
		m.session = m.provider.NewSession(m.delegate)
	}

	m.tracked = nil
	m.trackedNode = nil
	m.anchorNodes = nil
	m.run++
	m.session.Run(ar.Configuration{LightEstimation: true}, ar.ResetTracking|ar.RemoveExistingAnchors)
}

// Pause stops the session, if any.
func (m *Model) Pause() {
	if m.session != nil {
		m.session.Pause()
	}
}

// StartAnimation plays the start transition. It only acts in PhaseIdle; the
// returned command eventually yields GameStartPreparedMsg.
func (m *Model) StartAnimation() tea.Cmd {
	if m.phase != PhaseIdle {
		return nil
	}
	m.phase = PhasePreparing
	m.tween = scene.NewTween(m.now(), config.StartAnimation)
	m.logger.Debug("Preparing game start")
	return frameCmd()
}

// Update handles session and key messages.
func (m *Model) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case AnchorAddedMsg:
		m.didAdd(msg.Node, msg.Anchor)

	case AnchorUpdatedMsg:
		m.didUpdate(msg.Node, msg.Anchor)

	case SessionFailedMsg:
		m.didFail(msg.Err)

	case animFrameMsg:
		if m.phase != PhasePreparing {
			return nil
		}
		if !m.tween.Done(time.Time(msg)) {
			return frameCmd()
		}
		m.phase = PhasePrepared
		m.logger.Info("Game start prepared")
		return func() tea.Msg { return GameStartPreparedMsg{} }
	}
	return nil
}

// stale reports whether anchor comes from a run that has since been reset.
func (m *Model) stale(anchor *ar.Anchor) bool {
	return anchor == nil || anchor.Run != m.run
}

func (m *Model) didAdd(node *ar.Node, anchor *ar.Anchor) {
	if node == nil || m.stale(anchor) {
		if anchor != nil {
			m.logger.WithField("run", anchor.Run).Debug("Ignoring anchor from a previous run")
		}
		return
	}
	m.tracked = anchor
	m.trackedNode = node
	m.anchorNodes = append(m.anchorNodes, node)

	if len(node.Children()) > 0 {
		return
	}
	if content := m.controller().NodeFor(anchor); content != nil {
		node.AddChild(content)
	}
	m.logger.WithFields(logrus.Fields{
		"anchor":  anchor.ID,
		"content": m.controller().Name(),
	}).Debug("Face anchor added")
}

func (m *Model) didUpdate(node *ar.Node, anchor *ar.Anchor) {
	if m.stale(anchor) || !anchor.Same(m.tracked) {
		return
	}
	content := m.controller().ContentNode()
	if content == nil || content.Parent() != node {
		return
	}
	m.tracked = anchor
	m.controller().DidUpdate(content, anchor)
}

func (m *Model) didFail(err error) {
	var arErr *ar.Error
	if !errors.As(err, &arErr) {
		m.logger.WithError(err).Debug("Ignoring session error")
		return
	}
	m.logger.WithError(err).WithField("code", arErr.Code.String()).Warn("AR session failed")
	m.alert = &ui.Alert{
		Title:   alertTitle,
		Message: arErr.Message(),
		Action:  restartAction,
	}
}

// restart dismisses the alert and runs exactly one reset.
func (m *Model) restart() {
	m.alert = nil
	m.ResetTracking()
}

// CycleContent switches to the next content strategy and rebinds the
// tracked face to it.
func (m *Model) CycleContent() {
	old := m.controller()
	m.current = (m.current + 1) % len(m.controllers)

	if m.trackedNode == nil || m.tracked == nil {
		return
	}
	if prev := old.ContentNode(); prev != nil && prev.Parent() == m.trackedNode {
		prev.RemoveFromParent()
	}
	if content := m.controller().NodeFor(m.tracked); content != nil {
		m.trackedNode.AddChild(content)
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if m.alert != nil {
		if msg.String() == "enter" {
			m.restart()
		}
		return nil
	}

	switch msg.String() {
	case "enter", " ":
		return func() tea.Msg { return PrepareGameStartMsg{} }

	case "b", "B":
		return func() tea.Msg { return ConnectDeviceRequestedMsg{} }

	case "c", "C":
		m.CycleContent()

	case "f", "F":
		if f, ok := m.session.(failer); ok {
			f.Fail(&ar.Error{
				Code:               ar.ErrorSensorFailed,
				Description:        "The camera stopped delivering frames.",
				FailureReason:      "The face tracking sensor failed.",
				RecoverySuggestion: "Restart the session to try again.",
			})
		}
	}
	return nil
}

func (m *Model) controller() ar.ContentController {
	return m.controllers[m.current]
}

// Phase returns the start handshake state.
func (m *Model) Phase() Phase { return m.phase }

// Alert returns the alert on screen, if any.
func (m *Model) Alert() *ui.Alert { return m.alert }

// Tracking reports whether a face is being tracked.
func (m *Model) Tracking() bool { return m.trackedNode != nil }

// Supported reports whether the provider can track faces.
func (m *Model) Supported() bool { return m.provider.FaceTrackingSupported() }

// ContentName is the name of the active content strategy.
func (m *Model) ContentName() string { return m.controller().Name() }

// Hints lists the screen's keys for the menu bar.
func (m *Model) Hints() []ui.KeyHint {
	if m.alert != nil {
		return []ui.KeyHint{{Key: "Enter", Label: " " + restartAction}}
	}
	hints := []ui.KeyHint{
		{Key: "Enter", Label: " start"},
		{Key: "B", Label: "luetooth"},
		{Key: "C", Label: "ontent"},
	}
	if _, ok := m.session.(failer); ok {
		hints = append(hints, ui.KeyHint{Key: "F", Label: "ail"})
	}
	return hints
}

// View renders the face panel, or the alert when one is showing.
func (m *Model) View(width, height int) string {
	if m.alert != nil {
		return ui.RenderAlert(width, height, *m.alert)
	}

	panel := ui.FacePanel{
		Title:  m.controller().Name(),
		Button: "START GAME",
	}
	switch m.phase {
	case PhasePreparing:
		panel.Progress = m.tween.Eased(m.now())
	case PhasePrepared:
		panel.Progress = 1
	}

	if !m.Supported() {
		panel.Notice = "Face tracking is not supported on this device."
	} else if m.trackedNode != nil {
		if d := m.trackedNode.FirstDrawable(); d != nil {
			w, h := ui.FaceContentSize(width, height)
			panel.Content = d.Draw(w, h)
		}
	}
	return ui.RenderFacePanel(width, height, panel)
}

func frameCmd() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(config.TargetFPS), func(t time.Time) tea.Msg {
		return animFrameMsg(t)
	})
}

package mainscreen

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"faceplay.klederson.com/internal/ar"
)

// AnchorAddedMsg reports a newly tracked face.
type AnchorAddedMsg struct {
	Node   *ar.Node
	Anchor *ar.Anchor
}

// AnchorUpdatedMsg reports fresh state for a tracked face.
type AnchorUpdatedMsg struct {
	Node   *ar.Node
	Anchor *ar.Anchor
}

// SessionFailedMsg reports a session failure.
type SessionFailedMsg struct {
	Err error
}

// ConnectDeviceRequestedMsg asks the host to present the connection flow.
type ConnectDeviceRequestedMsg struct{}

// PrepareGameStartMsg asks the host to prepare the game start. The host
// answers by calling StartAnimation.
type PrepareGameStartMsg struct{}

// GameStartPreparedMsg tells the host the start transition has finished.
type GameStartPreparedMsg struct{}

type animFrameMsg time.Time

// Delegate forwards session callbacks into the Bubble Tea event loop.
// Sessions call it from their own goroutines.
type Delegate struct {
	send func(tea.Msg)
}

// NewDelegate creates a delegate delivering messages through send, usually
// tea.Program.Send.
func NewDelegate(send func(tea.Msg)) *Delegate {
	return &Delegate{send: send}
}

func (d *Delegate) DidAdd(node *ar.Node, anchor *ar.Anchor) {
	d.send(AnchorAddedMsg{Node: node, Anchor: anchor})
}

func (d *Delegate) DidUpdate(node *ar.Node, anchor *ar.Anchor) {
	d.send(AnchorUpdatedMsg{Node: node, Anchor: anchor})
}

func (d *Delegate) DidFail(err error) {
	d.send(SessionFailedMsg{Err: err})
}

// Package ar models a face-tracking session: the provider that runs it, the
// anchors it reports, the scene nodes content is attached to, and the
// content strategies that build and update that content.
package ar

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// BlendShape names a facial expression coefficient in [0, 1].
type BlendShape string

const (
	EyeBlinkLeft  BlendShape = "eyeBlinkLeft"
	EyeBlinkRight BlendShape = "eyeBlinkRight"
	JawOpen       BlendShape = "jawOpen"
	MouthSmile    BlendShape = "mouthSmile"
)

// Pose is a face position relative to the camera. X and Y are normalized
// to [-1, 1]; angles are radians.
type Pose struct {
	X, Y, Z          float64
	Yaw, Pitch, Roll float64
}

// Anchor is a tracked face as reported by a session.
type Anchor struct {
	ID          uuid.UUID
	Run         int // session run that reported the anchor, counted from 1
	Pose        Pose
	BlendShapes map[BlendShape]float64
}

// NewAnchor creates an anchor with a fresh identity.
func NewAnchor() *Anchor {
	return &Anchor{
		ID:          uuid.New(),
		BlendShapes: make(map[BlendShape]float64),
	}
}

// Coefficient returns the value of a blend shape, 0 if unreported.
func (a *Anchor) Coefficient(s BlendShape) float64 {
	return a.BlendShapes[s]
}

// Clone returns a deep copy safe to hand to another goroutine.
func (a *Anchor) Clone() *Anchor {
	cp := *a
	cp.BlendShapes = make(map[BlendShape]float64, len(a.BlendShapes))
	for k, v := range a.BlendShapes {
		cp.BlendShapes[k] = v
	}
	return &cp
}

// Same reports whether two anchors track the same face.
func (a *Anchor) Same(other *Anchor) bool {
	return a != nil && other != nil && a.ID == other.ID
}

// Configuration selects session features.
type Configuration struct {
	LightEstimation bool
}

// RunOptions control how Run treats the state of a running session.
type RunOptions uint8

const (
	ResetTracking RunOptions = 1 << iota
	RemoveExistingAnchors
)

// Has reports whether all bits of o2 are set.
func (o RunOptions) Has(o2 RunOptions) bool {
	return o&o2 == o2
}

// SessionDelegate receives session callbacks. Calls may arrive on any goroutine.
type SessionDelegate interface {
	DidAdd(node *Node, anchor *Anchor)
	DidUpdate(node *Node, anchor *Anchor)
	DidFail(err error)
}

// Session is a running (or pausable) face-tracking session. Anchors carry
// the number of the Run call that produced them.
type Session interface {
	Run(cfg Configuration, opts RunOptions)
	Pause()
}

// Provider creates sessions on devices that support face tracking.
type Provider interface {
	FaceTrackingSupported() bool
	NewSession(delegate SessionDelegate) Session
}

// ErrorCode classifies session failures.
type ErrorCode int

const (
	ErrorCameraUnauthorized ErrorCode = iota + 1
	ErrorSensorFailed
	ErrorTrackingLost
)

func (c ErrorCode) String() string {
	switch c {
	case ErrorCameraUnauthorized:
		return "camera unauthorized"
	case ErrorSensorFailed:
		return "sensor failed"
	case ErrorTrackingLost:
		return "tracking lost"
	default:
		return fmt.Sprintf("code %d", int(c))
	}
}

// Error is a session failure the user can recover from by restarting.
type Error struct {
	Code               ErrorCode
	Description        string
	FailureReason      string
	RecoverySuggestion string
}

func (e *Error) Error() string {
	if e.Description == "" {
		return "ar: " + e.Code.String()
	}
	return "ar: " + e.Description
}

// Message joins the non-empty description, failure reason and recovery
// suggestion, one per line.
func (e *Error) Message() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{e.Description, e.FailureReason, e.RecoverySuggestion} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

// Unsupported is the provider for hosts without face tracking.
type Unsupported struct{}

func (Unsupported) FaceTrackingSupported() bool { return false }

func (Unsupported) NewSession(SessionDelegate) Session { return idleSession{} }

type idleSession struct{}

func (idleSession) Run(Configuration, RunOptions) {}
func (idleSession) Pause()                        {}

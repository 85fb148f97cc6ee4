package lifecycle

import (
	"errors"
	"sync"

	"dualcam/internal/frame"

	"github.com/google/uuid"
)

// State is the recording lifecycle state of a compositor
type State int

const (
	StateIdle State = iota
	StateActive
	StateShuttingDown
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateShuttingDown:
		return "shutting_down"
	default:
		return "unknown"
	}
}

// ErrIncompleteInput is returned while shutting down when either camera is missing
var ErrIncompleteInput = errors.New("lifecycle: shutting down, both frames required")

// Inputs is the pair of frames a composite call may use after fallback rules
type Inputs struct {
	Front *frame.Frame
	Back  *frame.Frame

	FrontFromCache bool // Front was taken from the cached front frame
	Degraded       bool // One camera fills both roles
	State          State
}

// Controller gates frame substitution by recording state.
// It owns the cached front frame; all access goes through its mutex.
type Controller struct {
	mu          sync.Mutex
	state       State
	cachedFront *frame.Frame
	session     uuid.UUID
}

// NewController creates a controller in the idle state
func NewController() *Controller {
	return &Controller{state: StateIdle}
}

// BeginRecording enters the active state for a new session, clearing the
// cached front frame and any shutdown in progress
func (c *Controller) BeginRecording() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = StateActive
	c.cachedFront = nil
	c.session = uuid.New()
}

// Reset enters the shutting-down state and clears the cached front frame.
// Call it before finalizing a recording.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = StateShuttingDown
	c.cachedFront = nil
}

// State returns the current lifecycle state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns the id of the current or last recording session.
// It is uuid.Nil before the first BeginRecording.
func (c *Controller) Session() uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// HasCachedFront reports whether a fallback front frame is held
func (c *Controller) HasCachedFront() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cachedFront != nil
}

// Resolve applies the fallback rules for the current state to one composite call.
//
//   - no frames at all: frame.ErrNoInput, whatever the state
//   - shutting down: both frames required, otherwise ErrIncompleteInput
//   - active: a present front frame replaces the cache; a missing one falls
//     back to the cache
//   - idle and active: a single remaining frame fills both roles
func (c *Controller) Resolve(front, back *frame.Frame) (Inputs, error) {
	c.mu.Lock()
	state := c.state
	if front == nil && back == nil {
		c.mu.Unlock()
		return Inputs{State: state}, frame.ErrNoInput
	}

	in := Inputs{Front: front, Back: back, State: state}
	switch state {
	case StateShuttingDown:
		c.mu.Unlock()
		if front == nil || back == nil {
			return in, ErrIncompleteInput
		}
		return in, nil
	case StateActive:
		if front != nil {
			c.cachedFront = front
		} else if c.cachedFront != nil {
			in.Front = c.cachedFront
			in.FrontFromCache = true
		}
	}
	c.mu.Unlock()

	if in.Front == nil {
		in.Front = in.Back
		in.Degraded = true
	} else if in.Back == nil {
		in.Back = in.Front
		in.Degraded = true
	}
	return in, nil
}

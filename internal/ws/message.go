package ws

import (
	"time"

	"dualcam/internal/compositor"
)

// StatusMessage reports compositor lifecycle and counters
type StatusMessage struct {
	Type         string    `json:"type"` // "status"
	State        string    `json:"state"`
	Session      string    `json:"session"`
	Timestamp    time.Time `json:"timestamp"`
	Composed     uint64    `json:"composed"`
	Degraded     uint64    `json:"degraded"`
	Dropped      uint64    `json:"dropped"`
	PoolInFlight int       `json:"pool_in_flight"`
}

// NewStatusMessage builds a status message from a compositor snapshot
func NewStatusMessage(s compositor.Stats) *StatusMessage {
	return &StatusMessage{
		Type:         "status",
		State:        s.State.String(),
		Session:      s.Session.String(),
		Timestamp:    time.Now(),
		Composed:     s.Composed,
		Degraded:     s.Degraded,
		Dropped:      s.DroppedNoInput + s.DroppedShutdown + s.DroppedBuffer,
		PoolInFlight: s.Pool.InFlight,
	}
}

package events

import "time"

const (
	TypeResolved    = "resolution.completed"
	TypeRejected    = "resolution.rejected"
	TypeLiveFailure = "live.unavailable"
	TypeLiveDegrade = "live.degraded"
)

// Event is one message on the /ws stream.
type Event struct {
	Type       string    `json:"type"`
	RequestID  string    `json:"request_id,omitempty"`
	Identifier string    `json:"identifier,omitempty"`
	Status     string    `json:"status,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Parts      int       `json:"parts,omitempty"`
	At         time.Time `json:"at"`
}

// Publisher accepts events for broadcast. *Hub implements it.
type Publisher interface {
	Publish(Event)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(Event) {}

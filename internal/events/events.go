package events

import (
	"time"

	"val8-concierge/internal/models"
)

// Type says what changed in a session
type Type string

const (
	TypeMessage Type = "message"
	TypePhase   Type = "phase"
	TypeLedger  Type = "ledger"
	TypeView    Type = "view"
	TypeReset   Type = "reset"
	TypeScript  Type = "script"
)

// Event is a change notification for one session. Only the fields relevant to
// Type are set.
type Event struct {
	Type      Type                `json:"type"`
	SessionID string              `json:"session_id"`
	At        time.Time           `json:"at"`
	Message   *models.Message     `json:"message,omitempty"`
	Phase     models.Phase        `json:"phase,omitempty"`
	Ledger    []models.BookedItem `json:"ledger,omitempty"`
	View      models.View         `json:"view,omitempty"`
	Script    string              `json:"script,omitempty"`
}

// Publisher is implemented by anything that fans session events out
type Publisher interface {
	Publish(Event) error
}

// Discard drops every event
type Discard struct{}

func (Discard) Publish(Event) error { return nil }

func topic(sessionID string) string {
	return "session." + sessionID
}

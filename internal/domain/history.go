package domain

import (
	"encoding/json"
	"time"
)

// HistoryEntry is one recorded lifecycle event of a ticket.
type HistoryEntry struct {
	TicketID int64           `json:"ticket_id"`
	Event    string          `json:"event"`
	ActorRef string          `json:"actor_ref,omitempty"`
	Detail   json.RawMessage `json:"detail,omitempty"`
	At       time.Time       `json:"at"`
}

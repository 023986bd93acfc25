package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/ticketdesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated            EventType = "ticket_created"
	EventTicketClaimed            EventType = "ticket_claimed"
	EventTicketClosed             EventType = "ticket_closed"
	EventTranscriptArchived       EventType = "transcript_archived"
	EventTranscriptArchivalFailed EventType = "transcript_archival_failed"
	EventControlsReattached       EventType = "controls_reattached"
)

// AllEventTypes lists every event the ticket manager publishes.
var AllEventTypes = []EventType{
	EventTicketCreated,
	EventTicketClaimed,
	EventTicketClosed,
	EventTranscriptArchived,
	EventTranscriptArchivalFailed,
	EventControlsReattached,
}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserRef     string `json:"user_ref,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// ActorFrom converts a domain actor.
func ActorFrom(a domain.Actor) Actor {
	return Actor{UserRef: a.UserRef, DisplayName: a.DisplayName}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  int64     `json:"ticket_id"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// NewEvent stamps an event with a fresh ID.
func NewEvent(eventType EventType, ticketID int64, actor Actor, at time.Time, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Actor:     actor,
		Timestamp: at,
		Payload:   payload,
	}
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Kind       domain.TicketKind `json:"kind"`
	ChannelRef string            `json:"channel_ref"`
}

// TicketClaimedPayload payload.
type TicketClaimedPayload struct {
	PreviousClaimant *string `json:"previous_claimant,omitempty"`
}

// TicketClosedPayload payload.
type TicketClosedPayload struct {
	Reason    string  `json:"reason"`
	ClaimedBy *string `json:"claimed_by,omitempty"`
}

// TranscriptPayload describes an archival attempt.
type TranscriptPayload struct {
	URL    string `json:"url,omitempty"`
	Digest string `json:"digest,omitempty"`
	Error  string `json:"error,omitempty"`
}

// ControlsReattachedPayload summarizes a reattachment pass.
type ControlsReattachedPayload struct {
	Reattached int `json:"reattached"`
	Skipped    int `json:"skipped"`
}

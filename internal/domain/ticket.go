package domain

import (
	"errors"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen   TicketStatus = "open"
	TicketStatusClosed TicketStatus = "closed"
)

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	return s == TicketStatusOpen || s == TicketStatusClosed
}

// TicketKind tags what a ticket was opened for.
type TicketKind string

const (
	KindHelpDesk         TicketKind = "help_desk"
	KindStaffApplication TicketKind = "staff_application"
	KindBanRequest       TicketKind = "ban_request"
)

// Ticket is the aggregate for a support conversation backed by a private channel.
type Ticket struct {
	ID          int64             `json:"id"`
	ChannelRef  string            `json:"channel_ref"`
	CreatorRef  string            `json:"creator_ref"`
	CreatedAt   time.Time         `json:"created_at"`
	Kind        TicketKind        `json:"kind"`
	IntakeData  map[string]string `json:"intake_data,omitempty"`
	Status      TicketStatus      `json:"status"`
	ClaimedBy   *string           `json:"claimed_by,omitempty"`
	ClosedBy    *string           `json:"closed_by,omitempty"`
	ClosedAt    *time.Time        `json:"closed_at,omitempty"`
	CloseReason *string           `json:"close_reason,omitempty"`

	// Bookkeeping; may change after close.
	ControlMessageRef string `json:"control_message_ref,omitempty"`
	TranscriptURL     string `json:"transcript_url,omitempty"`
	ChannelDeleted    bool   `json:"channel_deleted,omitempty"`
}

var (
	errPartialClose   = errors.New("closing fields must be set together")
	errClosedNoFields = errors.New("closed ticket without closing fields")
	errOpenWithFields = errors.New("open ticket with closing fields")
	errUnknownStatus  = errors.New("unknown ticket status")
)

// IsOpen reports whether the ticket still accepts claim and close.
func (t *Ticket) IsOpen() bool {
	return t.Status == TicketStatusOpen
}

// MarkClosed sets every closing field in one step.
func (t *Ticket) MarkClosed(closerRef, reason string, at time.Time) {
	t.Status = TicketStatusClosed
	t.ClosedBy = &closerRef
	t.ClosedAt = &at
	t.CloseReason = &reason
}

// Validate checks the record-level invariants.
func (t *Ticket) Validate() error {
	if !t.Status.Valid() {
		return errUnknownStatus
	}
	set := 0
	for _, present := range []bool{t.ClosedBy != nil, t.ClosedAt != nil, t.CloseReason != nil} {
		if present {
			set++
		}
	}
	if set != 0 && set != 3 {
		return errPartialClose
	}
	switch t.Status {
	case TicketStatusOpen:
		if set != 0 {
			return errOpenWithFields
		}
	case TicketStatusClosed:
		if set == 0 {
			return errClosedNoFields
		}
	}
	return nil
}

// Clone returns a deep copy so stores never share mutable state with callers.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	out := *t
	if t.IntakeData != nil {
		out.IntakeData = make(map[string]string, len(t.IntakeData))
		for k, v := range t.IntakeData {
			out.IntakeData[k] = v
		}
	}
	out.ClaimedBy = cloneString(t.ClaimedBy)
	out.ClosedBy = cloneString(t.ClosedBy)
	out.CloseReason = cloneString(t.CloseReason)
	if t.ClosedAt != nil {
		at := *t.ClosedAt
		out.ClosedAt = &at
	}
	return &out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

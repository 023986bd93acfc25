package dto

import (
	"time"

	"github.com/spec-kit/ticketdesk/internal/domain"
)

// TicketSummary response.
type TicketSummary struct {
	ID         int64               `json:"id"`
	Kind       domain.TicketKind   `json:"kind"`
	Status     domain.TicketStatus `json:"status"`
	ChannelRef string              `json:"channel_ref"`
	CreatorRef string              `json:"creator_ref"`
	ClaimedBy  *string             `json:"claimed_by"`
	CreatedAt  time.Time           `json:"created_at"`
	ClosedAt   *time.Time          `json:"closed_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketSummary
	IntakeData        map[string]string `json:"intake_data,omitempty"`
	ClosedBy          *string           `json:"closed_by"`
	CloseReason       *string           `json:"close_reason"`
	ControlMessageRef string            `json:"control_message_ref,omitempty"`
	TranscriptURL     string            `json:"transcript_url,omitempty"`
	ChannelDeleted    bool              `json:"channel_deleted"`
}

// CloseTicketRequest payload.
type CloseTicketRequest struct {
	Reason string `json:"reason"`
}

// CloseTicketResponse reports the closed ticket and its transcript.
type CloseTicketResponse struct {
	Ticket        TicketDetailResponse `json:"ticket"`
	TranscriptURL string               `json:"transcript_url"`
	Digest        string               `json:"digest,omitempty"`
}

// NewTicketSummary maps a ticket to its list representation.
func NewTicketSummary(t *domain.Ticket) TicketSummary {
	return TicketSummary{
		ID:         t.ID,
		Kind:       t.Kind,
		Status:     t.Status,
		ChannelRef: t.ChannelRef,
		CreatorRef: t.CreatorRef,
		ClaimedBy:  t.ClaimedBy,
		CreatedAt:  t.CreatedAt,
		ClosedAt:   t.ClosedAt,
	}
}

// NewTicketDetail maps a ticket to its full representation.
func NewTicketDetail(t *domain.Ticket) TicketDetailResponse {
	return TicketDetailResponse{
		TicketSummary:     NewTicketSummary(t),
		IntakeData:        t.IntakeData,
		ClosedBy:          t.ClosedBy,
		CloseReason:       t.CloseReason,
		ControlMessageRef: t.ControlMessageRef,
		TranscriptURL:     t.TranscriptURL,
		ChannelDeleted:    t.ChannelDeleted,
	}
}

package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spec-kit/ticketdesk/internal/domain"
	apperrors "github.com/spec-kit/ticketdesk/pkg/util/errorutil"
)

// legacyTicket is the record shape earlier releases wrote to tickets.json:
// platform IDs as numbers, naive local timestamps, the menu value as the kind.
type legacyTicket struct {
	ChannelID json.Number  `json:"channel_id"`
	OpenedBy  json.Number  `json:"opened_by"`
	OpenedAt  string       `json:"opened_at"`
	Status    string       `json:"status"`
	IssueType string       `json:"issue_type"`
	ClaimedBy *json.Number `json:"claimed_by"`
	ClosedBy  *json.Number `json:"closed_by"`
	ClosedAt  *string      `json:"closed_at"`
	Reason    *string      `json:"reason"`
}

var legacyKinds = map[string]domain.TicketKind{
	"help_desk":       domain.KindHelpDesk,
	"apply_for_staff": domain.KindStaffApplication,
	"request_of_ban":  domain.KindBanRequest,
}

var legacyTimeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05"}

// decodeTicket reads one tickets.json entry in either the current or the
// legacy shape. A null entry yields nil.
func decodeTicket(key string, raw json.RawMessage) (*domain.Ticket, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, ticketDecodeError(key, err)
	}
	if fields == nil {
		return nil, nil
	}

	var ticket *domain.Ticket
	if isLegacyRecord(fields) {
		var legacy legacyTicket
		if err := json.Unmarshal(raw, &legacy); err != nil {
			return nil, ticketDecodeError(key, err)
		}
		converted, err := legacy.toTicket()
		if err != nil {
			return nil, ticketDecodeError(key, err)
		}
		ticket = converted
	} else {
		ticket = &domain.Ticket{}
		if err := json.Unmarshal(raw, ticket); err != nil {
			return nil, ticketDecodeError(key, err)
		}
	}

	if ticket.ID == 0 {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil || id <= 0 {
			return nil, ticketDecodeError(key, errors.New("record has no id and key is not a ticket id"))
		}
		ticket.ID = id
	}
	return ticket, nil
}

func isLegacyRecord(fields map[string]json.RawMessage) bool {
	for _, name := range []string{"channel_id", "opened_by", "issue_type"} {
		if _, ok := fields[name]; ok {
			return true
		}
	}
	return false
}

func (l legacyTicket) toTicket() (*domain.Ticket, error) {
	createdAt, err := parseLegacyTime(l.OpenedAt)
	if err != nil {
		return nil, fmt.Errorf("opened_at: %w", err)
	}
	kind, ok := legacyKinds[l.IssueType]
	if !ok {
		kind = domain.TicketKind(l.IssueType)
	}
	ticket := &domain.Ticket{
		ChannelRef: l.ChannelID.String(),
		CreatorRef: l.OpenedBy.String(),
		CreatedAt:  createdAt,
		Kind:       kind,
		Status:     domain.TicketStatus(l.Status),
		ClaimedBy:  numberRef(l.ClaimedBy),
	}
	if ticket.Status != domain.TicketStatusClosed {
		ticket.Status = domain.TicketStatusOpen
		return ticket, nil
	}

	closedAt := createdAt
	if l.ClosedAt != nil {
		if closedAt, err = parseLegacyTime(*l.ClosedAt); err != nil {
			return nil, fmt.Errorf("closed_at: %w", err)
		}
	}
	closedBy := ""
	if ref := numberRef(l.ClosedBy); ref != nil {
		closedBy = *ref
	}
	reason := ""
	if l.Reason != nil {
		reason = *l.Reason
	}
	ticket.MarkClosed(closedBy, reason, closedAt)
	// Earlier releases deleted the channel as part of closing.
	ticket.ChannelDeleted = true
	return ticket, nil
}

func parseLegacyTime(value string) (time.Time, error) {
	var lastErr error
	for _, layout := range legacyTimeLayouts {
		t, err := time.ParseInLocation(layout, value, time.Local)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func numberRef(n *json.Number) *string {
	if n == nil || n.String() == "" {
		return nil
	}
	ref := n.String()
	return &ref
}

func ticketDecodeError(key string, err error) error {
	return apperrors.NewPersistenceError("parse ticket "+key, err)
}

package repository

import (
	"context"
	"sort"
	"strconv"

	"github.com/spec-kit/ticketdesk/internal/domain"
	apperrors "github.com/spec-kit/ticketdesk/pkg/util/errorutil"
)

// SettingMenuMessageRef stores the "open a ticket" menu message as channelRef/messageRef.
const SettingMenuMessageRef = "menu_message_ref"

// TicketStore persists ticket records and the ticket ID counter.
type TicketStore interface {
	// NextID returns a fresh ID; the counter is durable before it returns.
	NextID(ctx context.Context) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Ticket, error)
	// Put is a full, idempotent upsert.
	Put(ctx context.Context, ticket *domain.Ticket) error
	// All returns every ticket ordered by ID.
	All(ctx context.Context) ([]domain.Ticket, error)
}

// SettingsStore keeps small named values such as the menu message reference.
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (string, error)
	PutSetting(ctx context.Context, key, value string) error
}

// Store is what a storage driver provides.
type Store interface {
	TicketStore
	SettingsStore
	Ping(ctx context.Context) error
	Close() error
}

func ticketNotFound(id int64) error {
	return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
}

func settingNotFound(key string) error {
	return apperrors.NewNotFound("setting", map[string]any{"key": key})
}

func checkPut(ticket *domain.Ticket) error {
	if ticket == nil || ticket.ID <= 0 {
		return apperrors.NewValidationError("ticket id must be positive", nil)
	}
	if err := ticket.Validate(); err != nil {
		return apperrors.NewValidationError("invalid ticket record", map[string]any{
			"ticket_id": ticket.ID,
			"reason":    err.Error(),
		})
	}
	return nil
}

func sortTickets(tickets []domain.Ticket) {
	sort.Slice(tickets, func(i, j int) bool {
		return tickets[i].ID < tickets[j].ID
	})
}

func idKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

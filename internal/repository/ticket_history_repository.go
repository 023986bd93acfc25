package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticketdesk/internal/domain"
	apperrors "github.com/spec-kit/ticketdesk/pkg/util/errorutil"
)

// HistoryStore keeps the per-ticket lifecycle trail.
type HistoryStore interface {
	Append(ctx context.Context, entry domain.HistoryEntry) error
	// ListByTicket returns entries oldest first; an unknown ticket yields none.
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.HistoryEntry, error)
}

type ticketHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewTicketHistoryRepository builds the postgres history store.
func NewTicketHistoryRepository(pool *pgxpool.Pool) HistoryStore {
	return &ticketHistoryRepository{pool: pool}
}

func (r *ticketHistoryRepository) Append(ctx context.Context, entry domain.HistoryEntry) error {
	const query = `
        INSERT INTO ticket_history (ticket_id, event, actor_ref, detail, created_at)
        VALUES ($1,$2,$3,$4,$5)`
	var detail any
	if len(entry.Detail) > 0 {
		detail = entry.Detail
	}
	if _, err := r.pool.Exec(ctx, query, entry.TicketID, entry.Event, entry.ActorRef, detail, entry.At); err != nil {
		return apperrors.NewPersistenceError("append ticket history", err)
	}
	return nil
}

func (r *ticketHistoryRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.HistoryEntry, error) {
	const query = `
        SELECT ticket_id, event, actor_ref, detail, created_at
        FROM ticket_history WHERE ticket_id=$1 ORDER BY id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, apperrors.NewPersistenceError("list ticket history", err)
	}
	defer rows.Close()

	var result []domain.HistoryEntry
	for rows.Next() {
		var (
			entry  domain.HistoryEntry
			detail []byte
		)
		if err := rows.Scan(
			&entry.TicketID,
			&entry.Event,
			&entry.ActorRef,
			&detail,
			&entry.At,
		); err != nil {
			return nil, apperrors.NewPersistenceError("scan ticket history", err)
		}
		entry.Detail = detail
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceError("list ticket history", err)
	}
	return result, nil
}

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticketdesk/internal/domain"
	apperrors "github.com/spec-kit/ticketdesk/pkg/util/errorutil"
)

const ticketColumns = `id, channel_ref, creator_ref, created_at, kind, intake_data, status, claimed_by,
               closed_by, closed_at, close_reason, control_message_ref, transcript_url, channel_deleted`

type postgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore builds a store over an existing pool. Run the migrations first.
func NewPostgresStore(pool *pgxpool.Pool) Store {
	return &postgresStore{pool: pool}
}

func (r *postgresStore) NextID(ctx context.Context) (int64, error) {
	const query = `
        INSERT INTO ticket_counters (name, value) VALUES ('tickets', 1)
        ON CONFLICT (name) DO UPDATE SET value = ticket_counters.value + 1
        RETURNING value`
	var id int64
	if err := r.pool.QueryRow(ctx, query).Scan(&id); err != nil {
		return 0, apperrors.NewPersistenceError("next ticket id", err)
	}
	return id, nil
}

func (r *postgresStore) Put(ctx context.Context, ticket *domain.Ticket) error {
	if err := checkPut(ticket); err != nil {
		return err
	}
	// The counter is raised in the same statement so it never trails stored IDs.
	const query = `
        WITH upserted AS (
            INSERT INTO tickets (` + ticketColumns + `, updated_at)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,NOW())
            ON CONFLICT (id) DO UPDATE SET
                channel_ref=EXCLUDED.channel_ref, creator_ref=EXCLUDED.creator_ref, created_at=EXCLUDED.created_at,
                kind=EXCLUDED.kind, intake_data=EXCLUDED.intake_data, status=EXCLUDED.status,
                claimed_by=EXCLUDED.claimed_by, closed_by=EXCLUDED.closed_by, closed_at=EXCLUDED.closed_at,
                close_reason=EXCLUDED.close_reason, control_message_ref=EXCLUDED.control_message_ref,
                transcript_url=EXCLUDED.transcript_url, channel_deleted=EXCLUDED.channel_deleted,
                updated_at=NOW()
            RETURNING id
        )
        INSERT INTO ticket_counters (name, value)
        SELECT 'tickets', id FROM upserted
        ON CONFLICT (name) DO UPDATE SET value = GREATEST(ticket_counters.value, EXCLUDED.value)`
	var intake any
	if len(ticket.IntakeData) > 0 {
		intake = ticket.IntakeData
	}
	_, err := r.pool.Exec(ctx, query,
		ticket.ID,
		ticket.ChannelRef,
		ticket.CreatorRef,
		ticket.CreatedAt,
		string(ticket.Kind),
		intake,
		string(ticket.Status),
		ticket.ClaimedBy,
		ticket.ClosedBy,
		ticket.ClosedAt,
		ticket.CloseReason,
		ticket.ControlMessageRef,
		ticket.TranscriptURL,
		ticket.ChannelDeleted,
	)
	if err != nil {
		return apperrors.NewPersistenceError("put ticket", err)
	}
	return nil
}

func (r *postgresStore) Get(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ticketNotFound(id)
		}
		return nil, apperrors.NewPersistenceError("get ticket", err)
	}
	return ticket, nil
}

func (r *postgresStore) All(ctx context.Context) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets ORDER BY id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, apperrors.NewPersistenceError("list tickets", err)
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, apperrors.NewPersistenceError("scan ticket", err)
		}
		result = append(result, *ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceError("list tickets", err)
	}
	return result, nil
}

func (r *postgresStore) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := r.pool.QueryRow(ctx, `SELECT value FROM settings WHERE key=$1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", settingNotFound(key)
		}
		return "", apperrors.NewPersistenceError("get setting", err)
	}
	return value, nil
}

func (r *postgresStore) PutSetting(ctx context.Context, key, value string) error {
	const query = `
        INSERT INTO settings (key, value) VALUES ($1, $2)
        ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value`
	if _, err := r.pool.Exec(ctx, query, key, value); err != nil {
		return apperrors.NewPersistenceError("put setting", err)
	}
	return nil
}

func (r *postgresStore) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close is a no-op; persistence.Postgres owns the pool.
func (r *postgresStore) Close() error { return nil }

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket   domain.Ticket
		kind     string
		status   string
		intake   map[string]string
		closedAt *time.Time
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.ChannelRef,
		&ticket.CreatorRef,
		&ticket.CreatedAt,
		&kind,
		&intake,
		&status,
		&ticket.ClaimedBy,
		&ticket.ClosedBy,
		&closedAt,
		&ticket.CloseReason,
		&ticket.ControlMessageRef,
		&ticket.TranscriptURL,
		&ticket.ChannelDeleted,
	); err != nil {
		return nil, err
	}
	ticket.Kind = domain.TicketKind(kind)
	ticket.Status = domain.TicketStatus(status)
	ticket.ClosedAt = closedAt
	if len(intake) > 0 {
		ticket.IntakeData = intake
	}
	return &ticket, nil
}

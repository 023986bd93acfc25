package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/ticketdesk/internal/domain"
	apperrors "github.com/spec-kit/ticketdesk/pkg/util/errorutil"
)

// redisStore keeps the counter in a string key and tickets as JSON in a hash.
// Each write is a single command or script, so a record is never half written.
type redisStore struct {
	client      *redis.Client
	counterKey  string
	ticketsKey  string
	settingsKey string
}

// putTicketScript stores the record and raises the counter to its ID in one
// atomic step.
var putTicketScript = redis.NewScript(`
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
local current = tonumber(redis.call('GET', KEYS[2]) or '0')
if current < tonumber(ARGV[1]) then
    redis.call('SET', KEYS[2], ARGV[1])
end
return 1
`)

// NewRedisStore builds a store whose keys all start with prefix.
func NewRedisStore(client *redis.Client, prefix string) Store {
	if prefix == "" {
		prefix = "ticketdesk"
	}
	return &redisStore{
		client:      client,
		counterKey:  prefix + ":ticket_counter",
		ticketsKey:  prefix + ":tickets",
		settingsKey: prefix + ":settings",
	}
}

func (r *redisStore) NextID(ctx context.Context) (int64, error) {
	id, err := r.client.Incr(ctx, r.counterKey).Result()
	if err != nil {
		return 0, apperrors.NewPersistenceError("next ticket id", err)
	}
	return id, nil
}

func (r *redisStore) Get(ctx context.Context, id int64) (*domain.Ticket, error) {
	raw, err := r.client.HGet(ctx, r.ticketsKey, idKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ticketNotFound(id)
		}
		return nil, apperrors.NewPersistenceError("get ticket", err)
	}
	var ticket domain.Ticket
	if err := json.Unmarshal(raw, &ticket); err != nil {
		return nil, apperrors.NewPersistenceError("decode ticket", err)
	}
	return &ticket, nil
}

func (r *redisStore) Put(ctx context.Context, ticket *domain.Ticket) error {
	if err := checkPut(ticket); err != nil {
		return err
	}
	data, err := json.Marshal(ticket)
	if err != nil {
		return apperrors.NewPersistenceError("encode ticket", err)
	}
	keys := []string{r.ticketsKey, r.counterKey}
	if err := putTicketScript.Run(ctx, r.client, keys, idKey(ticket.ID), data).Err(); err != nil {
		return apperrors.NewPersistenceError("put ticket", err)
	}
	return nil
}

func (r *redisStore) All(ctx context.Context) ([]domain.Ticket, error) {
	entries, err := r.client.HGetAll(ctx, r.ticketsKey).Result()
	if err != nil {
		return nil, apperrors.NewPersistenceError("list tickets", err)
	}
	out := make([]domain.Ticket, 0, len(entries))
	for key, raw := range entries {
		var ticket domain.Ticket
		if err := json.Unmarshal([]byte(raw), &ticket); err != nil {
			return nil, apperrors.NewPersistenceError("decode ticket", fmt.Errorf("field %s: %w", key, err))
		}
		out = append(out, ticket)
	}
	sortTickets(out)
	return out, nil
}

func (r *redisStore) GetSetting(ctx context.Context, key string) (string, error) {
	val, err := r.client.HGet(ctx, r.settingsKey, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", settingNotFound(key)
		}
		return "", apperrors.NewPersistenceError("get setting", err)
	}
	return val, nil
}

func (r *redisStore) PutSetting(ctx context.Context, key, value string) error {
	if err := r.client.HSet(ctx, r.settingsKey, key, value).Err(); err != nil {
		return apperrors.NewPersistenceError("put setting", err)
	}
	return nil
}

func (r *redisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close is a no-op; persistence.Redis owns the client.
func (r *redisStore) Close() error { return nil }

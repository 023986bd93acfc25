package repository

import (
	"context"
	"sync"

	"github.com/spec-kit/ticketdesk/internal/domain"
)

type memoryStore struct {
	mu       sync.RWMutex
	counter  int64
	tickets  map[int64]*domain.Ticket
	settings map[string]string
}

// NewMemoryStore returns a non-durable store for tests and local experiments.
func NewMemoryStore() Store {
	return &memoryStore{
		tickets:  make(map[int64]*domain.Ticket),
		settings: make(map[string]string),
	}
}

func (s *memoryStore) NextID(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counter++
	return s.counter, nil
}

func (s *memoryStore) Get(ctx context.Context, id int64) (*domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ticket, ok := s.tickets[id]
	if !ok {
		return nil, ticketNotFound(id)
	}
	return ticket.Clone(), nil
}

func (s *memoryStore) Put(ctx context.Context, ticket *domain.Ticket) error {
	if err := checkPut(ticket); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets[ticket.ID] = ticket.Clone()
	if ticket.ID > s.counter {
		s.counter = ticket.ID
	}
	return nil
}

func (s *memoryStore) All(ctx context.Context) ([]domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Ticket, 0, len(s.tickets))
	for _, ticket := range s.tickets {
		out = append(out, *ticket.Clone())
	}
	sortTickets(out)
	return out, nil
}

func (s *memoryStore) GetSetting(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.settings[key]
	if !ok {
		return "", settingNotFound(key)
	}
	return val, nil
}

func (s *memoryStore) PutSetting(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[key] = value
	return nil
}

func (s *memoryStore) Ping(ctx context.Context) error { return nil }

func (s *memoryStore) Close() error { return nil }

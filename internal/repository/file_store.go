package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/natefinch/atomic"

	"github.com/spec-kit/ticketdesk/internal/domain"
	apperrors "github.com/spec-kit/ticketdesk/pkg/util/errorutil"
)

const (
	ticketsFile  = "tickets.json"
	counterFile  = "ticket_counter.txt"
	settingsFile = "settings.json"
	dirPerms     = 0o750

	// Written by earlier releases; holds only the menu message ID.
	legacyMenuFile = "ticket_creation_message_id.txt"
)

// fileStore keeps everything in three small files. Every write goes through
// atomic.WriteFile (temp file, fsync, rename), and the in-memory state only
// changes after the rename succeeded.
type fileStore struct {
	mu       sync.Mutex
	dir      string
	counter  int64
	tickets  map[int64]*domain.Ticket
	settings map[string]string
}

// NewFileStore opens (or initializes) a store rooted at dir.
func NewFileStore(dir string) (Store, error) {
	if err := os.MkdirAll(dir, dirPerms); err != nil {
		return nil, apperrors.NewPersistenceError("create data dir", err)
	}
	s := &fileStore{
		dir:      dir,
		tickets:  make(map[int64]*domain.Ticket),
		settings: make(map[string]string),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *fileStore) load() error {
	raw, err := readOptional(filepath.Join(s.dir, counterFile))
	if err != nil {
		return apperrors.NewPersistenceError("read counter", err)
	}
	if text := strings.TrimSpace(string(raw)); text != "" {
		s.counter, err = strconv.ParseInt(text, 10, 64)
		if err != nil {
			return apperrors.NewPersistenceError("parse counter", err)
		}
	}

	raw, err = readOptional(filepath.Join(s.dir, ticketsFile))
	if err != nil {
		return apperrors.NewPersistenceError("read tickets", err)
	}
	if len(bytes.TrimSpace(raw)) > 0 {
		var byKey map[string]json.RawMessage
		if err := json.Unmarshal(raw, &byKey); err != nil {
			return apperrors.NewPersistenceError("parse tickets", err)
		}
		for key, entry := range byKey {
			ticket, err := decodeTicket(key, entry)
			if err != nil {
				return err
			}
			if ticket == nil {
				continue
			}
			s.tickets[ticket.ID] = ticket
			// A lost or stale counter file must never lead to ID reuse.
			if ticket.ID > s.counter {
				s.counter = ticket.ID
			}
		}
	}

	raw, err = readOptional(filepath.Join(s.dir, settingsFile))
	if err != nil {
		return apperrors.NewPersistenceError("read settings", err)
	}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &s.settings); err != nil {
			return apperrors.NewPersistenceError("parse settings", err)
		}
	}
	if _, ok := s.settings[SettingMenuMessageRef]; !ok {
		raw, err = readOptional(filepath.Join(s.dir, legacyMenuFile))
		if err != nil {
			return apperrors.NewPersistenceError("read menu message id", err)
		}
		if id := strings.TrimSpace(string(raw)); id != "" {
			s.settings[SettingMenuMessageRef] = id
		}
	}
	return nil
}

func (s *fileStore) NextID(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.counter + 1
	if err := s.write(counterFile, []byte(strconv.FormatInt(next, 10))); err != nil {
		return 0, apperrors.NewPersistenceError("write counter", err)
	}
	s.counter = next
	return next, nil
}

func (s *fileStore) Get(ctx context.Context, id int64) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket, ok := s.tickets[id]
	if !ok {
		return nil, ticketNotFound(id)
	}
	return ticket.Clone(), nil
}

func (s *fileStore) Put(ctx context.Context, ticket *domain.Ticket) error {
	if err := checkPut(ticket); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if ticket.ID > s.counter {
		if err := s.write(counterFile, []byte(strconv.FormatInt(ticket.ID, 10))); err != nil {
			return apperrors.NewPersistenceError("write counter", err)
		}
		s.counter = ticket.ID
	}

	next := make(map[int64]*domain.Ticket, len(s.tickets)+1)
	for id, existing := range s.tickets {
		next[id] = existing
	}
	next[ticket.ID] = ticket.Clone()

	byID := make(map[string]*domain.Ticket, len(next))
	for id, t := range next {
		byID[idKey(id)] = t
	}
	data, err := json.MarshalIndent(byID, "", "    ")
	if err != nil {
		return apperrors.NewPersistenceError("encode tickets", err)
	}
	if err := s.write(ticketsFile, data); err != nil {
		return apperrors.NewPersistenceError("write tickets", err)
	}
	s.tickets = next
	return nil
}

func (s *fileStore) All(ctx context.Context) ([]domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Ticket, 0, len(s.tickets))
	for _, ticket := range s.tickets {
		out = append(out, *ticket.Clone())
	}
	sortTickets(out)
	return out, nil
}

func (s *fileStore) GetSetting(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	val, ok := s.settings[key]
	if !ok {
		return "", settingNotFound(key)
	}
	return val, nil
}

func (s *fileStore) PutSetting(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]string, len(s.settings)+1)
	for k, v := range s.settings {
		next[k] = v
	}
	next[key] = value
	data, err := json.MarshalIndent(next, "", "    ")
	if err != nil {
		return apperrors.NewPersistenceError("encode settings", err)
	}
	if err := s.write(settingsFile, data); err != nil {
		return apperrors.NewPersistenceError("write settings", err)
	}
	s.settings = next
	return nil
}

func (s *fileStore) Ping(ctx context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", s.dir)
	}
	return nil
}

func (s *fileStore) Close() error { return nil }

func (s *fileStore) write(name string, data []byte) error {
	return atomic.WriteFile(filepath.Join(s.dir, name), bytes.NewReader(data))
}

func readOptional(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return data, err
}

package repository

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/ticketdesk/internal/domain"
	apperrors "github.com/spec-kit/ticketdesk/pkg/util/errorutil"
)

const historyFile = "history.jsonl"

type memoryHistory struct {
	mu      sync.RWMutex
	entries map[int64][]domain.HistoryEntry
}

// NewMemoryHistory returns a non-durable history store.
func NewMemoryHistory() HistoryStore {
	return &memoryHistory{entries: make(map[int64][]domain.HistoryEntry)}
}

func (h *memoryHistory) Append(ctx context.Context, entry domain.HistoryEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[entry.TicketID] = append(h.entries[entry.TicketID], entry)
	return nil
}

func (h *memoryHistory) ListByTicket(ctx context.Context, ticketID int64) ([]domain.HistoryEntry, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]domain.HistoryEntry(nil), h.entries[ticketID]...), nil
}

// fileHistory appends one JSON object per line next to the ticket files.
type fileHistory struct {
	mu   sync.Mutex
	path string
}

// NewFileHistory opens (or creates) the history log in dir.
func NewFileHistory(dir string) (HistoryStore, error) {
	if err := os.MkdirAll(dir, dirPerms); err != nil {
		return nil, apperrors.NewPersistenceError("create data dir", err)
	}
	return &fileHistory{path: filepath.Join(dir, historyFile)}, nil
}

func (h *fileHistory) Append(ctx context.Context, entry domain.HistoryEntry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return apperrors.NewPersistenceError("encode history entry", err)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	f, err := os.OpenFile(h.path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return apperrors.NewPersistenceError("open history", err)
	}
	torn, err := endsTorn(f)
	if err != nil {
		_ = f.Close()
		return apperrors.NewPersistenceError("inspect history", err)
	}
	if torn {
		// Terminate the partial line so the new entry starts on its own.
		line = append([]byte{'\n'}, line...)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		_ = f.Close()
		return apperrors.NewPersistenceError("append history", err)
	}
	if err := f.Close(); err != nil {
		return apperrors.NewPersistenceError("append history", err)
	}
	return nil
}

// endsTorn reports whether the log is non-empty and lacks a final newline.
func endsTorn(f *os.File) (bool, error) {
	info, err := f.Stat()
	if err != nil {
		return false, err
	}
	if info.Size() == 0 {
		return false, nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return false, err
	}
	return last[0] != '\n', nil
}

func (h *fileHistory) ListByTicket(ctx context.Context, ticketID int64) ([]domain.HistoryEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	f, err := os.Open(h.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError("open history", err)
	}
	defer f.Close()

	var out []domain.HistoryEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		var entry domain.HistoryEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			// A torn final line from a crash mid-append is skipped.
			continue
		}
		if entry.TicketID == ticketID {
			out = append(out, entry)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, apperrors.NewPersistenceError("read history", err)
	}
	return out, nil
}

type redisHistory struct {
	client *redis.Client
	prefix string
}

// NewRedisHistory keeps one list per ticket under prefix:history:{id}.
func NewRedisHistory(client *redis.Client, prefix string) HistoryStore {
	if prefix == "" {
		prefix = "ticketdesk"
	}
	return &redisHistory{client: client, prefix: prefix + ":history:"}
}

func (h *redisHistory) Append(ctx context.Context, entry domain.HistoryEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return apperrors.NewPersistenceError("encode history entry", err)
	}
	if err := h.client.RPush(ctx, h.key(entry.TicketID), data).Err(); err != nil {
		return apperrors.NewPersistenceError("append history", err)
	}
	return nil
}

func (h *redisHistory) ListByTicket(ctx context.Context, ticketID int64) ([]domain.HistoryEntry, error) {
	raw, err := h.client.LRange(ctx, h.key(ticketID), 0, -1).Result()
	if err != nil {
		return nil, apperrors.NewPersistenceError("list history", err)
	}
	out := make([]domain.HistoryEntry, 0, len(raw))
	for _, item := range raw {
		var entry domain.HistoryEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return nil, apperrors.NewPersistenceError("decode history entry", err)
		}
		out = append(out, entry)
	}
	return out, nil
}

func (h *redisHistory) key(ticketID int64) string {
	return h.prefix + strconv.FormatInt(ticketID, 10)
}

package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/ticketdesk/internal/api/http/handlers"
	"github.com/spec-kit/ticketdesk/internal/config"
	"github.com/spec-kit/ticketdesk/internal/persistence"
	"github.com/spec-kit/ticketdesk/internal/repository"
)

// storeHandle is an open ticket store, its history trail, and what must be
// released with them.
type storeHandle struct {
	store   repository.Store
	history repository.HistoryStore
	checks  map[string]handlers.Pinger
	closer  func()
}

func (h *storeHandle) Close() {
	_ = h.store.Close()
	if h.closer != nil {
		h.closer()
	}
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*storeHandle, error) {
	switch cfg.Store.Driver {
	case "", "file":
		store, err := repository.NewFileStore(cfg.Store.DataDir)
		if err != nil {
			return nil, err
		}
		history, err := repository.NewFileHistory(cfg.Store.DataDir)
		if err != nil {
			return nil, err
		}
		logger.Info("using file store", zap.String("dir", cfg.Store.DataDir))
		return &storeHandle{store: store, history: history, checks: map[string]handlers.Pinger{"store": store}}, nil

	case "memory":
		logger.Warn("using memory store; tickets are lost on restart")
		store := repository.NewMemoryStore()
		return &storeHandle{
			store:   store,
			history: repository.NewMemoryHistory(),
			checks:  map[string]handlers.Pinger{"store": store},
		}, nil

	case "postgres":
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				pg.Close()
				return nil, err
			}
		}
		return &storeHandle{
			store:   repository.NewPostgresStore(pg.PoolHandle()),
			history: repository.NewTicketHistoryRepository(pg.PoolHandle()),
			checks:  map[string]handlers.Pinger{"postgres": pg},
			closer:  pg.Close,
		}, nil

	case "redis":
		rd, err := persistence.NewRedis(ctx, cfg.Redis, logger)
		if err != nil {
			return nil, err
		}
		return &storeHandle{
			store:   repository.NewRedisStore(rd.Client, cfg.Redis.KeyPrefix),
			history: repository.NewRedisHistory(rd.Client, cfg.Redis.KeyPrefix),
			checks:  map[string]handlers.Pinger{"redis": rd},
			closer:  rd.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q (want file, memory, postgres or redis)", cfg.Store.Driver)
	}
}

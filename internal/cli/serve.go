package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ticketdesk/internal/api/http"
	"github.com/spec-kit/ticketdesk/internal/api/http/handlers"
	"github.com/spec-kit/ticketdesk/internal/api/interactions"
	"github.com/spec-kit/ticketdesk/internal/archive"
	"github.com/spec-kit/ticketdesk/internal/auth"
	"github.com/spec-kit/ticketdesk/internal/config"
	"github.com/spec-kit/ticketdesk/internal/controls"
	"github.com/spec-kit/ticketdesk/internal/events"
	"github.com/spec-kit/ticketdesk/internal/gateway/discord"
	"github.com/spec-kit/ticketdesk/internal/observability"
	"github.com/spec-kit/ticketdesk/internal/service"
	"github.com/spec-kit/ticketdesk/internal/transcript"
	"github.com/spec-kit/ticketdesk/internal/worker"
)

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot and the admin API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(parent context.Context) error {
	cfg, logger := a.cfg, a.logger
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	stores, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stores.Close()

	archiveClient, err := archive.New(cfg.Archive, logger)
	if err != nil {
		return err
	}

	gw, err := discord.New(cfg.Discord.Token, cfg.Discord.GuildID, logger)
	if err != nil {
		return err
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, stores.history, logger))

	manager := service.NewTicketManager(service.TicketDependencies{
		Store:       stores.store,
		Settings:    stores.store,
		Gateway:     gw,
		Transcripts: transcript.NewBuilder(),
		Archive:     archiveClient,
		Dispatcher:  dispatcher,
		Kinds:       cfg.Kinds,
		Metrics:     metrics,
		Logger:      logger,
	}, managerConfig(cfg))

	router := controls.NewRouter(logger)
	interactions.NewHandlers(manager, logger).Register(router)
	gw.OnInteraction(router.InteractionHandler())
	gw.OnReady(func(readyCtx context.Context) {
		if _, err := manager.EnsureMenu(readyCtx); err != nil {
			logger.Error("failed to publish ticket menu", zap.Error(err))
		}
		report, err := manager.Reattach(readyCtx)
		if err != nil {
			logger.Error("failed to reattach ticket controls", zap.Error(err))
			return
		}
		logger.Info("ticket controls reattached",
			zap.Int("reattached", len(report.Reattached)),
			zap.Int("skipped", len(report.Skipped)),
			zap.Int("failed", len(report.Failed)),
		)
	})

	if err := gw.Open(); err != nil {
		return err
	}
	defer gw.Close() //nolint:errcheck

	var cleanupDone <-chan struct{}
	if cfg.Cleanup.Enabled {
		cleanupDone, err = worker.StartCleanupWorker(ctx, cfg.Cleanup.Schedule, manager, logger)
		if err != nil {
			return err
		}
	}

	var httpApp *fiber.App
	if cfg.App.HTTPEnabled {
		httpApp = newHTTPApp(cfg, logger, metrics, manager, stores)
		go func() {
			if err := httpApp.Listen(cfg.App.Addr()); err != nil {
				logger.Error("fiber listen", zap.Error(err))
				cancel()
			}
		}()
	}

	waitForShutdown(ctx, logger)
	cancel()

	if httpApp != nil {
		_ = httpApp.Shutdown()
	}
	if cleanupDone != nil {
		<-cleanupDone
	}
	return nil
}

func newHTTPApp(cfg *config.Config, logger *zap.Logger, metrics *observability.Metrics, manager *service.TicketManager, stores *storeHandle) *fiber.App {
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, stores.checks),
		Tickets:        handlers.NewTicketsHandler(manager, stores.history),
		Auth:           handlers.NewAuthHandler(service.NewAuthService(*cfg, tokens)),
		Metrics:        handlers.NewMetricsHandler(metrics),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
		SupportRoleRef: cfg.Discord.SupportRoleID,
	})
	return app
}

func managerConfig(cfg *config.Config) service.TicketManagerConfig {
	return service.TicketManagerConfig{
		GuildRef:           cfg.Discord.GuildID,
		SupportRoleRef:     cfg.Discord.SupportRoleID,
		CategoryRef:        cfg.Discord.TicketCategoryID,
		StaffLogChannelRef: cfg.Discord.TranscriptsChannelID,
		MenuChannelRef:     cfg.Discord.TicketCreationChannelID,
	}
}

func waitForShutdown(ctx context.Context, logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("shutting down", zap.Error(ctx.Err()))
	}
}

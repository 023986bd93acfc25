package worker

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/ticketdesk/internal/service"
)

// Sweeper removes channels left behind by interrupted closes.
type Sweeper interface {
	SweepClosedChannels(ctx context.Context) (int, error)
}

// StartAuditWorker registers audit handlers.
func StartAuditWorker(audit *service.AuditService) {
	if audit == nil {
		return
	}
	audit.RegisterHandlers()
}

// StartCleanupWorker runs the sweep on schedule until ctx is done. The
// returned channel closes once the scheduler has stopped.
func StartCleanupWorker(ctx context.Context, schedule string, sweeper Sweeper, logger *zap.Logger) (<-chan struct{}, error) {
	scheduler := cron.New()
	_, err := scheduler.AddFunc(schedule, func() {
		swept, err := sweeper.SweepClosedChannels(ctx)
		if err != nil {
			logger.Warn("cleanup sweep failed", zap.Error(err))
			return
		}
		logger.Debug("cleanup sweep finished", zap.Int("swept", swept))
	})
	if err != nil {
		return nil, fmt.Errorf("invalid cleanup schedule %q: %w", schedule, err)
	}
	scheduler.Start()
	logger.Info("cleanup worker started", zap.String("schedule", schedule))

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		<-scheduler.Stop().Done()
		logger.Info("cleanup worker stopped")
		close(done)
	}()
	return done, nil
}

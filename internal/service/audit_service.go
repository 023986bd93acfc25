package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/spec-kit/ticketdesk/internal/domain"
	"github.com/spec-kit/ticketdesk/internal/events"
	"github.com/spec-kit/ticketdesk/internal/repository"
)

// AuditService writes one structured log entry per ticket lifecycle event
// and, when a history store is configured, appends it to the ticket's trail.
type AuditService struct {
	dispatcher events.Dispatcher
	history    repository.HistoryStore
	logger     *zap.Logger
}

// NewAuditService creates the service. history may be nil.
func NewAuditService(dispatcher events.Dispatcher, history repository.HistoryStore, logger *zap.Logger) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		history:    history,
		logger:     logger.Named("audit"),
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	for _, eventType := range events.AllEventTypes {
		a.dispatcher.Subscribe(eventType, a.handle)
	}
}

func (a *AuditService) handle(ctx context.Context, event events.Event) error {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event", string(event.Type)),
		zap.Time("at", event.Timestamp),
		zap.Any("payload", event.Payload),
	}
	if event.TicketID != 0 {
		fields = append(fields, zap.Int64("ticket_id", event.TicketID))
	}
	if event.Actor.UserRef != "" {
		fields = append(fields, zap.String("actor", event.Actor.UserRef))
	}
	if event.Type == events.EventTranscriptArchivalFailed {
		a.logger.Warn("ticket event", fields...)
	} else {
		a.logger.Info("ticket event", fields...)
	}

	if a.history == nil || event.TicketID == 0 {
		return nil
	}
	entry := domain.HistoryEntry{
		TicketID: event.TicketID,
		Event:    string(event.Type),
		ActorRef: event.Actor.UserRef,
		At:       event.Timestamp,
	}
	if event.Payload != nil {
		detail, err := json.Marshal(event.Payload)
		if err != nil {
			return err
		}
		entry.Detail = detail
	}
	return a.history.Append(ctx, entry)
}

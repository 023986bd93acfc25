package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/ticketdesk/internal/events"
	"github.com/spec-kit/ticketdesk/internal/repository"
)

func TestAuditServiceRecordsHistory(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	dispatcher := events.NewInMemoryDispatcher()
	history := repository.NewMemoryHistory()
	NewAuditService(dispatcher, history, zap.New(core)).RegisterHandlers()

	ctx := context.Background()
	at := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	staff := events.Actor{UserRef: "staff-1"}

	require.NoError(t, dispatcher.Publish(ctx, events.NewEvent(events.EventTicketClosed, 5, staff, at,
		events.TicketClosedPayload{Reason: "done"})))
	require.NoError(t, dispatcher.Publish(ctx, events.NewEvent(events.EventTranscriptArchivalFailed, 5, staff, at,
		events.TranscriptPayload{Error: "timeout"})))
	require.NoError(t, dispatcher.Publish(ctx, events.NewEvent(events.EventControlsReattached, 0, events.Actor{}, at,
		events.ControlsReattachedPayload{Reattached: 2})))

	entries, err := history.ListByTicket(ctx, 5)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "ticket_closed", entries[0].Event)
	assert.Equal(t, "staff-1", entries[0].ActorRef)
	assert.JSONEq(t, `{"reason":"done"}`, string(entries[0].Detail))
	assert.True(t, entries[0].At.Equal(at))

	none, err := history.ListByTicket(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, none)

	assert.Equal(t, 3, logs.Len())
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.WarnLevel).Len())
}

func TestAuditServiceWithoutHistory(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	NewAuditService(dispatcher, nil, zap.NewNop()).RegisterHandlers()
	err := dispatcher.Publish(context.Background(), events.NewEvent(events.EventTicketCreated, 1, events.Actor{}, time.Now(), nil))
	assert.NoError(t, err)
}

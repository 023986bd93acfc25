package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/ticketdesk/internal/domain"
	"github.com/spec-kit/ticketdesk/internal/events"
	"github.com/spec-kit/ticketdesk/internal/transcript"
	apperrors "github.com/spec-kit/ticketdesk/pkg/util/errorutil"
)

const (
	defaultCloseReason = "No reason provided"
	maxCloseReason     = 1000
)

// Close closes a ticket. Once the closed record is stored the remaining
// steps (transcript, archival, staff summary, channel deletion) always run,
// whatever happens to the caller's context, and their failures only degrade
// the result.
func (m *TicketManager) Close(ctx context.Context, id int64, closer domain.Actor, reason string) (*CloseResult, error) {
	ctx = context.WithoutCancel(ctx)
	unlock := m.locks.Lock(id)
	defer unlock()

	ticket, err := m.openTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	if !closer.HasRole(m.cfg.SupportRoleRef) && closer.UserRef != ticket.CreatorRef {
		return nil, apperrors.NewForbidden("only support staff or the ticket creator can close a ticket")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = defaultCloseReason
	}
	if err := validate.Var(reason, fmt.Sprintf("max=%d", maxCloseReason)); err != nil {
		return nil, apperrors.NewValidationError("close reason too long", map[string]any{"max_length": maxCloseReason})
	}

	closed := ticket.Clone()
	closed.MarkClosed(closer.UserRef, reason, m.now().UTC())
	if err := m.store.Put(ctx, closed); err != nil {
		return nil, asPersistenceError("store closed ticket", err)
	}
	m.logger.Info("ticket closed", zap.Int64("ticket_id", id), zap.String("closer", closer.UserRef))
	m.publishEvent(ctx, events.NewEvent(events.EventTicketClosed, id, events.ActorFrom(closer), *closed.ClosedAt,
		events.TicketClosedPayload{Reason: reason, ClaimedBy: closed.ClaimedBy}))

	doc := m.renderTranscript(ctx, closed, closer)
	url := m.archiveTranscript(ctx, closed, closer, doc)
	digest := ""
	if doc != nil {
		digest = doc.Digest
	}

	if m.cfg.StaffLogChannelRef != "" {
		if _, err := m.gateway.SendMessage(ctx, m.cfg.StaffLogChannelRef, closureSummary(closed, url, digest)); err != nil {
			m.logger.Warn("closure summary not posted", zap.Int64("ticket_id", id), zap.Error(err))
		}
	}

	deleted := true
	if err := m.gateway.DeleteChannel(ctx, closed.ChannelRef); err != nil && !apperrors.IsNotFound(err) {
		deleted = false
		m.logger.Warn("ticket channel not deleted; the cleanup sweep will retry",
			zap.Int64("ticket_id", id), zap.Error(err))
	}

	closed.TranscriptURL = url
	closed.ChannelDeleted = deleted
	if err := m.store.Put(ctx, closed); err != nil {
		m.logger.Warn("close bookkeeping not stored", zap.Int64("ticket_id", id), zap.Error(err))
	}

	return &CloseResult{Ticket: closed.Clone(), TranscriptURL: url, Digest: digest}, nil
}

func (m *TicketManager) renderTranscript(ctx context.Context, ticket *domain.Ticket, closer domain.Actor) *transcript.Document {
	history, err := m.gateway.FetchHistory(ctx, ticket.ChannelRef)
	if err != nil {
		if !apperrors.IsNotFound(err) {
			m.logger.Warn("channel history unavailable", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
		}
		history = nil
	}
	names := map[string]string{}
	if closer.DisplayName != "" {
		names[closer.UserRef] = closer.DisplayName
	}
	doc, err := m.transcripts.Render(transcript.HeaderFor(ticket), history, names)
	if err != nil {
		m.logger.Warn("transcript not rendered", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
		return nil
	}
	return doc
}

func (m *TicketManager) archiveTranscript(ctx context.Context, ticket *domain.Ticket, closer domain.Actor, doc *transcript.Document) string {
	actor := events.ActorFrom(closer)
	if doc == nil {
		m.publishEvent(ctx, events.NewEvent(events.EventTranscriptArchivalFailed, ticket.ID, actor, m.now().UTC(),
			events.TranscriptPayload{Error: "no channel history"}))
		return ""
	}
	url, err := m.archive.Upload(ctx, ticket.ID, doc)
	if err != nil {
		m.logger.Warn("transcript archival failed", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
		m.publishEvent(ctx, events.NewEvent(events.EventTranscriptArchivalFailed, ticket.ID, actor, m.now().UTC(),
			events.TranscriptPayload{Digest: doc.Digest, Error: err.Error()}))
		return ""
	}
	m.publishEvent(ctx, events.NewEvent(events.EventTranscriptArchived, ticket.ID, actor, m.now().UTC(),
		events.TranscriptPayload{URL: url, Digest: doc.Digest}))
	return url
}

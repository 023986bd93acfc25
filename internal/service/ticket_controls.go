package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/ticketdesk/internal/controls"
	"github.com/spec-kit/ticketdesk/internal/events"
	"github.com/spec-kit/ticketdesk/internal/repository"
	apperrors "github.com/spec-kit/ticketdesk/pkg/util/errorutil"
)

// ReattachReport lists what a reattachment pass did per open ticket.
type ReattachReport struct {
	Reattached []int64 `json:"reattached"`
	Skipped    []int64 `json:"skipped"`
	Failed     []int64 `json:"failed"`
}

// Reattach binds claim/close controls to the stored control message of every
// open ticket. It never posts messages; tickets whose channel or message is
// gone are skipped and left for an operator.
func (m *TicketManager) Reattach(ctx context.Context) (ReattachReport, error) {
	report := ReattachReport{Reattached: []int64{}, Skipped: []int64{}, Failed: []int64{}}
	tickets, err := m.store.All(ctx)
	if err != nil {
		return report, err
	}
	for _, t := range tickets {
		if !t.IsOpen() {
			continue
		}
		if t.ControlMessageRef == "" {
			m.logger.Warn("open ticket has no control message reference", zap.Int64("ticket_id", t.ID))
			report.Skipped = append(report.Skipped, t.ID)
			continue
		}
		if _, err := m.gateway.FetchMessage(ctx, t.ChannelRef, t.ControlMessageRef); err != nil {
			if apperrors.IsNotFound(err) {
				m.logger.Debug("control message gone; skipping", zap.Int64("ticket_id", t.ID))
				report.Skipped = append(report.Skipped, t.ID)
			} else {
				m.logger.Warn("control message lookup failed", zap.Int64("ticket_id", t.ID), zap.Error(err))
				report.Failed = append(report.Failed, t.ID)
			}
			continue
		}
		if err := m.gateway.RegisterControls(ctx, t.ChannelRef, t.ControlMessageRef, controls.ForTicket(t.ID)); err != nil {
			m.logger.Warn("controls not reattached", zap.Int64("ticket_id", t.ID), zap.Error(err))
			report.Failed = append(report.Failed, t.ID)
			continue
		}
		report.Reattached = append(report.Reattached, t.ID)
	}

	m.logger.Info("ticket controls reattached",
		zap.Int("reattached", len(report.Reattached)),
		zap.Int("skipped", len(report.Skipped)),
		zap.Int("failed", len(report.Failed)))
	m.publishEvent(ctx, events.NewEvent(events.EventControlsReattached, 0, events.Actor{}, m.now().UTC(),
		events.ControlsReattachedPayload{Reattached: len(report.Reattached), Skipped: len(report.Skipped)}))
	return report, nil
}

// EnsureMenu keeps exactly one creation menu in the menu channel. The stored
// message is edited in place; a new one is posted only when none is stored or
// the stored one no longer exists. Returns the menu message reference.
func (m *TicketManager) EnsureMenu(ctx context.Context) (string, error) {
	if m.cfg.MenuChannelRef == "" {
		return "", apperrors.NewValidationError("menu channel is not configured", nil)
	}
	menu := menuMessage(m.kinds)

	stored, err := m.settings.GetSetting(ctx, repository.SettingMenuMessageRef)
	switch {
	case err == nil:
		channelRef, messageRef, ok := splitMessageRef(stored)
		if ok && channelRef == "" {
			// Bare message ID from an older layout; it always lived in the menu channel.
			channelRef = m.cfg.MenuChannelRef
		}
		if ok && channelRef == m.cfg.MenuChannelRef {
			err := m.gateway.EditMessage(ctx, channelRef, messageRef, menu)
			if err == nil {
				return messageRef, nil
			}
			if !apperrors.IsNotFound(err) {
				return "", asGatewayError("edit ticket menu", err)
			}
			m.logger.Info("stored ticket menu is gone; posting a new one")
		}
	case apperrors.IsNotFound(err):
	default:
		return "", err
	}

	messageRef, err := m.gateway.SendMessage(ctx, m.cfg.MenuChannelRef, menu)
	if err != nil {
		return "", asGatewayError("post ticket menu", err)
	}
	if err := m.settings.PutSetting(ctx, repository.SettingMenuMessageRef, joinMessageRef(m.cfg.MenuChannelRef, messageRef)); err != nil {
		return "", asPersistenceError("store ticket menu reference", err)
	}
	m.logger.Info("ticket menu posted", zap.String("message", messageRef))
	return messageRef, nil
}

func joinMessageRef(channelRef, messageRef string) string {
	return channelRef + "/" + messageRef
}

func splitMessageRef(raw string) (string, string, bool) {
	channelRef, messageRef, ok := strings.Cut(raw, "/")
	if !ok {
		return "", raw, raw != ""
	}
	if channelRef == "" || messageRef == "" {
		return "", "", false
	}
	return channelRef, messageRef, true
}

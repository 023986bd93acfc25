// Package interactions turns chat control activations into ticket operations.
package interactions

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/ticketdesk/internal/controls"
	"github.com/spec-kit/ticketdesk/internal/domain"
	"github.com/spec-kit/ticketdesk/internal/gateway"
	"github.com/spec-kit/ticketdesk/internal/service"
	apperrors "github.com/spec-kit/ticketdesk/pkg/util/errorutil"
)

const reasonField = "reason"

// TicketService is the subset of the ticket manager the handlers use.
type TicketService interface {
	Create(ctx context.Context, creator domain.Actor, kind domain.TicketKind, intake map[string]string) (*domain.Ticket, error)
	Claim(ctx context.Context, id int64, staff domain.Actor) (*domain.Ticket, error)
	Close(ctx context.Context, id int64, closer domain.Actor, reason string) (*service.CloseResult, error)
	Kinds() domain.KindCatalog
}

// Handlers answers menu, intake, claim and close interactions.
type Handlers struct {
	tickets TicketService
	logger  *zap.Logger
}

// NewHandlers builds the handler set.
func NewHandlers(tickets TicketService, logger *zap.Logger) *Handlers {
	return &Handlers{tickets: tickets, logger: logger}
}

// Register binds every handler to its control action.
func (h *Handlers) Register(router *controls.Router) {
	router.Handle(controls.ActionMenu, h.handleMenu)
	router.Handle(controls.ActionIntake, h.handleIntake)
	router.Handle(controls.ActionClaim, h.handleClaim)
	router.Handle(controls.ActionClose, h.handleClose)
	router.Handle(controls.ActionReason, h.handleReason)
}

func (h *Handlers) handleMenu(ctx context.Context, _ controls.ID, in gateway.Interaction, resp gateway.Responder) {
	if len(in.Values) == 0 {
		h.reply(ctx, resp, "Please pick a ticket type.")
		return
	}
	kind := domain.TicketKind(in.Values[0])
	def, ok := h.tickets.Kinds().Lookup(kind)
	if !ok {
		h.reply(ctx, resp, "That ticket type is no longer offered.")
		return
	}
	if def.RequiresForm() {
		if err := resp.OpenForm(ctx, intakeForm(def)); err != nil {
			h.logger.Warn("intake form not opened", zap.String("kind", string(kind)), zap.Error(err))
		}
		return
	}
	h.create(ctx, in.Actor, kind, nil, resp)
}

func (h *Handlers) handleIntake(ctx context.Context, id controls.ID, in gateway.Interaction, resp gateway.Responder) {
	h.create(ctx, in.Actor, id.Kind, in.Fields, resp)
}

func (h *Handlers) create(ctx context.Context, actor domain.Actor, kind domain.TicketKind, intake map[string]string, resp gateway.Responder) {
	if err := resp.Defer(ctx, true); err != nil {
		h.logger.Warn("interaction not acknowledged", zap.Error(err))
		return
	}
	ticket, err := h.tickets.Create(ctx, actor, kind, intake)
	if err != nil {
		h.followup(ctx, resp, userMessage(err))
		return
	}
	h.followup(ctx, resp, fmt.Sprintf("Your ticket has been created: <#%s>", ticket.ChannelRef))
}

func (h *Handlers) handleClaim(ctx context.Context, id controls.ID, in gateway.Interaction, resp gateway.Responder) {
	if _, err := h.tickets.Claim(ctx, id.TicketID, in.Actor); err != nil {
		h.reply(ctx, resp, userMessage(err))
		return
	}
	h.reply(ctx, resp, fmt.Sprintf("You claimed ticket #%d.", id.TicketID))
}

func (h *Handlers) handleClose(ctx context.Context, id controls.ID, _ gateway.Interaction, resp gateway.Responder) {
	form := gateway.Form{
		ID:    controls.Reason(id.TicketID),
		Title: fmt.Sprintf("Close ticket #%d", id.TicketID),
		Fields: []gateway.FormField{{
			ID:          reasonField,
			Label:       "Reason for closing",
			Placeholder: "Optional",
			Long:        true,
			MaxLength:   1000,
		}},
	}
	if err := resp.OpenForm(ctx, form); err != nil {
		h.logger.Warn("close form not opened", zap.Int64("ticket_id", id.TicketID), zap.Error(err))
	}
}

func (h *Handlers) handleReason(ctx context.Context, id controls.ID, in gateway.Interaction, resp gateway.Responder) {
	if err := resp.Defer(ctx, true); err != nil {
		h.logger.Warn("interaction not acknowledged", zap.Error(err))
	}
	result, err := h.tickets.Close(ctx, id.TicketID, in.Actor, in.Fields[reasonField])
	if err != nil {
		h.followup(ctx, resp, userMessage(err))
		return
	}
	msg := fmt.Sprintf("Ticket #%d closed.", id.TicketID)
	if result.TranscriptURL == "" {
		msg += " The transcript could not be archived."
	}
	// The ticket channel is gone by now, so this may fail; nothing depends on it.
	h.followup(ctx, resp, msg)
}

func (h *Handlers) reply(ctx context.Context, resp gateway.Responder, content string) {
	if err := resp.Reply(ctx, content, true); err != nil {
		h.logger.Debug("interaction reply failed", zap.Error(err))
	}
}

func (h *Handlers) followup(ctx context.Context, resp gateway.Responder, content string) {
	if err := resp.Followup(ctx, content, true); err != nil {
		h.logger.Debug("interaction followup failed", zap.Error(err))
	}
}

func intakeForm(def domain.KindDefinition) gateway.Form {
	title := def.FormTitle
	if title == "" {
		title = def.Label
	}
	form := gateway.Form{ID: controls.Intake(def.Kind), Title: title}
	for _, f := range def.Fields {
		form.Fields = append(form.Fields, gateway.FormField{
			ID:        f.Key,
			Label:     f.Label,
			Long:      f.Long,
			Required:  f.Required,
			MaxLength: f.MaxLength,
		})
	}
	return form
}

func userMessage(err error) string {
	domainErr := apperrors.ToDomainError(err)
	switch domainErr.Code {
	case apperrors.CodeNotFound:
		return "This ticket is already closed or no longer exists."
	case apperrors.CodeForbidden, apperrors.CodeValidation:
		return domainErr.Message
	default:
		return "Something went wrong, please try again later."
	}
}

package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticketdesk/internal/api/dto"
	"github.com/spec-kit/ticketdesk/internal/auth"
	"github.com/spec-kit/ticketdesk/internal/domain"
	"github.com/spec-kit/ticketdesk/internal/repository"
	"github.com/spec-kit/ticketdesk/internal/service"
	apperrors "github.com/spec-kit/ticketdesk/pkg/util/errorutil"
)

// TicketAdmin is the subset of the ticket manager exposed to operators.
type TicketAdmin interface {
	Get(ctx context.Context, id int64) (*domain.Ticket, error)
	List(ctx context.Context, status domain.TicketStatus) ([]domain.Ticket, error)
	Claim(ctx context.Context, id int64, staff domain.Actor) (*domain.Ticket, error)
	Close(ctx context.Context, id int64, closer domain.Actor, reason string) (*service.CloseResult, error)
	Reattach(ctx context.Context) (service.ReattachReport, error)
}

// TicketsHandler manages operator ticket endpoints.
type TicketsHandler struct {
	service TicketAdmin
	history repository.HistoryStore
}

// NewTicketsHandler constructs handler. history may be nil.
func NewTicketsHandler(tickets TicketAdmin, history repository.HistoryStore) *TicketsHandler {
	return &TicketsHandler{service: tickets, history: history}
}

// ListTickets GET /tickets?status=open|closed.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	status := domain.TicketStatus(strings.ToLower(strings.TrimSpace(c.Query("status"))))
	tickets, err := h.service.List(c.UserContext(), status)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.NewTicketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketDetail(ticket)})
}

// TicketHistory GET /tickets/:id/history.
func (h *TicketsHandler) TicketHistory(c *fiber.Ctx) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	if _, err := h.service.Get(c.UserContext(), id); err != nil {
		return err
	}
	entries := []domain.HistoryEntry{}
	if h.history != nil {
		listed, err := h.history.ListByTicket(c.UserContext(), id)
		if err != nil {
			return err
		}
		entries = append(entries, listed...)
	}
	return c.JSON(fiber.Map{"data": entries})
}

// ClaimTicket POST /tickets/:id/claim.
func (h *TicketsHandler) ClaimTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.Claim(c.UserContext(), id, principal.Actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketDetail(ticket)})
}

// CloseTicket POST /tickets/:id/close.
func (h *TicketsHandler) CloseTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	var req dto.CloseTicketRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	result, err := h.service.Close(c.UserContext(), id, principal.Actor, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.CloseTicketResponse{
		Ticket:        dto.NewTicketDetail(result.Ticket),
		TranscriptURL: result.TranscriptURL,
		Digest:        result.Digest,
	}})
}

// Reattach POST /tickets/reattach.
func (h *TicketsHandler) Reattach(c *fiber.Ctx) error {
	report, err := h.service.Reattach(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": report})
}

func ticketID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid ticket id", map[string]any{"id": c.Params("id")})
	}
	return id, nil
}

package interactions

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticketdesk/internal/controls"
	"github.com/spec-kit/ticketdesk/internal/domain"
	"github.com/spec-kit/ticketdesk/internal/gateway"
	"github.com/spec-kit/ticketdesk/internal/gateway/gatewaytest"
	"github.com/spec-kit/ticketdesk/internal/service"
	apperrors "github.com/spec-kit/ticketdesk/pkg/util/errorutil"
)

type stubTickets struct {
	created   []domain.TicketKind
	intake    map[string]string
	claimed   []int64
	closed    []string
	createErr error
	claimErr  error
	closeURL  string
}

func (s *stubTickets) Create(_ context.Context, _ domain.Actor, kind domain.TicketKind, intake map[string]string) (*domain.Ticket, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created = append(s.created, kind)
	s.intake = intake
	return &domain.Ticket{ID: 1, ChannelRef: "chan-1", Kind: kind}, nil
}

func (s *stubTickets) Claim(_ context.Context, id int64, _ domain.Actor) (*domain.Ticket, error) {
	if s.claimErr != nil {
		return nil, s.claimErr
	}
	s.claimed = append(s.claimed, id)
	return &domain.Ticket{ID: id}, nil
}

func (s *stubTickets) Close(_ context.Context, id int64, _ domain.Actor, reason string) (*service.CloseResult, error) {
	s.closed = append(s.closed, reason)
	return &service.CloseResult{Ticket: &domain.Ticket{ID: id}, TranscriptURL: s.closeURL}, nil
}

func (s *stubTickets) Kinds() domain.KindCatalog { return domain.DefaultKindCatalog() }

func setup() (*stubTickets, *controls.Router) {
	tickets := &stubTickets{}
	router := controls.NewRouter(zap.NewNop())
	NewHandlers(tickets, zap.NewNop()).Register(router)
	return tickets, router
}

func dispatch(router *controls.Router, in gateway.Interaction) *gatewaytest.Responder {
	resp := &gatewaytest.Responder{}
	router.Dispatch(context.Background(), in, resp)
	return resp
}

func TestMenuCreatesSimpleKind(t *testing.T) {
	tickets, router := setup()
	resp := dispatch(router, gateway.Interaction{ControlID: controls.Menu(), Values: []string{"help_desk"}})

	assert.True(t, resp.Deferred())
	assert.Equal(t, []domain.TicketKind{domain.KindHelpDesk}, tickets.created)
	require.Len(t, resp.Followups(), 1)
	assert.Contains(t, resp.Followups()[0].Content, "<#chan-1>")
}

func TestMenuOpensIntakeForm(t *testing.T) {
	tickets, router := setup()
	resp := dispatch(router, gateway.Interaction{ControlID: controls.Menu(), Values: []string{"staff_application"}})

	assert.Empty(t, tickets.created)
	require.Len(t, resp.Forms(), 1)
	form := resp.Forms()[0]
	assert.Equal(t, controls.Intake(domain.KindStaffApplication), form.ID)
	assert.Equal(t, "Staff Application", form.Title)
	assert.Len(t, form.Fields, 5)
}

func TestMenuUnknownKind(t *testing.T) {
	tickets, router := setup()
	resp := dispatch(router, gateway.Interaction{ControlID: controls.Menu(), Values: []string{"mystery"}})
	assert.Empty(t, tickets.created)
	require.Len(t, resp.Replies(), 1)
}

func TestIntakeSubmission(t *testing.T) {
	tickets, router := setup()
	fields := map[string]string{"role": "mod"}
	dispatch(router, gateway.Interaction{
		Kind:      gateway.InteractionForm,
		ControlID: controls.Intake(domain.KindStaffApplication),
		Fields:    fields,
	})
	assert.Equal(t, []domain.TicketKind{domain.KindStaffApplication}, tickets.created)
	assert.Equal(t, fields, tickets.intake)
}

func TestCreateFailureIsReported(t *testing.T) {
	tickets, router := setup()
	tickets.createErr = apperrors.NewGatewayError("create channel", errors.New("boom"))
	resp := dispatch(router, gateway.Interaction{ControlID: controls.Menu(), Values: []string{"help_desk"}})
	require.Len(t, resp.Followups(), 1)
	assert.Equal(t, "Something went wrong, please try again later.", resp.Followups()[0].Content)
}

func TestClaim(t *testing.T) {
	tickets, router := setup()
	resp := dispatch(router, gateway.Interaction{ControlID: controls.Claim(4)})
	assert.Equal(t, []int64{4}, tickets.claimed)
	require.Len(t, resp.Replies(), 1)
	assert.True(t, resp.Replies()[0].Ephemeral)

	tickets.claimErr = apperrors.NewForbidden("only support staff can claim tickets")
	resp = dispatch(router, gateway.Interaction{ControlID: controls.Claim(4)})
	assert.Equal(t, "only support staff can claim tickets", resp.Replies()[0].Content)

	tickets.claimErr = apperrors.NewNotFound("open ticket", nil)
	resp = dispatch(router, gateway.Interaction{ControlID: controls.Claim(4)})
	assert.Contains(t, resp.Replies()[0].Content, "already closed")
}

func TestCloseOpensReasonFormThenCloses(t *testing.T) {
	tickets, router := setup()
	resp := dispatch(router, gateway.Interaction{ControlID: controls.Close(6)})
	require.Len(t, resp.Forms(), 1)
	form := resp.Forms()[0]
	assert.Equal(t, controls.Reason(6), form.ID)
	assert.Empty(t, tickets.closed)

	resp = dispatch(router, gateway.Interaction{
		Kind:      gateway.InteractionForm,
		ControlID: form.ID,
		Fields:    map[string]string{reasonField: "all sorted"},
	})
	assert.Equal(t, []string{"all sorted"}, tickets.closed)
	require.Len(t, resp.Followups(), 1)
	assert.Contains(t, resp.Followups()[0].Content, "could not be archived")
}

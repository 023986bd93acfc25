package controls

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticketdesk/internal/domain"
	"github.com/spec-kit/ticketdesk/internal/gateway"
	"github.com/spec-kit/ticketdesk/internal/gateway/gatewaytest"
)

func TestRoundTrip(t *testing.T) {
	cases := map[string]ID{
		"tk:claim:42":                 {Action: ActionClaim, TicketID: 42},
		"tk:close:7":                  {Action: ActionClose, TicketID: 7},
		"tk:reason:7":                 {Action: ActionReason, TicketID: 7},
		"tk:menu":                     {Action: ActionMenu},
		"tk:intake:staff_application": {Action: ActionIntake, Kind: domain.KindStaffApplication},
	}
	for raw, want := range cases {
		got, err := Parse(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got)
		assert.Equal(t, raw, got.String())
	}
}

func TestParseRejects(t *testing.T) {
	for _, raw := range []string{"", "claim:1", "tk", "tk:claim", "tk:claim:x", "tk:claim:0", "tk:open:1", "tk:intake:", "tk:menu:1"} {
		_, err := Parse(raw)
		assert.Error(t, err, raw)
	}
}

func TestForTicketIsPureFunctionOfID(t *testing.T) {
	assert.Equal(t, ForTicket(5), ForTicket(5))
	ids := []string{ForTicket(5)[0].ID, ForTicket(5)[1].ID}
	assert.Equal(t, []string{"tk:claim:5", "tk:close:5"}, ids)
}

func TestMenuSelect(t *testing.T) {
	menu := MenuSelect(domain.DefaultKindCatalog())
	assert.Equal(t, "tk:menu", menu.ID)
	assert.Equal(t, gateway.ControlSelect, menu.Kind)
	require.Len(t, menu.Options, 3)
	assert.Equal(t, string(domain.KindHelpDesk), menu.Options[0].Value)
}

func TestRouterDispatch(t *testing.T) {
	router := NewRouter(nil)
	var got ID
	router.Handle(ActionClaim, func(_ context.Context, id ID, _ gateway.Interaction, _ gateway.Responder) {
		got = id
	})

	resp := &gatewaytest.Responder{}
	assert.True(t, router.Dispatch(context.Background(), gateway.Interaction{ControlID: Claim(9)}, resp))
	assert.Equal(t, int64(9), got.TicketID)

	assert.False(t, router.Dispatch(context.Background(), gateway.Interaction{ControlID: Close(9)}, resp))
	assert.False(t, router.Dispatch(context.Background(), gateway.Interaction{ControlID: "other-bot:button"}, resp))
}

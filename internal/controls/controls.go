// Package controls encodes interactive control identifiers and routes
// activations to handlers.
package controls

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spec-kit/ticketdesk/internal/domain"
	"github.com/spec-kit/ticketdesk/internal/gateway"
)

const prefix = "tk"

// Action identifies what a control does.
type Action string

const (
	ActionClaim  Action = "claim"
	ActionClose  Action = "close"
	ActionReason Action = "reason"
	ActionMenu   Action = "menu"
	ActionIntake Action = "intake"
)

// ID is a parsed control identifier. TicketID is set for claim, close and
// reason; Kind for intake.
type ID struct {
	Action   Action
	TicketID int64
	Kind     domain.TicketKind
}

func (id ID) String() string {
	switch id.Action {
	case ActionClaim, ActionClose, ActionReason:
		return fmt.Sprintf("%s:%s:%d", prefix, id.Action, id.TicketID)
	case ActionIntake:
		return fmt.Sprintf("%s:%s:%s", prefix, id.Action, id.Kind)
	default:
		return fmt.Sprintf("%s:%s", prefix, id.Action)
	}
}

// Claim returns the claim button ID for a ticket.
func Claim(ticketID int64) string { return ID{Action: ActionClaim, TicketID: ticketID}.String() }

// Close returns the close button ID for a ticket.
func Close(ticketID int64) string { return ID{Action: ActionClose, TicketID: ticketID}.String() }

// Reason returns the close-reason form ID for a ticket.
func Reason(ticketID int64) string { return ID{Action: ActionReason, TicketID: ticketID}.String() }

// Menu returns the creation menu select ID.
func Menu() string { return ID{Action: ActionMenu}.String() }

// Intake returns the intake form ID for a kind.
func Intake(kind domain.TicketKind) string { return ID{Action: ActionIntake, Kind: kind}.String() }

// Parse decodes a control identifier.
func Parse(raw string) (ID, error) {
	parts := strings.Split(raw, ":")
	if len(parts) < 2 || parts[0] != prefix {
		return ID{}, fmt.Errorf("unknown control %q", raw)
	}
	id := ID{Action: Action(parts[1])}
	switch id.Action {
	case ActionClaim, ActionClose, ActionReason:
		if len(parts) != 3 {
			return ID{}, fmt.Errorf("control %q lacks a ticket id", raw)
		}
		n, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil || n <= 0 {
			return ID{}, fmt.Errorf("control %q has invalid ticket id", raw)
		}
		id.TicketID = n
	case ActionIntake:
		if len(parts) != 3 || parts[2] == "" {
			return ID{}, fmt.Errorf("control %q lacks a kind", raw)
		}
		id.Kind = domain.TicketKind(parts[2])
	case ActionMenu:
		if len(parts) != 2 {
			return ID{}, fmt.Errorf("unknown control %q", raw)
		}
	default:
		return ID{}, fmt.Errorf("unknown control action %q", parts[1])
	}
	return id, nil
}

// ForTicket returns the claim and close buttons bound to a ticket.
func ForTicket(ticketID int64) []gateway.Control {
	return []gateway.Control{
		{ID: Claim(ticketID), Kind: gateway.ControlButton, Label: "Claim", Emoji: "🙋", Style: gateway.StyleSuccess},
		{ID: Close(ticketID), Kind: gateway.ControlButton, Label: "Close", Emoji: "🔒", Style: gateway.StyleDanger},
	}
}

// MenuSelect returns the creation menu listing every kind of the catalog.
func MenuSelect(catalog domain.KindCatalog) gateway.Control {
	options := make([]gateway.SelectOption, 0, len(catalog.Kinds))
	for _, k := range catalog.Kinds {
		options = append(options, gateway.SelectOption{
			Label:       k.Label,
			Value:       string(k.Kind),
			Description: k.Description,
			Emoji:       k.Emoji,
		})
	}
	return gateway.Control{
		ID:          Menu(),
		Kind:        gateway.ControlSelect,
		Placeholder: "Select a ticket type",
		Options:     options,
	}
}

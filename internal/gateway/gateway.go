// Package gateway describes the chat platform operations the ticket workflow
// depends on. References are opaque platform identifiers.
package gateway

import (
	"context"

	"github.com/spec-kit/ticketdesk/internal/domain"
)

// Gateway is the chat platform seen by the ticket manager.
type Gateway interface {
	// CreatePrivateChannel creates a text channel under categoryRef that only
	// creatorRef and members of supportRoleRef can see.
	CreatePrivateChannel(ctx context.Context, name, creatorRef, supportRoleRef, categoryRef string) (string, error)
	DeleteChannel(ctx context.Context, channelRef string) error
	SendMessage(ctx context.Context, channelRef string, msg OutgoingMessage) (string, error)
	EditMessage(ctx context.Context, channelRef, messageRef string, msg OutgoingMessage) error
	FetchMessage(ctx context.Context, channelRef, messageRef string) (*domain.Message, error)
	// FetchHistory returns the full channel history, oldest first.
	FetchHistory(ctx context.Context, channelRef string) ([]domain.Message, error)
	// RegisterControls binds controls to an existing message so their
	// activations are routed again. It never posts a new message.
	RegisterControls(ctx context.Context, channelRef, messageRef string, controls []Control) error
}

// ControlKind distinguishes buttons from select menus.
type ControlKind int

const (
	ControlButton ControlKind = iota
	ControlSelect
)

// ControlStyle is the visual weight of a button.
type ControlStyle int

const (
	StylePrimary ControlStyle = iota
	StyleSecondary
	StyleSuccess
	StyleDanger
)

// Control is an interactive element attached to a message.
type Control struct {
	ID          string
	Kind        ControlKind
	Label       string
	Emoji       string
	Style       ControlStyle
	Placeholder string
	Options     []SelectOption
}

// SelectOption is one entry of a select-menu control.
type SelectOption struct {
	Label       string
	Value       string
	Description string
	Emoji       string
}

// EmbedField is a name/value line in an embed.
type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// Embed is a rich message block.
type Embed struct {
	Title       string
	Description string
	Color       int
	Fields      []EmbedField
	Footer      string
}

// OutgoingMessage is the payload for SendMessage and EditMessage.
type OutgoingMessage struct {
	Content  string
	Embeds   []Embed
	Controls []Control
}

// InteractionKind tells a control activation from a form submission.
type InteractionKind int

const (
	InteractionComponent InteractionKind = iota
	InteractionForm
)

// Interaction is a user activating a control or submitting a form.
type Interaction struct {
	Kind       InteractionKind
	ControlID  string
	Values     []string
	Fields     map[string]string
	ChannelRef string
	Actor      domain.Actor
}

// FormField is a text input of a form.
type FormField struct {
	ID          string
	Label       string
	Placeholder string
	Long        bool
	Required    bool
	MaxLength   int
}

// Form is a modal dialog shown in response to an interaction.
type Form struct {
	ID     string
	Title  string
	Fields []FormField
}

// Responder answers a single interaction.
type Responder interface {
	Reply(ctx context.Context, content string, ephemeral bool) error
	Defer(ctx context.Context, ephemeral bool) error
	// Followup sends a message after Defer.
	Followup(ctx context.Context, content string, ephemeral bool) error
	OpenForm(ctx context.Context, form Form) error
}

// InteractionHandler processes one interaction.
type InteractionHandler func(ctx context.Context, in Interaction, resp Responder)

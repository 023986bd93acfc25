// Package discord implements gateway.Gateway on a discordgo session.
package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/spec-kit/ticketdesk/internal/domain"
	"github.com/spec-kit/ticketdesk/internal/gateway"
	apperrors "github.com/spec-kit/ticketdesk/pkg/util/errorutil"
)

const historyPageSize = 100

const memberPermissions = discordgo.PermissionViewChannel |
	discordgo.PermissionSendMessages |
	discordgo.PermissionReadMessageHistory |
	discordgo.PermissionAttachFiles |
	discordgo.PermissionEmbedLinks

// Gateway talks to one guild through a bot session.
type Gateway struct {
	session *discordgo.Session
	guildID string
	logger  *zap.Logger
}

var _ gateway.Gateway = (*Gateway)(nil)

// New creates a session for the bot token. Call Open to connect.
func New(token, guildID string, logger *zap.Logger) (*Gateway, error) {
	if token == "" {
		return nil, errors.New("discord token is required")
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent
	return &Gateway{session: session, guildID: guildID, logger: logger}, nil
}

// Open connects to the gateway websocket.
func (g *Gateway) Open() error {
	if err := g.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	g.logger.Info("discord session opened", zap.String("guild", g.guildID))
	return nil
}

// Close disconnects the session.
func (g *Gateway) Close() error {
	return g.session.Close()
}

// OnReady runs fn each time the session (re)connects.
func (g *Gateway) OnReady(fn func(ctx context.Context)) {
	g.session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		g.logger.Info("discord session ready", zap.String("user", r.User.Username))
		fn(context.Background())
	})
}

// OnInteraction routes component activations and form submissions to handler.
// discordgo runs every event handler on its own goroutine.
func (g *Gateway) OnInteraction(handler gateway.InteractionHandler) {
	g.session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		in, ok := toInteraction(i)
		if !ok {
			return
		}
		handler(context.Background(), in, &responder{session: s, interaction: i.Interaction})
	})
}

func (g *Gateway) CreatePrivateChannel(ctx context.Context, name, creatorRef, supportRoleRef, categoryRef string) (string, error) {
	overwrites := []*discordgo.PermissionOverwrite{
		{ID: g.guildID, Type: discordgo.PermissionOverwriteTypeRole, Deny: discordgo.PermissionViewChannel},
		{ID: creatorRef, Type: discordgo.PermissionOverwriteTypeMember, Allow: memberPermissions},
	}
	if supportRoleRef != "" {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID: supportRoleRef, Type: discordgo.PermissionOverwriteTypeRole, Allow: memberPermissions,
		})
	}
	ch, err := g.session.GuildChannelCreateComplex(g.guildID, discordgo.GuildChannelCreateData{
		Name:                 name,
		Type:                 discordgo.ChannelTypeGuildText,
		ParentID:             categoryRef,
		PermissionOverwrites: overwrites,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", mapError("create channel", err)
	}
	return ch.ID, nil
}

func (g *Gateway) DeleteChannel(ctx context.Context, channelRef string) error {
	if _, err := g.session.ChannelDelete(channelRef, discordgo.WithContext(ctx)); err != nil {
		return mapError("delete channel", err)
	}
	return nil
}

func (g *Gateway) SendMessage(ctx context.Context, channelRef string, msg gateway.OutgoingMessage) (string, error) {
	sent, err := g.session.ChannelMessageSendComplex(channelRef, &discordgo.MessageSend{
		Content:    msg.Content,
		Embeds:     toEmbeds(msg.Embeds),
		Components: toComponents(msg.Controls),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", mapError("send message", err)
	}
	return sent.ID, nil
}

func (g *Gateway) EditMessage(ctx context.Context, channelRef, messageRef string, msg gateway.OutgoingMessage) error {
	edit := discordgo.NewMessageEdit(channelRef, messageRef)
	content := msg.Content
	embeds := toEmbeds(msg.Embeds)
	components := toComponents(msg.Controls)
	edit.Content = &content
	edit.Embeds = &embeds
	edit.Components = &components
	if _, err := g.session.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx)); err != nil {
		return mapError("edit message", err)
	}
	return nil
}

func (g *Gateway) FetchMessage(ctx context.Context, channelRef, messageRef string) (*domain.Message, error) {
	m, err := g.session.ChannelMessage(channelRef, messageRef, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapError("fetch message", err)
	}
	msg := toMessage(m)
	return &msg, nil
}

func (g *Gateway) FetchHistory(ctx context.Context, channelRef string) ([]domain.Message, error) {
	var (
		out    []domain.Message
		before string
	)
	for {
		page, err := g.session.ChannelMessages(channelRef, historyPageSize, before, "", "", discordgo.WithContext(ctx))
		if err != nil {
			return nil, mapError("fetch history", err)
		}
		for _, m := range page {
			out = append(out, toMessage(m))
		}
		if len(page) < historyPageSize {
			break
		}
		before = page[len(page)-1].ID
	}
	// Pages arrive newest first.
	slices.Reverse(out)
	if out == nil {
		out = []domain.Message{}
	}
	return out, nil
}

// RegisterControls rewrites the message's components with the current
// control IDs so activations reach this process's router.
func (g *Gateway) RegisterControls(ctx context.Context, channelRef, messageRef string, controls []gateway.Control) error {
	edit := discordgo.NewMessageEdit(channelRef, messageRef)
	components := toComponents(controls)
	edit.Components = &components
	if _, err := g.session.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx)); err != nil {
		return mapError("register controls", err)
	}
	return nil
}

func mapError(op string, err error) error {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
		return apperrors.NewNotFound("discord resource", map[string]any{"operation": op})
	}
	return apperrors.NewGatewayError(op, err)
}

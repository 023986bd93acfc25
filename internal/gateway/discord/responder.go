package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/spec-kit/ticketdesk/internal/gateway"
)

type responder struct {
	session     *discordgo.Session
	interaction *discordgo.Interaction
}

func flags(ephemeral bool) discordgo.MessageFlags {
	if ephemeral {
		return discordgo.MessageFlagsEphemeral
	}
	return 0
}

func (r *responder) Reply(ctx context.Context, content string, ephemeral bool) error {
	err := r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content, Flags: flags(ephemeral)},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return mapError("interaction reply", err)
	}
	return nil
}

func (r *responder) Defer(ctx context.Context, ephemeral bool) error {
	err := r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: flags(ephemeral)},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return mapError("interaction defer", err)
	}
	return nil
}

func (r *responder) Followup(ctx context.Context, content string, ephemeral bool) error {
	_, err := r.session.FollowupMessageCreate(r.interaction, true, &discordgo.WebhookParams{
		Content: content,
		Flags:   flags(ephemeral),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return mapError("interaction followup", err)
	}
	return nil
}

func (r *responder) OpenForm(ctx context.Context, form gateway.Form) error {
	err := r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: toModal(form),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return mapError("open form", err)
	}
	return nil
}

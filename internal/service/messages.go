package service

import (
	"fmt"

	"github.com/spec-kit/ticketdesk/internal/controls"
	"github.com/spec-kit/ticketdesk/internal/domain"
	"github.com/spec-kit/ticketdesk/internal/gateway"
)

const (
	colorOpen   = 0x5865F2
	colorClaim  = 0x57F287
	colorClosed = 0xED4245
)

func mention(userRef string) string {
	if userRef == "" {
		return "nobody"
	}
	return fmt.Sprintf("<@%s>", userRef)
}

func welcomeMessage(ticket *domain.Ticket, def domain.KindDefinition, supportRoleRef string) gateway.OutgoingMessage {
	content := mention(ticket.CreatorRef)
	if supportRoleRef != "" {
		content += fmt.Sprintf(" <@&%s>", supportRoleRef)
	}
	embed := gateway.Embed{
		Title:       fmt.Sprintf("%s %s #%d", def.Emoji, def.Label, ticket.ID),
		Description: "Thanks for reaching out. A member of staff will be with you shortly.",
		Color:       colorOpen,
	}
	for _, f := range def.Fields {
		if answer, ok := ticket.IntakeData[f.Key]; ok {
			embed.Fields = append(embed.Fields, gateway.EmbedField{Name: f.Label, Value: answer})
		}
	}
	return gateway.OutgoingMessage{
		Content:  content,
		Embeds:   []gateway.Embed{embed},
		Controls: controls.ForTicket(ticket.ID),
	}
}

func claimNotice(ticket *domain.Ticket, staff domain.Actor) gateway.OutgoingMessage {
	return gateway.OutgoingMessage{Embeds: []gateway.Embed{{
		Description: fmt.Sprintf("🙋 Ticket #%d claimed by %s", ticket.ID, mention(staff.UserRef)),
		Color:       colorClaim,
	}}}
}

func closureSummary(ticket *domain.Ticket, transcriptURL, digest string) gateway.OutgoingMessage {
	embed := gateway.Embed{
		Title: fmt.Sprintf("Ticket #%d closed", ticket.ID),
		Color: colorClosed,
		Fields: []gateway.EmbedField{
			{Name: "Kind", Value: string(ticket.Kind), Inline: true},
			{Name: "Opened by", Value: mention(ticket.CreatorRef), Inline: true},
		},
	}
	if ticket.ClosedBy != nil {
		embed.Fields = append(embed.Fields, gateway.EmbedField{Name: "Closed by", Value: mention(*ticket.ClosedBy), Inline: true})
	}
	claimedBy := ""
	if ticket.ClaimedBy != nil {
		claimedBy = *ticket.ClaimedBy
	}
	embed.Fields = append(embed.Fields, gateway.EmbedField{Name: "Claimed by", Value: mention(claimedBy), Inline: true})
	if ticket.CloseReason != nil {
		embed.Fields = append(embed.Fields, gateway.EmbedField{Name: "Reason", Value: *ticket.CloseReason})
	}
	if transcriptURL != "" {
		embed.Fields = append(embed.Fields, gateway.EmbedField{Name: "Transcript", Value: transcriptURL})
	} else {
		embed.Fields = append(embed.Fields, gateway.EmbedField{Name: "Transcript", Value: transcriptUnavailable})
	}
	if digest != "" {
		embed.Footer = "blake3 " + digest
	}
	return gateway.OutgoingMessage{Embeds: []gateway.Embed{embed}}
}

func menuMessage(catalog domain.KindCatalog) gateway.OutgoingMessage {
	return gateway.OutgoingMessage{
		Embeds: []gateway.Embed{{
			Title:       "Open a ticket",
			Description: "Pick the kind of ticket you need from the menu below.",
			Color:       colorOpen,
		}},
		Controls: []gateway.Control{controls.MenuSelect(catalog)},
	}
}

const transcriptUnavailable = "transcript unavailable"

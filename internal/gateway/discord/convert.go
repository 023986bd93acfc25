package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/spec-kit/ticketdesk/internal/domain"
	"github.com/spec-kit/ticketdesk/internal/gateway"
)

const maxButtonsPerRow = 5

var buttonStyles = map[gateway.ControlStyle]discordgo.ButtonStyle{
	gateway.StylePrimary:   discordgo.PrimaryButton,
	gateway.StyleSecondary: discordgo.SecondaryButton,
	gateway.StyleSuccess:   discordgo.SuccessButton,
	gateway.StyleDanger:    discordgo.DangerButton,
}

func emoji(name string) *discordgo.ComponentEmoji {
	if name == "" {
		return nil
	}
	return &discordgo.ComponentEmoji{Name: name}
}

// toComponents lays buttons out in rows of five; each select menu takes a row.
func toComponents(controls []gateway.Control) []discordgo.MessageComponent {
	rows := []discordgo.MessageComponent{}
	var buttons []discordgo.MessageComponent
	flush := func() {
		if len(buttons) > 0 {
			rows = append(rows, discordgo.ActionsRow{Components: buttons})
			buttons = nil
		}
	}
	for _, c := range controls {
		switch c.Kind {
		case gateway.ControlSelect:
			flush()
			options := make([]discordgo.SelectMenuOption, 0, len(c.Options))
			for _, o := range c.Options {
				options = append(options, discordgo.SelectMenuOption{
					Label:       o.Label,
					Value:       o.Value,
					Description: o.Description,
					Emoji:       emoji(o.Emoji),
				})
			}
			rows = append(rows, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.SelectMenu{
					MenuType:    discordgo.StringSelectMenu,
					CustomID:    c.ID,
					Placeholder: c.Placeholder,
					Options:     options,
				},
			}})
		default:
			if len(buttons) == maxButtonsPerRow {
				flush()
			}
			buttons = append(buttons, discordgo.Button{
				Label:    c.Label,
				Style:    buttonStyles[c.Style],
				CustomID: c.ID,
				Emoji:    emoji(c.Emoji),
			})
		}
	}
	flush()
	return rows
}

func toEmbeds(embeds []gateway.Embed) []*discordgo.MessageEmbed {
	out := make([]*discordgo.MessageEmbed, 0, len(embeds))
	for _, e := range embeds {
		me := &discordgo.MessageEmbed{
			Title:       e.Title,
			Description: e.Description,
			Color:       e.Color,
		}
		for _, f := range e.Fields {
			me.Fields = append(me.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
		}
		if e.Footer != "" {
			me.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer}
		}
		out = append(out, me)
	}
	return out
}

func displayName(u *discordgo.User) string {
	if u == nil {
		return ""
	}
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

func toMessage(m *discordgo.Message) domain.Message {
	msg := domain.Message{
		ID:        m.ID,
		Content:   m.Content,
		Timestamp: m.Timestamp,
	}
	if m.Author != nil {
		msg.AuthorRef = m.Author.ID
		msg.AuthorName = displayName(m.Author)
		msg.Bot = m.Author.Bot
	}
	for _, a := range m.Attachments {
		msg.Attachments = append(msg.Attachments, domain.Attachment{FileName: a.Filename, URL: a.URL})
	}
	for _, e := range m.Embeds {
		msg.Embeds = append(msg.Embeds, domain.Embed{Title: e.Title, Description: e.Description})
	}
	if len(m.Mentions) > 0 {
		msg.Mentions = make(map[string]string, len(m.Mentions))
		for _, u := range m.Mentions {
			msg.Mentions[u.ID] = displayName(u)
		}
	}
	return msg
}

func toActor(i *discordgo.InteractionCreate) domain.Actor {
	if i.Member != nil {
		actor := domain.Actor{RoleRefs: i.Member.Roles}
		if i.Member.User != nil {
			actor.UserRef = i.Member.User.ID
			actor.DisplayName = displayName(i.Member.User)
		}
		if i.Member.Nick != "" {
			actor.DisplayName = i.Member.Nick
		}
		return actor
	}
	if i.User != nil {
		return domain.Actor{UserRef: i.User.ID, DisplayName: displayName(i.User)}
	}
	return domain.Actor{}
}

func toInteraction(i *discordgo.InteractionCreate) (gateway.Interaction, bool) {
	in := gateway.Interaction{ChannelRef: i.ChannelID, Actor: toActor(i)}
	switch i.Type {
	case discordgo.InteractionMessageComponent:
		data := i.MessageComponentData()
		in.Kind = gateway.InteractionComponent
		in.ControlID = data.CustomID
		in.Values = data.Values
	case discordgo.InteractionModalSubmit:
		data := i.ModalSubmitData()
		in.Kind = gateway.InteractionForm
		in.ControlID = data.CustomID
		in.Fields = formValues(data.Components)
	default:
		return gateway.Interaction{}, false
	}
	return in, true
}

func formValues(components []discordgo.MessageComponent) map[string]string {
	values := make(map[string]string)
	for _, c := range components {
		row, ok := c.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, rc := range row.Components {
			if input, ok := rc.(*discordgo.TextInput); ok {
				values[input.CustomID] = input.Value
			}
		}
	}
	return values
}

func toModal(form gateway.Form) *discordgo.InteractionResponseData {
	rows := make([]discordgo.MessageComponent, 0, len(form.Fields))
	for _, f := range form.Fields {
		style := discordgo.TextInputShort
		if f.Long {
			style = discordgo.TextInputParagraph
		}
		rows = append(rows, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.TextInput{
				CustomID:    f.ID,
				Label:       f.Label,
				Style:       style,
				Placeholder: f.Placeholder,
				Required:    f.Required,
				MaxLength:   f.MaxLength,
			},
		}})
	}
	return &discordgo.InteractionResponseData{
		CustomID:   form.ID,
		Title:      form.Title,
		Components: rows,
	}
}

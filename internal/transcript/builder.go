package transcript

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/zeebo/blake3"

	"github.com/spec-kit/ticketdesk/internal/domain"
)

// ContentType of every rendered transcript.
const ContentType = "text/html; charset=utf-8"

const timeLayout = "2006-01-02 15:04:05 UTC"

// Document is a rendered, markup-free transcript ready for archival.
type Document struct {
	TicketID    int64
	FileName    string
	ContentType string
	Body        []byte
	// Digest is the hex BLAKE3-256 of Body, posted with the closure summary.
	Digest string
}

// Header carries the ticket facts printed above the conversation.
type Header struct {
	TicketID    int64
	Kind        domain.TicketKind
	CreatorRef  string
	OpenedAt    time.Time
	ClaimedBy   string
	ClosedBy    string
	ClosedAt    time.Time
	CloseReason string
	IntakeData  map[string]string
}

// HeaderFor extracts the header fields from a ticket record.
func HeaderFor(t *domain.Ticket) Header {
	h := Header{
		TicketID:   t.ID,
		Kind:       t.Kind,
		CreatorRef: t.CreatorRef,
		OpenedAt:   t.CreatedAt,
		IntakeData: t.IntakeData,
	}
	if t.ClaimedBy != nil {
		h.ClaimedBy = *t.ClaimedBy
	}
	if t.ClosedBy != nil {
		h.ClosedBy = *t.ClosedBy
	}
	if t.ClosedAt != nil {
		h.ClosedAt = *t.ClosedAt
	}
	if t.CloseReason != nil {
		h.CloseReason = *t.CloseReason
	}
	return h
}

// Builder renders channel histories into transcripts. Safe for concurrent use.
type Builder struct {
	markdown goldmark.Markdown
	page     *template.Template
}

// NewBuilder prepares the markdown renderer and page template.
func NewBuilder() *Builder {
	return &Builder{
		markdown: newMarkdown(),
		page: template.Must(template.New("transcript").Funcs(template.FuncMap{
			"name": displayName,
			"time": formatTime,
		}).Parse(pageTemplate)),
	}
}

type pageData struct {
	Header   Header
	Names    map[string]string
	Fields   []intakeRow
	Messages []messageView
}

type intakeRow struct {
	Key   string
	Value string
}

type messageView struct {
	Author      string
	Bot         bool
	Timestamp   string
	Body        template.HTML
	Attachments []domain.Attachment
	Embeds      []domain.Embed
}

// Render builds the transcript for messages, which must be oldest first.
// A nil messages slice means the backing channel is gone and yields a nil
// document; an empty non-nil slice renders a transcript with no messages.
func (b *Builder) Render(header Header, messages []domain.Message, mentions map[string]string) (*Document, error) {
	if messages == nil {
		return nil, nil
	}

	names := make(map[string]string, len(mentions))
	for id, name := range mentions {
		names[id] = name
	}
	for _, msg := range messages {
		for id, name := range msg.Mentions {
			if _, ok := names[id]; !ok {
				names[id] = name
			}
		}
		if msg.AuthorRef != "" && msg.AuthorName != "" {
			if _, ok := names[msg.AuthorRef]; !ok {
				names[msg.AuthorRef] = msg.AuthorName
			}
		}
	}

	data := pageData{
		Header:   header,
		Names:    names,
		Fields:   sortedIntake(header.IntakeData),
		Messages: make([]messageView, 0, len(messages)),
	}
	for _, msg := range messages {
		body, err := b.renderContent(NormalizeMentions(msg.Content, names))
		if err != nil {
			return nil, fmt.Errorf("render message %s: %w", msg.ID, err)
		}
		embeds := make([]domain.Embed, 0, len(msg.Embeds))
		for _, e := range msg.Embeds {
			embeds = append(embeds, domain.Embed{
				Title:       NormalizeMentions(e.Title, names),
				Description: NormalizeMentions(e.Description, names),
			})
		}
		data.Messages = append(data.Messages, messageView{
			Author:      msg.AuthorName,
			Bot:         msg.Bot,
			Timestamp:   msg.Timestamp.UTC().Format(timeLayout),
			Body:        body,
			Attachments: msg.Attachments,
			Embeds:      embeds,
		})
	}

	var buf bytes.Buffer
	if err := b.page.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute transcript template: %w", err)
	}
	body := buf.Bytes()
	sum := blake3.Sum256(body)
	return &Document{
		TicketID:    header.TicketID,
		FileName:    fmt.Sprintf("%d.html", header.TicketID),
		ContentType: ContentType,
		Body:        body,
		Digest:      hex.EncodeToString(sum[:]),
	}, nil
}

func (b *Builder) renderContent(content string) (template.HTML, error) {
	if strings.TrimSpace(content) == "" {
		return "", nil
	}
	var buf bytes.Buffer
	// Raw HTML is kept as escaped text by literalHTML.
	if err := b.markdown.Convert([]byte(content), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil //nolint:gosec
}

func sortedIntake(data map[string]string) []intakeRow {
	rows := make([]intakeRow, 0, len(data))
	for k, v := range data {
		rows = append(rows, intakeRow{Key: k, Value: v})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })
	return rows
}

func displayName(names map[string]string, ref string) string {
	if name, ok := names[ref]; ok && name != "" {
		return name
	}
	return ref
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

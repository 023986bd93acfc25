package domain

import "time"

// Message is one entry of a channel history as seen by the transcript builder.
type Message struct {
	ID          string
	AuthorRef   string
	AuthorName  string
	Bot         bool
	Content     string
	Timestamp   time.Time
	Attachments []Attachment
	Embeds      []Embed
	// Mentions maps user refs mentioned in Content to display names.
	Mentions map[string]string
}

// Attachment is a file posted alongside a message.
type Attachment struct {
	FileName string
	URL      string
}

// Embed is the displayable part of a rich message.
type Embed struct {
	Title       string
	Description string
}

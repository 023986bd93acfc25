// Package gatewaytest provides an in-memory gateway for tests.
package gatewaytest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spec-kit/ticketdesk/internal/domain"
	"github.com/spec-kit/ticketdesk/internal/gateway"
	apperrors "github.com/spec-kit/ticketdesk/pkg/util/errorutil"
)

// Op names a gateway operation for failure injection.
type Op string

const (
	OpCreateChannel Op = "create_channel"
	OpDeleteChannel Op = "delete_channel"
	OpSendMessage   Op = "send_message"
	OpEditMessage   Op = "edit_message"
	OpFetchMessage  Op = "fetch_message"
	OpFetchHistory  Op = "fetch_history"
	OpRegister      Op = "register_controls"
)

// BotRef is the author ref of messages sent through the fake.
const BotRef = "bot"

// CreatedChannel records a CreatePrivateChannel call.
type CreatedChannel struct {
	Ref            string
	Name           string
	CreatorRef     string
	SupportRoleRef string
	CategoryRef    string
}

// SentMessage records a SendMessage or EditMessage call.
type SentMessage struct {
	ChannelRef string
	MessageRef string
	Message    gateway.OutgoingMessage
}

// Registration records a RegisterControls call.
type Registration struct {
	ChannelRef string
	MessageRef string
	Controls   []gateway.Control
}

type channel struct {
	history []domain.Message
}

// Fake is a concurrency-safe gateway.Gateway backed by maps.
type Fake struct {
	mu            sync.Mutex
	seq           int
	clock         time.Time
	channels      map[string]*channel
	created       []CreatedChannel
	sent          []SentMessage
	edits         []SentMessage
	deleted       []string
	registrations []Registration
	failures      map[Op]error
}

var _ gateway.Gateway = (*Fake)(nil)

// New returns an empty fake.
func New() *Fake {
	return &Fake{
		clock:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		channels: make(map[string]*channel),
		failures: make(map[Op]error),
	}
}

// Fail makes every call of op return err until cleared with a nil err.
func (f *Fake) Fail(op Op, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failures, op)
		return
	}
	f.failures[op] = err
}

func (f *Fake) failure(op Op) error {
	return f.failures[op]
}

func (f *Fake) nextRef(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s%d", prefix, f.seq)
}

func (f *Fake) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func channelMissing(ref string) error {
	return apperrors.NewNotFound("channel", map[string]any{"channel": ref})
}

func messageMissing(ref string) error {
	return apperrors.NewNotFound("message", map[string]any{"message": ref})
}

// CreatePrivateChannel implements gateway.Gateway.
func (f *Fake) CreatePrivateChannel(_ context.Context, name, creatorRef, supportRoleRef, categoryRef string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure(OpCreateChannel); err != nil {
		return "", err
	}
	ref := f.nextRef("chan-")
	f.channels[ref] = &channel{}
	f.created = append(f.created, CreatedChannel{
		Ref:            ref,
		Name:           name,
		CreatorRef:     creatorRef,
		SupportRoleRef: supportRoleRef,
		CategoryRef:    categoryRef,
	})
	return ref, nil
}

// DeleteChannel implements gateway.Gateway.
func (f *Fake) DeleteChannel(_ context.Context, channelRef string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure(OpDeleteChannel); err != nil {
		return err
	}
	if _, ok := f.channels[channelRef]; !ok {
		return channelMissing(channelRef)
	}
	delete(f.channels, channelRef)
	f.deleted = append(f.deleted, channelRef)
	return nil
}

// SendMessage implements gateway.Gateway.
func (f *Fake) SendMessage(_ context.Context, channelRef string, msg gateway.OutgoingMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure(OpSendMessage); err != nil {
		return "", err
	}
	ch, ok := f.channels[channelRef]
	if !ok {
		return "", channelMissing(channelRef)
	}
	ref := f.nextRef("msg-")
	ch.history = append(ch.history, domain.Message{
		ID:         ref,
		AuthorRef:  BotRef,
		AuthorName: "Ticket Bot",
		Bot:        true,
		Content:    flatten(msg),
		Timestamp:  f.tick(),
	})
	f.sent = append(f.sent, SentMessage{ChannelRef: channelRef, MessageRef: ref, Message: msg})
	return ref, nil
}

// EditMessage implements gateway.Gateway.
func (f *Fake) EditMessage(_ context.Context, channelRef, messageRef string, msg gateway.OutgoingMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure(OpEditMessage); err != nil {
		return err
	}
	idx, err := f.find(channelRef, messageRef)
	if err != nil {
		return err
	}
	f.channels[channelRef].history[idx].Content = flatten(msg)
	f.edits = append(f.edits, SentMessage{ChannelRef: channelRef, MessageRef: messageRef, Message: msg})
	return nil
}

// FetchMessage implements gateway.Gateway.
func (f *Fake) FetchMessage(_ context.Context, channelRef, messageRef string) (*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure(OpFetchMessage); err != nil {
		return nil, err
	}
	idx, err := f.find(channelRef, messageRef)
	if err != nil {
		return nil, err
	}
	msg := f.channels[channelRef].history[idx]
	return &msg, nil
}

// FetchHistory implements gateway.Gateway.
func (f *Fake) FetchHistory(_ context.Context, channelRef string) ([]domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure(OpFetchHistory); err != nil {
		return nil, err
	}
	ch, ok := f.channels[channelRef]
	if !ok {
		return nil, channelMissing(channelRef)
	}
	out := make([]domain.Message, len(ch.history))
	copy(out, ch.history)
	return out, nil
}

// RegisterControls implements gateway.Gateway.
func (f *Fake) RegisterControls(_ context.Context, channelRef, messageRef string, controls []gateway.Control) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure(OpRegister); err != nil {
		return err
	}
	if _, err := f.find(channelRef, messageRef); err != nil {
		return err
	}
	f.registrations = append(f.registrations, Registration{
		ChannelRef: channelRef,
		MessageRef: messageRef,
		Controls:   append([]gateway.Control(nil), controls...),
	})
	return nil
}

func (f *Fake) find(channelRef, messageRef string) (int, error) {
	ch, ok := f.channels[channelRef]
	if !ok {
		return 0, channelMissing(channelRef)
	}
	for i, m := range ch.history {
		if m.ID == messageRef {
			return i, nil
		}
	}
	return 0, messageMissing(messageRef)
}

// AddChannel creates a channel outside the ticket flow, such as a staff log.
func (f *Fake) AddChannel(ref string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.channels[ref]; !ok {
		f.channels[ref] = &channel{}
	}
}

// Post appends a user message to a channel's history and returns its ref.
func (f *Fake) Post(channelRef string, msg domain.Message) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[channelRef]
	if !ok {
		return ""
	}
	if msg.ID == "" {
		msg.ID = f.nextRef("msg-")
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = f.tick()
	}
	ch.history = append(ch.history, msg)
	return msg.ID
}

// RemoveChannel deletes a channel as if an administrator had done it by hand.
func (f *Fake) RemoveChannel(ref string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.channels, ref)
}

// RemoveMessage deletes a single message.
func (f *Fake) RemoveMessage(channelRef, messageRef string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx, err := f.find(channelRef, messageRef)
	if err != nil {
		return
	}
	ch := f.channels[channelRef]
	ch.history = append(ch.history[:idx], ch.history[idx+1:]...)
}

// HasChannel reports whether the channel exists.
func (f *Fake) HasChannel(ref string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.channels[ref]
	return ok
}

// Created returns the recorded channel creations.
func (f *Fake) Created() []CreatedChannel {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]CreatedChannel(nil), f.created...)
}

// Sent returns every message sent, optionally filtered by channel.
func (f *Fake) Sent(channelRef string) []SentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []SentMessage
	for _, s := range f.sent {
		if channelRef == "" || s.ChannelRef == channelRef {
			out = append(out, s)
		}
	}
	return out
}

// Edits returns the recorded message edits.
func (f *Fake) Edits() []SentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SentMessage(nil), f.edits...)
}

// Deleted returns the channels deleted through the gateway.
func (f *Fake) Deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

// Registrations returns the recorded control registrations.
func (f *Fake) Registrations() []Registration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Registration(nil), f.registrations...)
}

func flatten(msg gateway.OutgoingMessage) string {
	parts := []string{}
	if msg.Content != "" {
		parts = append(parts, msg.Content)
	}
	for _, e := range msg.Embeds {
		if e.Title != "" {
			parts = append(parts, e.Title)
		}
		if e.Description != "" {
			parts = append(parts, e.Description)
		}
		for _, field := range e.Fields {
			parts = append(parts, field.Name+": "+field.Value)
		}
	}
	return strings.Join(parts, "\n")
}

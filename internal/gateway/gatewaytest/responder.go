package gatewaytest

import (
	"context"
	"sync"

	"github.com/spec-kit/ticketdesk/internal/gateway"
)

// Reply is a recorded response message.
type Reply struct {
	Content   string
	Ephemeral bool
}

// Responder records how an interaction was answered.
type Responder struct {
	mu        sync.Mutex
	replies   []Reply
	followups []Reply
	forms     []gateway.Form
	deferred  bool
}

var _ gateway.Responder = (*Responder)(nil)

// Reply implements gateway.Responder.
func (r *Responder) Reply(_ context.Context, content string, ephemeral bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies = append(r.replies, Reply{Content: content, Ephemeral: ephemeral})
	return nil
}

// Defer implements gateway.Responder.
func (r *Responder) Defer(context.Context, bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deferred = true
	return nil
}

// Followup implements gateway.Responder.
func (r *Responder) Followup(_ context.Context, content string, ephemeral bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.followups = append(r.followups, Reply{Content: content, Ephemeral: ephemeral})
	return nil
}

// OpenForm implements gateway.Responder.
func (r *Responder) OpenForm(_ context.Context, form gateway.Form) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forms = append(r.forms, form)
	return nil
}

// Replies returns immediate replies.
func (r *Responder) Replies() []Reply {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Reply(nil), r.replies...)
}

// Followups returns messages sent after a deferral.
func (r *Responder) Followups() []Reply {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Reply(nil), r.followups...)
}

// Forms returns the forms opened.
func (r *Responder) Forms() []gateway.Form {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]gateway.Form(nil), r.forms...)
}

// Deferred reports whether the interaction was acknowledged without a reply.
func (r *Responder) Deferred() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deferred
}

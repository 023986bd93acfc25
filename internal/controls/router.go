package controls

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/ticketdesk/internal/gateway"
)

// Handler processes an interaction whose control ID has been parsed.
type Handler func(ctx context.Context, id ID, in gateway.Interaction, resp gateway.Responder)

// Router dispatches interactions by control action.
type Router struct {
	mu       sync.RWMutex
	handlers map[Action]Handler
	logger   *zap.Logger
}

// NewRouter returns an empty router.
func NewRouter(logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{handlers: make(map[Action]Handler), logger: logger}
}

// Handle registers h for action, replacing any previous handler.
func (r *Router) Handle(action Action, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[action] = h
}

// Dispatch is a gateway.InteractionHandler. It returns whether a handler ran.
func (r *Router) Dispatch(ctx context.Context, in gateway.Interaction, resp gateway.Responder) bool {
	id, err := Parse(in.ControlID)
	if err != nil {
		r.logger.Debug("ignoring foreign control", zap.String("control_id", in.ControlID))
		return false
	}
	r.mu.RLock()
	h, ok := r.handlers[id.Action]
	r.mu.RUnlock()
	if !ok {
		r.logger.Warn("no handler for control", zap.String("action", string(id.Action)))
		return false
	}
	h(ctx, id, in, resp)
	return true
}

// InteractionHandler adapts Dispatch to gateway.InteractionHandler.
func (r *Router) InteractionHandler() gateway.InteractionHandler {
	return func(ctx context.Context, in gateway.Interaction, resp gateway.Responder) {
		r.Dispatch(ctx, in, resp)
	}
}

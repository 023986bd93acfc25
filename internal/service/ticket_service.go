package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticketdesk/internal/archive"
	"github.com/spec-kit/ticketdesk/internal/domain"
	"github.com/spec-kit/ticketdesk/internal/events"
	"github.com/spec-kit/ticketdesk/internal/gateway"
	"github.com/spec-kit/ticketdesk/internal/observability"
	"github.com/spec-kit/ticketdesk/internal/repository"
	"github.com/spec-kit/ticketdesk/internal/transcript"
	apperrors "github.com/spec-kit/ticketdesk/pkg/util/errorutil"
)

// TicketManager runs the ticket lifecycle: creation, claim, close with
// transcript archival, and control reattachment after restart.
type TicketManager struct {
	store       repository.TicketStore
	settings    repository.SettingsStore
	gateway     gateway.Gateway
	transcripts *transcript.Builder
	archive     archive.Client
	dispatcher  events.Dispatcher
	kinds       domain.KindCatalog
	metrics     *observability.Metrics
	logger      *zap.Logger
	now         func() time.Time
	cfg         TicketManagerConfig
	locks       *keyedMutex
}

// TicketDependencies bundles collaborators for the ticket manager.
type TicketDependencies struct {
	Store       repository.TicketStore
	Settings    repository.SettingsStore
	Gateway     gateway.Gateway
	Transcripts *transcript.Builder
	Archive     archive.Client
	Dispatcher  events.Dispatcher
	Kinds       domain.KindCatalog
	Metrics     *observability.Metrics
	Logger      *zap.Logger
	Clock       func() time.Time
}

// TicketManagerConfig holds the platform references the manager works with.
type TicketManagerConfig struct {
	GuildRef           string
	SupportRoleRef     string
	CategoryRef        string
	StaffLogChannelRef string
	MenuChannelRef     string
}

// CloseResult reports the outcome of a close.
type CloseResult struct {
	Ticket        *domain.Ticket
	TranscriptURL string
	Digest        string
}

// NewTicketManager constructs the manager.
func NewTicketManager(deps TicketDependencies, cfg TicketManagerConfig) *TicketManager {
	m := &TicketManager{
		store:       deps.Store,
		settings:    deps.Settings,
		gateway:     deps.Gateway,
		transcripts: deps.Transcripts,
		archive:     deps.Archive,
		dispatcher:  deps.Dispatcher,
		kinds:       deps.Kinds,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		now:         deps.Clock,
		cfg:         cfg,
		locks:       newKeyedMutex(),
	}
	if m.transcripts == nil {
		m.transcripts = transcript.NewBuilder()
	}
	if m.archive == nil {
		m.archive = archive.Disabled{}
	}
	if len(m.kinds.Kinds) == 0 {
		m.kinds = domain.DefaultKindCatalog()
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// Kinds returns the catalog offered in the creation menu.
func (m *TicketManager) Kinds() domain.KindCatalog {
	return m.kinds
}

// Create opens a ticket of kind for creator. The ID is durably allocated
// before the channel exists; if the record cannot be stored the channel is
// removed again.
func (m *TicketManager) Create(ctx context.Context, creator domain.Actor, kind domain.TicketKind, intake map[string]string) (*domain.Ticket, error) {
	def, ok := m.kinds.Lookup(kind)
	if !ok {
		return nil, apperrors.NewValidationError("unknown ticket kind", map[string]any{"kind": kind})
	}
	if strings.TrimSpace(creator.UserRef) == "" {
		return nil, apperrors.NewValidationError("creator is required", nil)
	}
	answers, err := normalizeIntake(def, intake)
	if err != nil {
		return nil, err
	}

	id, err := m.store.NextID(ctx)
	if err != nil {
		return nil, asPersistenceError("allocate ticket id", err)
	}
	channelRef, err := m.gateway.CreatePrivateChannel(ctx, fmt.Sprintf("ticket-%d", id), creator.UserRef, m.cfg.SupportRoleRef, m.cfg.CategoryRef)
	if err != nil {
		return nil, asGatewayError("create ticket channel", err)
	}

	ticket := &domain.Ticket{
		ID:         id,
		ChannelRef: channelRef,
		CreatorRef: creator.UserRef,
		CreatedAt:  m.now().UTC(),
		Kind:       kind,
		IntakeData: answers,
		Status:     domain.TicketStatusOpen,
	}
	if err := m.store.Put(ctx, ticket); err != nil {
		if delErr := m.gateway.DeleteChannel(ctx, channelRef); delErr != nil {
			m.logger.Error("failed to remove orphan ticket channel",
				zap.Int64("ticket_id", id), zap.String("channel", channelRef), zap.Error(delErr))
		}
		return nil, asPersistenceError("store new ticket", err)
	}

	controlRef, err := m.gateway.SendMessage(ctx, channelRef, welcomeMessage(ticket, def, m.cfg.SupportRoleRef))
	if err != nil {
		m.logger.Warn("welcome message not sent", zap.Int64("ticket_id", id), zap.Error(err))
	} else {
		ticket.ControlMessageRef = controlRef
		if err := m.store.Put(ctx, ticket); err != nil {
			m.logger.Warn("control message reference not stored; controls will not be reattached",
				zap.Int64("ticket_id", id), zap.Error(err))
		}
	}

	m.logger.Info("ticket created",
		zap.Int64("ticket_id", id), zap.String("kind", string(kind)), zap.String("creator", creator.UserRef))
	m.publishEvent(ctx, events.NewEvent(events.EventTicketCreated, id, events.ActorFrom(creator), ticket.CreatedAt,
		events.TicketCreatedPayload{Kind: kind, ChannelRef: channelRef}))
	return ticket.Clone(), nil
}

// Claim records staff as the ticket's claimant. Claims are advisory and the
// last claim wins.
func (m *TicketManager) Claim(ctx context.Context, id int64, staff domain.Actor) (*domain.Ticket, error) {
	unlock := m.locks.Lock(id)
	defer unlock()

	ticket, err := m.openTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	if !staff.HasRole(m.cfg.SupportRoleRef) {
		return nil, apperrors.NewForbidden("only support staff can claim tickets")
	}
	if ticket.ClaimedBy != nil && *ticket.ClaimedBy == staff.UserRef {
		return ticket, nil
	}

	previous := ticket.ClaimedBy
	claimant := staff.UserRef
	ticket.ClaimedBy = &claimant
	if err := m.store.Put(ctx, ticket); err != nil {
		return nil, asPersistenceError("store claim", err)
	}
	if _, err := m.gateway.SendMessage(ctx, ticket.ChannelRef, claimNotice(ticket, staff)); err != nil {
		m.logger.Warn("claim notice not sent", zap.Int64("ticket_id", id), zap.Error(err))
	}

	m.logger.Info("ticket claimed", zap.Int64("ticket_id", id), zap.String("staff", staff.UserRef))
	m.publishEvent(ctx, events.NewEvent(events.EventTicketClaimed, id, events.ActorFrom(staff), m.now().UTC(),
		events.TicketClaimedPayload{PreviousClaimant: previous}))
	return ticket.Clone(), nil
}

// Get returns a ticket by ID.
func (m *TicketManager) Get(ctx context.Context, id int64) (*domain.Ticket, error) {
	return m.store.Get(ctx, id)
}

// List returns tickets ordered by ID; an empty status returns all of them.
func (m *TicketManager) List(ctx context.Context, status domain.TicketStatus) ([]domain.Ticket, error) {
	all, err := m.store.All(ctx)
	if err != nil {
		return nil, err
	}
	if status == "" {
		return all, nil
	}
	if !status.Valid() {
		return nil, apperrors.NewValidationError("unknown ticket status", map[string]any{"status": status})
	}
	out := make([]domain.Ticket, 0, len(all))
	for _, t := range all {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out, nil
}

// SweepClosedChannels deletes channels still backing closed tickets, which
// happens when the process stopped between the close commit and the delete.
func (m *TicketManager) SweepClosedChannels(ctx context.Context) (int, error) {
	all, err := m.store.All(ctx)
	if err != nil {
		return 0, err
	}
	swept := 0
	for _, t := range all {
		if t.IsOpen() || t.ChannelDeleted || t.ChannelRef == "" {
			continue
		}
		if m.sweepOne(ctx, t.ID) {
			swept++
		}
	}
	if swept > 0 {
		m.logger.Info("swept leftover ticket channels", zap.Int("count", swept))
	}
	return swept, nil
}

func (m *TicketManager) sweepOne(ctx context.Context, id int64) bool {
	unlock := m.locks.Lock(id)
	defer unlock()

	ticket, err := m.store.Get(ctx, id)
	if err != nil || ticket.IsOpen() || ticket.ChannelDeleted {
		return false
	}
	if err := m.gateway.DeleteChannel(ctx, ticket.ChannelRef); err != nil && !apperrors.IsNotFound(err) {
		m.logger.Warn("leftover channel not deleted", zap.Int64("ticket_id", id), zap.Error(err))
		return false
	}
	ticket.ChannelDeleted = true
	if err := m.store.Put(ctx, ticket); err != nil {
		m.logger.Warn("sweep bookkeeping not stored", zap.Int64("ticket_id", id), zap.Error(err))
	}
	return true
}

func (m *TicketManager) openTicket(ctx context.Context, id int64) (*domain.Ticket, error) {
	ticket, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ticket.IsOpen() {
		return nil, apperrors.NewNotFound("open ticket", map[string]any{"ticket_id": id})
	}
	return ticket, nil
}

func (m *TicketManager) publishEvent(ctx context.Context, event events.Event) {
	m.metrics.RecordTicketEvent(string(event.Type))
	if m.dispatcher == nil {
		return
	}
	if err := m.dispatcher.Publish(ctx, event); err != nil {
		m.logger.Warn("event handler failed", zap.String("event", string(event.Type)), zap.Error(err))
	}
}

func isDomainError(err error) bool {
	var domainErr *apperrors.DomainError
	return errors.As(err, &domainErr)
}

func asPersistenceError(op string, err error) error {
	if isDomainError(err) {
		return err
	}
	return apperrors.NewPersistenceError(op, err)
}

func asGatewayError(op string, err error) error {
	if isDomainError(err) {
		return err
	}
	return apperrors.NewGatewayError(op, err)
}

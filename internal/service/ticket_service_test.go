package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticketdesk/internal/controls"
	"github.com/spec-kit/ticketdesk/internal/domain"
	"github.com/spec-kit/ticketdesk/internal/events"
	"github.com/spec-kit/ticketdesk/internal/gateway/gatewaytest"
	"github.com/spec-kit/ticketdesk/internal/observability"
	"github.com/spec-kit/ticketdesk/internal/repository"
	"github.com/spec-kit/ticketdesk/internal/transcript"
	apperrors "github.com/spec-kit/ticketdesk/pkg/util/errorutil"
)

const (
	supportRole = "role-support"
	staffLog    = "chan-staff-log"
	menuChannel = "chan-menu"
)

var (
	creator = domain.Actor{UserRef: "user-1", DisplayName: "alice"}
	staff   = domain.Actor{UserRef: "staff-1", DisplayName: "sam", RoleRefs: []string{supportRole}}
	staff2  = domain.Actor{UserRef: "staff-2", DisplayName: "kim", RoleRefs: []string{supportRole}}
	visitor = domain.Actor{UserRef: "user-9", DisplayName: "eve"}
)

type fakeArchive struct {
	mu      sync.Mutex
	err     error
	uploads []*transcript.Document
}

func (f *fakeArchive) Upload(_ context.Context, ticketID int64, doc *transcript.Document) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", apperrors.NewArchivalError("upload failed", f.err)
	}
	f.uploads = append(f.uploads, doc)
	return "https://archive.example/" + doc.FileName, nil
}

type failingPutStore struct {
	repository.Store
	fail bool
}

func (s *failingPutStore) Put(ctx context.Context, t *domain.Ticket) error {
	if s.fail {
		return apperrors.NewPersistenceError("put ticket", errors.New("disk full"))
	}
	return s.Store.Put(ctx, t)
}

type harness struct {
	manager    *TicketManager
	store      repository.Store
	gateway    *gatewaytest.Fake
	archive    *fakeArchive
	metrics    *observability.Metrics
	dispatcher events.Dispatcher
	published  *[]events.EventType
}

func newHarness(t *testing.T, store repository.Store) *harness {
	t.Helper()
	if store == nil {
		store = repository.NewMemoryStore()
	}
	gw := gatewaytest.New()
	gw.AddChannel(staffLog)
	gw.AddChannel(menuChannel)
	arch := &fakeArchive{}
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	var mu sync.Mutex
	published := []events.EventType{}
	for _, et := range events.AllEventTypes {
		dispatcher.Subscribe(et, func(_ context.Context, e events.Event) error {
			mu.Lock()
			defer mu.Unlock()
			published = append(published, e.Type)
			return nil
		})
	}
	clock := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	manager := NewTicketManager(TicketDependencies{
		Store:      store,
		Settings:   store,
		Gateway:    gw,
		Archive:    arch,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Clock:      func() time.Time { return clock },
	}, TicketManagerConfig{
		GuildRef:           "guild-1",
		SupportRoleRef:     supportRole,
		CategoryRef:        "cat-1",
		StaffLogChannelRef: staffLog,
		MenuChannelRef:     menuChannel,
	})
	return &harness{
		manager:    manager,
		store:      store,
		gateway:    gw,
		archive:    arch,
		metrics:    metrics,
		dispatcher: dispatcher,
		published:  &published,
	}
}

func (h *harness) create(t *testing.T) *domain.Ticket {
	t.Helper()
	ticket, err := h.manager.Create(context.Background(), creator, domain.KindHelpDesk, nil)
	require.NoError(t, err)
	return ticket
}

func TestCreateAllocatesIncreasingIDs(t *testing.T) {
	h := newHarness(t, nil)
	first := h.create(t)
	second := h.create(t)
	assert.Greater(t, second.ID, first.ID)

	created := h.gateway.Created()
	require.Len(t, created, 2)
	assert.Equal(t, "ticket-1", created[0].Name)
	assert.Equal(t, creator.UserRef, created[0].CreatorRef)
	assert.Equal(t, supportRole, created[0].SupportRoleRef)
	assert.Equal(t, "cat-1", created[0].CategoryRef)

	stored, err := h.store.Get(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, stored.Status)
	assert.Equal(t, created[0].Ref, stored.ChannelRef)
	assert.NotEmpty(t, stored.ControlMessageRef)
	assert.Nil(t, stored.IntakeData)

	welcome := h.gateway.Sent(stored.ChannelRef)
	require.Len(t, welcome, 1)
	assert.Equal(t, stored.ControlMessageRef, welcome[0].MessageRef)
	assert.Equal(t, controls.ForTicket(first.ID), welcome[0].Message.Controls)
	assert.Contains(t, *h.published, events.EventTicketCreated)
}

func TestIDsSurviveRestart(t *testing.T) {
	dir := t.TempDir()
	store, err := repository.NewFileStore(dir)
	require.NoError(t, err)
	first := newHarness(t, store).create(t)

	reopened, err := repository.NewFileStore(dir)
	require.NoError(t, err)
	second := newHarness(t, reopened).create(t)
	assert.Greater(t, second.ID, first.ID)
}

func TestCreateWithIntake(t *testing.T) {
	h := newHarness(t, nil)
	answers := map[string]string{
		"role":           " moderator ",
		"studying":       "physics",
		"timings":        "evenings",
		"cam_preference": "cam",
		"experience":     "two years",
		"unrelated":      "dropped",
	}
	ticket, err := h.manager.Create(context.Background(), creator, domain.KindStaffApplication, answers)
	require.NoError(t, err)
	assert.Equal(t, "moderator", ticket.IntakeData["role"])
	assert.NotContains(t, ticket.IntakeData, "unrelated")

	sent := h.gateway.Sent(ticket.ChannelRef)
	require.Len(t, sent, 1)
	require.Len(t, sent[0].Message.Embeds, 1)
	assert.Len(t, sent[0].Message.Embeds[0].Fields, 5)
}

func TestCreateRejectsBadInput(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	_, err := h.manager.Create(ctx, creator, "lost_and_found", nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = h.manager.Create(ctx, creator, domain.KindStaffApplication, map[string]string{"role": "mod"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	long := map[string]string{
		"role": "mod", "studying": "x", "timings": "x", "cam_preference": "x",
		"experience": strings.Repeat("a", 1001),
	}
	_, err = h.manager.Create(ctx, creator, domain.KindStaffApplication, long)
	require.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	assert.Equal(t, "max", apperrors.ToDomainError(err).Details["experience"])

	assert.Empty(t, h.gateway.Created())
}

func TestCreateGatewayFailureAborts(t *testing.T) {
	h := newHarness(t, nil)
	h.gateway.Fail(gatewaytest.OpCreateChannel, apperrors.NewGatewayError("create channel", errors.New("rate limited")))

	_, err := h.manager.Create(context.Background(), creator, domain.KindHelpDesk, nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeGateway))
	all, err := h.store.All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCreateRollsBackChannelWhenStoreFails(t *testing.T) {
	store := &failingPutStore{Store: repository.NewMemoryStore(), fail: true}
	h := newHarness(t, store)

	_, err := h.manager.Create(context.Background(), creator, domain.KindHelpDesk, nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodePersistence))

	created := h.gateway.Created()
	require.Len(t, created, 1)
	assert.Equal(t, []string{created[0].Ref}, h.gateway.Deleted())
	assert.False(t, h.gateway.HasChannel(created[0].Ref))
}

func TestClaim(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	ticket := h.create(t)

	claimed, err := h.manager.Claim(ctx, ticket.ID, staff)
	require.NoError(t, err)
	require.NotNil(t, claimed.ClaimedBy)
	assert.Equal(t, staff.UserRef, *claimed.ClaimedBy)

	again, err := h.manager.Claim(ctx, ticket.ID, staff)
	require.NoError(t, err)
	assert.Equal(t, staff.UserRef, *again.ClaimedBy)
	assert.Len(t, h.gateway.Sent(ticket.ChannelRef), 2, "idempotent claim posts no second notice")

	reassigned, err := h.manager.Claim(ctx, ticket.ID, staff2)
	require.NoError(t, err)
	assert.Equal(t, staff2.UserRef, *reassigned.ClaimedBy)
}

func TestClaimRejections(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	_, err := h.manager.Claim(ctx, 99, staff)
	assert.True(t, apperrors.IsNotFound(err))

	ticket := h.create(t)
	_, err = h.manager.Claim(ctx, ticket.ID, visitor)
	assert.True(t, apperrors.IsForbidden(err))
	stored, err := h.store.Get(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ClaimedBy)

	_, err = h.manager.Close(ctx, ticket.ID, staff, "done")
	require.NoError(t, err)
	_, err = h.manager.Claim(ctx, ticket.ID, staff)
	assert.True(t, apperrors.IsNotFound(err))
	stored, err = h.store.Get(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ClaimedBy)
}

func TestCloseHappyPath(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	ticket := h.create(t)
	h.gateway.Post(ticket.ChannelRef, domain.Message{AuthorRef: creator.UserRef, AuthorName: "alice", Content: "hi"})
	h.gateway.Post(ticket.ChannelRef, domain.Message{
		AuthorRef:  staff.UserRef,
		AuthorName: "sam",
		Content:    "hello <@1234>",
		Mentions:   map[string]string{"1234": "carol"},
	})
	_, err := h.manager.Claim(ctx, ticket.ID, staff)
	require.NoError(t, err)

	result, err := h.manager.Close(ctx, ticket.ID, staff, "  resolved  ")
	require.NoError(t, err)
	assert.Equal(t, "https://archive.example/1.html", result.TranscriptURL)
	assert.Len(t, result.Digest, 64)

	closed := result.Ticket
	assert.Equal(t, domain.TicketStatusClosed, closed.Status)
	assert.Equal(t, staff.UserRef, *closed.ClosedBy)
	assert.Equal(t, "resolved", *closed.CloseReason)
	assert.NotNil(t, closed.ClosedAt)
	assert.Equal(t, staff.UserRef, *closed.ClaimedBy)

	require.Len(t, h.archive.uploads, 1)
	body := string(h.archive.uploads[0].Body)
	assert.Less(t, strings.Index(body, "<p>hi</p>"), strings.Index(body, "hello @carol"))

	summary := h.gateway.Sent(staffLog)
	require.Len(t, summary, 1)
	fields := summary[0].Message.Embeds[0].Fields
	assert.Contains(t, fields, gatewayField("Transcript", "https://archive.example/1.html"))
	assert.Contains(t, fields, gatewayField("Reason", "resolved"))

	assert.False(t, h.gateway.HasChannel(ticket.ChannelRef))
	stored, err := h.store.Get(ctx, ticket.ID)
	require.NoError(t, err)
	assert.True(t, stored.ChannelDeleted)
	assert.Equal(t, result.TranscriptURL, stored.TranscriptURL)
	assert.Contains(t, *h.published, events.EventTranscriptArchived)
	assert.Equal(t, int64(1), h.metrics.Snapshot().TicketEvents[string(events.EventTicketClosed)])
}

func TestCloseByCreatorAndDefaultReason(t *testing.T) {
	h := newHarness(t, nil)
	ticket := h.create(t)
	result, err := h.manager.Close(context.Background(), ticket.ID, creator, "")
	require.NoError(t, err)
	assert.Equal(t, defaultCloseReason, *result.Ticket.CloseReason)
}

func TestCloseForbiddenForOthers(t *testing.T) {
	h := newHarness(t, nil)
	ticket := h.create(t)
	_, err := h.manager.Close(context.Background(), ticket.ID, visitor, "bye")
	assert.True(t, apperrors.IsForbidden(err))
	assert.True(t, h.gateway.HasChannel(ticket.ChannelRef))
}

func TestCloseTwice(t *testing.T) {
	h := newHarness(t, nil)
	ticket := h.create(t)

	var (
		wg        sync.WaitGroup
		successes int
		notFound  int
		mu        sync.Mutex
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.manager.Close(context.Background(), ticket.ID, staff, "dup")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case apperrors.IsNotFound(err):
				notFound++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, notFound)
	assert.Len(t, h.archive.uploads, 1)
	assert.Len(t, h.gateway.Sent(staffLog), 1)
	assert.Equal(t, []string{ticket.ChannelRef}, h.gateway.Deleted())
}

func TestCloseWithArchivalFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.archive.err = errors.New("github down")
	ticket := h.create(t)

	result, err := h.manager.Close(context.Background(), ticket.ID, staff, "done")
	require.NoError(t, err)
	assert.Empty(t, result.TranscriptURL)
	assert.Equal(t, domain.TicketStatusClosed, result.Ticket.Status)
	assert.False(t, h.gateway.HasChannel(ticket.ChannelRef))

	summary := h.gateway.Sent(staffLog)
	require.Len(t, summary, 1)
	assert.Contains(t, summary[0].Message.Embeds[0].Fields, gatewayField("Transcript", transcriptUnavailable))
	assert.Contains(t, *h.published, events.EventTranscriptArchivalFailed)
}

func TestCloseWhenChannelAlreadyGone(t *testing.T) {
	h := newHarness(t, nil)
	ticket := h.create(t)
	h.gateway.RemoveChannel(ticket.ChannelRef)

	result, err := h.manager.Close(context.Background(), ticket.ID, staff, "cleanup")
	require.NoError(t, err)
	assert.Empty(t, result.TranscriptURL)
	assert.Empty(t, h.archive.uploads)
	assert.True(t, result.Ticket.ChannelDeleted)
}

func TestClosePersistenceFailureStopsEverything(t *testing.T) {
	store := &failingPutStore{Store: repository.NewMemoryStore()}
	h := newHarness(t, store)
	ticket := h.create(t)
	store.fail = true

	_, err := h.manager.Close(context.Background(), ticket.ID, staff, "done")
	assert.True(t, apperrors.HasCode(err, apperrors.CodePersistence))
	assert.True(t, h.gateway.HasChannel(ticket.ChannelRef))
	assert.Empty(t, h.archive.uploads)
	assert.Empty(t, h.gateway.Sent(staffLog))
}

func TestCloseIgnoresCallerCancellation(t *testing.T) {
	h := newHarness(t, nil)
	ticket := h.create(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := h.manager.Close(ctx, ticket.ID, staff, "done")
	require.NoError(t, err)
	assert.True(t, result.Ticket.ChannelDeleted)
}

func TestSweepClosedChannels(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	ticket := h.create(t)
	h.gateway.Fail(gatewaytest.OpDeleteChannel, errors.New("outage"))
	result, err := h.manager.Close(ctx, ticket.ID, staff, "done")
	require.NoError(t, err)
	assert.False(t, result.Ticket.ChannelDeleted)
	h.gateway.Fail(gatewaytest.OpDeleteChannel, nil)

	swept, err := h.manager.SweepClosedChannels(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)
	assert.False(t, h.gateway.HasChannel(ticket.ChannelRef))

	swept, err = h.manager.SweepClosedChannels(ctx)
	require.NoError(t, err)
	assert.Zero(t, swept)
}

func TestList(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	first := h.create(t)
	h.create(t)
	_, err := h.manager.Close(ctx, first.ID, staff, "done")
	require.NoError(t, err)

	all, err := h.manager.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
	open, err := h.manager.List(ctx, domain.TicketStatusOpen)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, int64(2), open[0].ID)
	_, err = h.manager.List(ctx, "pending")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestReattach(t *testing.T) {
	store := repository.NewMemoryStore()
	h := newHarness(t, store)
	ctx := context.Background()
	kept := h.create(t)
	messageGone := h.create(t)
	channelGone := h.create(t)
	closed := h.create(t)
	_, err := h.manager.Close(ctx, closed.ID, staff, "done")
	require.NoError(t, err)
	h.gateway.RemoveMessage(messageGone.ChannelRef, messageGone.ControlMessageRef)
	h.gateway.RemoveChannel(channelGone.ChannelRef)
	sentBefore := len(h.gateway.Sent(""))

	// A fresh manager over the same store and platform stands in for a restart.
	restarted := NewTicketManager(TicketDependencies{Store: store, Settings: store, Gateway: h.gateway},
		TicketManagerConfig{SupportRoleRef: supportRole, StaffLogChannelRef: staffLog})
	report, err := restarted.Reattach(ctx)
	require.NoError(t, err)

	assert.Equal(t, []int64{kept.ID}, report.Reattached)
	assert.ElementsMatch(t, []int64{messageGone.ID, channelGone.ID}, report.Skipped)
	assert.Empty(t, report.Failed)
	assert.Len(t, h.gateway.Sent(""), sentBefore, "reattachment never posts")

	regs := h.gateway.Registrations()
	require.Len(t, regs, 1)
	assert.Equal(t, kept.ChannelRef, regs[0].ChannelRef)
	assert.Equal(t, kept.ControlMessageRef, regs[0].MessageRef)
	assert.Equal(t, controls.ForTicket(kept.ID), regs[0].Controls)

	claimID, err := controls.Parse(regs[0].Controls[0].ID)
	require.NoError(t, err)
	claimed, err := restarted.Claim(ctx, claimID.TicketID, staff)
	require.NoError(t, err)
	assert.Equal(t, staff.UserRef, *claimed.ClaimedBy)
}

func TestEnsureMenu(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	first, err := h.manager.EnsureMenu(ctx)
	require.NoError(t, err)
	require.Len(t, h.gateway.Sent(menuChannel), 1)

	second, err := h.manager.EnsureMenu(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, h.gateway.Sent(menuChannel), 1)
	require.Len(t, h.gateway.Edits(), 1)
	assert.Equal(t, controls.Menu(), h.gateway.Edits()[0].Message.Controls[0].ID)

	h.gateway.RemoveMessage(menuChannel, first)
	third, err := h.manager.EnsureMenu(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
	assert.Len(t, h.gateway.Sent(menuChannel), 2)
	stored, err := h.store.GetSetting(ctx, repository.SettingMenuMessageRef)
	require.NoError(t, err)
	assert.Equal(t, menuChannel+"/"+third, stored)
}

func TestEnsureMenuEditsBareStoredID(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	existing := h.gateway.Post(menuChannel, domain.Message{Content: "old menu"})
	require.NoError(t, h.store.PutSetting(ctx, repository.SettingMenuMessageRef, existing))

	ref, err := h.manager.EnsureMenu(ctx)
	require.NoError(t, err)
	assert.Equal(t, existing, ref)
	assert.Empty(t, h.gateway.Sent(menuChannel))
	require.Len(t, h.gateway.Edits(), 1)
	assert.Equal(t, existing, h.gateway.Edits()[0].MessageRef)
}

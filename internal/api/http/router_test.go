package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/ticketdesk/internal/api/http/handlers"
	"github.com/spec-kit/ticketdesk/internal/auth"
	"github.com/spec-kit/ticketdesk/internal/config"
	"github.com/spec-kit/ticketdesk/internal/domain"
	"github.com/spec-kit/ticketdesk/internal/events"
	"github.com/spec-kit/ticketdesk/internal/gateway/gatewaytest"
	"github.com/spec-kit/ticketdesk/internal/observability"
	"github.com/spec-kit/ticketdesk/internal/repository"
	"github.com/spec-kit/ticketdesk/internal/service"
)

const (
	supportRole = "role-support"
	password    = "operator password 1"
)

type downPinger struct{}

func (downPinger) Ping(context.Context) error { return errors.New("connection refused") }

type apiFixture struct {
	app     *fiber.App
	manager *service.TicketManager
	gateway *gatewaytest.Fake
	tokens  *auth.TokenManager
}

func newAPI(t *testing.T, checks map[string]handlers.Pinger) *apiFixture {
	t.Helper()
	store := repository.NewMemoryStore()
	if checks == nil {
		checks = map[string]handlers.Pinger{"store": store}
	}
	gw := gatewaytest.New()
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	history := repository.NewMemoryHistory()
	service.NewAuditService(dispatcher, history, zap.NewNop()).RegisterHandlers()
	manager := service.NewTicketManager(service.TicketDependencies{
		Store:      store,
		Settings:   store,
		Gateway:    gw,
		Dispatcher: dispatcher,
		Metrics:    metrics,
	}, service.TicketManagerConfig{SupportRoleRef: supportRole})

	hash, err := auth.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	cfg := config.Config{
		Auth:    config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 5, OperatorPasswordHash: hash},
		Discord: config.DiscordConfig{SupportRoleID: supportRole},
	}
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)

	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), metrics, 0)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("ticketdesk", "test", checks),
		Tickets:        handlers.NewTicketsHandler(manager, history),
		Auth:           handlers.NewAuthHandler(service.NewAuthService(cfg, tokens)),
		Metrics:        handlers.NewMetricsHandler(metrics),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
		SupportRoleRef: supportRole,
	})
	return &apiFixture{app: app, manager: manager, gateway: gw, tokens: tokens}
}

func (f *apiFixture) do(t *testing.T, method, path, token, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func (f *apiFixture) login(t *testing.T) string {
	t.Helper()
	status, body := f.do(t, nethttp.MethodPost, "/auth/login", "",
		`{"staff_ref":"staff-1","display_name":"sam","password":"`+password+`"}`)
	require.Equal(t, nethttp.StatusOK, status)
	return body["data"].(map[string]any)["access_token"].(string)
}

func errorCode(body map[string]any) string {
	return body["error"].(map[string]any)["code"].(string)
}

func TestHealth(t *testing.T) {
	f := newAPI(t, nil)
	status, body := f.do(t, nethttp.MethodGet, "/health/live", "", "")
	assert.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, "alive", body["status"])

	status, body = f.do(t, nethttp.MethodGet, "/health/ready", "", "")
	assert.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, "ready", body["status"])

	down := newAPI(t, map[string]handlers.Pinger{"redis": downPinger{}})
	status, body = down.do(t, nethttp.MethodGet, "/health/ready", "", "")
	assert.Equal(t, nethttp.StatusServiceUnavailable, status)
	assert.Equal(t, "DEPENDENCY_UNAVAILABLE", errorCode(body))
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	f := newAPI(t, nil)
	status, body := f.do(t, nethttp.MethodPost, "/auth/login", "", `{"staff_ref":"staff-1","password":"nope"}`)
	assert.Equal(t, nethttp.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))
}

func TestTicketsRequireToken(t *testing.T) {
	f := newAPI(t, nil)
	status, body := f.do(t, nethttp.MethodGet, "/tickets", "", "")
	assert.Equal(t, nethttp.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))
}

func TestTicketsRequireSupportRole(t *testing.T) {
	f := newAPI(t, nil)
	token, _, err := f.tokens.GenerateToken("user-9", "visitor", nil)
	require.NoError(t, err)
	status, body := f.do(t, nethttp.MethodGet, "/tickets", token, "")
	assert.Equal(t, nethttp.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", errorCode(body))
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	f := newAPI(t, nil)
	status, body := f.do(t, nethttp.MethodGet, "/nope", "", "")
	assert.Equal(t, nethttp.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))
}

func TestTicketLifecycleOverHTTP(t *testing.T) {
	f := newAPI(t, nil)
	ticket, err := f.manager.Create(context.Background(), domain.Actor{UserRef: "user-1"}, domain.KindHelpDesk, nil)
	require.NoError(t, err)
	token := f.login(t)

	status, body := f.do(t, nethttp.MethodGet, "/tickets?status=open", token, "")
	require.Equal(t, nethttp.StatusOK, status)
	assert.Len(t, body["data"].([]any), 1)

	status, body = f.do(t, nethttp.MethodPost, "/tickets/1/claim", token, "")
	require.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, "staff-1", body["data"].(map[string]any)["claimed_by"])

	status, body = f.do(t, nethttp.MethodPost, "/tickets/reattach", token, "")
	require.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, []any{float64(1)}, body["data"].(map[string]any)["reattached"])

	status, body = f.do(t, nethttp.MethodPost, "/tickets/1/close", token, `{"reason":"handled by phone"}`)
	require.Equal(t, nethttp.StatusOK, status)
	closed := body["data"].(map[string]any)["ticket"].(map[string]any)
	assert.Equal(t, "closed", closed["status"])
	assert.Equal(t, "handled by phone", closed["close_reason"])
	assert.False(t, f.gateway.HasChannel(ticket.ChannelRef))

	status, body = f.do(t, nethttp.MethodPost, "/tickets/1/close", token, "")
	assert.Equal(t, nethttp.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))

	status, body = f.do(t, nethttp.MethodGet, "/tickets/1", token, "")
	require.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, true, body["data"].(map[string]any)["channel_deleted"])

	status, body = f.do(t, nethttp.MethodGet, "/tickets/1/history", token, "")
	require.Equal(t, nethttp.StatusOK, status)
	var trail []string
	for _, entry := range body["data"].([]any) {
		trail = append(trail, entry.(map[string]any)["event"].(string))
	}
	assert.Equal(t, []string{"ticket_created", "ticket_claimed", "ticket_closed", "transcript_archival_failed"}, trail)

	status, body = f.do(t, nethttp.MethodGet, "/tickets/abc", token, "")
	assert.Equal(t, nethttp.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	status, body = f.do(t, nethttp.MethodGet, "/metrics", token, "")
	require.Equal(t, nethttp.StatusOK, status)
	events := body["data"].(map[string]any)["ticket_events"].(map[string]any)
	assert.Equal(t, float64(1), events["ticket_closed"])
}

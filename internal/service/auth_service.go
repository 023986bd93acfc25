package service

import (
	"strings"
	"time"

	"github.com/spec-kit/ticketdesk/internal/auth"
	"github.com/spec-kit/ticketdesk/internal/config"
	apperrors "github.com/spec-kit/ticketdesk/pkg/util/errorutil"
)

// AuthService issues admin API tokens to operators. An operator proves the
// shared operator password and names the staff member they act as; the token
// carries the support role so claim and close calls pass the same checks as
// chat interactions.
type AuthService struct {
	tokenMgr       *auth.TokenManager
	passwordHash   string
	supportRoleRef string
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, tokens *auth.TokenManager) *AuthService {
	return &AuthService{
		tokenMgr:       tokens,
		passwordHash:   cfg.Auth.OperatorPasswordHash,
		supportRoleRef: cfg.Discord.SupportRoleID,
	}
}

// Login verifies the operator password and returns a signed token.
func (s *AuthService) Login(staffRef, displayName, password string) (string, time.Time, error) {
	staffRef = strings.TrimSpace(staffRef)
	if staffRef == "" {
		return "", time.Time{}, apperrors.NewValidationError("staff_ref is required", nil)
	}
	if err := auth.VerifyPassword(s.passwordHash, password); err != nil {
		return "", time.Time{}, err
	}
	return s.Issue(staffRef, displayName)
}

// Issue signs a token without a password check; used by the CLI.
func (s *AuthService) Issue(staffRef, displayName string) (string, time.Time, error) {
	var roles []string
	if s.supportRoleRef != "" {
		roles = []string{s.supportRoleRef}
	}
	token, exp, err := s.tokenMgr.GenerateToken(staffRef, displayName, roles)
	if err != nil {
		return "", time.Time{}, apperrors.NewInternalError(err)
	}
	return token, exp, nil
}

package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCodeFollowsWrapping(t *testing.T) {
	base := NewNotFound("ticket", map[string]any{"ticket_id": int64(7)})
	wrapped := fmt.Errorf("claim: %w", base)

	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsForbidden(wrapped))
	assert.False(t, HasCode(errors.New("plain"), CodeNotFound))
}

func TestToDomainErrorDefaultsToInternal(t *testing.T) {
	de := ToDomainError(errors.New("boom"))

	assert.Equal(t, CodeInternal, de.Code)
	assert.Equal(t, http.StatusInternalServerError, de.HTTPStatus)
	assert.Nil(t, ToDomainError(nil))
}

func TestErrorMessageIncludesCause(t *testing.T) {
	err := NewPersistenceError("put ticket", errors.New("disk full"))

	assert.Equal(t, "persistence failure: put ticket: disk full", err.Error())
	assert.True(t, HasCode(err, CodePersistence))
	assert.ErrorContains(t, NewGatewayError("delete channel", errors.New("503")), "503")
}

package geocore

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesKind(t *testing.T) {
	t.Parallel()
	err := fmt.Errorf("wrapped: %w", errServer("Auth.0001", "not registered"))

	assert.ErrorIs(t, err, ErrServerError)
	assert.NotErrorIs(t, err, ErrNetworkError)
	assert.True(t, IsServerCode(err, CodeNotRegistered))
	assert.False(t, IsServerCode(err, "Auth.0002"))
	assert.Equal(t, KindServerError, KindOf(err))
	assert.Zero(t, KindOf(errors.New("plain")))
}

func TestError_Message(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "geocore: server error [X] Y", errServer("X", "Y").Error())
	assert.Equal(t, "geocore: invalid server response (status 500)", errInvalidServerResponse(500).Error())
	assert.Equal(t, "geocore: invalid parameter: expecting id", errInvalidParameter("expecting id").Error())
	assert.Equal(t, "geocore: unauthorized access", (&Error{Kind: KindUnauthorizedAccess}).Error())
}

func TestAsError(t *testing.T) {
	t.Parallel()
	cause := errors.New("disk full")
	err := asError(cause)

	assert.Equal(t, KindOtherError, KindOf(err))
	assert.ErrorIs(t, err, cause)
	assert.Nil(t, asError(nil))
}

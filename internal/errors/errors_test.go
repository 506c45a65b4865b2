package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesByCode(t *testing.T) {
	err := NotFoundf("item %s not found", "abc")

	assert.True(t, Is(err, ErrNotFound))
	assert.False(t, Is(err, ErrConflict))
	assert.Equal(t, "item abc not found", err.Error())
}

func TestError_WrappedStillMatches(t *testing.T) {
	err := fmt.Errorf("update remote: %w", Conflictf("revision %d is stale", 2))

	assert.True(t, Is(err, ErrConflict))
	assert.Equal(t, CodeConflict, CodeOf(err))
}

func TestWrap_KeepsCause(t *testing.T) {
	cause := New("connection refused")
	err := Wrap(cause, CodeUnavailable, "remote unreachable")

	assert.Equal(t, "remote unreachable: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, Is(err, ErrUnavailable))

	decodeErr := Wrapf(New("unexpected EOF"), CodeInternal, "malformed %s response", "todos")
	assert.Equal(t, "malformed todos response: unexpected EOF", decodeErr.Error())
	assert.Equal(t, CodeInternal, CodeOf(decodeErr))
}

func TestCodeOf_PlainError(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(New("boom")))
}

func TestCode_HTTPStatusRoundTrip(t *testing.T) {
	codes := []Code{CodeNotFound, CodeValidation, CodeConflict, CodeUnavailable, CodeRateLimited, CodeInternal}

	for _, code := range codes {
		t.Run(string(code), func(t *testing.T) {
			assert.Equal(t, code, CodeFromStatus(code.HTTPStatus()))
		})
	}
}

func TestCodeFromStatus_Gateways(t *testing.T) {
	assert.Equal(t, CodeUnavailable, CodeFromStatus(http.StatusBadGateway))
	assert.Equal(t, CodeUnavailable, CodeFromStatus(http.StatusGatewayTimeout))
	assert.Equal(t, CodeValidation, CodeFromStatus(http.StatusUnprocessableEntity))
	assert.Equal(t, CodeInternal, CodeFromStatus(http.StatusTeapot))
}

func TestWithDetails_DoesNotMutateSentinel(t *testing.T) {
	err := ErrValidation.WithDetails(map[string]string{"title": "is required"})

	assert.NotNil(t, err.Details)
	assert.Nil(t, ErrValidation.Details)
}

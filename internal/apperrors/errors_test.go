package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	err := New(KindNotFound, "booking not found")
	assert.Equal(t, KindNotFound, KindOf(err))

	wrapped := fmt.Errorf("handling request: %w", err)
	assert.Equal(t, KindNotFound, KindOf(wrapped))

	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, KindUnknown, KindOf(nil))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindInternal, cause, "finding booking")

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "finding booking")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindNotFound:            http.StatusNotFound,
		KindInactive:            http.StatusBadRequest,
		KindInvalidParticipants: http.StatusBadRequest,
		KindCapacityExceeded:    http.StatusConflict,
		KindAlreadyUsed:         http.StatusConflict,
		KindImmutable:           http.StatusConflict,
		KindRateLimited:         http.StatusTooManyRequests,
		KindInsufficientBalance: http.StatusUnprocessableEntity,
		KindInvalidSignature:    http.StatusBadRequest,
		KindGatewayFailure:      http.StatusBadGateway,
		KindInternal:            http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, HTTPStatus(New(kind, "test")), "kind %d", kind)
	}

	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("plain")))
}

// Package apperrors defines the closed set of error kinds the services
// raise. Handlers translate kinds into transport status codes instead of
// matching on message text.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind tags an Error with its failure category
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindInactive
	KindInvalidServiceType
	KindInvalidParticipants
	KindCapacityExceeded
	KindDuplicateParticipant
	KindInvalidUser
	KindAlreadyUsed
	KindMissingDate
	KindInvalidDate
	KindImmutable
	KindInvalidStatus
	KindRateLimited
	KindInsufficientBalance
	KindInvalidSignature
	KindGenerationExhausted
	KindGatewayFailure
	KindInternal
)

// Error is the tagged error variant all services return
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a tagged error
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap tags an underlying error with a kind and message
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the kind from err, or KindUnknown for foreign errors
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps an error's kind to the status code the boundary should
// respond with. Foreign errors map to 500.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindInactive, KindInvalidServiceType, KindInvalidParticipants,
		KindDuplicateParticipant, KindInvalidUser, KindMissingDate,
		KindInvalidDate, KindInvalidStatus, KindInvalidSignature:
		return http.StatusBadRequest
	case KindCapacityExceeded, KindAlreadyUsed, KindImmutable:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindInsufficientBalance:
		return http.StatusUnprocessableEntity
	case KindGatewayFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed request.
type Kind string

const (
	// KindAuthExpired is a 401. The session has already been evicted when
	// the caller sees it; it is a routing signal, not something to report.
	KindAuthExpired Kind = "auth_expired"
	// KindRequestFailed is any other non-2xx response.
	KindRequestFailed Kind = "request_failed"
	// KindNetwork means no response was received.
	KindNetwork Kind = "network"
)

// Fallback messages.
const (
	msgRequestFailed = "request failed"
	msgNetwork       = "network error"
	msgUnauthorized  = "unauthorized"
)

// Error is returned by Client for every failed request.
type Error struct {
	Kind    Kind
	Status  int // 0 when no response arrived
	Message string
	Err     error

	fromServer bool
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("api %s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("api %s (%d %s): %s", e.Kind, e.Status, http.StatusText(e.Status), e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsUnauthorized reports whether err is an AuthenticationExpired failure.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == KindAuthExpired
}

// IsNetwork reports whether err means no response was received.
func IsNetwork(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == KindNetwork
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// MessageOr returns the message the server sent with the failure, or
// fallback when there was none.
func MessageOr(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.fromServer && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

package api

import (
	"errors"
	"fmt"
)

// Errors returned by the remote client, classified per the station's
// recovery rules: network-class failures are queued and retried by the sync
// coordinator, everything else is surfaced to the operator.
var (
	// ErrNetworkUnavailable covers transport failures, timeouts, and 5xx
	// responses. Callers enqueue the mutation and retry on the next drain.
	ErrNetworkUnavailable = errors.New("network unavailable")

	// ErrAuthExpired is returned on 401. The session must be cleared and the
	// operator re-authenticated; the pending queue is unaffected.
	ErrAuthExpired = errors.New("session expired")
)

// ValidationError is a remote rejection of the payload (4xx other than 401).
// Never auto-retried: during a drain it counts toward the dead-letter bound.
type ValidationError struct {
	StatusCode int
	Message    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("remote rejected request (%d): %s", e.StatusCode, e.Message)
}

// GatewayError is a digital-payment failure or cancellation. The order stays
// unsettled and the error is never queued: queuing an ambiguous payment state
// could double-charge the customer on replay.
type GatewayError struct {
	Message string
}

func (e *GatewayError) Error() string {
	return "payment gateway: " + e.Message
}

// IsNetworkClass reports whether err should stop a queue drain and be retried
// on the next tick, as opposed to an application-class rejection.
func IsNetworkClass(err error) bool {
	return errors.Is(err, ErrNetworkUnavailable)
}

// IsValidation reports whether err is an application-class rejection.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

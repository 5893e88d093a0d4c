package reefpi

import "errors"

// Domain-specific errors for controller communication.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrCannotConnect indicates a network-level failure reaching the
	// controller (DNS, TLS, timeout, refused connection). Retryable by
	// the caller on its own schedule.
	ErrCannotConnect = errors.New("reefpi: cannot connect to controller")

	// ErrInvalidAuth indicates the controller rejected the credentials,
	// or a call was attempted before a session was established. Requires
	// operator action; never auto-retried.
	ErrInvalidAuth = errors.New("reefpi: authentication failed")
)

package coordinator

import "errors"

var (
	// ErrAuthRequired means the controller rejected our credentials.
	// The cycle is aborted and no automatic retry is attempted; an
	// operator has to fix the configured credentials.
	ErrAuthRequired = errors.New("controller authentication required")

	// ErrControllerUnreachable means a network-level failure aborted
	// the cycle. The next scheduled cycle retries on its own.
	ErrControllerUnreachable = errors.New("controller unreachable")

	// ErrUnknownDevice is returned by control actions when the target
	// device is not present in the current snapshot.
	ErrUnknownDevice = errors.New("unknown device")
)

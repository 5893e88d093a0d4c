// Package reefpi is a typed client for the reef-pi controller's HTTP API.
//
// The controller authenticates with a session cookie obtained from
// POST /auth/signin. The client holds that cookie and refuses calls
// with ErrInvalidAuth until Authenticate succeeds; re-authentication is
// deliberately left to the caller so a refresh cycle can react to an
// expired session exactly once.
//
// Error taxonomy:
//
//   - ErrCannotConnect: network-level failure (retryable by the caller)
//   - ErrInvalidAuth: rejected credentials or missing session
//   - a non-2xx response with a body is NOT an error; the method returns
//     its zero value, matching the controller's habit of answering
//     legitimately empty resources with error statuses
//
// Several endpoints return readings in two buckets (current and
// historical) tagged with timestamps in the controller's literal
// "Jan-02-15:04, 2006" format; LatestReading implements the selection
// rule shared by those endpoints.
package reefpi

// Package calibration drives the operator-supervised two-point pH
// calibration workflow.
//
// A session walks awaiting_low, awaiting_high, complete, with failed
// reachable from any step. Each point samples the live reading across
// a settle window while rendering progress, captures one fresh
// authoritative reading at expiry, and submits it to the controller.
// There is no automatic retry: a connection failure, credential
// rejection, or controller rejection ends the session with a message
// naming the concrete cause, because silently resubmitting could save
// a bad point unattended.
package calibration

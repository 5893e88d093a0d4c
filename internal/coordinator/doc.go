// Package coordinator reconciles the two update sources into one
// consistent controller view.
//
// A refresh cycle authenticates lazily, re-reads the capability map,
// then runs each subsystem fetcher in a fixed order. Fetcher-local
// failures are absorbed with the previous slice preserved; connection
// and authentication failures abort the whole cycle and leave the
// previously published snapshot untouched. Successful cycles publish
// atomically, so readers never observe a half-updated view.
//
// Between cycles, push updates arriving over MQTT are folded in via
// ApplyPush, and control actions mirror the controller's acknowledged
// state into the snapshot immediately.
package coordinator

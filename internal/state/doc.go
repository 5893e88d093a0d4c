// Package state holds the merged controller view built from polling
// and push updates.
//
// A Snapshot is an immutable value published through an atomic pointer
// swap: refresh cycles build a new one from scratch, push updates clone
// the current one, amend a single field and republish. Readers never
// see a partially-applied cycle.
//
// Tracker records per-device update freshness so the coordinator can
// skip polling devices whose value just arrived over MQTT, and
// HistoryRepository persists readings to SQLite for short-term history
// queries.
package state

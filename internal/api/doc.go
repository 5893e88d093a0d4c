// Package api implements the HTTP REST API and WebSocket server for reeflink.
//
// This package provides:
//   - REST endpoints for mirrored device state, control actions, and history
//   - System metrics endpoint for service monitoring
//   - Calibration workflow endpoints (start, progress)
//   - Topic collision inspection and operator reset
//   - WebSocket hub for real-time snapshot and device broadcasts
//   - Middleware stack (request ID, logging, recovery, CORS)
//
// # Architecture
//
// The API server sits between user interfaces and the coordinator. Reads
// serve the coordinator's immutable published snapshot, so they never block
// a refresh cycle. Control actions flow through the coordinator to the
// controller's REST API, and push updates flow in over MQTT subscriptions
// which are merged into the snapshot and broadcast to WebSocket clients.
//
// # Graceful Degradation
//
// The server operates without MQTT — polling, reads, and WebSocket
// connections work, only live push merging stops.
package api

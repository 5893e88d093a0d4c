// Package logging provides structured logging for reeflink.
//
// It wraps the standard library's log/slog with service-wide defaults:
// every record carries the service name and build version, output format
// and level are driven by configuration, and child loggers can be derived
// with component-scoped attributes via With.
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("controller connected", "host", cfg.Controller.Host)
//
// Before configuration is loaded, use logging.Default() for early startup
// messages.
package logging

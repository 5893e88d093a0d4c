// Package api provides the HTTP REST API and WebSocket server for reeflink.
//
// It exposes the mirrored controller state, control actions, calibration
// workflows, and real-time snapshot updates to user interfaces.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/reeflink/reeflink/internal/calibration"
	"github.com/reeflink/reeflink/internal/coordinator"
	"github.com/reeflink/reeflink/internal/infrastructure/config"
	"github.com/reeflink/reeflink/internal/infrastructure/logging"
	"github.com/reeflink/reeflink/internal/infrastructure/mqtt"
	"github.com/reeflink/reeflink/internal/push"
	"github.com/reeflink/reeflink/internal/state"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config      config.APIConfig
	Logger      *logging.Logger
	Coordinator *coordinator.Coordinator
	Calibration *calibration.Manager
	Mapper      *push.Mapper
	Tracker     *state.Tracker
	History     *state.HistoryRepository
	MQTT        *mqtt.Client
	Push        *push.Handler
	TopicPrefix string
	ExternalHub *Hub // If set, the server uses this hub instead of creating its own
	Version     string
}

// Server is the HTTP API server for reeflink.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg         config.APIConfig
	logger      *logging.Logger
	coord       *coordinator.Coordinator
	calibration *calibration.Manager
	mapper      *push.Mapper
	tracker     *state.Tracker
	history     *state.HistoryRepository
	mqtt        *mqtt.Client
	push        *push.Handler
	topicPrefix string
	version     string
	server      *http.Server
	started     time.Time
	hub         *Hub
	externalHub bool               // true if hub was injected externally
	baseCtx     context.Context    // outlives individual requests; parents calibration sessions
	cancel      context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Coordinator == nil {
		return nil, fmt.Errorf("coordinator is required")
	}
	// MQTT is optional — push updates stop without it but polling, reads,
	// and WebSocket connections still function.

	s := &Server{
		cfg:         deps.Config,
		logger:      deps.Logger,
		coord:       deps.Coordinator,
		calibration: deps.Calibration,
		mapper:      deps.Mapper,
		tracker:     deps.Tracker,
		history:     deps.History,
		mqtt:        deps.MQTT,
		push:        deps.Push,
		topicPrefix: deps.TopicPrefix,
		version:     deps.Version,
	}

	// Use externally-provided hub if available (needed when the coordinator
	// also requires the hub as its event sink).
	if deps.ExternalHub != nil {
		s.hub = deps.ExternalHub
		s.externalHub = true
	}

	return s, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub, subscribes to the
// controller's MQTT push topics, and launches the HTTP listener in a
// background goroutine. The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	// Create internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	s.baseCtx = srvCtx
	s.started = time.Now()

	// Create WebSocket hub (unless one was injected externally)
	if s.hub == nil {
		s.hub = NewHub(s.cfg.WebSocket, s.logger)
		go s.hub.Run(srvCtx)
	}

	// Subscribe to controller push updates for live state merging
	if err := s.subscribePushUpdates(); err != nil {
		s.logger.Warn("failed to subscribe to controller push updates", "error", err)
	}

	// Build router
	router := s.buildRouter()

	// Create HTTP server
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	// Start listening in background
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// subscribePushUpdates subscribes to every topic under the controller's
// configured prefix and feeds messages into the push handler. Unmapped
// topics and collisions are resolved there, not here.
func (s *Server) subscribePushUpdates() error {
	if s.mqtt == nil || s.push == nil {
		return nil // MQTT not configured; push merging disabled
	}
	topics := mqtt.Topics{}
	topic := topics.ControllerUpdates(s.topicPrefix)
	s.logger.Info("subscribing to controller push updates", "topic", topic)
	return s.mqtt.Subscribe(topic, 1, func(t string, payload []byte) error {
		s.push.HandleMessage(t, payload)
		return nil
	})
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	// Cancel background goroutines (hub, calibration sessions)
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}

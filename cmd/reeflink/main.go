// reeflink - reef-pi controller bridge
//
// This is the main entry point for the reeflink service. reeflink mirrors
// a reef-pi aquarium controller into a local state snapshot, merges live
// MQTT push updates, exposes the result over a REST/WebSocket API, and
// runs guided pH probe calibration.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/reeflink/reeflink/migrations"

	"github.com/reeflink/reeflink/internal/api"
	"github.com/reeflink/reeflink/internal/calibration"
	"github.com/reeflink/reeflink/internal/coordinator"
	"github.com/reeflink/reeflink/internal/infrastructure/config"
	"github.com/reeflink/reeflink/internal/infrastructure/database"
	"github.com/reeflink/reeflink/internal/infrastructure/influxdb"
	"github.com/reeflink/reeflink/internal/infrastructure/logging"
	"github.com/reeflink/reeflink/internal/infrastructure/mqtt"
	"github.com/reeflink/reeflink/internal/push"
	"github.com/reeflink/reeflink/internal/reefpi"
	"github.com/reeflink/reeflink/internal/state"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting reeflink",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database for reading history
	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	history := state.NewHistoryRepository(db)

	// Connect to MQTT broker (optional; polling works without it)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
	} else {
		log.Info("MQTT disabled, push updates off")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Controller client and state plumbing
	client := reefpi.New(cfg.Controller)
	mapper := push.NewMapper()
	tracker := state.NewTracker(cfg.GetSkipThreshold())

	// WebSocket hub carries coordinator events to connected UIs; with
	// MQTT enabled they are also republished on the service event topics.
	hub := api.NewHub(cfg.API.WebSocket, log)
	go hub.Run(ctx)

	var events coordinator.EventSink = hub
	if mqttClient != nil {
		events = eventFanout{hub, newMQTTEventSink(mqttClient, log)}
	}

	// Calibration progress and the collision advisory share one
	// notification fan-out (hub + MQTT).
	notifier := api.NewNotifier(hub, mqttClient, log)

	coord := coordinator.New(cfg, client, mapper, tracker, log, coordinator.Options{
		History:  history,
		Influx:   influxClient,
		Events:   events,
		Notifier: notifier,
	})

	pushHandler := push.NewHandler(mapper, coord, tracker, log)

	calibrationManager := calibration.NewManager(cfg, client, notifier, coord, log)
	defer calibrationManager.Wait()

	// API server
	server, err := api.New(api.Deps{
		Config:      cfg.API,
		Logger:      log,
		Coordinator: coord,
		Calibration: calibrationManager,
		Mapper:      mapper,
		Tracker:     tracker,
		History:     history,
		MQTT:        mqttClient,
		Push:        pushHandler,
		TopicPrefix: cfg.MQTT.TopicPrefix,
		ExternalHub: hub,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

	// Start the refresh loop
	go coord.Run(ctx)

	// Verify infrastructure connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. API server
	// 2. Calibration sessions
	// 3. InfluxDB (if enabled)
	// 4. MQTT (if enabled)
	// 5. Database

	log.Info("reeflink stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses REEFLINK_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("REEFLINK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies infrastructure connections are healthy.
// MQTT and InfluxDB may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	// Controller reachability is not a startup gate: the coordinator
	// retries every poll interval and the API reports the last snapshot.

	return nil
}

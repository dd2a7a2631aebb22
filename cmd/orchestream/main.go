// OrcheStream - Art-Net to Home Assistant DMX Bridge
//
// This is the main entry point for the OrcheStream application.
// OrcheStream receives DMX lighting data over Art-Net (UDP) and
// translates channel values into Home Assistant service calls, so
// theatrical lighting consoles can drive smart-home devices:
//   - Art-Net listener with change suppression
//   - Channel-to-entity mapping persisted in SQLite
//   - Admin HTTP API with live status over WebSocket
//   - Optional MQTT health reporting and InfluxDB telemetry
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/orchestream/migrations"

	"github.com/nerrad567/orchestream/internal/api"
	"github.com/nerrad567/orchestream/internal/artnet"
	"github.com/nerrad567/orchestream/internal/bridge"
	"github.com/nerrad567/orchestream/internal/homeassistant"
	"github.com/nerrad567/orchestream/internal/infrastructure/config"
	"github.com/nerrad567/orchestream/internal/infrastructure/database"
	"github.com/nerrad567/orchestream/internal/infrastructure/influxdb"
	"github.com/nerrad567/orchestream/internal/infrastructure/logging"
	"github.com/nerrad567/orchestream/internal/infrastructure/mqtt"
	"github.com/nerrad567/orchestream/internal/mapping"
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
	// This is the Go pattern for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Run the application
	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting OrcheStream",
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

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
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

	// Load the channel mapping table from SQLite
	store := mapping.NewSQLiteStore(db)
	table, err := mapping.NewTable(ctx, store, log)
	if err != nil {
		return fmt.Errorf("loading mapping table: %w", err)
	}
	log.Info("mapping table loaded", "devices", table.Count())

	// Connect to MQTT broker (optional, used for health reporting)
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

		// Set up MQTT logging callbacks
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional, used for command telemetry)
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

		// Set up InfluxDB error callback
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Build the bridge pipeline: Art-Net receiver in, Home Assistant out
	haClient := homeassistant.NewClient(cfg.HomeAssistant, log)
	receiver := artnet.NewReceiver(cfg.ArtNet, log)

	opts := bridge.Options{
		Config:   cfg,
		Receiver: receiver,
		Client:   haClient,
		Table:    table,
		Logger:   log,
	}
	if influxClient != nil {
		opts.Telemetry = influxClient
	}
	controller, err := bridge.New(opts)
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}
	defer func() {
		log.Info("stopping bridge")
		controller.Stop()
	}()

	// Start the admin API server
	apiServer, err := api.New(api.Deps{
		Config:  cfg.API,
		WS:      cfg.WebSocket,
		Logger:  log,
		Bridge:  controller,
		AppCfg:  cfg,
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started",
		"host", cfg.API.Host,
		"port", cfg.API.Port,
	)

	// Start the MQTT health reporter (if the broker is connected)
	var healthReporter *bridge.HealthReporter
	if mqttClient != nil {
		topic := mqtt.Topics{Base: cfg.MQTT.BaseTopic}.BridgeStatus()
		healthReporter = bridge.NewHealthReporter(mqttClient, controller, bridge.HealthReporterConfig{
			Topic: topic,
		}, log)
		healthReporter.Start()
		defer func() {
			log.Info("stopping health reporter")
			healthReporter.Stop()
		}()
		log.Info("health reporter started", "topic", topic)
	}

	// Fan bridge status changes out to WebSocket subscribers and MQTT
	hub := apiServer.Hub()
	controller.SetOnStatusChange(func(status bridge.Status) {
		hub.Broadcast(api.ChannelBridgeStatus, status)
		if healthReporter != nil {
			healthReporter.PublishNow()
		}
	})

	// Auto-start the bridge if configured. Failure here is not fatal:
	// the admin API stays up so the operator can fix the Home Assistant
	// connection and start the bridge manually.
	if cfg.Bridge.AutoStart {
		if startErr := controller.Start(ctx); startErr != nil {
			log.Warn("bridge auto-start failed, start manually via the API",
				"error", startErr,
			)
		} else {
			log.Info("bridge auto-started")
		}
	}

	// Verify all infrastructure connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. Health reporter (if MQTT enabled)
	// 2. API server
	// 3. Bridge
	// 4. InfluxDB (if enabled)
	// 5. MQTT (if enabled)
	// 6. Database

	log.Info("OrcheStream stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses ORCHESTREAM_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("ORCHESTREAM_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	// Check database
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	// Check MQTT (if enabled)
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	// Check InfluxDB (if enabled)
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	// The Home Assistant connection is verified when the bridge starts;
	// it is not required for the admin API to come up.

	return nil
}

// SmartNest Core - Smart Home Admin Backend
//
// This is the main entry point for the SmartNest Core application: the
// administrative backend of a smart-home platform. It owns identity
// (users, roles, permission catalogue), the capability-based authorisation
// evaluator, the home model (rooms, devices, live sensor state), threshold
// alerting, audit history, and the realtime WebSocket channel fed from the
// device fleet over MQTT.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/smartnest/smartnest-core/migrations"

	"github.com/smartnest/smartnest-core/internal/api"
	"github.com/smartnest/smartnest-core/internal/audit"
	"github.com/smartnest/smartnest-core/internal/auth"
	"github.com/smartnest/smartnest-core/internal/home"
	"github.com/smartnest/smartnest-core/internal/infrastructure/config"
	"github.com/smartnest/smartnest-core/internal/infrastructure/database"
	"github.com/smartnest/smartnest-core/internal/infrastructure/influxdb"
	"github.com/smartnest/smartnest-core/internal/infrastructure/logging"
	"github.com/smartnest/smartnest-core/internal/infrastructure/mqtt"
	"github.com/smartnest/smartnest-core/internal/notification"
	"github.com/smartnest/smartnest-core/internal/settings"
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
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error { //nolint:gocognit // linear startup sequence
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting SmartNest Core",
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

	// Identity stores and first-boot seed
	userRepo := auth.NewUserRepository(db.DB)
	roleRepo := auth.NewRoleRepository(db.DB)
	permRepo := auth.NewPermissionRepository(db.DB)
	tokenRepo := auth.NewTokenRepository(db.DB)
	snapshots := auth.NewSnapshotSource(userRepo, roleRepo)

	if _, seedErr := auth.Seed(ctx, userRepo, roleRepo, permRepo, log.Logger); seedErr != nil {
		return fmt.Errorf("seeding identity: %w", seedErr)
	}
	log.Info("identity stores ready")

	// Home model: rooms, devices, live state
	homeRepo := home.NewRepository(db.DB)
	homeService := home.NewService(homeRepo, home.NewStateRegistry())

	// Notifications, settings, audit
	notifRepo := notification.NewRepository(db.DB)
	alerter := notification.NewAlerter(notifRepo, log.Logger)
	settingsRepo := settings.NewRepository(db.DB)
	auditRepo := audit.NewSQLiteRepository(db.DB)

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
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
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

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

	// API server
	server, err := api.New(api.Deps{
		Config:        cfg.API,
		WS:            cfg.WebSocket,
		Security:      cfg.Security,
		Logger:        log,
		Users:         userRepo,
		Roles:         roleRepo,
		Perms:         permRepo,
		Tokens:        tokenRepo,
		Snapshots:     snapshots,
		Home:          homeService,
		Notifications: notifRepo,
		Alerter:       alerter,
		Settings:      settingsRepo,
		Audit:         auditRepo,
		MQTT:          mqttClient,
		Influx:        influxClient,
		Version:       version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port))

	// Verify all connections are healthy
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
	// 2. InfluxDB (if enabled)
	// 3. MQTT
	// 4. Database

	log.Info("SmartNest Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses SMARTNEST_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("SMARTNEST_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

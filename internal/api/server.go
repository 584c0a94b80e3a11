package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/smartnest/smartnest-core/internal/audit"
	"github.com/smartnest/smartnest-core/internal/auth"
	"github.com/smartnest/smartnest-core/internal/home"
	"github.com/smartnest/smartnest-core/internal/infrastructure/config"
	"github.com/smartnest/smartnest-core/internal/infrastructure/influxdb"
	"github.com/smartnest/smartnest-core/internal/infrastructure/logging"
	"github.com/smartnest/smartnest-core/internal/infrastructure/mqtt"
	"github.com/smartnest/smartnest-core/internal/notification"
	"github.com/smartnest/smartnest-core/internal/settings"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config        config.APIConfig
	WS            config.WebSocketConfig
	Security      config.SecurityConfig
	Logger        *logging.Logger
	Users         auth.UserRepository
	Roles         auth.RoleRepository
	Perms         auth.PermissionRepository
	Tokens        auth.TokenRepository
	Snapshots     *auth.SnapshotSource
	Home          *home.Service
	Notifications notification.Repository
	Alerter       *notification.Alerter
	Settings      settings.Repository
	Audit         audit.Repository
	MQTT          *mqtt.Client    // optional: device commands and fleet events disabled without it
	Influx        *influxdb.Client // optional: telemetry writes disabled without it
	Version       string
}

// Server is the HTTP API server for SmartNest Core.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg           config.APIConfig
	wsCfg         config.WebSocketConfig
	secCfg        config.SecurityConfig
	logger        *logging.Logger
	users         auth.UserRepository
	roles         auth.RoleRepository
	perms         auth.PermissionRepository
	tokens        auth.TokenRepository
	snapshots     *auth.SnapshotSource
	home          *home.Service
	notifications notification.Repository
	alerter       *notification.Alerter
	settings      settings.Repository
	audit         audit.Repository
	mqtt          *mqtt.Client
	influx        *influxdb.Client
	version       string
	server        *http.Server
	hub           *Hub
	tickets       *ticketStore
	cancel        context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, repositories)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Users == nil || deps.Roles == nil || deps.Perms == nil || deps.Tokens == nil {
		return nil, fmt.Errorf("identity repositories are required")
	}
	if deps.Snapshots == nil {
		return nil, fmt.Errorf("snapshot source is required")
	}
	if deps.Home == nil {
		return nil, fmt.Errorf("home service is required")
	}
	if deps.Notifications == nil || deps.Settings == nil || deps.Audit == nil {
		return nil, fmt.Errorf("notification, settings, and audit repositories are required")
	}
	// MQTT and InfluxDB are optional — commands and telemetry degrade gracefully

	return &Server{
		cfg:           deps.Config,
		wsCfg:         deps.WS,
		secCfg:        deps.Security,
		logger:        deps.Logger,
		users:         deps.Users,
		roles:         deps.Roles,
		perms:         deps.Perms,
		tokens:        deps.Tokens,
		snapshots:     deps.Snapshots,
		home:          deps.Home,
		notifications: deps.Notifications,
		alerter:       deps.Alerter,
		settings:      deps.Settings,
		audit:         deps.Audit,
		mqtt:          deps.MQTT,
		influx:        deps.Influx,
		version:       deps.Version,
		tickets:       newTicketStore(),
	}, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub, subscribes to the MQTT
// fleet topics for realtime broadcast, and launches the HTTP listener in a
// background goroutine. The server can be stopped with Close().
//
// Parameters:
//   - ctx: Context for cancellation (not used for listener lifetime)
//
// Returns:
//   - error: If the server fails to start (port in use, etc.)
func (s *Server) Start(ctx context.Context) error {
	// Create internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	s.hub = NewHub(s.wsCfg, s.logger)
	go s.hub.Run(srvCtx)

	// Start periodic ticket cleanup to prevent memory leaks
	go s.tickets.cleanLoop(srvCtx)

	// Subscribe to sensor, device state, and device status topics
	if err := s.subscribeFleet(); err != nil {
		s.logger.Warn("failed to subscribe to fleet topics", "error", err)
	}

	router := s.buildRouter()

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
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	// Cancel background goroutines (hub, ticket cleanup)
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
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
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

// Intaked is the adaptive intake and validation daemon.
//
// This binary serves program schemas, validates submissions, and drives
// clarification dialogues over an HTTP API. Every session transition is
// recorded in a hash-chained audit trail, optionally mirrored onto NATS.
//
// Configuration is loaded from ~/.config/intaked/config.yaml (or the file
// given with -config) and INTAKED_* environment variables. See
// internal/config for details.
//
// Usage:
//
//	# Start the daemon with defaults
//	intaked
//
//	# Start with an explicit config file
//	intaked -config /etc/intaked/config.yaml
//
//	# Configure via environment
//	INTAKED_SERVER_PORT=9090 INTAKED_SCHEMA_PATH=programs.json intaked
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/openintake/intaked/internal/api"
	"github.com/openintake/intaked/internal/audit"
	"github.com/openintake/intaked/internal/config"
	"github.com/openintake/intaked/internal/dialogue"
	"github.com/openintake/intaked/internal/logging"
	"github.com/openintake/intaked/internal/schema"
	"github.com/openintake/intaked/internal/telemetry"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "config file path (default ~/.config/intaked/config.yaml)")
	flag.Parse()
	args := flag.Args()

	// Handle subcommands
	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  intaked            Start the intake daemon\n")
			fmt.Fprintf(os.Stderr, "  intaked version    Show version information\n")
			os.Exit(1)
		}
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("intaked by OpenIntake\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the intake daemon and blocks until the context is cancelled.
//
// This function initializes all dependencies and services:
//  1. Loads and validates configuration
//  2. Initializes telemetry and the structured logger
//  3. Opens the schema source(s) and loads the program registry
//  4. Connects infrastructure (Redis session store, NATS audit publishing)
//  5. Creates the audit trail and dialogue engine
//  6. Starts the TTL sweeper and the schema document watcher
//  7. Starts the HTTP server
//  8. Performs graceful shutdown on context cancellation
//
// Returns http.ErrServerClosed on graceful shutdown.
func run(ctx context.Context, configPath string) error {
	// Load configuration
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize telemetry before the logger so the OTEL logging bridge
	// can attach to its provider.
	tel, err := telemetry.New(ctx, telemetryConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tel.Shutdown(shutdownCtx)
	}()

	// Initialize logger
	logger, err := initLogger(cfg, tel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync() // Best-effort sync on shutdown
	}()

	zl := logger.Underlying()
	zl.Info("Starting intaked",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.String("store_backend", cfg.Store.Backend),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout.Duration()))

	// Initialize infrastructure dependencies
	deps, err := initDependencies(ctx, cfg, zl)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer deps.Close()

	zl.Info("Dependencies initialized",
		zap.Int("programs", deps.registry.Len()),
		zap.Bool("nats_connected", deps.natsConn != nil),
		zap.Bool("redis_store", deps.redisStore != nil))

	// Create the dialogue engine
	engine, err := dialogue.NewEngine(&dialogue.Config{
		MaxTurns:      cfg.Engine.MaxTurns,
		SessionTTL:    cfg.Engine.SessionTTL.Duration(),
		SweepInterval: cfg.Engine.SweepInterval.Duration(),
	}, deps.registry, deps.store, deps.trail, zl)
	if err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}
	defer func() { _ = engine.Close() }()

	engine.StartSweeper(ctx)

	// Start the schema document watcher (if enabled)
	if deps.watcher != nil {
		if err := deps.watcher.Start(ctx); err != nil {
			zl.Warn("Failed to start schema watcher", zap.Error(err))
		} else {
			zl.Info("Schema watcher started", zap.String("path", cfg.Schema.Path))
		}
	}

	// Create HTTP server
	srv, err := api.NewServer(engine, deps.registry, zl, &api.Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ShutdownTimeout: cfg.Server.ShutdownTimeout.Duration(),
		SessionRate:     cfg.Server.RateLimit,
		SessionBurst:    cfg.Server.RateBurst,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	api.RegisterLiveSessionsGauge(liveSessionCount(deps.store))

	zl.Info("Server configured",
		zap.String("health_endpoint", fmt.Sprintf("http://%s:%d/health", cfg.Server.Host, cfg.Server.Port)),
		zap.String("api_prefix", "/api/v1"),
		zap.String("metrics_endpoint", "/metrics"))

	// Start server (blocks until context cancellation)
	return srv.Start(ctx)
}

// dependencies holds all infrastructure dependencies.
type dependencies struct {
	registry   *schema.Registry
	watcher    *schema.Watcher
	catalog    *sql.DB
	store      dialogue.Store
	redisStore *dialogue.RedisStore
	natsConn   *nats.Conn
	trail      *audit.Trail
}

// Close releases all infrastructure resources.
func (d *dependencies) Close() {
	if d.watcher != nil {
		d.watcher.Stop()
	}
	if d.natsConn != nil {
		d.natsConn.Close()
	}
	if d.redisStore != nil {
		_ = d.redisStore.Close()
	}
	if d.catalog != nil {
		_ = d.catalog.Close()
	}
}

// initLogger builds the structured logger from daemon config, bridging
// to OTEL when telemetry provides a logger provider.
func initLogger(cfg *config.Config, tel *telemetry.Telemetry) (*logging.Logger, error) {
	logCfg := logging.NewDefaultConfig()
	logCfg.Format = cfg.Logging.Format

	level, err := logging.LevelFromString(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid logging level %q: %w", cfg.Logging.Level, err)
	}
	logCfg.Level = level

	return logging.NewLogger(logCfg, tel.LoggerProvider())
}

// telemetryConfig maps daemon config onto the telemetry package config.
func telemetryConfig(cfg *config.Config) *telemetry.Config {
	tc := telemetry.NewDefaultConfig()
	tc.Enabled = cfg.Telemetry.Enabled
	tc.Endpoint = cfg.Telemetry.Endpoint
	tc.Protocol = cfg.Telemetry.Protocol
	tc.Insecure = cfg.Telemetry.Insecure
	tc.Sampling.Rate = cfg.Telemetry.SampleRate
	tc.ServiceVersion = version
	return tc
}

// initDependencies initializes all infrastructure dependencies.
//
// This function:
//  1. Opens the configured schema source(s) and loads the registry
//  2. Creates the schema document watcher when enabled
//  3. Creates the session store (memory or Redis)
//  4. Connects to NATS and wires the audit publisher when enabled
func initDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*dependencies, error) {
	deps := &dependencies{}

	source, err := initSchemaSource(cfg, deps)
	if err != nil {
		deps.Close()
		return nil, err
	}

	registry, err := schema.NewRegistry(source, logger)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to create schema registry: %w", err)
	}
	if err := registry.Load(ctx); err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to load program schemas: %w", err)
	}
	deps.registry = registry

	if cfg.Schema.Watch && cfg.Schema.Path != "" {
		watcher, err := schema.NewWatcher(registry, cfg.Schema.Path, logger)
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("failed to create schema watcher: %w", err)
		}
		deps.watcher = watcher
	}

	switch cfg.Store.Backend {
	case "redis":
		rs := dialogue.NewRedisStore(cfg.Store.Redis.Addr, cfg.Store.Redis.Password.Value(), cfg.Store.Redis.DB)
		if err := rs.Ping(ctx); err != nil {
			deps.Close()
			return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Store.Redis.Addr, err)
		}
		deps.redisStore = rs
		deps.store = rs
		logger.Info("Connected to Redis", zap.String("addr", cfg.Store.Redis.Addr))
	default:
		deps.store = dialogue.NewMemoryStore()
	}

	trail := audit.NewTrail(logger)
	if cfg.Audit.Publish {
		nc, err := nats.Connect(cfg.Audit.NATSURL,
			nats.RetryOnFailedConnect(true),
			nats.MaxReconnects(5),
			nats.ReconnectWait(1*time.Second),
		)
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.Audit.NATSURL, err)
		}
		deps.natsConn = nc

		publisher, err := audit.NewPublisher(nc, cfg.Audit.SubjectPrefix, logger)
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("failed to create audit publisher: %w", err)
		}
		trail.AddHandler(publisher.Handler())

		logger.Info("Connected to NATS",
			zap.String("url", cfg.Audit.NATSURL),
			zap.String("subject_prefix", cfg.Audit.SubjectPrefix))
	}
	deps.trail = trail

	return deps, nil
}

// initSchemaSource opens the configured schema source. When both a JSON
// document and a SQLite catalog are configured, the document is layered
// over the catalog and wins for programs defined in both.
func initSchemaSource(cfg *config.Config, deps *dependencies) (schema.Source, error) {
	var sources []schema.Source

	if cfg.Schema.Path != "" {
		fs, err := schema.NewFileSource(cfg.Schema.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open schema document: %w", err)
		}
		sources = append(sources, fs)
	}

	if cfg.Schema.CatalogPath != "" {
		db, err := schema.OpenCatalog(cfg.Schema.CatalogPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open program catalog: %w", err)
		}
		deps.catalog = db

		cs, err := schema.NewCatalogSource(db)
		if err != nil {
			return nil, fmt.Errorf("failed to create catalog source: %w", err)
		}
		sources = append(sources, cs)
	}

	if len(sources) == 1 {
		return sources[0], nil
	}
	return schema.NewMultiSource(sources...)
}

// liveSessionCount counts non-terminal sessions for the live-sessions
// gauge. The count runs on every scrape of /metrics.
func liveSessionCount(store dialogue.Store) func() float64 {
	return func() float64 {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		sessions, err := store.List(ctx)
		if err != nil {
			return 0
		}
		var live float64
		for _, s := range sessions {
			if !s.State.Terminal() {
				live++
			}
		}
		return live
	}
}

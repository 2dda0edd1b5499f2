package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"liqmine/config"
	"liqmine/core/events"
	"liqmine/core/state"
	"liqmine/native/common"
	"liqmine/native/liquidity"
	"liqmine/observability/logging"
	"liqmine/observability/metrics"
	telemetry "liqmine/observability/otel"
	"liqmine/rpc"
	"liqmine/rpc/middleware"
	"liqmine/storage"
)

const shutdownGrace = 10 * time.Second

func main() {
	configFile := flag.String("config", "./liqmine.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("LIQMINE_ENV"))

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	var fileCfg *logging.FileConfig
	if strings.TrimSpace(cfg.LogFile) != "" {
		fileCfg = &logging.FileConfig{
			Path:       cfg.LogFile,
			MaxSizeMB:  cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
		}
	}
	logger := logging.Setup("liqmined", env, fileCfg)

	source, err := cfg.Source()
	if err != nil {
		logger.Error("invalid event source configuration", "error", err)
		os.Exit(1)
	}

	telemetryShutdown := func(context.Context) error { return nil }
	if cfg.TracingEnabled {
		shutdown, err := telemetry.Init(context.Background(), telemetry.Config{
			ServiceName: "liqmined",
			Environment: env,
			Endpoint:    cfg.OTLPEndpoint,
			Insecure:    cfg.OTLPInsecure,
			Headers:     telemetry.ParseHeaders(cfg.OTLPHeaders),
		})
		if err != nil {
			logger.Error("failed to initialise telemetry", "error", err)
			os.Exit(1)
		}
		telemetryShutdown = shutdown
	}

	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "liqmine"))
	if err != nil {
		logger.Error("failed to open database", "error", err, "dataDir", cfg.DataDir)
		os.Exit(1)
	}
	defer db.Close()

	engine := liquidity.NewEngine()
	engine.SetState(state.NewManager(db))
	engine.SetAuthorizer(common.StaticSource(source))

	hub := rpc.NewHub()
	engine.SetEmitter(events.FanOut{hub, metrics.NewRecorder()})

	auth := middleware.NewAuthenticator(middleware.AuthConfig{
		Mode:       cfg.AuthMode,
		Token:      os.Getenv(cfg.AuthTokenEnv),
		HMACSecret: os.Getenv(cfg.JWTSecretEnv),
		Issuer:     cfg.JWTIssuer,
		Audience:   cfg.JWTAudience,
	}, logger)
	limiter := middleware.NewRateLimiter(middleware.RateLimit{
		RequestsPerMinute: cfg.RequestsPerMinute,
		Burst:             cfg.RequestBurst,
	}, logger)
	obs := middleware.NewObservability(middleware.ObservabilityConfig{
		ServiceName: "liqmined",
		Enabled:     cfg.MetricsEnabled,
	}, logger)

	server := rpc.NewServer(engine, source, logger, hub)
	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           server.Router(auth, limiter, obs),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("notification API listening", "address", cfg.ListenAddress)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Warn("shutdown incomplete", "error", err)
	}
	if err := telemetryShutdown(ctx); err != nil {
		logger.Warn("telemetry shutdown incomplete", "error", err)
	}
}

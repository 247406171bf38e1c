package cmd

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/gsokit/gsoscope/internal/appid"
	"github.com/gsokit/gsoscope/internal/config"
	apperrors "github.com/gsokit/gsoscope/internal/errors"
	"github.com/gsokit/gsoscope/internal/metrics"
	"github.com/gsokit/gsoscope/internal/observability"
	"github.com/gsokit/gsoscope/internal/server"
	"github.com/gsokit/gsoscope/internal/server/handlers"
)

var (
	serverPort int
	serverHost string
)

// telemetryHealthChecker ensures telemetry system and exporter are available
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(ctx context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return apperrors.NewInternalError("telemetry system not initialized")
	}
	return nil
}

// configHealthChecker fails while the last SIGHUP reload found an invalid
// config file.
type configHealthChecker struct {
	mu      sync.Mutex
	lastErr error
}

func (c *configHealthChecker) set(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastErr = err
}

func (c *configHealthChecker) CheckHealth(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API with graceful shutdown support.

Routes:
  POST /v1/search      run one query across enabled platforms
  GET  /v1/platforms   platform configuration with live limiter and breaker state
  GET  /health/*       liveness, readiness, and startup probes
  GET  /metrics        Prometheus metrics (when metrics.enabled)

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Re-validate the config file (restart to apply changes)

Limiter and circuit breaker state is kept for the life of the process.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		identity := appid.Get()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		observability.InitServerLogger(identity.BinaryName, cfg.Logging.Level, cfg.Logging.Profile)
		log := observability.ServerLogger

		if cfg.Metrics.Enabled {
			if err := observability.InitMetrics(identity.BinaryName, cfg.Metrics.Port); err != nil {
				log.Error("Failed to initialize metrics", zap.Error(err))
				return apperrors.Wrap(cmd.Context(), apperrors.CodeInternal, err, "metrics initialization failed")
			}
		}
		startedAt := time.Now()
		metrics.SetServerStartTime(startedAt.Unix())

		mgr, set, err := buildSearchManager(cfg)
		if err != nil {
			return err
		}

		log.Info("Initializing server",
			zap.String("service", identity.BinaryName),
			zap.String("version", versionInfo.Version),
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port),
			zap.Bool("metrics", cfg.Metrics.Enabled),
			zap.Int("metrics_port", observability.GetMetricsPort()),
			zap.String("mode", string(set.Mode)),
			zap.Int("platforms", len(mgr.Platforms)))

		configHealth := &configHealthChecker{}
		hm := handlers.NewHealthManager(versionInfo.Version)
		hm.RegisterChecker("platform_circuits", handlers.CircuitChecker(mgr))
		hm.RegisterChecker("config", configHealth)
		if cfg.Metrics.Enabled {
			hm.RegisterChecker("telemetry", telemetryHealthChecker{})
		}

		srv := server.New(cfg, server.Deps{
			Searcher: mgr,
			Health:   hm,
			Identity: identity,
			Build: handlers.BuildInfo{
				Version:   versionInfo.Version,
				Commit:    versionInfo.Commit,
				BuildDate: versionInfo.BuildDate,
			},
			AdminToken: os.Getenv(identity.Env("ADMIN_TOKEN")),
		})

		// Shutdown handlers run LIFO: the HTTP server stops first, the logger
		// flushes last.
		signals.OnShutdown(func(ctx context.Context) error {
			log.Info("Flushing logger...")
			if err := log.Sync(); err != nil {
				log.Warn("Logger sync returned error (may be benign)", zap.Error(err))
			}
			return nil
		})

		signals.OnShutdown(func(ctx context.Context) error {
			if err := observability.ShutdownMetrics(); err != nil {
				log.Warn("Failed to stop metrics exporter", zap.Error(err))
			}
			closeTracer()
			return nil
		})

		signals.OnShutdown(func(ctx context.Context) error {
			log.Info("Shutting down HTTP server...")
			shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
			defer cancel()

			metrics.SetServerUptime(int64(time.Since(startedAt).Seconds()))
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return apperrors.Wrap(ctx, apperrors.CodeInternal, err, "server shutdown failed")
			}

			log.Info("HTTP server stopped gracefully")
			return nil
		})

		signals.OnReload(func(ctx context.Context) error {
			log.Info("Received SIGHUP: re-validating config")

			if err := viper.ReadInConfig(); err != nil {
				var notFound viper.ConfigFileNotFoundError
				if errors.As(err, &notFound) {
					log.Info("No config file found - using defaults and environment variables")
					return nil
				}
				log.Error("Failed to reload config file",
					zap.String("file", viper.ConfigFileUsed()),
					zap.Error(err))
				configHealth.set(err)
				return apperrors.Wrap(ctx, apperrors.CodeConfigInvalid, err, "config reload failed")
			}

			if _, err := config.Load(viper.GetViper()); err != nil {
				log.Error("Reloaded config is invalid", zap.Error(err))
				configHealth.set(err)
				return apperrors.Wrap(ctx, apperrors.CodeConfigInvalid, err, "config reload failed")
			}
			configHealth.set(nil)

			log.Info("Configuration is valid; restart to apply platform changes",
				zap.String("file", viper.ConfigFileUsed()))
			return nil
		})

		if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
			Window:  2 * time.Second,
			Message: "Press Ctrl+C again within 2 seconds to force quit",
		}); err != nil {
			log.Warn("Failed to enable double-tap force quit", zap.Error(err))
		}

		errChan := make(chan error, 1)
		go func() {
			if err := srv.Start(); err != nil {
				errChan <- err
			}
		}()

		go func() {
			if err := signals.Listen(cmd.Context()); err != nil {
				log.Error("Signal handler error", zap.Error(err))
				errChan <- err
			}
		}()

		if err := <-errChan; err != nil {
			return apperrors.Wrap(cmd.Context(), apperrors.CodeInternal, err, "server error")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "localhost", "server host")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "server port")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}

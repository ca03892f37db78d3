// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/garyellow/program-lookup/internal/api"
	"github.com/garyellow/program-lookup/internal/buildinfo"
	"github.com/garyellow/program-lookup/internal/config"
	"github.com/garyellow/program-lookup/internal/dataset"
	"github.com/garyellow/program-lookup/internal/logger"
	"github.com/garyellow/program-lookup/internal/metrics"
	"github.com/garyellow/program-lookup/internal/program"
	"github.com/garyellow/program-lookup/internal/r2client"
	"github.com/garyellow/program-lookup/internal/sentry"
	"github.com/garyellow/program-lookup/internal/sftpclient"
	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Application manages the application lifecycle and dependencies.
type Application struct {
	cfg      *config.Config
	logger   *logger.Logger
	metrics  *metrics.Metrics
	registry *prometheus.Registry
	loader   *dataset.Loader
	router   *gin.Engine
	server   *http.Server
	wg       sync.WaitGroup // Tracks background goroutines for graceful shutdown
}

// Initialize creates and initializes a new application with all dependencies.
func Initialize(ctx context.Context, cfg *config.Config) (*Application, error) {
	log := logger.NewWithOptions(cfg.LogLevel, os.Stdout, logger.Options{
		BetterStackToken:    cfg.BetterStackToken,
		BetterStackEndpoint: cfg.BetterStackEndpoint,
	})

	log = log.WithField("service", "program-lookup")
	if host, err := os.Hostname(); err == nil && host != "" {
		log = log.WithField("instance_id", host)
	}

	// Package-level slog.*Context() calls pick up request_id through ContextHandler.
	slog.SetDefault(log.Logger)

	log.Info("Initializing application...")
	if cfg.BetterStackToken != "" {
		log.WithField("endpoint", cfg.BetterStackEndpoint).Info("Better Stack logging enabled")
	}

	if err := sentry.Initialize(sentry.Config{
		DSN:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		Release:     buildinfo.Release(),
		SampleRate:  cfg.SentrySampleRate,
	}); err != nil {
		log.WithError(err).Warn("Sentry initialization failed, continuing without error tracking")
	} else if sentry.IsEnabled() {
		log.WithField("environment", cfg.SentryEnvironment).Info("Sentry error tracking enabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)
	m := metrics.New(registry)
	if !cfg.MetricsAuthEnabled() {
		log.Warn("METRICS_PASSWORD not set, /metrics is served without authentication")
	}

	source, err := NewSource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("dataset source: %w", err)
	}
	log.WithField("source", source.Location()).Info("Dataset source configured")

	gin.SetMode(gin.ReleaseMode)
	app := New(cfg, log, m, registry, dataset.NewLoader(source, log, m))

	app.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           gzhttp.GzipHandler(app.Handler()),
		ReadHeaderTimeout: config.HTTPRead,
		ReadTimeout:       config.HTTPRead,
		WriteTimeout:      config.HTTPWrite,
		IdleTimeout:       config.HTTPIdle,
	}

	log.Info("Initialization complete")
	return app, nil
}

// New wires the HTTP routes around an existing loader. Initialize uses it
// after building the dataset source; tests call it directly.
func New(cfg *config.Config, log *logger.Logger, m *metrics.Metrics, registry *prometheus.Registry, loader *dataset.Loader) *Application {
	app := &Application{
		cfg:      cfg,
		logger:   log,
		metrics:  m,
		registry: registry,
		loader:   loader,
	}
	app.router = app.newRouter(program.NewService(loader, log, m))
	return app
}

// Handler returns the routed gin engine without compression.
func (a *Application) Handler() http.Handler {
	return escapedPathHandler(a.router)
}

// NewSource returns the dataset source selected by cfg: R2 or SFTP when
// configured, else the local file.
func NewSource(ctx context.Context, cfg *config.Config) (dataset.Source, error) {
	switch {
	case cfg.R2.Enabled():
		client, err := r2client.New(ctx, r2client.Config{
			Endpoint:    cfg.R2.Endpoint,
			AccessKeyID: cfg.R2.AccessKeyID,
			SecretKey:   cfg.R2.SecretAccessKey,
			BucketName:  cfg.R2.Bucket,
		})
		if err != nil {
			return nil, err
		}
		return dataset.NewR2Source(client, cfg.R2.Key), nil
	case cfg.SFTP.Enabled():
		client, err := sftpclient.New(sftpclient.Config{
			Host:                  cfg.SFTP.Host,
			Port:                  cfg.SFTP.Port,
			User:                  cfg.SFTP.User,
			Password:              cfg.SFTP.Password,
			KnownHostsFile:        cfg.SFTP.KnownHostsFile,
			InsecureIgnoreHostKey: cfg.SFTP.InsecureIgnoreHostKey,
		})
		if err != nil {
			return nil, err
		}
		return dataset.NewSFTPSource(client, cfg.SFTP.Path), nil
	default:
		return dataset.NewFileSource(cfg.DatasetPath()), nil
	}
}

func (a *Application) newRouter(finder api.ProgramFinder) *gin.Engine {
	router := gin.New()
	// Route on the escaped path so an encoded "/" stays inside :id.
	// The lookup service decodes the identifier itself.
	router.UseRawPath = true
	router.UnescapePathValues = false

	router.Use(gin.Recovery())
	router.Use(sentry.Middleware())
	router.Use(securityHeadersMiddleware())
	router.Use(requestIDMiddleware())
	router.Use(loggingMiddleware(a.logger))

	router.GET("/", a.redirectToHomepage)
	router.GET("/livez", a.livenessCheck)
	router.HEAD("/livez", a.livenessCheck)
	router.GET("/readyz", a.readinessCheck)
	router.HEAD("/readyz", a.readinessCheck)
	router.GET("/metrics",
		basicAuthMiddleware("metrics", a.cfg.MetricsUsername, a.cfg.MetricsPassword),
		gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))

	api.NewHandler(finder, a.logger, a.metrics).Register(router)
	router.NoRoute(api.NoRoute)
	return router
}

func (a *Application) redirectToHomepage(c *gin.Context) {
	c.Redirect(http.StatusTemporaryRedirect, a.cfg.HomepageURL)
}

func (a *Application) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

func (a *Application) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), config.ReadinessCheckTimeout)
	defer cancel()

	ds, err := a.loader.Load(ctx)
	if err != nil {
		a.logger.WithError(err).WarnContext(ctx, "Readiness check failed: dataset unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "dataset unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"dataset": gin.H{
			"source":    ds.Source(),
			"records":   ds.Len(),
			"loaded_at": ds.LoadedAt().UTC().Format(time.RFC3339),
		},
	})
}

// Run starts the server and blocks until SIGINT or SIGTERM, then shuts down.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.startBackgroundJobs(ctx)
	a.startHTTPServer()

	sig := a.waitForShutdownSignal()
	a.logger.WithField("signal", sig.String()).Info("Received shutdown signal")

	cancel()

	a.logger.Info("Waiting for background jobs to finish...")
	start := time.Now()
	a.wg.Wait()
	a.logger.WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("All background jobs completed")

	return a.shutdown()
}

func (a *Application) startBackgroundJobs(ctx context.Context) {
	if !a.cfg.DatasetPreload {
		a.logger.Debug("Dataset preload disabled, loading on first request")
		return
	}
	a.wg.Go(func() {
		a.preloadDataset(ctx)
	})
}

// preloadDataset warms the loader cache so the first lookup skips the read.
// Failure is logged only; the next request retries the load.
func (a *Application) preloadDataset(ctx context.Context) {
	preloadCtx, cancel := context.WithTimeout(ctx, config.DatasetPreload)
	defer cancel()

	if _, err := a.loader.Load(preloadCtx); err != nil {
		a.logger.WithError(err).Warn("Dataset preload failed, will retry on first request")
		sentry.CaptureExceptionWithContext(ctx, err)
		return
	}
	a.logger.Debug("Dataset preload finished")
}

func (a *Application) startHTTPServer() {
	go func() {
		a.logger.WithField("port", a.cfg.Port).Info("Starting HTTP server")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.WithError(err).Error("HTTP server error")
		}
	}()
}

func (a *Application) waitForShutdownSignal() os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return <-quit
}

func (a *Application) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	a.logger.Info("Stopping HTTP server...")
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("HTTP server shutdown error")
	}

	if sentry.IsEnabled() && !sentry.Flush(config.SentryFlush) {
		a.logger.Warn("Sentry flush timed out")
	}

	a.logger.Info("Shutdown complete")
	return nil
}

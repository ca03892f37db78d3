// Package config provides centralized timeout constants for the application.
//
// The lookup path is a linear scan over an in-memory dataset, so request
// handling is fast. The only slow operation is the first dataset read, which
// may download the workbook from object storage.
package config

import "time"

// HTTP server timeouts
const (
	// HTTPRead is the HTTP server read timeout. Lookup requests have no body.
	HTTPRead = 10 * time.Second

	// HTTPWrite is the HTTP server write timeout.
	// Must cover a cold dataset load triggered by the first request.
	HTTPWrite = 30 * time.Second

	// HTTPIdle is the HTTP server idle timeout for keep-alive connections.
	HTTPIdle = 120 * time.Second
)

// Dataset timeouts
const (
	// DatasetLoad bounds one shared dataset read, independent of the
	// callers waiting on it.
	DatasetLoad = 2 * time.Minute

	// DatasetPreload bounds the startup preload of the dataset.
	// A timed-out preload leaves the cache empty; the next lookup retries.
	DatasetPreload = 2 * time.Minute
)

// Probe timeouts
const (
	// ReadinessCheckTimeout bounds the readiness probe, which may trigger a load.
	ReadinessCheckTimeout = 5 * time.Second

	// HealthcheckClient is the timeout of the container healthcheck binary.
	HealthcheckClient = 8 * time.Second
)

// Graceful shutdown
const (
	// SentryFlush bounds delivery of buffered Sentry events at shutdown.
	SentryFlush = 2 * time.Second

	// GracefulShutdown is the default timeout for graceful server shutdown.
	// Allows in-flight requests to complete before forceful termination.
	GracefulShutdown = 30 * time.Second
)

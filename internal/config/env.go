// Package config defines environment variable keys for configuration.
package config

//nolint:gosec,revive // Environment variable keys are not credentials and do not need per-const comments.
const (
	// Server
	EnvPort            = "PORT"
	EnvLogLevel        = "LOG_LEVEL"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
	EnvHomepageURL     = "HOMEPAGE_URL"

	// Dataset
	EnvDataDir        = "DATA_DIR"
	EnvDatasetFile    = "DATASET_FILE"
	EnvDatasetPreload = "DATASET_PRELOAD"

	// Dataset from R2
	EnvDatasetR2Endpoint        = "DATASET_R2_ENDPOINT"
	EnvDatasetR2AccessKeyID     = "DATASET_R2_ACCESS_KEY_ID"
	EnvDatasetR2SecretAccessKey = "DATASET_R2_SECRET_ACCESS_KEY"
	EnvDatasetR2Bucket          = "DATASET_R2_BUCKET"
	EnvDatasetR2Key             = "DATASET_R2_KEY"

	// Dataset from SFTP
	EnvDatasetSFTPHost                  = "DATASET_SFTP_HOST"
	EnvDatasetSFTPPort                  = "DATASET_SFTP_PORT"
	EnvDatasetSFTPUser                  = "DATASET_SFTP_USER"
	EnvDatasetSFTPPassword              = "DATASET_SFTP_PASSWORD"
	EnvDatasetSFTPPath                  = "DATASET_SFTP_PATH"
	EnvDatasetSFTPKnownHosts            = "DATASET_SFTP_KNOWN_HOSTS"
	EnvDatasetSFTPInsecureIgnoreHostKey = "DATASET_SFTP_INSECURE_IGNORE_HOST_KEY"

	// Sentry Feature
	EnvSentryDSN         = "SENTRY_DSN"
	EnvSentryEnvironment = "SENTRY_ENVIRONMENT"
	EnvSentrySampleRate  = "SENTRY_SAMPLE_RATE"

	// Better Stack Feature
	EnvBetterStackToken    = "BETTERSTACK_TOKEN"
	EnvBetterStackEndpoint = "BETTERSTACK_ENDPOINT"

	// Metrics Auth Feature
	EnvMetricsUsername = "METRICS_USERNAME"
	EnvMetricsPassword = "METRICS_PASSWORD"
)

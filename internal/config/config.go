package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/edvin/sitebuilder/internal/model"
)

type Config struct {
	DatabaseURL     string
	TemporalAddress string
	// TemporalNamespace defaults to "default".
	TemporalNamespace string
	HTTPListenAddr    string
	MetricsAddr       string
	LogLevel          string
	ServiceName       string

	TemporalTLSCert       string
	TemporalTLSKey        string
	TemporalTLSCACert     string
	TemporalTLSServerName string

	// AppBaseURL is the public URL of this application. Simulated deployments
	// point at its project preview endpoint.
	AppBaseURL string

	ProviderAPIURL      string
	ProviderToken       string
	ProviderTeamID      string
	ProviderAliasDomain string

	SnapshotBucket      string
	SnapshotS3Endpoint  string
	SnapshotS3Region    string
	SnapshotS3AccessKey string
	SnapshotS3SecretKey string

	DeployRecoveryBudget int
	DeployMaxPolls       int
	DeployPollInterval   time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		TemporalAddress:   getEnv("TEMPORAL_ADDRESS", "localhost:7233"),
		TemporalNamespace: getEnv("TEMPORAL_NAMESPACE", "default"),
		HTTPListenAddr:    getEnv("HTTP_LISTEN_ADDR", ":8090"),
		MetricsAddr:       getEnv("METRICS_ADDR", ""),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		ServiceName:       getEnv("SERVICE_NAME", ""),

		TemporalTLSCert:       getEnv("TEMPORAL_TLS_CERT", ""),
		TemporalTLSKey:        getEnv("TEMPORAL_TLS_KEY", ""),
		TemporalTLSCACert:     getEnv("TEMPORAL_TLS_CA_CERT", ""),
		TemporalTLSServerName: getEnv("TEMPORAL_TLS_SERVER_NAME", ""),

		AppBaseURL: strings.TrimRight(getEnv("APP_BASE_URL", "http://localhost:8090"), "/"),

		ProviderAPIURL:      strings.TrimRight(getEnv("VERCEL_API_URL", "https://api.vercel.com"), "/"),
		ProviderToken:       getEnv("VERCEL_TOKEN", ""),
		ProviderTeamID:      getEnv("VERCEL_TEAM_ID", ""),
		ProviderAliasDomain: getEnv("VERCEL_ALIAS_DOMAIN", "vercel.app"),

		SnapshotBucket:      getEnv("SNAPSHOT_BUCKET", ""),
		SnapshotS3Endpoint:  getEnv("SNAPSHOT_S3_ENDPOINT", ""),
		SnapshotS3Region:    getEnv("SNAPSHOT_S3_REGION", "us-east-1"),
		SnapshotS3AccessKey: getEnv("SNAPSHOT_S3_ACCESS_KEY", ""),
		SnapshotS3SecretKey: getEnv("SNAPSHOT_S3_SECRET_KEY", ""),
	}

	var err error
	if cfg.DeployRecoveryBudget, err = getEnvInt("DEPLOY_RECOVERY_BUDGET", 1); err != nil {
		return nil, err
	}
	if cfg.DeployMaxPolls, err = getEnvInt("DEPLOY_MAX_POLLS", 30); err != nil {
		return nil, err
	}
	if cfg.DeployPollInterval, err = getEnvDuration("DEPLOY_POLL_INTERVAL", 10*time.Second); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the values required by the named component are set.
func (c *Config) Validate(component string) error {
	var missing []string
	switch component {
	case "core-api", "worker":
		if c.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
		if c.TemporalAddress == "" {
			missing = append(missing, "TEMPORAL_ADDRESS")
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required config for %s: %s", component, strings.Join(missing, ", "))
	}

	if c.DeployRecoveryBudget < 0 {
		return fmt.Errorf("DEPLOY_RECOVERY_BUDGET must not be negative")
	}
	if c.DeployMaxPolls < 1 {
		return fmt.Errorf("DEPLOY_MAX_POLLS must be at least 1")
	}
	if c.DeployPollInterval <= 0 {
		return fmt.Errorf("DEPLOY_POLL_INTERVAL must be positive")
	}
	if (c.SnapshotS3AccessKey == "") != (c.SnapshotS3SecretKey == "") {
		return fmt.Errorf("SNAPSHOT_S3_ACCESS_KEY and SNAPSHOT_S3_SECRET_KEY must be set together")
	}
	return nil
}

// ProviderEnabled reports whether a deployment provider token is configured.
// Without one every deployment takes the simulated path.
func (c *Config) ProviderEnabled() bool {
	return c.ProviderToken != ""
}

// DeployParams returns the deploy settings every new attempt is queued with.
func (c *Config) DeployParams() model.DeployParams {
	return model.DeployParams{
		RecoveryBudget: c.DeployRecoveryBudget,
		MaxPolls:       c.DeployMaxPolls,
		PollInterval:   c.DeployPollInterval,
	}
}

// SnapshotsEnabled reports whether file snapshots are archived to S3.
func (c *Config) SnapshotsEnabled() bool {
	return c.SnapshotBucket != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

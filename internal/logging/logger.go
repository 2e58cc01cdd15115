package logging

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/edvin/sitebuilder/internal/config"
)

// NewLogger creates a zerolog.Logger tagged with the service name and the
// deployment provider mode so simulated and real runs are easy to tell apart.
func NewLogger(cfg *config.Config) zerolog.Logger {
	ctx := zerolog.New(os.Stdout).With().Timestamp()

	if cfg.ServiceName != "" {
		ctx = ctx.Str("service", cfg.ServiceName)
	}
	if cfg.ProviderEnabled() {
		ctx = ctx.Str("provider", "vercel")
	} else {
		ctx = ctx.Str("provider", "simulated")
	}

	logger := ctx.Logger()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}

	return logger.Level(level)
}

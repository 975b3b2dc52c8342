//go:build !prod

package logging

import (
	"log/slog"
	"os"
)

// Setup initializes console logging.
// Returns the configured logger, a no-op close function, and any error.
func Setup(cfg *Config) (*slog.Logger, func() error, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	logger := slog.New(newHandler(out, cfg))
	setGlobal(logger)

	return logger, func() error { return nil }, nil
}

// Package logging builds the node's zap logger. The level comes from the
// UTXONET_LOG environment variable unless a flag overrides it.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvVar names the environment variable holding the default log level.
const EnvVar = "UTXONET_LOG"

// New builds a console logger at the given level. An empty level falls back
// to UTXONET_LOG, then to "info".
func New(level string) (*zap.Logger, error) {
	if level == "" {
		level = os.Getenv(EnvVar)
	}
	if level == "" {
		level = "info"
	}
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", level, err)
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(parsed)
	cfg.DisableStacktrace = true
	return cfg.Build()
}

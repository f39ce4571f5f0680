// Package logging builds the zap logger used across the ledger.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	EnvironmentProduction  = "production"
	EnvironmentStaging     = "staging"
	EnvironmentDevelopment = "development"
	EnvironmentLocal       = "local"
)

// New creates a JSON logger writing to stderr. Development and local
// environments default to debug, everything else to info; a non-empty level
// overrides both.
func New(environment, level string) (*zap.Logger, error) {
	switch environment {
	case EnvironmentProduction, EnvironmentStaging, EnvironmentDevelopment, EnvironmentLocal:
	default:
		return nil, fmt.Errorf("invalid environment %q", environment)
	}

	cfg := buildConfig(environment)
	lvl, err := resolveLevel(environment, level)
	if err != nil {
		return nil, err
	}
	cfg.Level = lvl

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

func isDevelopment(environment string) bool {
	return environment == EnvironmentDevelopment || environment == EnvironmentLocal
}

func resolveLevel(environment, level string) (zap.AtomicLevel, error) {
	if strings.TrimSpace(level) != "" {
		var parsed zapcore.Level
		if err := parsed.Set(level); err != nil {
			return zap.AtomicLevel{}, fmt.Errorf("invalid level %q: %w", level, err)
		}
		return zap.NewAtomicLevelAt(parsed), nil
	}
	if isDevelopment(environment) {
		return zap.NewAtomicLevelAt(zapcore.DebugLevel), nil
	}
	return zap.NewAtomicLevelAt(zapcore.InfoLevel), nil
}

func buildConfig(environment string) zap.Config {
	cfg := zap.NewProductionConfig()
	if isDevelopment(environment) {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Encoding = "json"
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.DisableStacktrace = true
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg
}

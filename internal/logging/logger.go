package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/supportops/ticket-triage/internal/config"
)

// InitLogger builds the daemon logger from configuration: level, encoder
// format and output path
func InitLogger(cfg *config.Config) (*zap.Logger, error) {
	logConfig := buildConfig(cfg.GetString("logging.format") == "json")
	logConfig.Level = zap.NewAtomicLevelAt(parseLevel(cfg.GetString("logging.level")))
	if path := cfg.GetString("logging.output_path"); path != "" {
		logConfig.OutputPaths = []string{path}
	}

	logger, err := logConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// InitConsoleLogger builds a console-friendly logger for one-shot CLI runs
func InitConsoleLogger(verbose bool, jsonFormat bool) (*zap.Logger, error) {
	logConfig := buildConfig(jsonFormat)
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	logConfig.Level = zap.NewAtomicLevelAt(level)

	logger, err := logConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

func buildConfig(jsonFormat bool) zap.Config {
	if jsonFormat {
		return zap.NewProductionConfig()
	}
	logConfig := zap.NewDevelopmentConfig()
	logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return logConfig
}

// parseLevel maps the configured level name onto a zap level, falling back
// to info for anything unrecognized
func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/supportops/ticket-triage/internal/config"
	"github.com/supportops/ticket-triage/internal/core"
	"github.com/supportops/ticket-triage/internal/di"
	"github.com/supportops/ticket-triage/internal/ports"
	"go.uber.org/zap"
)

func main() {
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build container: %v\n", err)
		os.Exit(1)
	}

	err = container.Invoke(run)
	if err != nil {
		fmt.Printf("Failed to run application: %v\n", err)
		os.Exit(1)
	}
}

func run(logger *zap.Logger, cfg *config.Config, runners []ports.Runner, classifier core.Classifier, journal core.Journal) error {
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", zap.Error(err))
		return err
	}

	triage := cfg.GetTriage()
	logger.Info("Starting ticket triage",
		zap.String("llm_provider", cfg.GetLLM().Provider),
		zap.Float64("spam_threshold", triage.SpamThreshold),
		zap.Float64("auto_close_threshold", triage.AutoCloseThreshold),
		zap.Duration("check_interval", triage.CheckInterval),
		zap.Bool("dry_run", triage.DryRun))
	if triage.DryRun {
		logger.Warn("Dry run is enabled: mutations are logged but not applied")
	}

	// Start the runners
	started := make([]ports.Runner, 0, len(runners))
	for _, runner := range runners {
		if err := runner.Start(); err != nil {
			logger.Error("Failed to start runner", zap.Error(err))
			stopRunners(started, logger)
			return err
		}
		started = append(started, runner)
	}
	logger.Info("Ticket triage started")

	// Wait for termination signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("Shutting down...")
	stopRunners(started, logger)

	// Close any resources that need closing
	if closer, ok := classifier.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close classifier", zap.Error(err))
		}
	}
	if closer, ok := journal.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close journal", zap.Error(err))
		}
	}

	logger.Info("Shutdown complete")
	return nil
}

// stopRunners stops runners in reverse start order
func stopRunners(runners []ports.Runner, logger *zap.Logger) {
	for i := len(runners) - 1; i >= 0; i-- {
		if err := runners[i].Stop(); err != nil {
			logger.Error("Failed to stop runner", zap.Error(err))
		}
	}
}

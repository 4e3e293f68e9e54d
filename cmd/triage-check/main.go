package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/supportops/ticket-triage/internal/config"
	"github.com/supportops/ticket-triage/internal/core"
	"github.com/supportops/ticket-triage/internal/di"
	"go.uber.org/zap"
)

func main() {
	flags := di.ParseFlags()

	container, err := di.BuildCLIContainer(flags)
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

func run(flags *di.CLIFlags, cfg *config.Config, logger *zap.Logger, service *core.TriageService, classifier core.Classifier) error {
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", zap.Error(err))
		return err
	}

	// Close any resources that need closing
	defer func() {
		if closer, ok := classifier.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				logger.Error("Failed to close classifier", zap.Error(err))
			}
		}
	}()

	ctx := context.Background()

	switch {
	case flags.Stats:
		return printStats(ctx, service)
	case flags.TicketID > 0:
		return processTicket(ctx, cfg, service, flags.TicketID)
	default:
		return processBatch(ctx, cfg, service)
	}
}

// processTicket triages a single ticket and prints its verdict
func processTicket(ctx context.Context, cfg *config.Config, service *core.TriageService, ticketID int64) error {
	printAnalysisHeader(cfg)
	fmt.Printf("Ticket: %d\n", ticketID)

	startTime := time.Now()
	verdict, err := service.ProcessTicketByID(ctx, ticketID)
	if err != nil {
		return err
	}

	printVerdict(verdict, time.Since(startTime))
	return nil
}

// processBatch runs one polling cycle and prints the totals
func processBatch(ctx context.Context, cfg *config.Config, service *core.TriageService) error {
	printAnalysisHeader(cfg)
	fmt.Printf("Batch limit: %d\n", cfg.GetTriage().MaxTicketsPerBatch)
	fmt.Printf("Only new tickets: %t\n", cfg.GetTriage().OnlyNew)

	startTime := time.Now()
	stats, err := service.ProcessBatch(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("\n=== Results ===\n")
	fmt.Printf("Tickets processed: %d\n", stats.TotalProcessed)
	fmt.Printf("Spam detected: %d\n", stats.SpamDetected)
	fmt.Printf("Auto-closed: %d\n", stats.AutoClosed)
	fmt.Printf("Legitimate: %d\n", stats.Legitimate)
	fmt.Printf("Skipped (already processed): %d\n", stats.SkippedAlreadyProcessed)
	fmt.Printf("Errors: %d\n", stats.Errors)
	fmt.Printf("Processing time: %v\n", time.Since(startTime))
	return nil
}

// printStats fetches recent tickets and prints tag and journal statistics
func printStats(ctx context.Context, service *core.TriageService) error {
	tagStats, err := service.SpamStatistics(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("\n=== Spam Tag Statistics ===\n")
	fmt.Printf("Tickets checked: %d\n", tagStats.TicketsChecked)
	fmt.Printf("Tagged as spam: %d\n", tagStats.SpamTagged)
	fmt.Printf("Tagged by auto-detection: %d\n", tagStats.AutoDetected)

	journalStats, err := service.JournalStatistics(ctx)
	if err != nil {
		return err
	}
	if journalStats == nil {
		return nil
	}

	fmt.Printf("\n=== Journal Statistics ===\n")
	fmt.Printf("Verdicts recorded: %d\n", journalStats.TotalRecorded)
	fmt.Printf("Spam detected: %d\n", journalStats.SpamDetected)
	fmt.Printf("Auto-closed: %d\n", journalStats.AutoClosed)
	fmt.Printf("Legitimate: %d\n", journalStats.Legitimate)
	return nil
}

func printAnalysisHeader(cfg *config.Config) {
	triage := cfg.GetTriage()
	fmt.Printf("\n=== Analysis ===\n")
	fmt.Printf("Provider: %s\n", cfg.GetLLM().Provider)
	fmt.Printf("Spam threshold: %.2f\n", triage.SpamThreshold)
	fmt.Printf("Auto-close threshold: %.2f\n", triage.AutoCloseThreshold)
	fmt.Printf("Dry run: %t\n", triage.DryRun)
}

func printVerdict(verdict *core.Verdict, duration time.Duration) {
	fmt.Printf("\n=== Results ===\n")
	fmt.Printf("Outcome: %s\n", verdict.Outcome)
	if result := verdict.Classification; result != nil {
		fmt.Printf("Is spam: %t\n", result.IsSpam)
		fmt.Printf("Confidence: %.4f\n", result.Confidence)
		fmt.Printf("Reasoning: %s\n", result.Reasoning)
		if len(result.Indicators) > 0 {
			fmt.Printf("Indicators: %s\n", strings.Join(result.Indicators, ", "))
		}
		fmt.Printf("Model used: %s (%s)\n", result.Model, result.Provider)
	}
	if len(verdict.Mutations) > 0 {
		fmt.Printf("Mutations: %s\n", strings.Join(verdict.Mutations, ", "))
	}
	for _, failure := range verdict.Failures {
		fmt.Printf("Mutation failure: %v\n", failure)
	}
	fmt.Printf("Dry run: %t\n", verdict.DryRun)
	fmt.Printf("Processing time: %v\n", duration)
}

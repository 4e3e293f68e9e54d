package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/supportops/ticket-triage/internal/adapters/poller"
	"github.com/supportops/ticket-triage/internal/adapters/webhook"
	"github.com/supportops/ticket-triage/internal/config"
	"github.com/supportops/ticket-triage/internal/core"
	"github.com/supportops/ticket-triage/internal/factory"
	"github.com/supportops/ticket-triage/internal/logging"
	"github.com/supportops/ticket-triage/internal/ports"
	"github.com/supportops/ticket-triage/internal/utils"
	"github.com/supportops/ticket-triage/internal/whitelist"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewClassifierFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewJournalFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewHelpdeskFactory); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(utils.NewTextProcessor); err != nil {
		return nil, err
	}

	// Register helpdesk client
	if err := container.Provide(func(f *factory.HelpdeskFactory) (core.Helpdesk, error) {
		return f.CreateHelpdesk()
	}); err != nil {
		return nil, err
	}

	// Register classifier
	if err := container.Provide(func(f *factory.ClassifierFactory) (core.Classifier, error) {
		return f.CreateClassifier()
	}); err != nil {
		return nil, err
	}

	// Register journal
	if err := container.Provide(func(f *factory.JournalFactory) (core.Journal, error) {
		return f.CreateJournal()
	}); err != nil {
		return nil, err
	}

	// Register trusted-domain checker
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *whitelist.Checker {
		return whitelist.NewChecker(cfg.GetTriage().TrustedDomains, logger)
	}); err != nil {
		return nil, err
	}

	// Register message extractor
	if err := container.Provide(func(text *utils.TextProcessor, cfg *config.Config, logger *zap.Logger) *core.MessageExtractor {
		return core.NewMessageExtractor(text, cfg.GetTriage().MaxBodyLength, logger)
	}); err != nil {
		return nil, err
	}

	// Register policy engine
	if err := container.Provide(func(cfg *config.Config) core.PolicySettings {
		triage := cfg.GetTriage()
		return core.PolicySettings{
			SpamThreshold:      triage.SpamThreshold,
			AutoCloseThreshold: triage.AutoCloseThreshold,
			SpamTag:            triage.SpamTag,
			AssignAgentID:      triage.AssignAgentID,
			DryRun:             triage.DryRun,
		}
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(core.NewPolicyEngine); err != nil {
		return nil, err
	}

	// Register triage service
	if err := container.Provide(func(cfg *config.Config) core.ServiceSettings {
		llm := cfg.GetLLM()
		triage := cfg.GetTriage()
		return core.ServiceSettings{
			Provider:    llm.Provider,
			MaxAttempts: llm.MaxAttempts,
			RetryDelay:  llm.RetryDelay,
			BatchLimit:  triage.MaxTicketsPerBatch,
			OnlyNew:     triage.OnlyNew,
		}
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(core.NewTriageService); err != nil {
		return nil, err
	}

	// Register runners: the poller always runs, the webhook server only
	// when enabled
	if err := container.Provide(func(service *core.TriageService, cfg *config.Config, logger *zap.Logger) []ports.Runner {
		runners := []ports.Runner{
			poller.NewPoller(service, cfg.GetTriage().CheckInterval, logger),
		}
		if webhookCfg := cfg.GetWebhook(); webhookCfg.Enabled {
			runners = append(runners, webhook.NewServer(service, webhookCfg.ListenAddress, logger))
		}
		return runners
	}); err != nil {
		return nil, err
	}

	return container, nil
}

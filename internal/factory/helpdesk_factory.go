package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/supportops/ticket-triage/internal/adapters/freshdesk"
	"github.com/supportops/ticket-triage/internal/config"
	"github.com/supportops/ticket-triage/internal/core"
)

// HelpdeskFactory creates helpdesk clients based on configuration
type HelpdeskFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewHelpdeskFactory creates a new helpdesk factory
func NewHelpdeskFactory(cfg *config.Config, logger *zap.Logger) *HelpdeskFactory {
	return &HelpdeskFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateHelpdesk creates a helpdesk client based on the configuration
func (f *HelpdeskFactory) CreateHelpdesk() (core.Helpdesk, error) {
	helpdeskConfig := f.cfg.GetHelpdesk()

	switch helpdeskConfig.Provider {
	case "freshdesk":
		return freshdesk.NewClient(helpdeskConfig.Domain, helpdeskConfig.APIKey, helpdeskConfig.Timeout, f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported helpdesk provider: %s", helpdeskConfig.Provider)
	}
}

package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/supportops/ticket-triage/internal/adapters/journal"
	"github.com/supportops/ticket-triage/internal/config"
	"github.com/supportops/ticket-triage/internal/core"
)

// JournalFactory creates verdict journals based on configuration
type JournalFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewJournalFactory creates a new journal factory
func NewJournalFactory(cfg *config.Config, logger *zap.Logger) *JournalFactory {
	return &JournalFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateJournal creates a journal based on the configuration
func (f *JournalFactory) CreateJournal() (core.Journal, error) {
	journalConfig := f.cfg.GetJournal()

	switch journalConfig.Type {
	case "memory":
		return journal.NewMemoryJournal(f.logger), nil
	case "sqlite":
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(journalConfig.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return journal.NewSQLiteJournal(journalConfig.SQLitePath, f.logger)
	case "mysql":
		return journal.NewMySQLJournal(journalConfig.MySQLDSN, f.logger)
	default:
		return nil, fmt.Errorf("unsupported journal type: %s", journalConfig.Type)
	}
}

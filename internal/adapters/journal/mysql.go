package journal

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/supportops/ticket-triage/internal/core"
)

// MySQLJournal is a MySQL implementation of the Journal interface
type MySQLJournal struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMySQLJournal creates a new MySQL journal
func NewMySQLJournal(dsn string, logger *zap.Logger) (*MySQLJournal, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	// Create table if it doesn't exist
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS triage_log (
			id BIGINT PRIMARY KEY AUTO_INCREMENT,
			ticket_id BIGINT NOT NULL,
			subject VARCHAR(512),
			outcome VARCHAR(64) NOT NULL,
			is_spam BOOLEAN,
			confidence FLOAT,
			provider VARCHAR(32),
			model VARCHAR(128),
			dry_run BOOLEAN,
			processing_id VARCHAR(64),
			recorded_at DATETIME,
			INDEX idx_triage_log_ticket_id (ticket_id)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &MySQLJournal{
		db:     db,
		logger: logger,
	}, nil
}

// Record inserts one verdict into the journal
func (j *MySQLJournal) Record(ctx context.Context, entry *core.JournalEntry) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO triage_log (ticket_id, subject, outcome, is_spam, confidence, provider, model, dry_run, processing_id, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.TicketID, entry.Subject, string(entry.Outcome), entry.IsSpam, entry.Confidence,
		entry.Provider, entry.Model, entry.DryRun, entry.ProcessingID, entry.RecordedAt.Format("2006-01-02 15:04:05"))

	if err != nil {
		return fmt.Errorf("failed to insert journal entry: %w", err)
	}
	return nil
}

// Stats aggregates the recorded verdicts
func (j *MySQLJournal) Stats(ctx context.Context) (*core.JournalStats, error) {
	var stats core.JournalStats
	err := j.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN is_spam THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0)
		FROM triage_log
	`, string(core.OutcomeAutoClosed), string(core.OutcomeLegitimate)).
		Scan(&stats.TotalRecorded, &stats.SpamDetected, &stats.AutoClosed, &stats.Legitimate)

	if err != nil {
		return nil, fmt.Errorf("failed to query journal stats: %w", err)
	}
	return &stats, nil
}

// Close closes the database connection
func (j *MySQLJournal) Close() error {
	return j.db.Close()
}

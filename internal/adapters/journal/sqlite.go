package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/supportops/ticket-triage/internal/core"
)

// SQLiteJournal is a SQLite implementation of the Journal interface
type SQLiteJournal struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteJournal creates a new SQLite journal
func NewSQLiteJournal(dbPath string, logger *zap.Logger) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Create table if it doesn't exist
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS triage_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ticket_id INTEGER NOT NULL,
			subject TEXT,
			outcome TEXT NOT NULL,
			is_spam BOOLEAN,
			confidence REAL,
			provider TEXT,
			model TEXT,
			dry_run BOOLEAN,
			processing_id TEXT,
			recorded_at TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_triage_log_ticket_id ON triage_log(ticket_id)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &SQLiteJournal{
		db:     db,
		logger: logger,
	}, nil
}

// Record inserts one verdict into the journal
func (j *SQLiteJournal) Record(ctx context.Context, entry *core.JournalEntry) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO triage_log (ticket_id, subject, outcome, is_spam, confidence, provider, model, dry_run, processing_id, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.TicketID, entry.Subject, string(entry.Outcome), entry.IsSpam, entry.Confidence,
		entry.Provider, entry.Model, entry.DryRun, entry.ProcessingID, entry.RecordedAt.Format(time.RFC3339))

	if err != nil {
		return fmt.Errorf("failed to insert journal entry: %w", err)
	}
	return nil
}

// Stats aggregates the recorded verdicts
func (j *SQLiteJournal) Stats(ctx context.Context) (*core.JournalStats, error) {
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
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

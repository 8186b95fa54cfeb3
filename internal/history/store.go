// Package history records bootstrap runs in a local SQLite database so the
// operator can see when the stack was last brought up and how it went.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/acadrec/devstack/pkg/stack"
)

// Store persists bootstrap run records
type Store struct {
	db     *sql.DB
	logger *logrus.Logger
}

// NewStore opens (and if needed creates) the run-history database under
// dataDir
func NewStore(dataDir string, logger *logrus.Logger) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "history.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	if err := initializeDatabase(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history database: %w", err)
	}

	return &Store{
		db:     db,
		logger: logger,
	}, nil
}

// initializeDatabase initializes the database schema
func initializeDatabase(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			outcome TEXT NOT NULL,
			failed_step TEXT,
			error TEXT,
			services TEXT
		)
	`)
	return err
}

// Save persists a finished run record
func (s *Store) Save(record stack.RunRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO runs (id, started_at, finished_at, outcome, failed_step, error, services)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		record.ID,
		record.StartedAt.Unix(),
		record.FinishedAt.Unix(),
		string(record.Outcome),
		record.FailedStep,
		record.Error,
		strings.Join(record.Services, ","),
	)
	if err != nil {
		return fmt.Errorf("failed to save run record: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"run_id":  record.ID,
		"outcome": record.Outcome,
	}).Debug("Saved bootstrap run record")

	return nil
}

// Recent returns the latest run records, newest first
func (s *Store) Recent(limit int) ([]stack.RunRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query(`
		SELECT id, started_at, finished_at, outcome, failed_step, error, services
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query run records: %w", err)
	}
	defer rows.Close()

	var records []stack.RunRecord
	for rows.Next() {
		var record stack.RunRecord
		var startedAt, finished int64
		var outcome string
		var failedStep, errText, services sql.NullString

		if err := rows.Scan(&record.ID, &startedAt, &finished, &outcome, &failedStep, &errText, &services); err != nil {
			return nil, fmt.Errorf("failed to scan run record: %w", err)
		}

		record.StartedAt = time.Unix(startedAt, 0).UTC()
		record.FinishedAt = time.Unix(finished, 0).UTC()
		record.Outcome = stack.RunOutcome(outcome)
		record.FailedStep = failedStep.String
		record.Error = errText.String
		if services.String != "" {
			record.Services = strings.Split(services.String, ",")
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read run records: %w", err)
	}

	return records, nil
}

// Close closes the history database
func (s *Store) Close() error {
	return s.db.Close()
}

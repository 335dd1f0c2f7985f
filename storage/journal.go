package storage

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Outcomes recorded for an exchange.
const (
	OutcomeDone    = "done"
	OutcomeStopped = "stopped"
	OutcomeError   = "error"
)

// ExchangeRecord is the metadata of one relayed exchange. Message content,
// document text and API keys are never recorded.
type ExchangeRecord struct {
	ID        string
	Provider  string
	Model     string
	Fragments int
	Outcome   string
	Category  string // error category, empty unless Outcome is OutcomeError
	StartedAt time.Time
	Duration  time.Duration
}

// Journal stores exchange records in <data_dir>/journal.db.
type Journal struct {
	db *sql.DB
}

func NewJournal(dataDir string) (*Journal, error) {
	dbPath := filepath.Join(dataDir, "journal.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection serialises writers from concurrent exchanges.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	j := &Journal{db: db}

	if err := j.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return j, nil
}

func (j *Journal) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS exchanges (
		id TEXT PRIMARY KEY,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		fragments INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		duration_ms INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_exchanges_started_at ON exchanges(started_at);
	`

	if _, err := j.db.Exec(schema); err != nil {
		return err
	}

	if err := j.migrateSchema(); err != nil {
		return fmt.Errorf("schema migration failed: %w", err)
	}

	return nil
}

// migrateSchema adds columns introduced after the first journal release.
func (j *Journal) migrateSchema() error {
	hasCategory, err := j.columnExists("exchanges", "category")
	if err != nil {
		return fmt.Errorf("failed to check for category column: %w", err)
	}

	switch {
	case !hasCategory:
		_, err := j.db.Exec(`ALTER TABLE exchanges ADD COLUMN category TEXT DEFAULT ''`)
		if err != nil {
			return fmt.Errorf("failed to add category column: %w", err)
		}
	}

	return nil
}

// columnExists checks if a column exists in a table using PRAGMA table_info
func (j *Journal) columnExists(tableName, columnName string) (bool, error) {
	query := fmt.Sprintf("PRAGMA table_info(%s)", tableName)
	rows, err := j.db.Query(query)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name string
		var dataType string
		var notNull int
		var defaultValue interface{}
		var pk int

		if err := rows.Scan(&cid, &name, &dataType, &notNull, &defaultValue, &pk); err != nil {
			return false, err
		}

		if name == columnName {
			return true, nil
		}
	}

	return false, rows.Err()
}

// Record stores rec, replacing an earlier record with the same ID.
func (j *Journal) Record(ctx context.Context, rec ExchangeRecord) error {
	query := `
	INSERT OR REPLACE INTO exchanges (id, provider, model, fragments, outcome, category, started_at, duration_ms)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := j.db.ExecContext(ctx, query,
		rec.ID,
		rec.Provider,
		rec.Model,
		rec.Fragments,
		rec.Outcome,
		rec.Category,
		rec.StartedAt.UTC(),
		rec.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to record exchange %s: %w", rec.ID, err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]ExchangeRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := j.db.QueryContext(ctx, `
	SELECT id, provider, model, fragments, outcome, category, started_at, duration_ms
	FROM exchanges
	ORDER BY started_at DESC
	LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query exchanges: %w", err)
	}
	defer rows.Close()

	var records []ExchangeRecord
	for rows.Next() {
		var rec ExchangeRecord
		var category sql.NullString
		var durationMS int64
		if err := rows.Scan(&rec.ID, &rec.Provider, &rec.Model, &rec.Fragments, &rec.Outcome, &category, &rec.StartedAt, &durationMS); err != nil {
			return nil, fmt.Errorf("failed to scan exchange: %w", err)
		}
		rec.Category = category.String
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, rec)
	}

	return records, rows.Err()
}

func (j *Journal) Close() error {
	return j.db.Close()
}

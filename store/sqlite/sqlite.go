package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/smallnest/stategraph/store"
)

// SqliteJournal implements store.Journal using SQLite
type SqliteJournal struct {
	db        *sql.DB
	tableName string
}

var _ store.Journal = (*SqliteJournal)(nil)

// SqliteOptions configuration for SQLite connection
type SqliteOptions struct {
	Path      string
	TableName string // Default "step_records"
}

// NewSqliteJournal opens the database and creates the journal table.
func NewSqliteJournal(opts SqliteOptions) (*SqliteJournal, error) {
	db, err := sql.Open("sqlite3", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "step_records"
	}

	s := &SqliteJournal{
		db:        db,
		tableName: tableName,
	}

	if err := s.InitSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// InitSchema creates the necessary table if it doesn't exist
func (s *SqliteJournal) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			step INTEGER NOT NULL,
			node TEXT NOT NULL,
			next TEXT,
			updated TEXT,
			state TEXT NOT NULL,
			error TEXT,
			duration INTEGER NOT NULL,
			timestamp DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%s_run_id ON %s (run_id);
	`, s.tableName, s.tableName, s.tableName)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SqliteJournal) Close() error {
	return s.db.Close()
}

// Append stores a step record
func (s *SqliteJournal) Append(ctx context.Context, record *store.StepRecord) error {
	stateJSON, err := json.Marshal(record.State)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	updatedJSON, err := json.Marshal(record.Updated)
	if err != nil {
		return fmt.Errorf("failed to marshal updated fields: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, run_id, step, node, next, updated, state, error, duration, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.tableName)

	_, err = s.db.ExecContext(ctx, query,
		record.ID,
		record.RunID,
		record.Step,
		record.Node,
		record.Next,
		string(updatedJSON),
		string(stateJSON),
		record.Error,
		int64(record.Duration),
		record.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to append step record: %w", err)
	}
	return nil
}

// List returns the records of a run ordered by step
func (s *SqliteJournal) List(ctx context.Context, runID string) ([]*store.StepRecord, error) {
	query := fmt.Sprintf(`
		SELECT id, run_id, step, node, next, updated, state, error, duration, timestamp
		FROM %s
		WHERE run_id = ?
		ORDER BY step ASC, timestamp ASC
	`, s.tableName)

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list step records: %w", err)
	}
	defer rows.Close()

	records := []*store.StepRecord{}
	for rows.Next() {
		var (
			rec         store.StepRecord
			next        sql.NullString
			updatedJSON sql.NullString
			stateJSON   string
			errText     sql.NullString
			duration    int64
		)

		err := rows.Scan(
			&rec.ID,
			&rec.RunID,
			&rec.Step,
			&rec.Node,
			&next,
			&updatedJSON,
			&stateJSON,
			&errText,
			&duration,
			&rec.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step record row: %w", err)
		}

		rec.Next = next.String
		rec.Error = errText.String
		rec.Duration = time.Duration(duration)

		if err := json.Unmarshal([]byte(stateJSON), &rec.State); err != nil {
			return nil, fmt.Errorf("failed to unmarshal state: %w", err)
		}
		if updatedJSON.Valid && updatedJSON.String != "" {
			if err := json.Unmarshal([]byte(updatedJSON.String), &rec.Updated); err != nil {
				return nil, fmt.Errorf("failed to unmarshal updated fields: %w", err)
			}
		}

		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating step record rows: %w", err)
	}
	return records, nil
}

// Clear removes all records of a run
func (s *SqliteJournal) Clear(ctx context.Context, runID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE run_id = ?", s.tableName)
	if _, err := s.db.ExecContext(ctx, query, runID); err != nil {
		return fmt.Errorf("failed to clear step records: %w", err)
	}
	return nil
}

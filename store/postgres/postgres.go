package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/smallnest/stategraph/store"
)

// DBPool defines the interface for database connection pool
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresJournal implements store.Journal using PostgreSQL
type PostgresJournal struct {
	pool      DBPool
	tableName string
}

var _ store.Journal = (*PostgresJournal)(nil)

// PostgresOptions configuration for Postgres connection
type PostgresOptions struct {
	ConnString string
	TableName  string // Default "step_records"
}

// NewPostgresJournal creates a new Postgres journal
func NewPostgresJournal(ctx context.Context, opts PostgresOptions) (*PostgresJournal, error) {
	pool, err := pgxpool.New(ctx, opts.ConnString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	return NewPostgresJournalWithPool(pool, opts.TableName), nil
}

// NewPostgresJournalWithPool creates a new Postgres journal with an existing pool
func NewPostgresJournalWithPool(pool DBPool, tableName string) *PostgresJournal {
	if tableName == "" {
		tableName = "step_records"
	}
	return &PostgresJournal{
		pool:      pool,
		tableName: tableName,
	}
}

// InitSchema creates the necessary table if it doesn't exist
func (s *PostgresJournal) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			step INTEGER NOT NULL,
			node TEXT NOT NULL,
			next TEXT NOT NULL DEFAULT '',
			updated JSONB,
			state JSONB NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			duration BIGINT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%s_run_id ON %s (run_id);
	`, s.tableName, s.tableName, s.tableName)

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the connection pool
func (s *PostgresJournal) Close() {
	s.pool.Close()
}

// Append stores a step record
func (s *PostgresJournal) Append(ctx context.Context, record *store.StepRecord) error {
	stateJSON, err := json.Marshal(record.State)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	updatedJSON, err := json.Marshal(record.Updated)
	if err != nil {
		return fmt.Errorf("failed to marshal updated fields: %w", err)
	}

	query := fmt.Sprintf("INSERT INTO %s (id, run_id, step, node, next, updated, state, error, duration, timestamp) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)", s.tableName)

	_, err = s.pool.Exec(ctx, query,
		record.ID,
		record.RunID,
		record.Step,
		record.Node,
		record.Next,
		updatedJSON,
		stateJSON,
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
func (s *PostgresJournal) List(ctx context.Context, runID string) ([]*store.StepRecord, error) {
	query := fmt.Sprintf("SELECT id, run_id, step, node, next, updated, state, error, duration, timestamp FROM %s WHERE run_id = $1 ORDER BY step ASC, timestamp ASC", s.tableName)

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list step records: %w", err)
	}
	defer rows.Close()

	records := []*store.StepRecord{}
	for rows.Next() {
		var (
			rec         store.StepRecord
			updatedJSON []byte
			stateJSON   []byte
			duration    int64
		)

		err := rows.Scan(
			&rec.ID,
			&rec.RunID,
			&rec.Step,
			&rec.Node,
			&rec.Next,
			&updatedJSON,
			&stateJSON,
			&rec.Error,
			&duration,
			&rec.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step record row: %w", err)
		}
		rec.Duration = time.Duration(duration)

		if err := json.Unmarshal(stateJSON, &rec.State); err != nil {
			return nil, fmt.Errorf("failed to unmarshal state: %w", err)
		}
		if len(updatedJSON) > 0 {
			if err := json.Unmarshal(updatedJSON, &rec.Updated); err != nil {
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
func (s *PostgresJournal) Clear(ctx context.Context, runID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE run_id = $1", s.tableName)
	if _, err := s.pool.Exec(ctx, query, runID); err != nil {
		return fmt.Errorf("failed to clear step records: %w", err)
	}
	return nil
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history keeps a SQLite ledger of conversion batches and the outcome
// of every item in them.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/pdf2txt/pkg/types"
)

const defaultListLimit = 20

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned when a batch ID is not in the ledger.
var ErrNotFound = errors.New("batch not found")

// Batch is one recorded conversion run.
type Batch struct {
	ID         string                   `json:"id"`
	StartedAt  time.Time                `json:"started_at"`
	FinishedAt time.Time                `json:"finished_at"`
	OutputDir  string                   `json:"output_dir"`
	Backend    types.Backend            `json:"backend"`
	Summary    types.BatchSummary       `json:"summary"`
	Items      []types.ConversionResult `json:"items,omitempty"`
}

// NewID returns a fresh batch identifier.
func NewID() string {
	return uuid.New().String()
}

// Store manages the history database.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the history database at path, creating its parent
// directory and schema as needed.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS batches (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			output_dir TEXT NOT NULL,
			backend TEXT,
			succeeded INTEGER NOT NULL,
			total INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS items (
			batch_id TEXT NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
			idx INTEGER NOT NULL,
			input_path TEXT NOT NULL,
			output_path TEXT NOT NULL,
			outcome TEXT NOT NULL,
			error TEXT,
			pages INTEGER,
			PRIMARY KEY (batch_id, idx)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_batches_started ON batches(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_items_input ON items(input_path)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores b and its items in one transaction. An empty b.ID is filled
// with a new identifier, which is returned.
func (s *Store) Record(ctx context.Context, b Batch) (string, error) {
	if b.ID == "" {
		b.ID = NewID()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO batches (id, started_at, finished_at, output_dir, backend, succeeded, total)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID, formatTime(b.StartedAt), formatTime(b.FinishedAt), b.OutputDir,
		string(b.Backend), b.Summary.Succeeded, b.Summary.Total,
	)
	if err != nil {
		return "", fmt.Errorf("inserting batch %s: %w", b.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO items (batch_id, idx, input_path, output_path, outcome, error, pages)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, item := range b.Items {
		_, err := stmt.ExecContext(ctx,
			b.ID, item.Index, item.InputPath, item.OutputPath,
			string(item.Outcome), item.Error, item.Pages,
		)
		if err != nil {
			return "", fmt.Errorf("inserting item %d: %w", item.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing batch %s: %w", b.ID, err)
	}
	return b.ID, nil
}

// List returns the most recent batches, newest first, without their items.
// A limit of zero or less uses the default of 20.
func (s *Store) List(ctx context.Context, limit int) ([]Batch, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, output_dir, backend, succeeded, total
		 FROM batches ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing batches: %w", err)
	}
	defer rows.Close()

	var batches []Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

// Get returns the batch with the given ID and its items in input order.
func (s *Store) Get(ctx context.Context, id string) (*Batch, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, output_dir, backend, succeeded, total
		 FROM batches WHERE id = ?`, id)
	b, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	items, err := s.Items(ctx, id)
	if err != nil {
		return nil, err
	}
	b.Items = items
	return &b, nil
}

// Items returns the recorded items of a batch in input order.
func (s *Store) Items(ctx context.Context, batchID string) ([]types.ConversionResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT idx, input_path, output_path, outcome, error, pages
		 FROM items WHERE batch_id = ? ORDER BY idx`, batchID)
	if err != nil {
		return nil, fmt.Errorf("querying items of %s: %w", batchID, err)
	}
	defer rows.Close()

	var items []types.ConversionResult
	for rows.Next() {
		var (
			item    types.ConversionResult
			outcome string
			errText sql.NullString
			pages   sql.NullInt64
		)
		if err := rows.Scan(&item.Index, &item.InputPath, &item.OutputPath, &outcome, &errText, &pages); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		item.Outcome = types.Outcome(outcome)
		item.Error = errText.String
		item.Pages = int(pages.Int64)
		items = append(items, item)
	}
	return items, rows.Err()
}

// LastOutcome returns the most recent recorded result for inputPath, or
// ErrNotFound if it was never converted.
func (s *Store) LastOutcome(ctx context.Context, inputPath string) (*types.ConversionResult, error) {
	var (
		item    types.ConversionResult
		outcome string
		errText sql.NullString
		pages   sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT i.idx, i.input_path, i.output_path, i.outcome, i.error, i.pages
		 FROM items i JOIN batches b ON b.id = i.batch_id
		 WHERE i.input_path = ?
		 ORDER BY b.started_at DESC, b.rowid DESC LIMIT 1`, inputPath,
	).Scan(&item.Index, &item.InputPath, &item.OutputPath, &outcome, &errText, &pages)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no conversion of %s", ErrNotFound, inputPath)
	}
	if err != nil {
		return nil, fmt.Errorf("querying last outcome of %s: %w", inputPath, err)
	}
	item.Outcome = types.Outcome(outcome)
	item.Error = errText.String
	item.Pages = int(pages.Int64)
	return &item, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBatch(row scanner) (Batch, error) {
	var (
		b                 Batch
		started, finished string
		backend           sql.NullString
	)
	if err := row.Scan(&b.ID, &started, &finished, &b.OutputDir, &backend, &b.Summary.Succeeded, &b.Summary.Total); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return b, err
		}
		return b, fmt.Errorf("scanning batch: %w", err)
	}
	b.Backend = types.Backend(backend.String)
	b.StartedAt = parseTime(started)
	b.FinishedAt = parseTime(finished)
	return b, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

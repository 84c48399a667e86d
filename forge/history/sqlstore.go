package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "github.com/tursodatabase/go-libsql"
)

// SQLStore keeps run history in a libsql database.
type SQLStore struct {
	db  *sql.DB
	log zerolog.Logger
}

// Open connects to dsn ("file:/path/history.db" or a libsql URL) and
// creates the schema. The parent directory of a file DSN is created.
func Open(dsn string, logger zerolog.Logger) (*SQLStore, error) {
	if path, ok := strings.CutPrefix(dsn, "file:"); ok {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("could not create history directory: %w", err)
		}
	}

	db, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	s := &SQLStore{db: db, log: logger}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	logger.Debug().Str("dsn", dsn).Msg("history database ready")
	return s, nil
}

func (s *SQLStore) init() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY UNIQUE,
		variant TEXT NOT NULL,
		output_dir TEXT NOT NULL,
		vocab_size INTEGER NOT NULL,
		max_len INTEGER NOT NULL,
		actual_vocab INTEGER NOT NULL DEFAULT 0,
		merge_count INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		error_kind TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT '',
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("failed to create runs table: %w", err)
	}
	return nil
}

// Record inserts run.
func (s *SQLStore) Record(ctx context.Context, run *Run) error {
	result, err := s.db.ExecContext(ctx, `INSERT INTO runs
		(id, variant, output_dir, vocab_size, max_len, actual_vocab, merge_count,
		 status, error_kind, error_message, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID.String(), run.Variant, run.OutputDir, run.VocabSize, run.MaxLen,
		run.ActualVocab, run.MergeCount, string(run.Status), run.ErrorKind, run.ErrorMessage,
		formatTime(run.StartedAt), formatTime(run.FinishedAt))
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n != 1 {
		return fmt.Errorf("expected 1 row affected, got %d", n)
	}
	s.log.Debug().Str("run", run.ID.String()).Str("status", string(run.Status)).Msg("run recorded")
	return nil
}

const selectRuns = `SELECT id, variant, output_dir, vocab_size, max_len, actual_vocab,
	merge_count, status, error_kind, error_message, started_at, finished_at FROM runs`

// Get returns the run with id.
func (s *SQLStore) Get(ctx context.Context, id uuid.UUID) (*Run, error) {
	row := s.db.QueryRowContext(ctx, selectRuns+" WHERE id = ?", id.String())
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// List returns runs newest first.
func (s *SQLStore) List(ctx context.Context, limit int) ([]Run, error) {
	query := selectRuns + " ORDER BY started_at DESC, rowid DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var (
		run               Run
		id, status        string
		started, finished string
	)
	err := sc.Scan(&id, &run.Variant, &run.OutputDir, &run.VocabSize, &run.MaxLen,
		&run.ActualVocab, &run.MergeCount, &status, &run.ErrorKind, &run.ErrorMessage,
		&started, &finished)
	if err != nil {
		return nil, err
	}
	if run.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid run id %q: %w", id, err)
	}
	run.Status = Status(status)
	if run.StartedAt, err = parseTime(started); err != nil {
		return nil, err
	}
	if run.FinishedAt, err = parseTime(finished); err != nil {
		return nil, err
	}
	return &run, nil
}

// Times are stored as fixed-width UTC text so they sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}

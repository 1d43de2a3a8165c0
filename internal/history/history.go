// Package history keeps a SQLite log of dictation runs so the last result
// can be recovered after the clipboard has moved on.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"ru2en/internal/logger"
)

// DefaultKeep is how many runs survive Prune.
const DefaultKeep = 500

// Run is one recorded pipeline run.
type Run struct {
	ID         int64
	RunID      string
	OutputMode string
	Style      string
	Transcript string
	FinalText  string
	Outcome    string
	Message    string
	AudioSecs  float64
	CreatedAt  time.Time
}

// Store wraps a SQLite-backed run log.
type Store struct {
	db    *sql.DB
	log   *logger.Logger
	clock func() time.Time
}

// Open creates or opens the database at path.
func Open(ctx context.Context, path string, log *logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.Nop()
	}
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(2000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, log: log, clock: time.Now}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.Prune(ctx, DefaultKeep); err != nil {
		log.Warn("history prune on start failed", logger.Error(err))
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    output_mode TEXT,
    style TEXT,
    transcript TEXT,
    final_text TEXT,
    outcome TEXT NOT NULL,
    message TEXT,
    audio_secs REAL,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("init history schema: %w", err)
	}
	return nil
}

// Close releases underlying resources.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append records a run.
func (s *Store) Append(ctx context.Context, r Run) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.clock()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs(run_id, output_mode, style, transcript, final_text, outcome, message, audio_secs, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.OutputMode, r.Style, r.Transcript, r.FinalText, r.Outcome, r.Message, r.AudioSecs,
		r.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("append run: %w", err)
	}
	return nil
}

// List returns up to limit runs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, output_mode, style, transcript, final_text, outcome, message, audio_secs, created_at
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var created string
		if err := rows.Scan(&r.ID, &r.RunID, &r.OutputMode, &r.Style, &r.Transcript, &r.FinalText,
			&r.Outcome, &r.Message, &r.AudioSecs, &created); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			r.CreatedAt = ts
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ErrNoText is returned by LastText when no run produced text yet.
var ErrNoText = errors.New("no dictation result recorded yet")

// LastText returns the final text of the newest run that produced one.
func (s *Store) LastText(ctx context.Context) (string, error) {
	var text string
	err := s.db.QueryRowContext(ctx,
		`SELECT final_text FROM runs WHERE final_text <> '' ORDER BY id DESC LIMIT 1`).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoText
	}
	if err != nil {
		return "", err
	}
	return text, nil
}

// Prune keeps the newest keep runs.
func (s *Store) Prune(ctx context.Context, keep int) error {
	if keep <= 0 {
		return nil
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM runs WHERE id NOT IN (SELECT id FROM runs ORDER BY id DESC LIMIT ?)`, keep)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		s.log.Debug("history pruned", logger.Int64("rows", n))
	}
	return nil
}

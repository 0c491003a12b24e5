package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/muesli/reflow/truncate"
	_ "modernc.org/sqlite"

	"github.com/helmcode/logmind/pkg/model"
	"github.com/helmcode/logmind/pkg/parser"
)

var (
	ErrNotFound  = errors.New("analysis not found")
	ErrAmbiguous = errors.New("id prefix matches more than one analysis")
)

const titleWidth = 60

// Store keeps past analyses in a local sqlite database.
type Store struct {
	db *sql.DB
}

// Summary is one row of List.
type Summary struct {
	ID         string
	CreatedAt  time.Time
	ModelType  string
	Model      string
	Title      string
	Failed     bool
	DurationMS int64
}

func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS analyses (
		id          TEXT PRIMARY KEY,
		created_at  INTEGER NOT NULL,
		model_type  TEXT NOT NULL,
		model       TEXT NOT NULL,
		base_url    TEXT NOT NULL DEFAULT '',
		problem     TEXT NOT NULL DEFAULT '',
		log_excerpt TEXT NOT NULL DEFAULT '',
		location    TEXT NOT NULL DEFAULT '{}',
		code_files  TEXT NOT NULL DEFAULT '[]',
		warnings    TEXT NOT NULL DEFAULT '[]',
		prompt      TEXT NOT NULL DEFAULT '',
		result      TEXT NOT NULL DEFAULT '',
		error       TEXT NOT NULL DEFAULT '',
		duration_ms INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at);
	`
	_, err := db.Exec(schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts a, or replaces the analysis with the same id.
func (s *Store) Save(ctx context.Context, a *model.Analysis) error {
	locationJSON, err := json.Marshal(a.Request.Location)
	if err != nil {
		return fmt.Errorf("marshal location: %w", err)
	}
	filesJSON, err := json.Marshal(nonNil(a.Request.CodeFiles))
	if err != nil {
		return fmt.Errorf("marshal code_files: %w", err)
	}
	warningsJSON, err := json.Marshal(nonNil(a.Request.Warnings))
	if err != nil {
		return fmt.Errorf("marshal warnings: %w", err)
	}

	query := `INSERT OR REPLACE INTO analyses
		(id, created_at, model_type, model, base_url, problem, log_excerpt, location,
		 code_files, warnings, prompt, result, error, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		a.ID,
		a.CreatedAt.UnixMilli(),
		a.Backend.ModelType,
		a.Backend.Model,
		a.Backend.BaseURL,
		a.Request.Problem,
		a.Request.Log,
		string(locationJSON),
		string(filesJSON),
		string(warningsJSON),
		a.Request.Prompt,
		a.Result,
		a.Error,
		a.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("save analysis %s: %w", a.ID, err)
	}
	return nil
}

// List returns the newest analyses first. A non-positive limit lists all.
func (s *Store) List(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = -1
	}
	query := `SELECT id, created_at, model_type, model, problem, log_excerpt, location, error, duration_ms
		FROM analyses ORDER BY created_at DESC, id LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	var results []Summary
	for rows.Next() {
		var (
			sum                   Summary
			createdAt             int64
			problem, log, locJSON string
			errText               string
		)
		if err := rows.Scan(&sum.ID, &createdAt, &sum.ModelType, &sum.Model, &problem, &log, &locJSON, &errText, &sum.DurationMS); err != nil {
			return nil, err
		}
		var loc parser.Location
		_ = json.Unmarshal([]byte(locJSON), &loc)

		sum.CreatedAt = time.UnixMilli(createdAt)
		sum.Failed = errText != ""
		sum.Title = title(problem, loc.Exception, log)
		results = append(results, sum)
	}
	return results, rows.Err()
}

// Get returns the analysis whose id is id or starts with it.
func (s *Store) Get(ctx context.Context, id string) (*model.Analysis, error) {
	fullID, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	query := `SELECT id, created_at, model_type, model, base_url, problem, log_excerpt, location,
		code_files, warnings, prompt, result, error, duration_ms
		FROM analyses WHERE id = ?`

	var (
		a                            model.Analysis
		createdAt                    int64
		locJSON, filesJSON, warnJSON string
	)
	err = s.db.QueryRowContext(ctx, query, fullID).Scan(
		&a.ID, &createdAt, &a.Backend.ModelType, &a.Backend.Model, &a.Backend.BaseURL,
		&a.Request.Problem, &a.Request.Log, &locJSON, &filesJSON, &warnJSON,
		&a.Request.Prompt, &a.Result, &a.Error, &a.DurationMS,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis %s: %w", id, err)
	}

	a.CreatedAt = time.UnixMilli(createdAt).UTC()
	if err := json.Unmarshal([]byte(locJSON), &a.Request.Location); err != nil {
		a.Request.Location = parser.Location{}
	}
	if err := json.Unmarshal([]byte(filesJSON), &a.Request.CodeFiles); err != nil {
		a.Request.CodeFiles = nil
	}
	if err := json.Unmarshal([]byte(warnJSON), &a.Request.Warnings); err != nil {
		a.Request.Warnings = nil
	}
	if len(a.Request.CodeFiles) == 0 {
		a.Request.CodeFiles = nil
	}
	if len(a.Request.Warnings) == 0 {
		a.Request.Warnings = nil
	}
	return &a, nil
}

// Delete removes the analysis whose id is id or starts with it.
func (s *Store) Delete(ctx context.Context, id string) error {
	fullID, err := s.resolve(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM analyses WHERE id = ?`, fullID); err != nil {
		return fmt.Errorf("delete analysis %s: %w", fullID, err)
	}
	return nil
}

// resolve expands an id prefix to the single full id it matches.
func (s *Store) resolve(ctx context.Context, prefix string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return "", fmt.Errorf("%w: empty id", ErrNotFound)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM analyses WHERE substr(id, 1, length(?)) = ? LIMIT 2`, prefix, prefix)
	if err != nil {
		return "", fmt.Errorf("find analysis %s: %w", prefix, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrNotFound, prefix)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("%w: %s", ErrAmbiguous, prefix)
	}
}

// title picks a one-line label: the problem, else the exception, else the
// first log line.
func title(problem, exception, log string) string {
	for _, candidate := range []string{problem, exception, log} {
		line, _, _ := strings.Cut(strings.TrimSpace(candidate), "\n")
		if line = strings.TrimSpace(line); line != "" {
			return truncate.StringWithTail(line, titleWidth, "…")
		}
	}
	return ""
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

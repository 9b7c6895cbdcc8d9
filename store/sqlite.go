package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite is a Store backed by a SQLite database file.
// sql.DB handles connection pooling and concurrent access.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path, creating parent
// directories as needed. ":memory:" opens a private in-memory database.
func OpenSQLite(path string) (*SQLite, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open session database: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	s := &SQLite{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) createSchema() error {
	const schema = `
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			request TEXT NOT NULL,
			improved TEXT NOT NULL DEFAULT '',
			response TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			started_at INTEGER NOT NULL,
			finished_at INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS steps (
			session_id TEXT NOT NULL,
			number INTEGER NOT NULL,
			text TEXT NOT NULL,
			tool TEXT NOT NULL DEFAULT '',
			synthesized INTEGER NOT NULL DEFAULT 0,
			args TEXT NOT NULL DEFAULT '',
			result TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			at INTEGER NOT NULL,
			PRIMARY KEY (session_id, number),
			FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_started
		ON sessions(started_at DESC);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return &QueryError{Op: "create schema", Err: err}
	}
	return nil
}

// Begin inserts a session row.
func (s *SQLite) Begin(ctx context.Context, sess Session) error {
	if sess.StartedAt.IsZero() {
		sess.StartedAt = time.Now()
	}
	if sess.Status == "" {
		sess.Status = StatusRunning
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, request, improved, status, started_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET request = excluded.request, improved = excluded.improved, status = excluded.status`,
		sess.ID, sess.Request, sess.Improved, string(sess.Status), sess.StartedAt.UnixNano())
	if err != nil {
		return &QueryError{Op: "begin session", Err: err}
	}
	return nil
}

// RecordStep inserts a step row.
func (s *SQLite) RecordStep(ctx context.Context, step Step) error {
	if step.At.IsZero() {
		step.At = time.Now()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &QueryError{Op: "record step", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM sessions WHERE id = ?", step.SessionID).Scan(&exists)
	if err != nil {
		return &QueryError{Op: "record step", Err: err}
	}
	if exists == 0 {
		return ErrSessionNotFound
	}

	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO steps (session_id, number, text, tool, synthesized, args, result, status, error, at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		step.SessionID, step.Number, step.Text, step.Tool, step.Synthesized,
		step.Args, step.Result, string(step.Status), step.Error, step.At.UnixNano())
	if err != nil {
		return &QueryError{Op: "record step", Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &QueryError{Op: "record step", Err: err}
	}
	return nil
}

// Finish updates the final status and response of a session.
func (s *SQLite) Finish(ctx context.Context, id string, status Status, response string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE sessions SET status = ?, response = ?, finished_at = ? WHERE id = ?",
		string(status), response, time.Now().UnixNano(), id)
	if err != nil {
		return &QueryError{Op: "finish session", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &QueryError{Op: "finish session", Err: err}
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

const sessionColumns = "id, request, improved, response, status, started_at, finished_at"

// Sessions returns sessions newest first.
func (s *SQLite) Sessions(ctx context.Context, limit int) ([]Session, error) {
	query := "SELECT " + sessionColumns + " FROM sessions ORDER BY started_at DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &QueryError{Op: "list sessions", Err: err}
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, &QueryError{Op: "list sessions", Err: err}
		}
		out = append(out, *sess)
	}
	if err := rows.Err(); err != nil {
		return nil, &QueryError{Op: "list sessions", Err: err}
	}
	return out, nil
}

// Session returns one session.
func (s *SQLite) Session(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+sessionColumns+" FROM sessions WHERE id = ?", id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, &QueryError{Op: "get session", Err: err}
	}
	return sess, nil
}

// Steps returns the steps of a session in order.
func (s *SQLite) Steps(ctx context.Context, id string) ([]Step, error) {
	if _, err := s.Session(ctx, id); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, number, text, tool, synthesized, args, result, status, error, at
		 FROM steps WHERE session_id = ? ORDER BY number`, id)
	if err != nil {
		return nil, &QueryError{Op: "list steps", Err: err}
	}
	defer rows.Close()

	var out []Step
	for rows.Next() {
		var (
			step   Step
			status string
			at     int64
		)
		if err := rows.Scan(&step.SessionID, &step.Number, &step.Text, &step.Tool, &step.Synthesized,
			&step.Args, &step.Result, &status, &step.Error, &at); err != nil {
			return nil, &QueryError{Op: "list steps", Err: err}
		}
		step.Status = Status(status)
		step.At = time.Unix(0, at)
		out = append(out, step)
	}
	if err := rows.Err(); err != nil {
		return nil, &QueryError{Op: "list steps", Err: err}
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	var (
		sess              Session
		status            string
		started, finished int64
	)
	if err := row.Scan(&sess.ID, &sess.Request, &sess.Improved, &sess.Response, &status, &started, &finished); err != nil {
		return nil, err
	}
	sess.Status = Status(status)
	sess.StartedAt = time.Unix(0, started)
	if finished != 0 {
		sess.FinishedAt = time.Unix(0, finished)
	}
	return &sess, nil
}

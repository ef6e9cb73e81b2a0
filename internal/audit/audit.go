// Package audit persists a trail of tool invocations to SQLite so
// operators can reconstruct what an agent did and when.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

// Invocation is one audited tool execution.
type Invocation struct {
	ID        int64     `json:"id"`
	Tool      string    `json:"tool"`
	Arguments string    `json:"arguments"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	ElapsedMs int64     `json:"elapsed_ms"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is a SQLite-backed invocation log.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS tool_invocations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	tool TEXT NOT NULL,
	arguments TEXT NOT NULL DEFAULT '',
	success INTEGER NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	elapsed_ms INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_invocations_tool ON tool_invocations(tool);
CREATE INDEX IF NOT EXISTS idx_invocations_created ON tool_invocations(created_at);
`

// Open creates or opens the audit database at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init audit schema: %w", err)
	}
	return &Store{
		db:     db,
		logger: logger.With("component", "audit"),
	}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Record appends one invocation. Audit failures are logged, never fatal:
// a broken audit trail must not take the agent down.
func (s *Store) Record(ctx context.Context, inv Invocation) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tool_invocations (tool, arguments, success, error, elapsed_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		inv.Tool, inv.Arguments, boolToInt(inv.Success), inv.Error, inv.ElapsedMs, time.Now().UTC(),
	)
	if err != nil {
		s.logger.Warn("failed to record invocation", "tool", inv.Tool, "error", err)
	}
}

// Recent returns the newest invocations, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Invocation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tool, arguments, success, error, elapsed_ms, created_at
		 FROM tool_invocations ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query invocations: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []Invocation
	for rows.Next() {
		var inv Invocation
		var success int
		if err := rows.Scan(&inv.ID, &inv.Tool, &inv.Arguments, &success, &inv.Error, &inv.ElapsedMs, &inv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan invocation: %w", err)
		}
		inv.Success = success != 0
		out = append(out, inv)
	}
	return out, rows.Err()
}

// CountByTool returns invocation counts per tool.
func (s *Store) CountByTool(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tool, COUNT(*) FROM tool_invocations GROUP BY tool`)
	if err != nil {
		return nil, fmt.Errorf("count invocations: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	out := make(map[string]int64)
	for rows.Next() {
		var tool string
		var n int64
		if err := rows.Scan(&tool, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		out[tool] = n
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Package history keeps the ordered decision log of every (session, agent)
// pair: what the agent perceived, what it did and what went wrong.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/agenthands/anima/internal/apperr"
	"github.com/agenthands/anima/internal/core/model"
	_ "modernc.org/sqlite"
)

type Kind string

const (
	KindPerception Kind = "perception"
	KindAction     Kind = "action"
	KindFailure    Kind = "failure"
)

type Entry struct {
	SessionID string `json:"session_id"`
	AgentID   string `json:"agent_id"`
	Seq       int64  `json:"seq"`
	Kind      Kind   `json:"kind"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// Log is append-only per (session, agent); only a whole-session reset
// removes entries.
type Log interface {
	Append(ctx context.Context, e Entry) (Entry, error)
	Recent(ctx context.Context, sessionID, agentID string, limit int) ([]Entry, error)
	Reset(ctx context.Context, sessionID string) error
	Close() error
}

//go:embed schema.sql
var schema string

type SQLiteLog struct {
	db  *sql.DB
	Now func() time.Time
}

// OpenSQLite opens or creates the log at path. ":memory:" keeps it in memory.
func OpenSQLite(path string) (*SQLiteLog, error) {
	if path == "" {
		return nil, fmt.Errorf("empty history path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one connection: serializes writers and keeps ":memory:" a single database
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLiteLog{db: db, Now: time.Now}, nil
}

// Append assigns the next sequence number of the (session, agent) log inside
// the insert statement itself.
func (l *SQLiteLog) Append(ctx context.Context, e Entry) (Entry, error) {
	if strings.TrimSpace(e.SessionID) == "" || strings.TrimSpace(e.AgentID) == "" {
		return Entry{}, apperr.Validationf("history.append", "session_id and agent_id are required")
	}
	if e.CreatedAt == "" {
		e.CreatedAt = model.FormatTimestamp(l.Now())
	}

	row := l.db.QueryRowContext(ctx, `
		INSERT INTO decision_log (session_id, agent_id, seq, kind, content, created_at)
		VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM decision_log WHERE session_id = ? AND agent_id = ?), ?, ?, ?)
		RETURNING seq`,
		e.SessionID, e.AgentID, e.SessionID, e.AgentID, string(e.Kind), e.Content, e.CreatedAt)
	if err := row.Scan(&e.Seq); err != nil {
		return Entry{}, fmt.Errorf("failed to append history: %w", err)
	}
	return e, nil
}

// Recent returns up to limit of the newest entries in ascending sequence
// order. A non-positive limit returns the whole log.
func (l *SQLiteLog) Recent(ctx context.Context, sessionID, agentID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT session_id, agent_id, seq, kind, content, created_at FROM (
			SELECT * FROM decision_log
			WHERE session_id = ? AND agent_id = ?
			ORDER BY seq DESC
			LIMIT ?
		) ORDER BY seq ASC`, sessionID, agentID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var kind string
		if err := rows.Scan(&e.SessionID, &e.AgentID, &e.Seq, &kind, &e.Content, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		e.Kind = Kind(kind)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (l *SQLiteLog) Reset(ctx context.Context, sessionID string) error {
	if _, err := l.db.ExecContext(ctx, `DELETE FROM decision_log WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to reset history: %w", err)
	}
	return nil
}

func (l *SQLiteLog) Close() error {
	return l.db.Close()
}

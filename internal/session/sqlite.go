package session

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/quill-ai/quill/internal/provider"
)

// Sessions and their transcripts live in separate tables so listing stays
// cheap no matter how long a conversation grows. Messages are keyed by
// position; content blocks (text, tool calls, tool results) are stored as
// the JSON the provider layer already speaks.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS sessions (
    id                TEXT PRIMARY KEY,
    created_at        TEXT NOT NULL,
    updated_at        TEXT NOT NULL,
    prompt_tokens     INTEGER NOT NULL DEFAULT 0,
    completion_tokens INTEGER NOT NULL DEFAULT 0,
    summary           TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS messages (
    session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    seq        INTEGER NOT NULL,
    role       TEXT NOT NULL,
    content    TEXT NOT NULL,
    PRIMARY KEY (session_id, seq)
);
CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at);
`

// SQLiteStore implements Store backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// DefaultDBPath returns the default database path (~/.local/share/quill/sessions.db).
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "quill", "sessions.db"), nil
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures the schema exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL for concurrent reads; foreign keys so deleting a session takes
	// its transcript with it.
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Save upserts the session row and rewrites its transcript in one
// transaction. Saving the same session twice replaces the old transcript
// rather than appending to it.
func (s *SQLiteStore) Save(sess *Session) error {
	sess.UpdatedAt = time.Now()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO sessions (id, created_at, updated_at, prompt_tokens, completion_tokens, summary)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			updated_at        = excluded.updated_at,
			prompt_tokens     = excluded.prompt_tokens,
			completion_tokens = excluded.completion_tokens,
			summary           = excluded.summary`,
		sess.ID,
		sess.CreatedAt.Format(time.RFC3339Nano),
		sess.UpdatedAt.Format(time.RFC3339Nano),
		sess.PromptTokens,
		sess.CompletionTokens,
		sess.Summary,
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM messages WHERE session_id = ?", sess.ID); err != nil {
		return fmt.Errorf("clear transcript: %w", err)
	}
	for i, msg := range sess.Messages {
		content, err := json.Marshal(msg.Content)
		if err != nil {
			return fmt.Errorf("marshal message %d: %w", i, err)
		}
		if _, err := tx.Exec(
			"INSERT INTO messages (session_id, seq, role, content) VALUES (?, ?, ?, ?)",
			sess.ID, i, string(msg.Role), string(content),
		); err != nil {
			return fmt.Errorf("save message %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Load(id string) (*Session, error) {
	row := s.db.QueryRow(`
		SELECT id, created_at, updated_at, prompt_tokens, completion_tokens, summary
		FROM sessions WHERE id = ?`, id)

	var sess Session
	var createdAt, updatedAt string
	err := row.Scan(&sess.ID, &createdAt, &updatedAt,
		&sess.PromptTokens, &sess.CompletionTokens, &sess.Summary)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	sess.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	sess.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	sess.TokensUsed = sess.PromptTokens + sess.CompletionTokens

	rows, err := s.db.Query(
		"SELECT role, content FROM messages WHERE session_id = ? ORDER BY seq", id)
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var role, content string
		if err := rows.Scan(&role, &content); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		var blocks []provider.Content
		if err := json.Unmarshal([]byte(content), &blocks); err != nil {
			return nil, fmt.Errorf("unmarshal message: %w", err)
		}
		sess.Messages = append(sess.Messages, provider.Message{
			Role:    provider.Role(role),
			Content: blocks,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}

	return &sess, nil
}

func (s *SQLiteStore) List() ([]SessionInfo, error) {
	rows, err := s.db.Query(`
		SELECT s.id, s.created_at, s.updated_at,
		       s.prompt_tokens + s.completion_tokens,
		       COUNT(m.seq)
		FROM sessions s
		LEFT JOIN messages m ON m.session_id = s.id
		GROUP BY s.id
		ORDER BY s.updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var infos []SessionInfo
	for rows.Next() {
		var info SessionInfo
		var createdAt, updatedAt string
		if err := rows.Scan(&info.ID, &createdAt, &updatedAt, &info.Tokens, &info.Messages); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		info.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		info.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

func (s *SQLiteStore) Delete(id string) error {
	result, err := s.db.Exec("DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("session %s not found", id)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

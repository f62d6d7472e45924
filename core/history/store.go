// Package history keeps the conversation in a SQLite database so replies
// can build on earlier turns across restarts.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/koscakluka/ema-avatar/core/llms"
	_ "modernc.org/sqlite"
)

var ErrStoreClosed = errors.New("history store closed")

// Store is a SQLite backed conversation log. Messages are grouped by
// session; a store only reads and writes its own session.
type Store struct {
	db        *sql.DB
	sessionID string
	clock     func() time.Time
}

type Option func(*Store)

// WithSessionID continues an existing session. By default every store
// starts a new one.
func WithSessionID(id string) Option {
	return func(s *Store) {
		if id != "" {
			s.sessionID = id
		}
	}
}

// Open opens or creates the database at path. The directory is created when
// missing.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, sessionID: uuid.NewString(), clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL,
    role TEXT NOT NULL,
    content TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, id);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("init history schema: %w", err)
	}
	return nil
}

// SessionID identifies the conversation this store appends to.
func (s *Store) SessionID() string {
	return s.sessionID
}

// Append writes messages in a single transaction, keeping their order.
func (s *Store) Append(ctx context.Context, messages ...llms.Message) error {
	if s.db == nil {
		return ErrStoreClosed
	}
	if len(messages) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO messages(session_id, role, content, created_at) VALUES(?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare history insert: %w", err)
	}
	defer stmt.Close()

	now := s.clock().UTC()
	for _, msg := range messages {
		if _, err := stmt.ExecContext(ctx, s.sessionID, string(msg.Role), msg.Content, now); err != nil {
			return fmt.Errorf("insert history message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit history: %w", err)
	}
	return nil
}

// Recent returns up to limit of the newest messages, oldest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]llms.Message, error) {
	if s.db == nil {
		return nil, ErrStoreClosed
	}
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content FROM messages WHERE session_id = ? ORDER BY id DESC LIMIT ?`,
		s.sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var messages []llms.Message
	for rows.Next() {
		var role, content string
		if err := rows.Scan(&role, &content); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		messages = append(messages, llms.Message{Role: llms.MessageRole(role), Content: content})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}

	slices.Reverse(messages)
	return messages, nil
}

// Close releases underlying resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

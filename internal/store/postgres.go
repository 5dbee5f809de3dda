package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zhouzirui/ai-experts-chat/backend/internal/model/chat"
)

const createConversationsTable = `
CREATE TABLE IF NOT EXISTS conversations (
    session_id TEXT PRIMARY KEY,
    messages   JSONB NOT NULL DEFAULT '[]'::jsonb,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const loadConversation = `
SELECT messages
FROM conversations
WHERE session_id = $1;`

// The concatenation runs under the row lock taken by ON CONFLICT, so
// concurrent appends to one session never overwrite each other.
const appendConversation = `
INSERT INTO conversations (session_id, messages)
VALUES ($1, $2::jsonb)
ON CONFLICT (session_id) DO UPDATE
SET messages = conversations.messages || EXCLUDED.messages,
    updated_at = NOW();`

// PostgresStore keeps each conversation as a JSONB array in one row.
type PostgresStore struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

// NewPostgresStore opens a pool for databaseURL, pings it and makes sure the
// conversations table exists.
func NewPostgresStore(ctx context.Context, databaseURL string, timeout time.Duration) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if timeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = timeout
	}

	s := &PostgresStore{timeout: timeout}

	initCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	db, err := pgxpool.NewWithConfig(initCtx, poolCfg)
	if err != nil {
		return nil, unavailable("create database pool", err)
	}
	if err := db.Ping(initCtx); err != nil {
		db.Close()
		return nil, unavailable("ping database", err)
	}
	if _, err := db.Exec(initCtx, createConversationsTable); err != nil {
		db.Close()
		return nil, unavailable("create conversations table", err)
	}

	s.db = db
	return s, nil
}

// Load returns the stored messages, or an empty slice when the row is missing.
func (s *PostgresStore) Load(ctx context.Context, sessionID string) ([]chat.Message, error) {
	if sessionID == "" {
		return nil, ErrSessionRequired
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var raw []byte
	err := s.db.QueryRow(ctx, loadConversation, sessionID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []chat.Message{}, nil
		}
		return nil, unavailable("load history", err)
	}

	var messages []chat.Message
	if err := json.Unmarshal(raw, &messages); err != nil {
		return nil, fmt.Errorf("failed to parse chat data for session %s: %w", sessionID, err)
	}
	if messages == nil {
		messages = []chat.Message{}
	}
	return messages, nil
}

// Append concatenates messages onto the stored array in one statement.
func (s *PostgresStore) Append(ctx context.Context, sessionID string, messages ...chat.Message) error {
	if sessionID == "" {
		return ErrSessionRequired
	}
	if len(messages) == 0 {
		return nil
	}

	data, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("failed to marshal chat data: %w", err)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.db.Exec(ctx, appendConversation, sessionID, string(data)); err != nil {
		return unavailable("append history", err)
	}
	return nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

func (s *PostgresStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

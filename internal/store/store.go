package store

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/zhouzirui/ai-experts-chat/backend/internal/config"
	"github.com/zhouzirui/ai-experts-chat/backend/internal/model/chat"
)

var (
	// ErrUnavailable is returned when a durable backend cannot be reached or a call times out.
	ErrUnavailable = errors.New("conversation store unavailable")
	// ErrSessionRequired is returned for an empty session identifier.
	ErrSessionRequired = errors.New("session id is required")
)

// Store maps a session identifier to its ordered message history.
// Implementations must be safe for concurrent use.
type Store interface {
	// Load returns the history for sessionID, or an empty slice for unknown sessions.
	Load(ctx context.Context, sessionID string) ([]chat.Message, error)
	// Append atomically extends the history, creating the session if absent.
	Append(ctx context.Context, sessionID string, messages ...chat.Message) error
	// Close releases the backend connection.
	Close() error
}

// Open builds the backend selected by cfg. Durable backends connect and
// verify the connection before returning.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Backend {
	case config.StoreMemory, "":
		log.Println("[store] using in-memory conversation store")
		return NewMemoryStore(), nil
	case config.StoreRedis:
		s, err := NewRedisStore(ctx, cfg.RedisURL, cfg.HistoryTTL, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		log.Println("[store] redis conversation store connected")
		return s, nil
	case config.StorePostgres:
		s, err := NewPostgresStore(ctx, cfg.DatabaseURL, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		log.Println("[store] postgres conversation store connected")
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.Backend)
	}
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}

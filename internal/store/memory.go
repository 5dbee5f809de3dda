package store

import (
	"context"
	"sync"

	"github.com/zhouzirui/ai-experts-chat/backend/internal/model/chat"
)

// MemoryStore keeps conversations in process memory. History is lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	messages map[string][]chat.Message
}

// NewMemoryStore bootstraps an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{messages: make(map[string][]chat.Message)}
}

// Load returns a copy of the stored history.
func (s *MemoryStore) Load(_ context.Context, sessionID string) ([]chat.Message, error) {
	if sessionID == "" {
		return nil, ErrSessionRequired
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	messages := s.messages[sessionID]
	copied := make([]chat.Message, len(messages))
	copy(copied, messages)
	return copied, nil
}

// Append extends the session history under the write lock.
func (s *MemoryStore) Append(_ context.Context, sessionID string, messages ...chat.Message) error {
	if sessionID == "" {
		return ErrSessionRequired
	}
	if len(messages) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.messages[sessionID]
	if !ok {
		history = make([]chat.Message, 0, 16)
	}
	s.messages[sessionID] = append(history, messages...)
	return nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error {
	return nil
}

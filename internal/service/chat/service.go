package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/zhouzirui/ai-experts-chat/backend/internal/model/chat"
	"github.com/zhouzirui/ai-experts-chat/backend/internal/store"
)

var (
	// ErrBadRequest marks caller mistakes that must not touch history.
	ErrBadRequest = errors.New("bad request")
)

// Completer produces the assistant reply for an ordered message list.
type Completer interface {
	Complete(ctx context.Context, messages []chat.Message) (chat.Message, error)
}

// PromptResolver chooses the leading system message for a new conversation.
type PromptResolver interface {
	Resolve(custom string) chat.Message
}

// Service runs chat turns against the conversation store and the model.
type Service struct {
	store    store.Store
	model    Completer
	prompts  PromptResolver
	sessions *sessionLocks
}

// NewService wires the turn executor.
func NewService(st store.Store, model Completer, prompts PromptResolver) *Service {
	return &Service{
		store:    st,
		model:    model,
		prompts:  prompts,
		sessions: newSessionLocks(),
	}
}

// RunTurn executes one user turn for sessionID and returns the reply text.
// Turns on the same session are serialized; history is only written after
// the model has replied, so a failed turn leaves it untouched.
func (s *Service) RunTurn(ctx context.Context, sessionID, query, overridePrompt string) (string, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", fmt.Errorf("%w: sessionID is required", ErrBadRequest)
	}
	if strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("%w: query is required", ErrBadRequest)
	}

	release, err := s.sessions.acquire(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("wait for session %s: %w", sessionID, err)
	}
	defer release()

	history, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("load history: %w", err)
	}

	userMsg := chat.UserMessage(query)
	outgoing := make([]chat.Message, 0, len(history)+2)
	persist := make([]chat.Message, 0, 3)

	if !chat.HasSystemPrompt(history) {
		system := s.prompts.Resolve(overridePrompt)
		outgoing = append(outgoing, system)
		// Only a brand new conversation can store it at index 0; history
		// without a leading system message gets the prompt for this call only.
		if len(history) == 0 {
			persist = append(persist, system)
		}
	}
	outgoing = append(outgoing, history...)
	outgoing = append(outgoing, userMsg)
	persist = append(persist, userMsg)

	reply, err := s.model.Complete(ctx, outgoing)
	if err != nil {
		log.Printf("[chat] model call failed for session=%s: %v", sessionID, err)
		return "", err
	}
	persist = append(persist, reply)

	if err := s.store.Append(ctx, sessionID, persist...); err != nil {
		log.Printf("[chat] failed to persist turn for session=%s: %v", sessionID, err)
		return "", fmt.Errorf("save history: %w", err)
	}

	log.Printf("[chat] completed turn for session=%s, history=%d", sessionID, len(history)+len(persist))
	return reply.Content, nil
}

// History returns the stored transcript for sessionID.
func (s *Service) History(ctx context.Context, sessionID string) (chat.Transcript, error) {
	if strings.TrimSpace(sessionID) == "" {
		return chat.Transcript{}, fmt.Errorf("%w: sessionID is required", ErrBadRequest)
	}

	messages, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return chat.Transcript{}, fmt.Errorf("load history: %w", err)
	}
	if messages == nil {
		messages = []chat.Message{}
	}
	return chat.Transcript{SessionID: sessionID, Messages: messages}, nil
}

// NewSessionID mints a random session identifier for clients that do not generate their own.
func (s *Service) NewSessionID() string {
	return uuid.NewString()
}

package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"

	"github.com/zhouzirui/ai-experts-chat/backend/internal/model/chat"
)

// ErrModelUnavailable covers network failures, timeouts, provider errors and
// malformed provider replies.
var ErrModelUnavailable = errors.New("model provider unavailable")

// Service sends conversations to the configured chat model.
type Service struct {
	chatModel model.BaseChatModel
	timeout   time.Duration
}

// NewService creates a new AI service instance. A zero timeout leaves the
// call bounded only by the caller's context.
func NewService(chatModel model.BaseChatModel, timeout time.Duration) (*Service, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}
	return &Service{chatModel: chatModel, timeout: timeout}, nil
}

// Complete runs a single non-streaming completion over messages and returns
// the assistant reply.
func (s *Service) Complete(ctx context.Context, messages []chat.Message) (chat.Message, error) {
	if len(messages) == 0 {
		return chat.Message{}, errors.New("no messages to send")
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	started := time.Now()
	response, err := s.chatModel.Generate(ctx, chat.ToSchema(messages))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return chat.Message{}, fmt.Errorf("%w: %v", ErrModelUnavailable, ctxErr)
		}
		return chat.Message{}, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	if response == nil || strings.TrimSpace(response.Content) == "" {
		return chat.Message{}, fmt.Errorf("%w: empty reply", ErrModelUnavailable)
	}

	log.Printf("[ai] generated response: messages=%d, length=%d, took=%s", len(messages), len(response.Content), time.Since(started).Round(time.Millisecond))
	return chat.AssistantMessage(response.Content), nil
}

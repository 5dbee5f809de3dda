package prompt

import (
	"strings"

	"github.com/zhouzirui/ai-experts-chat/backend/internal/model/chat"
)

// DefaultSystemPrompt is the instruction used when neither the caller nor the
// deployment supplies one.
const DefaultSystemPrompt = `You are a panel of AI experts in a chat application.
Answer the user's questions accurately and concisely, explain technical terms when they first appear,
and say so plainly when you are not sure about something.`

// Resolver picks the leading system message for a new conversation.
type Resolver struct {
	fallback string
}

// NewResolver returns a Resolver that falls back to fallback, or to
// DefaultSystemPrompt when fallback is blank.
func NewResolver(fallback string) *Resolver {
	fallback = strings.TrimSpace(fallback)
	if fallback == "" {
		fallback = DefaultSystemPrompt
	}
	return &Resolver{fallback: fallback}
}

// Resolve wraps custom as a system message, or the fallback prompt when custom is blank.
func (r *Resolver) Resolve(custom string) chat.Message {
	if trimmed := strings.TrimSpace(custom); trimmed != "" {
		return chat.SystemMessage(trimmed)
	}
	return chat.SystemMessage(r.fallback)
}

// Fallback returns the prompt used when no custom prompt is supplied.
func (r *Resolver) Fallback() string {
	return r.fallback
}

package chat

import (
	"time"

	"github.com/cloudwego/eino/schema"
)

// Role identifies who authored a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// Message is a single immutable turn fragment within a conversation.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// SystemMessage builds a system instruction message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content, CreatedAt: time.Now().UTC()}
}

// UserMessage builds a message authored by the end user.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content, CreatedAt: time.Now().UTC()}
}

// AssistantMessage builds a model reply.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content, CreatedAt: time.Now().UTC()}
}

// HasSystemPrompt reports whether the history already opens with a system message.
func HasSystemPrompt(history []Message) bool {
	return len(history) > 0 && history[0].Role == RoleSystem
}

// ToSchema converts messages into the eino representation sent to chat models.
func ToSchema(messages []Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			out = append(out, schema.SystemMessage(msg.Content))
		case RoleAssistant:
			out = append(out, schema.AssistantMessage(msg.Content, nil))
		default:
			out = append(out, schema.UserMessage(msg.Content))
		}
	}
	return out
}

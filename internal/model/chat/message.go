package chat

import (
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
)

// SystemMessageID is the fixed identifier of the persona message at the head of a transcript.
const SystemMessageID = "system-prompt"

// Message is one conversational turn shown in the portal.
type Message struct {
	ID         string          `json:"id"`
	Role       schema.RoleType `json:"role"`
	Content    string          `json:"content"`
	Timestamp  *time.Time      `json:"timestamp,omitempty"`
	IsFloating bool            `json:"isFloating,omitempty"`
}

// NewSystemMessage builds the persona message. It carries no timestamp.
func NewSystemMessage(prompt string) Message {
	return Message{
		ID:      SystemMessageID,
		Role:    schema.System,
		Content: prompt,
	}
}

// NewUserMessage builds a freshly typed user turn.
func NewUserMessage(content string, now time.Time) Message {
	return Message{
		ID:         newID("user"),
		Role:       schema.User,
		Content:    content,
		Timestamp:  &now,
		IsFloating: true,
	}
}

// NewAssistantMessage builds a reply turn.
func NewAssistantMessage(content string, now time.Time) Message {
	return Message{
		ID:        newID("assistant"),
		Role:      schema.Assistant,
		Content:   content,
		Timestamp: &now,
	}
}

// NewErrorMessage builds the synthetic assistant turn appended when a completion fails.
func NewErrorMessage(content string, now time.Time) Message {
	return Message{
		ID:        newID("error"),
		Role:      schema.Assistant,
		Content:   content,
		Timestamp: &now,
	}
}

// Wire reduces the message to the role/content pair sent to the chat collaborator.
func (m Message) Wire() *schema.Message {
	return &schema.Message{Role: m.Role, Content: m.Content}
}

func newID(kind string) string {
	return kind + "-" + uuid.NewString()
}

package model

import "github.com/google/uuid"

type MessageRole string

const (
	MessageRoleUser      = MessageRole("user")
	MessageRoleAssistant = MessageRole("assistant")
)

func (r MessageRole) Valid() bool {
	return r == MessageRoleUser || r == MessageRoleAssistant
}

// Message is a single transcript entry. ID is assigned before any reply is
// requested so the optimistic and the committed views share it.
type Message struct {
	ID      uuid.UUID
	Role    MessageRole
	Content string
}

func NewMessage(role MessageRole, content string) Message {
	return Message{
		ID:      uuid.New(),
		Role:    role,
		Content: content,
	}
}

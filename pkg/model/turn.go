package model

import (
	"time"

	"github.com/google/uuid"
)

type SessionID string

// NewSessionID generates a new unique SessionID
func NewSessionID() SessionID {
	return SessionID(uuid.New().String())
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationTurn is a single message in a conversation. Turns are
// append-only within a session; the caller owns the sequence and passes
// it by value into and out of each chat turn.
type ConversationTurn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// AppendTurn returns history with a new turn appended, timestamped now.
func AppendTurn(history []ConversationTurn, role Role, content string) []ConversationTurn {
	return append(history, ConversationTurn{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})
}

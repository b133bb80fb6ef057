// Package conversation persists chat conversations and their messages.
//
// Conversations are append-only: messages are never edited, and the only
// removal is deleting a whole conversation (or all of them).
package conversation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Davincible/ecoswitch-go/internal/providers"
)

// ErrNotFound is returned for an unknown conversation id.
var ErrNotFound = errors.New("conversation not found")

const (
	titleWords   = 5
	DefaultTitle = "New conversation"
)

type Message struct {
	ID        int64             `json:"id"`
	Role      string            `json:"role"`
	Content   providers.Content `json:"content"`
	Provider  providers.Kind    `json:"provider,omitempty"`
	Model     string            `json:"model,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

type Conversation struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Model     string    `json:"model"`
	Timestamp time.Time `json:"timestamp"`
	Messages  []Message `json:"messages,omitempty"`
}

// Store is implemented by MemoryStore and PostgresStore.
type Store interface {
	CreateConversation(ctx context.Context, title, model string) (*Conversation, error)
	// GetConversation returns the conversation with its messages in insertion order.
	GetConversation(ctx context.Context, id int64) (*Conversation, error)
	// ListConversations returns conversations newest first, without messages.
	ListConversations(ctx context.Context) ([]Conversation, error)
	AppendMessage(ctx context.Context, conversationID int64, msg Message) (*Message, error)
	DeleteConversation(ctx context.Context, id int64) error
	ClearConversations(ctx context.Context) error
	Ping(ctx context.Context) error
	Close()
}

// DeriveTitle builds a conversation title from the first prompt.
func DeriveTitle(prompt string) string {
	words := strings.Fields(prompt)
	if len(words) == 0 {
		return DefaultTitle
	}
	if len(words) > titleWords {
		words = words[:titleWords]
	}
	return strings.Join(words, " ") + "..."
}

func validateMessage(msg Message) error {
	switch msg.Role {
	case providers.RoleUser, providers.RoleAssistant, providers.RoleSystem:
	default:
		return errors.New("message role must be user, assistant or system")
	}
	if msg.Content.IsEmpty() {
		return errors.New("message content is empty")
	}
	return nil
}

// ABOUTME: Store types for local conversation history persistence
// ABOUTME: Defines Conversation, Message records kept across client runs

package store

import (
	"errors"
	"time"

	"github.com/GrasiaMeliolla/property-sales-agentic-assistant/internal/property"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// Conversation is one backend conversation the client has taken part in.
// The ID is the backend-assigned conversation identifier.
type Conversation struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is one persisted log entry. Only completed messages are
// written: in-flight placeholders live in session state, never here.
type Message struct {
	ID             string
	ConversationID string
	Role           string
	Content        string
	Properties     []property.Summary
	CreatedAt      time.Time
}

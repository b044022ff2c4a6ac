// ABOUTME: Conversation session state machine driven by decoded stream events
// ABOUTME: Owns the append-only message log and the one-exchange-in-flight discipline

package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/GrasiaMeliolla/property-sales-agentic-assistant/internal/property"
	"github.com/GrasiaMeliolla/property-sales-agentic-assistant/internal/stream"
)

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in the conversation log.
type Message struct {
	ID      string
	Role    Role
	Content string

	// Properties holds the structured results attached to an assistant
	// message. Nil means no results event arrived; an empty non-nil
	// slice means the backend explicitly sent none.
	Properties []property.Summary

	// Streaming is true from placeholder creation until the exchange
	// completes. A streaming message's content only ever grows.
	Streaming bool
}

// EventStream is one open exchange as the session consumes it.
type EventStream interface {
	Next() (stream.Event, error)
	Close() error
}

// Backend defines what the session needs from the transport layer.
type Backend interface {
	CreateConversation(ctx context.Context) (string, error)
	StreamChat(ctx context.Context, conversationID, message string) (EventStream, error)
}

// Session holds the state of one conversation: the message log, the
// in-flight flag, and the last surfaced failure. One Session maps to one
// backend conversation; it is created when a chat opens and discarded
// with it.
//
// Mutation happens only inside Start and Send. Accessors may be called
// from other goroutines (a UI redrawing while an exchange runs) and
// return snapshots.
type Session struct {
	backend Backend
	logger  *slog.Logger

	// OnUpdate, when set before the first Send, is invoked after every
	// applied state change so a UI can re-render. Called without locks
	// held; implementations should read state through the accessors.
	OnUpdate func()

	mu             sync.Mutex
	conversationID string
	log            []Message
	pending        bool
	lastErr        string
	lastIntent     json.RawMessage
}

// New creates a Session over the given backend. The session is unusable
// until Start succeeds.
func New(backend Backend, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		backend: backend,
		logger:  logger.With("component", "session"),
	}
}

// Start obtains the conversation identifier from the backend. On failure
// the session remains unusable and Start must be retried; on a session
// that already started it is a no-op.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.conversationID != "" {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	id, err := s.backend.CreateConversation(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.conversationID = id
	s.mu.Unlock()

	s.logger.Debug("session started", "conversation_id", id)
	return nil
}

// Send dispatches one message and consumes the resulting stream to
// completion, applying each event to the log as it arrives. It blocks
// for the duration of the exchange; cancel ctx to abandon it.
//
// Preconditions: text must be non-empty after trimming, the session must
// be started, and no exchange may be in flight. A violating call is
// silently ignored — it is a guard, not a reported error. Transport
// failures are not returned either: they surface through LastError and
// the placeholder message is retracted from the log.
func (s *Session) Send(ctx context.Context, text string) {
	text = strings.TrimSpace(text)

	s.mu.Lock()
	if text == "" || s.conversationID == "" || s.pending {
		s.mu.Unlock()
		return
	}

	userID := uuid.New().String()
	placeholderID := uuid.New().String()
	s.log = append(s.log,
		Message{ID: userID, Role: RoleUser, Content: text},
		Message{ID: placeholderID, Role: RoleAssistant, Streaming: true},
	)
	s.pending = true
	s.lastErr = ""
	convID := s.conversationID
	s.mu.Unlock()
	s.notify()

	es, err := s.backend.StreamChat(ctx, convID, text)
	if err != nil {
		s.failExchange(placeholderID, err)
		return
	}
	defer es.Close()

	for {
		ev, err := es.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			// The connection broke mid-stream. The partial message must
			// not remain visible.
			s.failExchange(placeholderID, err)
			return
		}
		s.apply(ev, placeholderID)
	}

	s.completeExchange(placeholderID)
}

// ConversationID returns the backend conversation identifier, or ""
// before a successful Start.
func (s *Session) ConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationID
}

// Log returns a snapshot of the message log.
func (s *Session) Log() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.log))
	copy(out, s.log)
	return out
}

// Pending reports whether an exchange is in flight.
func (s *Session) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// LastError returns the last surfaced failure message, or "" when the
// previous exchange ended cleanly. It is cleared when a new Send begins.
func (s *Session) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// LastIntent returns the raw payload of the most recent intent event.
// The session itself attaches no meaning to it.
func (s *Session) LastIntent() json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastIntent
}

// apply folds one event into session state.
func (s *Session) apply(ev stream.Event, targetID string) {
	s.mu.Lock()
	switch ev.Kind {
	case stream.KindError:
		// Informational: captured, but the exchange keeps consuming.
		s.lastErr = ev.Text
	case stream.KindIntent:
		s.lastIntent = ev.Meta
	}
	s.log = reduce(s.log, ev, targetID)
	s.mu.Unlock()
	s.notify()
}

// completeExchange marks the placeholder as finished streaming.
func (s *Session) completeExchange(targetID string) {
	s.mu.Lock()
	for i := range s.log {
		if s.log[i].ID == targetID {
			s.log[i].Streaming = false
			break
		}
	}
	s.pending = false
	s.mu.Unlock()
	s.notify()
}

// failExchange retracts the placeholder and records a user-facing error.
func (s *Session) failExchange(targetID string, err error) {
	s.logger.Warn("exchange failed", "error", err)

	s.mu.Lock()
	kept := s.log[:0:0]
	for _, m := range s.log {
		if m.ID != targetID {
			kept = append(kept, m)
		}
	}
	s.log = kept
	s.lastErr = fmt.Sprintf("message failed: %v", err)
	s.pending = false
	s.mu.Unlock()
	s.notify()
}

func (s *Session) notify() {
	if s.OnUpdate != nil {
		s.OnUpdate()
	}
}

// ABOUTME: Tests for the conversation session state machine
// ABOUTME: Verifies log accretion, placeholder retraction, and precondition guards

package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GrasiaMeliolla/property-sales-agentic-assistant/internal/property"
	"github.com/GrasiaMeliolla/property-sales-agentic-assistant/internal/stream"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scriptedStream plays back a fixed event sequence, then ends with err
// (io.EOF when nil).
type scriptedStream struct {
	events []stream.Event
	err    error
	idx    int
	closed bool
}

func (s *scriptedStream) Next() (stream.Event, error) {
	if s.idx < len(s.events) {
		ev := s.events[s.idx]
		s.idx++
		return ev, nil
	}
	if s.err != nil {
		return stream.Event{}, s.err
	}
	return stream.Event{}, io.EOF
}

func (s *scriptedStream) Close() error {
	s.closed = true
	return nil
}

// mockBackend implements Backend with scripted streams, one per Send.
type mockBackend struct {
	conversationID string
	createErr      error
	openErr        error
	streams        []*scriptedStream
	opened         int
	lastMessage    string
}

func (m *mockBackend) CreateConversation(ctx context.Context) (string, error) {
	if m.createErr != nil {
		return "", m.createErr
	}
	return m.conversationID, nil
}

func (m *mockBackend) StreamChat(ctx context.Context, conversationID, message string) (EventStream, error) {
	m.lastMessage = message
	if m.openErr != nil {
		return nil, m.openErr
	}
	if m.opened >= len(m.streams) {
		return nil, errors.New("unexpected extra StreamChat call")
	}
	s := m.streams[m.opened]
	m.opened++
	return s, nil
}

func contentEvent(text string) stream.Event {
	return stream.Event{Kind: stream.KindContent, Text: text}
}

func startedSession(t *testing.T, backend *mockBackend) *Session {
	t.Helper()
	if backend.conversationID == "" {
		backend.conversationID = "conv-1"
	}
	sess := New(backend, testLogger())
	require.NoError(t, sess.Start(context.Background()))
	return sess
}

func TestSession_Send_AccretesContent(t *testing.T) {
	backend := &mockBackend{
		streams: []*scriptedStream{{
			events: []stream.Event{
				contentEvent("Hi"),
				contentEvent(" there"),
				{Kind: stream.KindDone},
			},
		}},
	}
	sess := startedSession(t, backend)

	sess.Send(context.Background(), "hello")

	log := sess.Log()
	require.Len(t, log, 2)
	assert.Equal(t, RoleUser, log[0].Role)
	assert.Equal(t, "hello", log[0].Content)
	assert.Equal(t, RoleAssistant, log[1].Role)
	assert.Equal(t, "Hi there", log[1].Content)
	assert.False(t, log[1].Streaming)
	assert.False(t, sess.Pending())
	assert.Empty(t, sess.LastError())
	assert.True(t, backend.streams[0].closed)
}

func TestSession_Send_TrimsMessage(t *testing.T) {
	backend := &mockBackend{streams: []*scriptedStream{{}}}
	sess := startedSession(t, backend)

	sess.Send(context.Background(), "  hello  ")

	assert.Equal(t, "hello", backend.lastMessage)
	assert.Equal(t, "hello", sess.Log()[0].Content)
}

func TestSession_Send_ResultsAttach(t *testing.T) {
	props := []property.Summary{{ID: "p1", ProjectName: "Marina Heights"}}
	backend := &mockBackend{
		streams: []*scriptedStream{{
			events: []stream.Event{
				contentEvent("Take a look."),
				{Kind: stream.KindResults, Properties: props},
			},
		}},
	}
	sess := startedSession(t, backend)

	sess.Send(context.Background(), "show me apartments")

	log := sess.Log()
	require.Len(t, log, 2)
	assert.Equal(t, props, log[1].Properties)
}

func TestSession_Send_ResultsNullReplacesPrevious(t *testing.T) {
	backend := &mockBackend{
		streams: []*scriptedStream{{
			events: []stream.Event{
				{Kind: stream.KindResults, Properties: []property.Summary{{ID: "p1", ProjectName: "Old"}}},
				{Kind: stream.KindResults, Properties: []property.Summary{}},
			},
		}},
	}
	sess := startedSession(t, backend)

	sess.Send(context.Background(), "anything else?")

	log := sess.Log()
	require.NotNil(t, log[1].Properties)
	assert.Empty(t, log[1].Properties)
}

func TestSession_Send_TransportFailureRetractsPlaceholder(t *testing.T) {
	backend := &mockBackend{
		streams: []*scriptedStream{{
			events: []stream.Event{contentEvent("partial answer")},
			err:    errors.New("connection reset"),
		}},
	}
	sess := startedSession(t, backend)

	sess.Send(context.Background(), "hello")

	log := sess.Log()
	require.Len(t, log, 1, "placeholder must be retracted")
	assert.Equal(t, RoleUser, log[0].Role)
	assert.NotEmpty(t, sess.LastError())
	assert.False(t, sess.Pending())
	assert.True(t, backend.streams[0].closed)
}

func TestSession_Send_OpenFailureRetractsPlaceholder(t *testing.T) {
	backend := &mockBackend{openErr: errors.New("status 503")}
	sess := startedSession(t, backend)

	sess.Send(context.Background(), "hello")

	log := sess.Log()
	require.Len(t, log, 1)
	assert.Equal(t, RoleUser, log[0].Role)
	assert.NotEmpty(t, sess.LastError())
	assert.False(t, sess.Pending())
}

func TestSession_Send_WhitespaceOnlyIsNoOp(t *testing.T) {
	backend := &mockBackend{}
	sess := startedSession(t, backend)

	sess.Send(context.Background(), "   ")

	assert.Empty(t, sess.Log())
	assert.Zero(t, backend.opened)
}

func TestSession_Send_BeforeStartIsNoOp(t *testing.T) {
	backend := &mockBackend{}
	sess := New(backend, testLogger())

	sess.Send(context.Background(), "hello")

	assert.Empty(t, sess.Log())
	assert.Zero(t, backend.opened)
}

func TestSession_Send_WhilePendingIsNoOp(t *testing.T) {
	backend := &mockBackend{
		streams: []*scriptedStream{{
			events: []stream.Event{contentEvent("busy")},
		}},
	}
	sess := startedSession(t, backend)

	// Re-enter Send from the update hook: the exchange is still in
	// flight, so the inner call must be ignored entirely.
	var lenDuring int
	sess.OnUpdate = func() {
		if !sess.Pending() {
			return
		}
		sess.Send(context.Background(), "interruption")
		lenDuring = len(sess.Log())
	}

	sess.Send(context.Background(), "hello")

	assert.Equal(t, 2, lenDuring, "nested send must not grow the log")
	assert.Len(t, sess.Log(), 2)
	assert.Equal(t, 1, backend.opened)
}

func TestSession_Send_ClearsPreviousError(t *testing.T) {
	backend := &mockBackend{
		streams: []*scriptedStream{
			{err: errors.New("boom")},
			{events: []stream.Event{contentEvent("fine now")}},
		},
	}
	sess := startedSession(t, backend)

	sess.Send(context.Background(), "first")
	require.NotEmpty(t, sess.LastError())

	sess.Send(context.Background(), "second")
	assert.Empty(t, sess.LastError())
	assert.Equal(t, "fine now", sess.Log()[len(sess.Log())-1].Content)
}

func TestSession_ErrorEventIsInformational(t *testing.T) {
	backend := &mockBackend{
		streams: []*scriptedStream{{
			events: []stream.Event{
				{Kind: stream.KindError, Text: "search temporarily degraded"},
				contentEvent("Here is what I found anyway."),
			},
		}},
	}
	sess := startedSession(t, backend)

	sess.Send(context.Background(), "hello")

	log := sess.Log()
	require.Len(t, log, 2, "error event must not retract the placeholder")
	assert.Equal(t, "Here is what I found anyway.", log[1].Content)
	assert.False(t, log[1].Streaming)
	assert.Equal(t, "search temporarily degraded", sess.LastError())
}

func TestSession_IntentCaptured(t *testing.T) {
	backend := &mockBackend{
		streams: []*scriptedStream{{
			events: []stream.Event{
				{Kind: stream.KindIntent, Meta: []byte(`"property_search"`)},
				contentEvent("ok"),
			},
		}},
	}
	sess := startedSession(t, backend)

	sess.Send(context.Background(), "hello")

	assert.JSONEq(t, `"property_search"`, string(sess.LastIntent()))
	// Intent events carry no log mutation.
	assert.Equal(t, "ok", sess.Log()[1].Content)
}

func TestSession_UniqueIDsAcrossExchanges(t *testing.T) {
	backend := &mockBackend{
		streams: []*scriptedStream{
			{events: []stream.Event{contentEvent("one")}},
			{events: []stream.Event{contentEvent("two")}},
		},
	}
	sess := startedSession(t, backend)

	sess.Send(context.Background(), "first")
	sess.Send(context.Background(), "second")

	log := sess.Log()
	require.Len(t, log, 4)
	seen := make(map[string]bool)
	for _, m := range log {
		assert.False(t, seen[m.ID], "duplicate message ID %s", m.ID)
		seen[m.ID] = true
	}
}

func TestSession_StartFailureLeavesSessionUnusable(t *testing.T) {
	backend := &mockBackend{createErr: errors.New("backend down")}
	sess := New(backend, testLogger())

	err := sess.Start(context.Background())
	require.Error(t, err)
	assert.Empty(t, sess.ConversationID())

	// Unusable until a retry succeeds.
	sess.Send(context.Background(), "hello")
	assert.Empty(t, sess.Log())

	backend.createErr = nil
	backend.conversationID = "conv-2"
	backend.streams = []*scriptedStream{{events: []stream.Event{contentEvent("hi")}}}
	require.NoError(t, sess.Start(context.Background()))
	assert.Equal(t, "conv-2", sess.ConversationID())

	sess.Send(context.Background(), "hello")
	assert.Len(t, sess.Log(), 2)
}

func TestSession_StartIsIdempotent(t *testing.T) {
	backend := &mockBackend{conversationID: "conv-1"}
	sess := New(backend, testLogger())

	require.NoError(t, sess.Start(context.Background()))
	backend.conversationID = "conv-other"
	require.NoError(t, sess.Start(context.Background()))

	assert.Equal(t, "conv-1", sess.ConversationID())
}

func TestSession_OnUpdateFiresPerApplication(t *testing.T) {
	backend := &mockBackend{
		streams: []*scriptedStream{{
			events: []stream.Event{
				contentEvent("a"),
				contentEvent("b"),
				{Kind: stream.KindDone},
			},
		}},
	}
	sess := startedSession(t, backend)

	var updates int
	sess.OnUpdate = func() { updates++ }

	sess.Send(context.Background(), "hello")

	// One for the appended pair, one per event, one for completion.
	assert.Equal(t, 5, updates)
}

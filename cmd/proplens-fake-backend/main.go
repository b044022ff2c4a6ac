// ABOUTME: Fake PropLens backend for local development and E2E testing.
// ABOUTME: Speaks the real wire protocol with scripted replies and configurable chunking.

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/GrasiaMeliolla/property-sales-agentic-assistant/internal/property"
)

func main() {
	addr := flag.String("addr", "localhost:8000", "Listen address")
	delay := flag.Duration("delay", 40*time.Millisecond, "Pause between streamed events")
	fragment := flag.Int("fragment", 0, "Write SSE output in chunks of this many bytes (0 = whole events)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	srv := &fakeBackend{
		delay:         *delay,
		fragment:      *fragment,
		logger:        logger,
		conversations: make(map[string]time.Time),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", srv.handleHealth)
	mux.HandleFunc("POST /api/conversations", srv.handleCreateConversation)
	mux.HandleFunc("GET /api/conversations/{id}", srv.handleGetConversation)
	mux.HandleFunc("POST /api/agents/chat", srv.handleChat)
	mux.HandleFunc("POST /api/agents/chat/stream", srv.handleChatStream)

	httpServer := &http.Server{Addr: *addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("fake backend listening", "addr", *addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

type fakeBackend struct {
	delay    time.Duration
	fragment int
	logger   *slog.Logger

	mu            sync.Mutex
	conversations map[string]time.Time
}

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
}

func (f *fakeBackend) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (f *fakeBackend) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	id := uuid.New().String()
	now := time.Now().UTC()

	f.mu.Lock()
	f.conversations[id] = now
	f.mu.Unlock()

	f.logger.Info("conversation created", "conversation_id", id)
	writeJSON(w, http.StatusOK, map[string]any{
		"id":         id,
		"status":     "active",
		"context":    map[string]any{},
		"created_at": now.Format(time.RFC3339),
	})
}

func (f *fakeBackend) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	f.mu.Lock()
	createdAt, ok := f.conversations[id]
	f.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Conversation not found"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":         id,
		"status":     "active",
		"context":    map[string]any{},
		"created_at": createdAt.Format(time.RFC3339),
	})
}

func (f *fakeBackend) handleChat(w http.ResponseWriter, r *http.Request) {
	req, ok := f.parseChatRequest(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"response":             scriptedReply(req.Message),
		"conversation_id":      req.ConversationID,
		"recommended_projects": scriptedProperties(req.Message),
		"metadata":             map[string]any{"intent": scriptedIntent(req.Message)},
	})
}

func (f *fakeBackend) handleChatStream(w http.ResponseWriter, r *http.Request) {
	req, ok := f.parseChatRequest(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "streaming not supported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	f.writeEvent(w, flusher, "intent", scriptedIntent(req.Message))

	reply := scriptedReply(req.Message)
	for _, word := range strings.SplitAfter(reply, " ") {
		select {
		case <-r.Context().Done():
			return
		case <-time.After(f.delay):
		}
		f.writeEvent(w, flusher, "content", word)
	}

	if props := scriptedProperties(req.Message); props != nil {
		f.writeEvent(w, flusher, "properties", props)
	}

	f.writeEvent(w, flusher, "done", map[string]any{
		"intent":      scriptedIntent(req.Message),
		"preferences": map[string]any{},
	})
}

func (f *fakeBackend) parseChatRequest(w http.ResponseWriter, r *http.Request) (*chatRequest, bool) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "message is required"})
		return nil, false
	}

	f.mu.Lock()
	_, known := f.conversations[req.ConversationID]
	f.mu.Unlock()
	if !known {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Conversation not found"})
		return nil, false
	}

	return &req, true
}

// writeEvent emits one protocol line, optionally fragmented into small
// writes to exercise client-side chunk reassembly.
func (f *fakeBackend) writeEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) {
	payload, err := json.Marshal(map[string]any{"type": eventType, "data": data})
	if err != nil {
		f.logger.Error("failed to marshal event", "error", err)
		return
	}
	line := fmt.Sprintf("data: %s\n\n", payload)

	if f.fragment <= 0 {
		fmt.Fprint(w, line)
		flusher.Flush()
		return
	}

	for len(line) > 0 {
		n := f.fragment
		if n > len(line) {
			n = len(line)
		}
		fmt.Fprint(w, line[:n])
		flusher.Flush()
		line = line[n:]
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// scriptedIntent classifies the message just enough to vary the replies.
func scriptedIntent(message string) string {
	m := strings.ToLower(message)
	switch {
	case strings.Contains(m, "book") || strings.Contains(m, "viewing"):
		return "booking"
	case strings.Contains(m, "price") || strings.Contains(m, "cost"):
		return "pricing"
	case strings.Contains(m, "apartment") || strings.Contains(m, "villa") || strings.Contains(m, "property"):
		return "property_search"
	default:
		return "general"
	}
}

func scriptedReply(message string) string {
	switch scriptedIntent(message) {
	case "booking":
		return "I can arrange a viewing for you. Could you share your **name** and **email** so I can confirm the booking?"
	case "pricing":
		return "Prices vary by project and layout. The developments below give a good sense of the current range."
	case "property_search":
		return "Here are a few projects that match what you're looking for. All of them are available for viewing this week."
	default:
		return "Hello! I'm the Silver Land property assistant. Tell me what kind of home you're looking for and I'll suggest some projects."
	}
}

func scriptedProperties(message string) []property.Summary {
	intent := scriptedIntent(message)
	if intent != "property_search" && intent != "pricing" {
		return nil
	}

	city := "Dubai"
	country := "UAE"
	price1 := 450000.0
	price2 := 1250000.0
	beds1 := 2
	beds2 := 4
	apartment := "apartment"

	return []property.Summary{
		{
			ID:           uuid.New().String(),
			ProjectName:  "Marina Heights",
			City:         &city,
			Country:      &country,
			PriceUSD:     &price1,
			Bedrooms:     &beds1,
			PropertyType: &apartment,
		},
		{
			ID:          uuid.New().String(),
			ProjectName: "Palm Vista Villas",
			City:        &city,
			PriceUSD:    &price2,
			Bedrooms:    &beds2,
			// property_type deliberately absent: clients must render it
			// as unspecified rather than dropping the card
		},
		{
			ID:          uuid.New().String(),
			ProjectName: "Skyline Residences",
		},
	}
}

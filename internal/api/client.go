// ABOUTME: HTTP client for the PropLens conversational backend
// ABOUTME: Covers conversation creation, streaming and non-streaming chat, and health

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/GrasiaMeliolla/property-sales-agentic-assistant/internal/property"
	"github.com/GrasiaMeliolla/property-sales-agentic-assistant/internal/stream"
)

const defaultTimeout = 30 * time.Second

// Client talks to one backend instance. All methods are safe for
// concurrent use; the underlying http.Client pools connections.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a Client for the backend at baseURL (no trailing
// slash). httpClient may be nil, in which case a default client with a
// request timeout is used; note the timeout applies to non-streaming
// calls only — streaming requests use a client without a deadline so a
// long-running exchange is not cut off mid-stream.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		http:    httpClient,
		logger:  logger.With("component", "api"),
	}
}

// Conversation is the backend's conversation metadata record.
type Conversation struct {
	ID        string         `json:"id"`
	Status    string         `json:"status"`
	Context   map[string]any `json:"context"`
	CreatedAt time.Time      `json:"created_at"`
}

// ChatResult is the non-streaming chat response.
type ChatResult struct {
	Response            string             `json:"response"`
	ConversationID      string             `json:"conversation_id"`
	RecommendedProjects []property.Summary `json:"recommended_projects"`
	Metadata            map[string]any     `json:"metadata"`
}

// chatRequest is the JSON body for both chat endpoints.
type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
}

// CreateConversation opens a new conversation and returns its metadata.
// Failures are reported as *InitError: the session cannot be used until
// a retry succeeds.
func (c *Client) CreateConversation(ctx context.Context) (*Conversation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/conversations", nil)
	if err != nil {
		return nil, &InitError{Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &InitError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &InitError{Status: resp.StatusCode, Err: errFromBody(resp)}
	}

	var conv Conversation
	if err := json.NewDecoder(resp.Body).Decode(&conv); err != nil {
		return nil, &InitError{Err: fmt.Errorf("parsing response: %w", err)}
	}

	c.logger.Debug("conversation created", "conversation_id", conv.ID)
	return &conv, nil
}

// GetConversation fetches metadata for an existing conversation.
func (c *Client) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	url := fmt.Sprintf("%s/api/conversations/%s", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching conversation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	var conv Conversation
	if err := json.NewDecoder(resp.Body).Decode(&conv); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	return &conv, nil
}

// Health probes the backend health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend not reachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("backend returned status %d", resp.StatusCode)
	}
	return nil
}

// Chat sends a message on the non-streaming endpoint and returns the
// complete response in one piece.
func (c *Client) Chat(ctx context.Context, conversationID, message string) (*ChatResult, error) {
	body, err := json.Marshal(chatRequest{Message: message, ConversationID: conversationID})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/agents/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned status %d: %w", resp.StatusCode, errFromBody(resp))
	}

	var result ChatResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	return &result, nil
}

// StreamChat sends a message on the streaming endpoint and returns the
// open event stream. A non-success response or an absent body is a
// *TransportError; once the stream is open only the connection itself
// can fail it. The caller must Close the stream.
func (c *Client) StreamChat(ctx context.Context, conversationID, message string) (*EventStream, error) {
	body, err := json.Marshal(chatRequest{Message: message, ConversationID: conversationID})
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("marshaling request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/agents/chat/stream", bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	// No client timeout here: the stream stays open for as long as the
	// backend generates. Cancellation comes from ctx.
	streamClient := &http.Client{Transport: c.http.Transport}
	resp, err := streamClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, &TransportError{Status: resp.StatusCode, Err: errFromBody(resp)}
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		return nil, &TransportError{Err: fmt.Errorf("response has no body")}
	}

	c.logger.Debug("stream opened", "conversation_id", conversationID)
	return &EventStream{
		dec:  stream.NewDecoder(resp.Body),
		body: resp.Body,
	}, nil
}

// EventStream is one open streaming exchange: a decoder over the live
// response body. Close releases the connection; closing mid-stream makes
// the next Next call fail, which stops the consumer.
type EventStream struct {
	dec  *stream.Decoder
	body io.ReadCloser
}

// Next returns the next decoded event, io.EOF at normal completion, or
// the connection error if the stream broke.
func (s *EventStream) Next() (stream.Event, error) {
	return s.dec.Next()
}

// Close terminates the exchange and releases the connection.
func (s *EventStream) Close() error {
	return s.body.Close()
}

// errFromBody extracts an error message from a JSON error response body.
// The backend formats errors as {"detail": "..."} or {"error": "..."}.
func errFromBody(resp *http.Response) error {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil || len(data) == 0 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err == nil {
		for _, key := range []string{"detail", "error"} {
			if msg, ok := payload[key].(string); ok && msg != "" {
				return fmt.Errorf("%s", msg)
			}
		}
	}
	return fmt.Errorf("status %d", resp.StatusCode)
}

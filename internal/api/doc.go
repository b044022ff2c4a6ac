// Package api is the HTTP client for the PropLens conversational backend.
//
// # Overview
//
// The backend exposes a small REST surface plus one streaming endpoint:
//
//	POST /api/conversations          create a conversation
//	GET  /api/conversations/{id}     fetch conversation metadata
//	POST /api/agents/chat            one-shot chat, full reply in one response
//	POST /api/agents/chat/stream     chat with a server-sent event stream reply
//	GET  /api/health                 liveness probe
//
// # Error Types
//
// Failures split by phase:
//
//   - *InitError: conversation creation failed. The session has no
//     identifier and cannot be used until a retry succeeds.
//   - *TransportError: opening or sustaining a stream failed. The
//     exchange is lost; the session itself remains usable.
//
// Both unwrap to their underlying cause.
//
// # Streaming
//
// StreamChat returns an EventStream whose Next method yields decoded
// events (see the stream package) until io.EOF. The client used for
// streaming carries no timeout; cancellation comes from the request
// context, and Close releases the connection.
package api

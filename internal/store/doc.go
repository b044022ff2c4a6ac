// Package store persists conversation history locally.
//
// # Overview
//
// The backend owns the authoritative conversation state; this store is a
// client-side record so earlier exchanges survive restarts. It keeps two
// tables: conversations (id, timestamps) and messages (role, content,
// optional property results as JSON).
//
// Only completed messages are written. In-flight placeholders live in
// session state and never reach disk, so a crash mid-stream leaves no
// partial rows.
//
// # Implementation
//
// SQLiteStore uses modernc.org/sqlite (pure Go, no cgo) with WAL mode
// and foreign keys enabled. The schema is created automatically on open.
// Timestamps are stored as RFC 3339 text, which keeps the chronological
// ORDER BY correct without driver-specific time handling.
package store

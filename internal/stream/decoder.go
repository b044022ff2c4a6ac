// ABOUTME: Incremental decoder for the chat SSE stream
// ABOUTME: Turns raw chunked bytes into ordered typed events, tolerating malformed lines

package stream

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/GrasiaMeliolla/property-sales-agentic-assistant/internal/property"
)

// Kind identifies the type of a decoded stream event.
type Kind string

const (
	KindContent Kind = "content"
	KindResults Kind = "results"
	KindIntent  Kind = "intent"
	KindDone    Kind = "done"
	KindError   Kind = "error"
)

// Event is one decoded protocol unit. Events are transient: produced,
// applied to session state, discarded.
type Event struct {
	Kind Kind

	// Text carries the fragment for content events and the
	// human-readable message for error events.
	Text string

	// Properties carries the payload of a results event. It is always
	// non-nil for results events, even when the wire payload was null.
	Properties []property.Summary

	// Meta carries the opaque payload of intent and done events.
	Meta json.RawMessage
}

// dataPrefix marks lines that carry an event payload. Anything else on
// the stream (comments, keep-alives, blank lines) is ignored.
var dataPrefix = []byte("data:")

// readChunkSize is the read granularity. Events routinely span chunk
// boundaries; the decoder buffers the unterminated tail between reads.
const readChunkSize = 4096

// Decoder reads an SSE byte stream and yields events one at a time, in
// wire order. It is pull-based: each Next call consumes just enough
// input to find the next complete event line. A Decoder is not safe for
// concurrent use.
type Decoder struct {
	r    io.Reader
	buf  []byte // unterminated tail carried between reads
	tmp  []byte
	rerr error // sticky read error, surfaced once the buffer is drained
}

// NewDecoder returns a Decoder reading from r. The caller retains
// ownership of r and is responsible for closing it.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		r:   r,
		tmp: make([]byte, readChunkSize),
	}
}

// Next returns the next event in the stream. It returns io.EOF when the
// underlying reader is exhausted, or the reader's error if it failed
// mid-stream. Malformed lines never produce an error: they are skipped
// and decoding continues with the next line.
func (d *Decoder) Next() (Event, error) {
	for {
		// Drain complete lines already buffered before reading more.
		for {
			i := bytes.IndexByte(d.buf, '\n')
			if i < 0 {
				break
			}
			line := d.buf[:i]
			d.buf = d.buf[i+1:]
			if ev, ok := parseLine(line); ok {
				return ev, nil
			}
		}

		if d.rerr != nil {
			// A trailing fragment without a line break cannot be a
			// complete event; drop it.
			d.buf = nil
			return Event{}, d.rerr
		}

		n, err := d.r.Read(d.tmp)
		if n > 0 {
			d.buf = append(d.buf, d.tmp[:n]...)
		}
		if err != nil {
			d.rerr = err
		}
	}
}

// wireEvent is the JSON shape carried on each data line.
type wireEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// parseLine decodes a single complete line into an event. The second
// return is false for keep-alive lines, unknown event types, and
// payloads that do not parse; those lines produce no event.
func parseLine(line []byte) (Event, bool) {
	line = bytes.TrimSuffix(line, []byte("\r"))
	if !bytes.HasPrefix(line, dataPrefix) {
		return Event{}, false
	}
	body := bytes.TrimLeft(bytes.TrimPrefix(line, dataPrefix), " ")
	if len(body) == 0 {
		return Event{}, false
	}

	var we wireEvent
	if err := json.Unmarshal(body, &we); err != nil {
		return Event{}, false
	}

	switch we.Type {
	case "content":
		var text string
		if err := json.Unmarshal(we.Data, &text); err != nil {
			return Event{}, false
		}
		return Event{Kind: KindContent, Text: text}, true

	case "properties":
		// Null or absent data means "no results", not "keep the old ones".
		props := []property.Summary{}
		if len(we.Data) > 0 && !bytes.Equal(we.Data, []byte("null")) {
			if err := json.Unmarshal(we.Data, &props); err != nil {
				return Event{}, false
			}
			if props == nil {
				props = []property.Summary{}
			}
		}
		return Event{Kind: KindResults, Properties: props}, true

	case "intent":
		return Event{Kind: KindIntent, Meta: we.Data}, true

	case "done":
		return Event{Kind: KindDone, Meta: we.Data}, true

	case "error":
		var msg string
		if err := json.Unmarshal(we.Data, &msg); err != nil {
			// The backend sends error payloads as strings, but be
			// tolerant of structured payloads and show them raw.
			msg = string(we.Data)
		}
		return Event{Kind: KindError, Text: msg}, true

	default:
		return Event{}, false
	}
}

// ABOUTME: Tests for the SSE stream decoder
// ABOUTME: Covers chunk-split invariance, malformed-line tolerance, and payload decoding

package stream

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkReader yields the input in fixed-size chunks, forcing the decoder
// to reassemble events across read boundaries.
type chunkReader struct {
	data []byte
	size int
	pos  int
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := r.size
	if n > len(r.data)-r.pos {
		n = len(r.data) - r.pos
	}
	if n > len(p) {
		n = len(p)
	}
	copy(p, r.data[r.pos:r.pos+n])
	r.pos += n
	return n, nil
}

// failingReader yields its data, then fails with err instead of EOF.
type failingReader struct {
	data []byte
	err  error
	done bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if r.done {
		return 0, r.err
	}
	r.done = true
	n := copy(p, r.data)
	return n, nil
}

func drain(t *testing.T, d *Decoder) []Event {
	t.Helper()
	var events []Event
	for {
		ev, err := d.Next()
		if err == io.EOF {
			return events
		}
		require.NoError(t, err)
		events = append(events, ev)
	}
}

const sampleStream = "data: {\"type\": \"intent\", \"data\": \"property_search\"}\n\n" +
	"data: {\"type\": \"content\", \"data\": \"Here are two \"}\n\n" +
	": keep-alive\n\n" +
	"data: {\"type\": \"content\", \"data\": \"projects in Köln 🏠\"}\n\n" +
	"data: {\"type\": \"properties\", \"data\": [{\"id\": \"p1\", \"project_name\": \"Marina Heights\", \"city\": \"Dubai\", \"price_usd\": 450000, \"bedrooms\": 2, \"property_type\": \"apartment\"}]}\n\n" +
	"data: {\"type\": \"done\", \"data\": {\"intent\": \"property_search\"}}\n\n"

func sampleEvents(t *testing.T, events []Event) {
	t.Helper()
	require.Len(t, events, 5)

	assert.Equal(t, KindIntent, events[0].Kind)
	assert.JSONEq(t, `"property_search"`, string(events[0].Meta))

	assert.Equal(t, KindContent, events[1].Kind)
	assert.Equal(t, "Here are two ", events[1].Text)

	assert.Equal(t, KindContent, events[2].Kind)
	assert.Equal(t, "projects in Köln 🏠", events[2].Text)

	assert.Equal(t, KindResults, events[3].Kind)
	require.Len(t, events[3].Properties, 1)
	p := events[3].Properties[0]
	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, "Marina Heights", p.ProjectName)
	require.NotNil(t, p.PriceUSD)
	assert.Equal(t, 450000.0, *p.PriceUSD)

	assert.Equal(t, KindDone, events[4].Kind)
}

func TestDecoder_WholeStream(t *testing.T) {
	d := NewDecoder(strings.NewReader(sampleStream))
	sampleEvents(t, drain(t, d))
}

func TestDecoder_ChunkSplitInvariance(t *testing.T) {
	// Any fragmentation of the byte stream must decode to the identical
	// event sequence, including splits inside the data prefix, inside
	// the JSON body, and inside multi-byte characters.
	for size := 1; size <= 64; size++ {
		d := NewDecoder(&chunkReader{data: []byte(sampleStream), size: size})
		events := drain(t, d)
		sampleEvents(t, events)
	}
}

func TestDecoder_MalformedLinesAreSkipped(t *testing.T) {
	input := "data: {not json at all\n" +
		"event: something\n" +
		"data: {\"type\": \"content\", \"data\": 42}\n" + // wrong payload shape
		"data: {\"type\": \"mystery\", \"data\": \"x\"}\n" + // unknown type
		"data:\n" +
		"\n" +
		"data: {\"type\": \"content\", \"data\": \"still here\"}\n"

	d := NewDecoder(strings.NewReader(input))
	events := drain(t, d)

	require.Len(t, events, 1)
	assert.Equal(t, KindContent, events[0].Kind)
	assert.Equal(t, "still here", events[0].Text)
}

func TestDecoder_ResultsNullBecomesEmptySlice(t *testing.T) {
	for _, input := range []string{
		"data: {\"type\": \"properties\", \"data\": null}\n",
		"data: {\"type\": \"properties\"}\n",
		"data: {\"type\": \"properties\", \"data\": []}\n",
	} {
		d := NewDecoder(strings.NewReader(input))
		events := drain(t, d)
		require.Len(t, events, 1, "input %q", input)
		assert.Equal(t, KindResults, events[0].Kind)
		assert.NotNil(t, events[0].Properties)
		assert.Empty(t, events[0].Properties)
	}
}

func TestDecoder_ResultsNullableFields(t *testing.T) {
	input := "data: {\"type\": \"properties\", \"data\": [{\"id\": \"p9\", \"project_name\": \"Skyline\", \"city\": null, \"price_usd\": null, \"bedrooms\": null, \"property_type\": null}]}\n"

	d := NewDecoder(strings.NewReader(input))
	events := drain(t, d)

	require.Len(t, events, 1)
	require.Len(t, events[0].Properties, 1)
	p := events[0].Properties[0]
	assert.Nil(t, p.City)
	assert.Nil(t, p.PriceUSD)
	assert.Nil(t, p.Bedrooms)
	assert.Equal(t, "unknown location", p.Location())
	assert.Equal(t, "price unknown", p.Price())
	assert.Equal(t, "bedrooms unspecified", p.BedroomCount())
	assert.Equal(t, "unspecified type", p.Category())
}

func TestDecoder_ErrorEventPayloads(t *testing.T) {
	input := "data: {\"type\": \"error\", \"data\": \"backend exploded\"}\n" +
		"data: {\"type\": \"error\", \"data\": {\"code\": 500}}\n"

	d := NewDecoder(strings.NewReader(input))
	events := drain(t, d)

	require.Len(t, events, 2)
	assert.Equal(t, "backend exploded", events[0].Text)
	assert.JSONEq(t, `{"code": 500}`, events[1].Text)
}

func TestDecoder_CRLFLines(t *testing.T) {
	input := "data: {\"type\": \"content\", \"data\": \"a\"}\r\n\r\ndata: {\"type\": \"content\", \"data\": \"b\"}\r\n"

	d := NewDecoder(strings.NewReader(input))
	events := drain(t, d)

	require.Len(t, events, 2)
	assert.Equal(t, "a", events[0].Text)
	assert.Equal(t, "b", events[1].Text)
}

func TestDecoder_TrailingFragmentDiscarded(t *testing.T) {
	input := "data: {\"type\": \"content\", \"data\": \"complete\"}\n" +
		"data: {\"type\": \"content\", \"data\": \"cut off" // no line break

	d := NewDecoder(strings.NewReader(input))

	ev, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, "complete", ev.Text)

	_, err = d.Next()
	assert.Equal(t, io.EOF, err)
}

func TestDecoder_MidStreamReadErrorSurfaced(t *testing.T) {
	connErr := errors.New("connection reset")
	r := &failingReader{
		data: []byte("data: {\"type\": \"content\", \"data\": \"partial\"}\n"),
		err:  connErr,
	}

	d := NewDecoder(r)

	ev, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, "partial", ev.Text)

	_, err = d.Next()
	assert.ErrorIs(t, err, connErr)
}

func TestDecoder_OrderPreserved(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 50; i++ {
		sb.WriteString("data: {\"type\": \"content\", \"data\": \"")
		sb.WriteByte(byte('a' + i%26))
		sb.WriteString("\"}\n")
	}

	d := NewDecoder(&chunkReader{data: []byte(sb.String()), size: 7})
	events := drain(t, d)

	require.Len(t, events, 50)
	for i, ev := range events {
		assert.Equal(t, string(rune('a'+i%26)), ev.Text)
	}
}

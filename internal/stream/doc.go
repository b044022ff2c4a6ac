// Package stream decodes the chat backend's server-sent event stream.
//
// # Wire format
//
// The backend answers a streamed chat request with text/event-stream
// output. Each meaningful line has the form:
//
//	data: {"type": "content", "data": "Here are some"}
//
// where type is one of content, properties, intent, done, or error.
// Lines without the data prefix are keep-alives or comments and carry
// no information.
//
// # Decoding model
//
// Decoder is a pull-based lazy sequence over an io.Reader:
//
//	dec := stream.NewDecoder(resp.Body)
//	for {
//		ev, err := dec.Next()
//		if err == io.EOF {
//			break
//		}
//		...
//	}
//
// Each Next call reads only as far as the next complete line. Chunk
// boundaries are invisible to the caller: an event split across any
// number of reads decodes identically to one arriving whole, including
// splits inside multi-byte characters (the buffer is carried as bytes
// and only cut at line breaks, which never fall inside a UTF-8
// sequence).
//
// # Tolerance
//
// Malformed lines are dropped silently and decoding continues. Once a
// stream is open there is no fatal decode error; only the underlying
// reader can end the sequence.
package stream

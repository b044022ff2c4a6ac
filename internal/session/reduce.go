// ABOUTME: Pure reducer applying one stream event to a message log
// ABOUTME: Copy-on-write so transitions are testable without a live session

package session

import (
	"github.com/GrasiaMeliolla/property-sales-agentic-assistant/internal/stream"
)

// reduce returns the log after applying ev to the message identified by
// targetID. It never mutates its input: the returned slice is a copy
// with at most the target message changed. Events that carry no log
// mutation (intent, done, error) return the input unchanged.
//
// Only the target message is ever touched, even if other entries look
// alike — identity is by ID, not by position or shape.
func reduce(log []Message, ev stream.Event, targetID string) []Message {
	switch ev.Kind {
	case stream.KindContent, stream.KindResults:
	default:
		return log
	}

	out := make([]Message, len(log))
	copy(out, log)

	for i := range out {
		if out[i].ID != targetID {
			continue
		}
		switch ev.Kind {
		case stream.KindContent:
			out[i].Content += ev.Text
		case stream.KindResults:
			out[i].Properties = ev.Properties
		}
		break
	}
	return out
}

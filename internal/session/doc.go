// Package session maintains the in-memory state of one conversation.
//
// # Lifecycle
//
// A Session is created per open chat and discarded with it:
//
//	sess := session.New(backend, logger)
//	if err := sess.Start(ctx); err != nil {
//		// backend unreachable; retry Start
//	}
//	sess.Send(ctx, "show me 2BR apartments in Dubai")
//
// Send appends the user message and an empty streaming assistant
// placeholder, then consumes the event stream, growing the placeholder's
// content with each content event and attaching results as they arrive.
// When the stream completes the placeholder stops streaming; if the
// connection breaks the placeholder is removed entirely so no unfinished
// message lingers in the log.
//
// # Invariants
//
//   - The log is append-only except for placeholder retraction on
//     transport failure.
//   - Exactly one user message precedes each assistant message.
//   - A streaming message's content is only extended, never rewritten.
//   - Message IDs are unique for the lifetime of the session.
//   - At most one exchange is in flight; Send while pending is a no-op,
//     never queued.
//
// # Transitions
//
// Event application is a pure reducer over the log, so the transition
// table is testable in isolation: content appends text to the target
// placeholder, results replaces its attached properties, error is
// captured in LastError without stopping the stream, and intent and done
// mutate nothing.
package session

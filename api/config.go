// Package api provides a mock factory chat backend. It implements the room,
// chat and history endpoints the client talks to, streams answers as
// server-sent events, and issues room and chat ids above 2^53 so that id
// handling is exercised end to end.
package api

import "time"

// Config is the mock backend configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8090")
	ListenAddr string

	// Reply produces the assistant answer for a question. Defaults to a
	// canned line status report.
	Reply func(question string) string

	// ChunkRunes is the number of runes per streamed answer frame.
	ChunkRunes int

	// ChunkDelay is the pause between streamed frames.
	ChunkDelay time.Duration

	// StreamReplies makes /v2/chat answer as an event stream instead of a
	// single JSON object.
	StreamReplies bool

	// UnavailableFirst answers the first n requests with 503, which lets
	// client retries be observed.
	UnavailableFirst int

	// Now is overridable for tests.
	Now func() time.Time
}

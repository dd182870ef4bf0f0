// Package eventstream publishes completed chat turns to an event stream
// backend so that other systems can follow the conversation.
package eventstream

import "context"

// Publisher publishes turn events to an event stream backend.
type Publisher interface {
	PublishTurn(ctx context.Context, event *TurnCompletedEvent) error
	Close() error
}

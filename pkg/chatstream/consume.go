package chatstream

import (
	"context"
	"errors"
	"io"

	"github.com/papercomputeco/factorychat/pkg/sse"
)

// Chunk is delivered to a ChunkHandler each time the stream appends a
// non-empty answer fragment.
type Chunk struct {
	Delta       string
	Accumulated string

	// RoomID and RoomName are the values known so far. They let a caller
	// bind the room before the stream completes.
	RoomID   string
	RoomName string
}

// ChunkHandler observes answer progress. It is invoked synchronously from
// the reading goroutine, at most once per frame.
type ChunkHandler func(Chunk)

// Consume reads an SSE body from src and reduces it into a Response.
func Consume(ctx context.Context, src io.Reader, onChunk ChunkHandler) (*Response, error) {
	return ConsumeFrames(ctx, sse.NewReader(src), onChunk)
}

// ConsumeFrames drives r until it is exhausted. A payload that fails to
// decode aborts the stream with a *MalformedStreamError and no further
// handler calls are made.
func ConsumeFrames(ctx context.Context, r *sse.Reader, onChunk ChunkHandler) (*Response, error) {
	acc := NewAccumulator()

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// A deadline that fires mid-read surfaces as a body read error.
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, err
		}

		p, err := ParsePayload(text)
		if err != nil {
			return nil, &MalformedStreamError{Payload: text, Err: err}
		}

		delta, err := acc.Merge(p)
		if err != nil {
			return nil, err
		}

		if delta != "" && onChunk != nil {
			onChunk(Chunk{
				Delta:       delta,
				Accumulated: acc.Answer(),
				RoomID:      acc.RoomID(),
				RoomName:    acc.RoomName(),
			})
		}
	}

	resp := acc.Finalize()
	return &resp, nil
}

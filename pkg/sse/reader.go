package sse

import (
	"errors"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const readChunkSize = 32 * 1024

// Reader yields frame payloads from a source io.Reader, optionally writing
// every raw byte read to a destination io.Writer.
//
// ┌──────────────────┐
// │ source io.Reader │
// └──────────────────┘
// │
// ▼
// ┌──────────────────┐   ┌───────────────────────┐
// │  Reader.Next()   │──▶│ destination io.Writer │
// └──────────────────┘   └───────────────────────┘
// │
// ▼
// ┌──────────────────┐
// │     payload      │
// └──────────────────┘
//
// Bytes are decoded as UTF-8 incrementally, so a multi-byte rune split
// across two reads is reassembled before framing. After every read all
// complete frames in the pending buffer are drained in order.
type Reader struct {
	src     io.Reader
	chunk   []byte
	pending strings.Builder
	// scanned is how far into pending no delimiter can start.
	scanned int

	queue  []string
	frames int
	done   bool
}

// NewReader returns a Reader that parses frames from src.
func NewReader(src io.Reader) *Reader {
	return NewTeeReader(src, nil)
}

// NewTeeReader returns a Reader that parses frames from src and writes all
// raw bytes through to dest. A nil dest disables the tee.
func NewTeeReader(src io.Reader, dest io.Writer) *Reader {
	if dest != nil {
		src = io.TeeReader(src, dest)
	}

	return &Reader{
		src:   transform.NewReader(src, unicode.UTF8.NewDecoder()),
		chunk: make([]byte, readChunkSize),
	}
}

// Next returns the next non-empty payload. It blocks until a complete frame
// is available or the source is exhausted. Next returns io.EOF once the
// source is exhausted and every buffered frame has been returned, including
// a trailing frame that was never delimited.
func (r *Reader) Next() (string, error) {
	for {
		if len(r.queue) > 0 {
			payload := r.queue[0]
			r.queue = r.queue[1:]
			return payload, nil
		}

		if r.done {
			return "", io.EOF
		}

		n, err := r.src.Read(r.chunk)
		if n > 0 {
			r.pending.Write(r.chunk[:n])
			r.drain()
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				r.flush()
				r.done = true
				continue
			}
			return "", err
		}
	}
}

// Frames returns how many frames have been split off the stream so far,
// including frames whose payload was dropped.
func (r *Reader) Frames() int {
	return r.frames
}

func (r *Reader) drain() {
	buf := r.pending.String()
	start := 0

	for {
		idx, width := delimiterIndex(buf[r.scanned:])
		if idx < 0 {
			break
		}
		end := r.scanned + idx
		r.enqueue(buf[start:end])
		start = end + width
		r.scanned = start
	}

	// A delimiter may straddle the end of the buffer, so the last few bytes
	// are searched again after the next read.
	r.scanned = max(start, len(buf)-len(crlfDelimiter)+1)

	if start > 0 {
		r.pending.Reset()
		r.pending.WriteString(buf[start:])
		r.scanned -= start
	}
}

// flush treats whatever is left in the pending buffer as a last frame.
func (r *Reader) flush() {
	r.drain()

	rest := r.pending.String()
	r.pending.Reset()
	r.scanned = 0
	if strings.TrimSpace(rest) != "" {
		r.enqueue(rest)
	}
}

func (r *Reader) enqueue(frame string) {
	r.frames++
	if payload, ok := ExtractPayload(frame); ok {
		r.queue = append(r.queue, payload)
	}
}

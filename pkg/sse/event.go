// Package sse provides a minimal, purpose-built SSE (Server-Sent Events)
// frame reader for consuming streamed chat answers. It splits an upstream
// byte stream into frames, extracts each frame's data payload, and can
// optionally tee the raw bytes verbatim to a second writer for debugging.
//
// Both "\n\n" and "\r\n\r\n" delimit a frame. A non-blank trailing
// remainder left when the stream closes is yielded as a final frame, which
// strict SSE framing would drop.
//
// This package intentionally does NOT provide SSE writer or server
// capabilities.
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

import (
	"strings"
)

// DoneSentinel is the payload that marks the logical end of a stream.
// Frames carrying it are dropped.
const DoneSentinel = "[DONE]"

const (
	lfDelimiter   = "\n\n"
	crlfDelimiter = "\r\n\r\n"
	dataPrefix    = "data:"
)

// ExtractNextFrame splits the first complete frame off buf. The earliest
// delimiter wins; when "\n\n" and "\r\n\r\n" start at the same index the bare
// newline form is chosen. ok is false when buf holds no complete frame, in
// which case remainder is buf unchanged.
func ExtractNextFrame(buf string) (frame, remainder string, ok bool) {
	idx, width := delimiterIndex(buf)
	if idx < 0 {
		return "", buf, false
	}
	return buf[:idx], buf[idx+width:], true
}

// delimiterIndex returns the index and width of the earliest frame
// delimiter in buf, or -1 when there is none.
func delimiterIndex(buf string) (int, int) {
	lf := strings.Index(buf, lfDelimiter)
	crlf := strings.Index(buf, crlfDelimiter)

	switch {
	case lf != -1 && (crlf == -1 || lf <= crlf):
		return lf, len(lfDelimiter)
	case crlf != -1:
		return crlf, len(crlfDelimiter)
	default:
		return -1, 0
	}
}

// ExtractPayload returns the data carried by a single frame.
//
// Carriage returns are removed, every "data:" line contributes its value
// (leading whitespace after the colon stripped) and the values are joined
// with "\n". A frame with no "data:" lines is treated as a bare payload.
// The result is trimmed; ok is false for a blank payload or DoneSentinel.
func ExtractPayload(frame string) (string, bool) {
	normalized := strings.ReplaceAll(frame, "\r", "")

	var data []string
	for _, line := range strings.Split(normalized, "\n") {
		if value, found := strings.CutPrefix(line, dataPrefix); found {
			data = append(data, strings.TrimLeft(value, " \t"))
		}
	}

	payload := normalized
	if len(data) > 0 {
		payload = strings.Join(data, "\n")
	}

	payload = strings.TrimSpace(payload)
	if payload == "" || payload == DoneSentinel {
		return "", false
	}
	return payload, true
}

package cliui

import (
	"fmt"
	"io"
	"strings"

	"github.com/papercomputeco/factorychat/pkg/chatstream"
)

// AnswerPrinter writes an assistant answer to a terminal as its chunks
// arrive. A retried request starts its answer over, which shows up as an
// accumulated text that no longer extends what was printed; the printer
// then starts a fresh line.
type AnswerPrinter struct {
	out     io.Writer
	printed string
	started bool
}

func NewAnswerPrinter(out io.Writer) *AnswerPrinter {
	return &AnswerPrinter{out: out}
}

// Handle is a chatstream.ChunkHandler.
func (p *AnswerPrinter) Handle(chunk chatstream.Chunk) {
	if !p.started {
		fmt.Fprint(p.out, AssistantPrompt)
		p.started = true
	}

	if !strings.HasPrefix(chunk.Accumulated, p.printed) {
		fmt.Fprint(p.out, "\n", AssistantPrompt)
		p.printed = ""
	}

	fmt.Fprint(p.out, chunk.Accumulated[len(p.printed):])
	p.printed = chunk.Accumulated
}

// Finish ends the answer. When nothing was streamed it prints answer in
// full, so callers can pass the final text unconditionally.
func (p *AnswerPrinter) Finish(answer string) {
	if !p.started && answer != "" {
		fmt.Fprint(p.out, AssistantPrompt, answer)
		p.started = true
	}
	if p.started {
		fmt.Fprint(p.out, "\n\n")
	}
}

// Started reports whether any part of an answer was printed.
func (p *AnswerPrinter) Started() bool {
	return p.started
}

package chatstream

import (
	"errors"
	"strings"
)

// ErrFinalized is returned when a payload is merged into an accumulator that
// has already produced its response.
var ErrFinalized = errors.New("accumulator already finalized")

// State is the lifecycle stage of an Accumulator.
type State int

const (
	StateIdle State = iota
	StateStreaming
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// Response is the reduced result of a chat stream. Fields never populated by
// the stream are empty strings.
type Response struct {
	RoomID     string `json:"roomId" validate:"required"`
	RoomName   string `json:"roomName"`
	UserChatID string `json:"userChatId" validate:"required"`
	LLMChatID  string `json:"llmChatId" validate:"required"`
	Answer     string `json:"answer"`
}

// Accumulator folds payloads into a Response. Ids are last-non-empty-wins,
// room name fragments and answer fragments are appended in arrival order.
//
// An Accumulator is owned by a single stream and is not safe for concurrent
// use.
type Accumulator struct {
	state State

	roomID     string
	roomName   strings.Builder
	userChatID string
	llmChatID  string
	answer     strings.Builder

	final *Response
}

func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Merge applies p and returns the answer text it appended. The returned
// delta is empty when p carried no answer or an empty one.
func (a *Accumulator) Merge(p *Payload) (string, error) {
	if a.state == StateFinalized {
		return "", ErrFinalized
	}
	a.state = StateStreaming

	if p == nil {
		return "", nil
	}

	if !p.RoomID.IsZero() {
		a.roomID = p.RoomID.String()
	}
	if name := p.RoomName.Join(); name != "" {
		a.roomName.WriteString(name)
	}
	if !p.UserChatID.IsZero() {
		a.userChatID = p.UserChatID.String()
	}
	if !p.LLMChatID.IsZero() {
		a.llmChatID = p.LLMChatID.String()
	}

	delta, ok := p.AnswerText()
	if !ok {
		return "", nil
	}
	a.answer.WriteString(delta)
	return delta, nil
}

// Finalize closes the accumulator and returns the response. Calling it again
// returns the same response.
func (a *Accumulator) Finalize() Response {
	if a.final == nil {
		a.final = &Response{
			RoomID:     a.roomID,
			RoomName:   a.roomName.String(),
			UserChatID: a.userChatID,
			LLMChatID:  a.llmChatID,
			Answer:     a.answer.String(),
		}
		a.state = StateFinalized
	}
	return *a.final
}

func (a *Accumulator) State() State {
	return a.state
}

// Answer returns the answer accumulated so far.
func (a *Accumulator) Answer() string {
	return a.answer.String()
}

func (a *Accumulator) RoomID() string {
	return a.roomID
}

func (a *Accumulator) RoomName() string {
	return a.roomName.String()
}

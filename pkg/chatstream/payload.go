// Package chatstream reduces a stream of partial chat payloads into a single
// chat response.
package chatstream

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/papercomputeco/factorychat/pkg/chatid"
)

// Payload is one partial update decoded from a stream frame. Any subset of
// the fields may be present.
type Payload struct {
	RoomID     chatid.ID       `json:"roomId"`
	RoomName   RoomName        `json:"roomName"`
	UserChatID chatid.ID       `json:"userChatId"`
	LLMChatID  chatid.ID       `json:"llmChatId"`
	Answer     json.RawMessage `json:"answer"`
}

// AnswerText returns the answer fragment and whether the payload carried a
// string answer. Non-string answers are ignored.
func (p *Payload) AnswerText() (string, bool) {
	raw := bytes.TrimSpace(p.Answer)
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// ParsePayload decodes a frame payload. Numeric ids are quoted before
// decoding so that they keep full precision. Valid JSON that is not an
// object (a number, string, array or null) yields an empty payload; only
// text that is not JSON at all is an error.
func ParsePayload(text string) (*Payload, error) {
	raw := bytes.TrimSpace(chatid.QuoteIDTokens([]byte(text)))
	if len(raw) > 0 && raw[0] != '{' && json.Valid(raw) {
		return &Payload{}, nil
	}

	p := &Payload{}
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, err
	}
	return p, nil
}

// RoomName is a room title delivered either as a single string or as an
// array of string fragments.
type RoomName []string

// Join concatenates the fragments.
func (n RoomName) Join() string {
	return strings.Join(n, "")
}

// UnmarshalJSON accepts a string, an array of strings or null. Array
// elements that are not strings are skipped and other shapes decode as an
// empty name.
func (n *RoomName) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	switch t := v.(type) {
	case string:
		*n = RoomName{t}
	case []any:
		parts := make(RoomName, 0, len(t))
		for _, el := range t {
			if s, ok := el.(string); ok {
				parts = append(parts, s)
			}
		}
		*n = parts
	default:
		*n = nil
	}
	return nil
}

// MarshalJSON always emits the joined name as a single string.
func (n RoomName) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.Join())
}

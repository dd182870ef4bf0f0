package eventstream

import (
	"time"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeTurnCompleted is emitted after a question has been answered.
	EventTypeTurnCompleted = "factorychat.turn.completed"

	OperationCreateRoom  = "create_room"
	OperationSendMessage = "send_message"
)

// TurnCompletedEvent is a transport-neutral event payload for one answered
// question.
type TurnCompletedEvent struct {
	SchemaVersion int             `json:"schema_version"`
	EventType     string          `json:"event_type"`
	EventID       string          `json:"event_id"`
	EmittedAt     time.Time       `json:"emitted_at"`
	Source        EventSource     `json:"source"`
	RequestMeta   TurnRequestMeta `json:"request_meta"`
	Turn          ChatTurn        `json:"turn"`
}

// EventSource identifies the client that produced the turn.
type EventSource struct {
	ClientID string `json:"client_id,omitempty"`
	Host     string `json:"host,omitempty"`
}

// TurnRequestMeta captures request lifecycle metadata for the event.
type TurnRequestMeta struct {
	Operation   string    `json:"operation"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMs  int64     `json:"duration_ms"`
	Chunks      int       `json:"chunks"`
}

// ChatTurn is the question and answer pair with the ids assigned by the
// backend. Ids are decimal strings.
type ChatTurn struct {
	RoomID     string `json:"room_id"`
	RoomName   string `json:"room_name,omitempty"`
	UserChatID string `json:"user_chat_id"`
	LLMChatID  string `json:"llm_chat_id"`
	Question   string `json:"question"`
	Answer     string `json:"answer"`
}

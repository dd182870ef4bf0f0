package session

import "time"

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a conversation thread.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Thread is a room's conversation as known to the client.
type Thread struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Messages  []Message `json:"messages"`
}

// CreateResult is the outcome of CreateNewChat.
type CreateResult struct {
	Thread   *Thread
	RoomName string

	// ShouldRetry is set when the failure was a timeout and replaying the
	// same question is reasonable.
	ShouldRetry bool
	Err         error
}

// Success reports whether the room was created.
func (r CreateResult) Success() bool {
	return r.Err == nil && r.Thread != nil
}

// SendResult is the outcome of SendToExistingChat.
type SendResult struct {
	// UserMessage carries the temporary id supplied by the caller.
	UserMessage      *Message
	AssistantMessage *Message

	// ServerUserChatID is the id the backend assigned to the question. It
	// replaces the temporary id once known.
	ServerUserChatID string
	Err              error
}

// Success reports whether the message was answered.
func (r SendResult) Success() bool {
	return r.Err == nil && r.AssistantMessage != nil
}

// FinalUserMessage returns the user message with the server id applied.
func (r SendResult) FinalUserMessage() *Message {
	if r.UserMessage == nil {
		return nil
	}
	msg := *r.UserMessage
	if r.ServerUserChatID != "" {
		msg.ID = r.ServerUserChatID
	}
	return &msg
}

// Package session orchestrates a chat conversation: creating a room with its
// first question, sending follow-up questions, and loading stored history.
// It turns backend responses into thread messages, keeps the room list
// current, and publishes each completed turn.
package session

import (
	"context"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/factorychat/pkg/chatapi"
	"github.com/papercomputeco/factorychat/pkg/chatstream"
	"github.com/papercomputeco/factorychat/pkg/eventstream"
	"github.com/papercomputeco/factorychat/pkg/rooms"
)

// Backend is the subset of the chat API used by the orchestrator.
type Backend interface {
	CreateRoom(ctx context.Context, question string, onChunk chatstream.ChunkHandler) (*chatstream.Response, error)
	SendMessage(ctx context.Context, roomID, question string, onChunk chatstream.ChunkHandler) (*chatstream.Response, error)
	History(ctx context.Context, roomID string) (*chatapi.History, error)
}

// RoomRegistry records newly created rooms.
type RoomRegistry interface {
	Add(ctx context.Context, room rooms.Room) error
}

// Config configures an Orchestrator. Rooms, Publisher and Identity are
// optional.
type Config struct {
	Backend   Backend
	Rooms     RoomRegistry
	Publisher eventstream.Publisher
	Identity  chatapi.ClientIDSource
	Logger    *zap.Logger

	// Now and NewID are overridable for tests.
	Now   func() time.Time
	NewID func() string
}

// Orchestrator runs chat operations. It is safe for concurrent use as long
// as its collaborators are.
type Orchestrator struct {
	backend   Backend
	rooms     RoomRegistry
	publisher eventstream.Publisher
	identity  chatapi.ClientIDSource
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
	host      string
}

func New(cfg Config) *Orchestrator {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	host, _ := os.Hostname()

	return &Orchestrator{
		backend:   cfg.Backend,
		rooms:     cfg.Rooms,
		publisher: cfg.Publisher,
		identity:  cfg.Identity,
		logger:    cfg.Logger,
		now:       cfg.Now,
		newID:     cfg.NewID,
		host:      host,
	}
}

// CreateNewChat creates a room whose first message is content. onChunk
// observes the streamed answer and may be nil. Failures are reported in the
// result rather than returned.
func (o *Orchestrator) CreateNewChat(ctx context.Context, content string, onChunk chatstream.ChunkHandler) CreateResult {
	started := o.now()
	counter := &chunkCounter{next: onChunk}

	resp, err := o.backend.CreateRoom(ctx, content, counter.handle)
	if err != nil {
		o.logger.Error("creating chat room", zap.Error(err))
		return CreateResult{ShouldRetry: chatapi.IsTimeout(err), Err: err}
	}

	roomName := resp.RoomName
	if roomName == "" {
		roomName = rooms.DefaultName
	}

	now := o.now()
	user := Message{
		ID:        o.idOr(resp.UserChatID),
		Role:      RoleUser,
		Content:   content,
		CreatedAt: now,
	}
	assistant := Message{
		ID:        o.idOr(resp.LLMChatID),
		Role:      RoleAssistant,
		Content:   resp.Answer,
		CreatedAt: now.Add(time.Millisecond),
	}

	thread := &Thread{
		ID:        resp.RoomID,
		CreatedAt: now,
		UpdatedAt: assistant.CreatedAt,
		Messages:  []Message{user, assistant},
	}

	if o.rooms != nil {
		err := o.rooms.Add(ctx, rooms.Room{
			RoomID:   resp.RoomID,
			RoomName: roomName,
			Date:     rooms.FormatDate(now),
		})
		if err != nil {
			o.logger.Warn("caching new room", zap.String("room_id", resp.RoomID), zap.Error(err))
		}
	}

	o.publish(ctx, eventstream.OperationCreateRoom, started, counter.count, content, resp)

	return CreateResult{Thread: thread, RoomName: roomName}
}

// SendToExistingChat sends content to roomID. tempID identifies the user
// message until the backend assigns its id. A failure leaves no partial
// messages in the result.
func (o *Orchestrator) SendToExistingChat(ctx context.Context, roomID, content, tempID string, onChunk chatstream.ChunkHandler) SendResult {
	started := o.now()
	user := Message{
		ID:        tempID,
		Role:      RoleUser,
		Content:   content,
		CreatedAt: started,
	}

	counter := &chunkCounter{next: onChunk}
	resp, err := o.backend.SendMessage(ctx, roomID, content, counter.handle)
	if err != nil {
		o.logger.Error("sending message", zap.String("room_id", roomID), zap.Error(err))
		return SendResult{Err: err}
	}

	assistant := Message{
		ID:        o.idOr(resp.LLMChatID),
		Role:      RoleAssistant,
		Content:   resp.Answer,
		CreatedAt: started.Add(time.Millisecond),
	}

	o.publish(ctx, eventstream.OperationSendMessage, started, counter.count, content, resp)

	return SendResult{
		UserMessage:      &user,
		AssistantMessage: &assistant,
		ServerUserChatID: resp.UserChatID,
	}
}

// LoadHistory returns the stored messages of roomID oldest first.
func (o *Orchestrator) LoadHistory(ctx context.Context, roomID string) ([]Message, error) {
	history, err := o.backend.History(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("loading history for room %s: %w", roomID, err)
	}

	chattings := slices.Clone(history.Chattings)
	slices.Reverse(chattings)

	base := o.now()
	out := make([]Message, 0, len(chattings))
	for i, m := range chattings {
		out = append(out, fromServer(m, i, base))
	}
	return out, nil
}

// fromServer maps a stored message to a thread message. Messages keep their
// chronological order through CreatedAt offsets.
func fromServer(m chatapi.ServerMessage, index int, base time.Time) Message {
	role := RoleUser
	if m.IsChatbot {
		role = RoleAssistant
	}

	id := m.ChatID.String()
	if id == "" {
		id = fmt.Sprintf("history-%d", index)
	}

	return Message{
		ID:        id,
		Role:      role,
		Content:   m.Content,
		CreatedAt: base.Add(time.Duration(index) * time.Millisecond),
	}
}

func (o *Orchestrator) idOr(id string) string {
	if id != "" {
		return id
	}
	return o.newID()
}

func (o *Orchestrator) publish(ctx context.Context, op string, started time.Time, chunks int, question string, resp *chatstream.Response) {
	if o.publisher == nil {
		return
	}

	completed := o.now()
	event := &eventstream.TurnCompletedEvent{
		SchemaVersion: eventstream.SchemaVersionV1,
		EventType:     eventstream.EventTypeTurnCompleted,
		EventID:       uuid.NewString(),
		EmittedAt:     completed,
		Source:        eventstream.EventSource{Host: o.host},
		RequestMeta: eventstream.TurnRequestMeta{
			Operation:   op,
			StartedAt:   started,
			CompletedAt: completed,
			DurationMs:  completed.Sub(started).Milliseconds(),
			Chunks:      chunks,
		},
		Turn: eventstream.ChatTurn{
			RoomID:     resp.RoomID,
			RoomName:   resp.RoomName,
			UserChatID: resp.UserChatID,
			LLMChatID:  resp.LLMChatID,
			Question:   question,
			Answer:     resp.Answer,
		},
	}

	if o.identity != nil {
		if id, err := o.identity.ClientID(ctx); err == nil {
			event.Source.ClientID = id
		}
	}

	if err := o.publisher.PublishTurn(ctx, event); err != nil {
		o.logger.Warn("publishing turn event", zap.String("room_id", resp.RoomID), zap.Error(err))
	}
}

// chunkCounter forwards chunks and counts them for the turn event.
type chunkCounter struct {
	next  chatstream.ChunkHandler
	count int
}

func (c *chunkCounter) handle(chunk chatstream.Chunk) {
	c.count++
	if c.next != nil {
		c.next(chunk)
	}
}

package mcp

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/papercomputeco/factorychat/pkg/chatapi"
	"github.com/papercomputeco/factorychat/pkg/rooms"
)

var (
	askToolName    = "ask_factory_assistant"
	askDescription = "Ask the factory monitoring assistant a question. Without a room_id a new chat room is created; with a room_id the question continues that room. Returns the complete answer and the room it belongs to."

	listRoomsToolName    = "list_rooms"
	listRoomsDescription = "List the factory assistant chat rooms, newest first. Set refresh to re-fetch the first page or more to load the next page."

	historyToolName    = "room_history"
	historyDescription = "Return the messages of a factory assistant chat room, oldest first."
)

const mcpTempID = "mcp-pending"

// AskInput represents the input arguments for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question for the factory assistant"`
	RoomID   string `json:"room_id,omitempty" jsonschema:"an existing room to continue; omit to start a new room"`
}

// AskOutput represents the output of the ask tool.
type AskOutput struct {
	RoomID     string `json:"room_id"`
	RoomName   string `json:"room_name,omitempty"`
	UserChatID string `json:"user_chat_id"`
	LLMChatID  string `json:"llm_chat_id"`
	Answer     string `json:"answer"`
}

// ListRoomsInput represents the input arguments for the list_rooms tool.
type ListRoomsInput struct {
	Refresh bool `json:"refresh,omitempty" jsonschema:"re-fetch the first page instead of using the cache"`
	More    bool `json:"more,omitempty" jsonschema:"load the next page of older rooms"`
}

// ListRoomsOutput represents the output of the list_rooms tool.
type ListRoomsOutput struct {
	Rooms   []rooms.Room `json:"rooms"`
	Count   int          `json:"count"`
	HasMore bool         `json:"has_more"`
}

// HistoryInput represents the input arguments for the room_history tool.
type HistoryInput struct {
	RoomID string `json:"room_id" jsonschema:"the room to read"`
}

// HistoryMessage is one message of a room.
type HistoryMessage struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

// HistoryOutput represents the output of the room_history tool.
type HistoryOutput struct {
	RoomID   string           `json:"room_id"`
	Messages []HistoryMessage `json:"messages"`
}

func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	logger := s.config.Logger

	question := strings.TrimSpace(input.Question)
	if question == "" {
		return toolError("question is required"), AskOutput{}, nil
	}
	roomID := strings.TrimSpace(input.RoomID)

	logger.Debug("MCP ask request",
		zap.String("room_id", roomID),
		zap.Int("question_len", len(question)),
	)

	var output AskOutput
	if roomID == "" {
		result := s.config.Chat.CreateNewChat(ctx, question, nil)
		if !result.Success() {
			logger.Error("MCP ask failed", zap.Error(result.Err))
			return toolError("Failed to ask the assistant: %s", chatapi.UserMessage(result.Err)), AskOutput{}, nil
		}

		msgs := result.Thread.Messages
		output = AskOutput{
			RoomID:     result.Thread.ID,
			RoomName:   result.RoomName,
			UserChatID: msgs[0].ID,
			LLMChatID:  msgs[1].ID,
			Answer:     msgs[1].Content,
		}
	} else {
		result := s.config.Chat.SendToExistingChat(ctx, roomID, question, mcpTempID, nil)
		if !result.Success() {
			logger.Error("MCP ask failed", zap.String("room_id", roomID), zap.Error(result.Err))
			return toolError("Failed to ask the assistant: %s", chatapi.UserMessage(result.Err)), AskOutput{}, nil
		}

		output = AskOutput{
			RoomID:     roomID,
			UserChatID: result.FinalUserMessage().ID,
			LLMChatID:  result.AssistantMessage.ID,
			Answer:     result.AssistantMessage.Content,
		}
	}

	res, err := jsonResult(output)
	if err != nil {
		return toolError("%v", err), AskOutput{}, nil
	}
	return res, output, nil
}

func (s *Server) handleListRooms(ctx context.Context, _ *mcp.CallToolRequest, input ListRoomsInput) (*mcp.CallToolResult, ListRoomsOutput, error) {
	var (
		list []rooms.Room
		err  error
	)
	switch {
	case input.Refresh:
		list, err = s.config.Rooms.Refresh(ctx)
	case input.More:
		if _, err = s.config.Rooms.Init(ctx); err == nil {
			list, err = s.config.Rooms.LoadMore(ctx)
		}
	default:
		list, err = s.config.Rooms.Init(ctx)
	}
	if err != nil {
		s.config.Logger.Error("MCP list rooms failed", zap.Error(err))
		return toolError("Failed to list rooms: %s", chatapi.UserMessage(err)), emptyRooms(), nil
	}

	if list == nil {
		list = []rooms.Room{}
	}
	output := ListRoomsOutput{
		Rooms:   list,
		Count:   len(list),
		HasMore: s.config.Rooms.HasMore(),
	}

	res, err := jsonResult(output)
	if err != nil {
		return toolError("%v", err), emptyRooms(), nil
	}
	return res, output, nil
}

func (s *Server) handleHistory(ctx context.Context, _ *mcp.CallToolRequest, input HistoryInput) (*mcp.CallToolResult, HistoryOutput, error) {
	roomID := strings.TrimSpace(input.RoomID)
	if roomID == "" {
		return toolError("room_id is required"), emptyHistory(roomID), nil
	}

	msgs, err := s.config.Chat.LoadHistory(ctx, roomID)
	if err != nil {
		s.config.Logger.Error("MCP room history failed", zap.String("room_id", roomID), zap.Error(err))
		return toolError("Failed to load history: %s", chatapi.UserMessage(err)), emptyHistory(roomID), nil
	}

	output := HistoryOutput{RoomID: roomID, Messages: make([]HistoryMessage, 0, len(msgs))}
	for _, m := range msgs {
		output.Messages = append(output.Messages, HistoryMessage{
			ID:      m.ID,
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	res, err := jsonResult(output)
	if err != nil {
		return toolError("%v", err), emptyHistory(roomID), nil
	}
	return res, output, nil
}

// Structured output is validated against the inferred schema, so error
// results still carry empty arrays rather than null.
func emptyRooms() ListRoomsOutput {
	return ListRoomsOutput{Rooms: []rooms.Room{}}
}

func emptyHistory(roomID string) HistoryOutput {
	return HistoryOutput{RoomID: roomID, Messages: []HistoryMessage{}}
}

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"

	"github.com/papercomputeco/factorychat/pkg/chatid"
	"github.com/papercomputeco/factorychat/pkg/rooms"
)

const doneFrame = "[DONE]"

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Message string `json:"message"`
}

type questionRequest struct {
	RoomID   chatid.ID `json:"roomId"`
	Question string    `json:"question"`
}

// streamFrame is one create-stream payload. Ids are written as bare JSON
// numbers.
type streamFrame struct {
	RoomID     uint64   `json:"roomId,omitempty"`
	RoomName   []string `json:"roomName,omitempty"`
	UserChatID uint64   `json:"userChatId,omitempty"`
	LLMChatID  uint64   `json:"llmChatId,omitempty"`
	Answer     string   `json:"answer,omitempty"`
}

type sendMessageResponse struct {
	RoomID     uint64 `json:"roomId"`
	UserChatID uint64 `json:"userChatId"`
	LLMChatID  uint64 `json:"llmChatId"`
	Answer     string `json:"answer"`
}

type chatRoom struct {
	RoomID   uint64 `json:"roomId"`
	RoomName string `json:"roomName"`
	Date     string `json:"date"`
}

type roomListResponse struct {
	ChatRooms []chatRoom `json:"chatRooms"`
}

type historyResponse struct {
	RoomID    uint64     `json:"roomId"`
	Chattings []chatting `json:"chattings"`
}

func asFiberError(err error, target **fiber.Error) bool {
	return err != nil && errors.As(err, target)
}

func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(ErrorResponse{Message: message})
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

func (s *Server) unavailable(c *fiber.Ctx) error {
	if s.requests.Add(1) <= int64(s.config.UnavailableFirst) {
		return fail(c, fiber.StatusServiceUnavailable, "service temporarily unavailable")
	}
	return c.Next()
}

// clientID copies the client id header out of the request buffer, which
// fasthttp reuses once the handler returns.
func clientID(c *fiber.Ctx) string {
	return utils.CopyString(c.Get(clientIDHeader))
}

func (s *Server) requireClientID(c *fiber.Ctx) error {
	if strings.TrimSpace(c.Get(clientIDHeader)) == "" {
		return fail(c, fiber.StatusBadRequest, clientIDHeader+" header is required")
	}
	return c.Next()
}

func (s *Server) handleCreateRoom(c *fiber.Ctx) error {
	var req questionRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return fail(c, fiber.StatusBadRequest, "question is required")
	}

	owner := clientID(c)
	r := s.store.create(owner, summarizeTitle(question), s.config.Now())
	answer := s.config.Reply(question)
	userChatID, llmChatID, _ := s.store.addTurn(owner, r.ID, question, answer)
	s.metrics.rooms.Inc()

	s.logger.Debug("room created",
		zap.Uint64("room_id", r.ID),
		zap.String("room_name", r.Name),
	)

	frames := []streamFrame{
		{RoomID: r.ID},
		{RoomName: splitName(r.Name)},
	}
	for _, piece := range splitRunes(answer, s.config.ChunkRunes) {
		frames = append(frames, streamFrame{Answer: piece})
	}
	frames = append(frames, streamFrame{UserChatID: userChatID, LLMChatID: llmChatID})

	return s.stream(c, frames)
}

func (s *Server) handleSendMessage(c *fiber.Ctx) error {
	var req questionRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	roomID, ok := parseRoomID(req.RoomID.String())
	if !ok {
		return fail(c, fiber.StatusBadRequest, "roomId is required")
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return fail(c, fiber.StatusBadRequest, "question is required")
	}

	answer := s.config.Reply(question)
	userChatID, llmChatID, ok := s.store.addTurn(clientID(c), roomID, question, answer)
	if !ok {
		return fail(c, fiber.StatusNotFound, "room not found")
	}

	if !s.config.StreamReplies {
		return c.JSON(sendMessageResponse{
			RoomID:     roomID,
			UserChatID: userChatID,
			LLMChatID:  llmChatID,
			Answer:     answer,
		})
	}

	frames := []streamFrame{{RoomID: roomID}}
	for _, piece := range splitRunes(answer, s.config.ChunkRunes) {
		frames = append(frames, streamFrame{Answer: piece})
	}
	frames = append(frames, streamFrame{UserChatID: userChatID, LLMChatID: llmChatID})
	return s.stream(c, frames)
}

func (s *Server) handleDeleteRoom(c *fiber.Ctx) error {
	roomID, ok := parseRoomID(c.Query("roomId"))
	if !ok {
		return fail(c, fiber.StatusBadRequest, "roomId is required")
	}
	if !s.store.delete(clientID(c), roomID) {
		return fail(c, fiber.StatusNotFound, "room not found")
	}
	return c.JSON(fiber.Map{})
}

func (s *Server) handleListRooms(c *fiber.Ctx) error {
	size := c.QueryInt("size", 10)
	if size <= 0 {
		return fail(c, fiber.StatusBadRequest, "size must be positive")
	}

	var before uint64
	if raw := c.Query("lastRoomId"); raw != "" {
		id, ok := parseRoomID(raw)
		if !ok {
			return fail(c, fiber.StatusBadRequest, "invalid lastRoomId")
		}
		before = id
	}

	page := s.store.list(clientID(c), size, before)
	resp := roomListResponse{ChatRooms: make([]chatRoom, 0, len(page))}
	for _, r := range page {
		resp.ChatRooms = append(resp.ChatRooms, chatRoom{
			RoomID:   r.ID,
			RoomName: r.Name,
			Date:     rooms.FormatDate(r.CreatedAt),
		})
	}
	return c.JSON(resp)
}

func (s *Server) handleHistory(c *fiber.Ctx) error {
	roomID, ok := parseRoomID(c.Query("roomId"))
	if !ok {
		return fail(c, fiber.StatusBadRequest, "roomId is required")
	}

	chattings, ok := s.store.history(clientID(c), roomID)
	if !ok {
		return fail(c, fiber.StatusNotFound, "room not found")
	}
	return c.JSON(historyResponse{RoomID: roomID, Chattings: chattings})
}

// stream writes frames as server-sent events followed by the done sentinel.
// Frames go through an io.Pipe so every frame is flushed as its own chunk.
func (s *Server) stream(c *fiber.Ctx, frames []streamFrame) error {
	payloads := make([]string, 0, len(frames)+1)
	for _, f := range frames {
		b, err := json.Marshal(f)
		if err != nil {
			return fmt.Errorf("encoding stream frame: %w", err)
		}
		payloads = append(payloads, string(b))
	}
	payloads = append(payloads, doneFrame)

	c.Set(fiber.HeaderContentType, "text/event-stream; charset=utf-8")
	c.Set(fiber.HeaderCacheControl, "no-cache")

	pr, pw := io.Pipe()
	go s.writeFrames(pw, payloads)
	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}

func (s *Server) writeFrames(pw *io.PipeWriter, payloads []string) {
	defer pw.Close()

	for i, p := range payloads {
		if i > 0 && s.config.ChunkDelay > 0 {
			time.Sleep(s.config.ChunkDelay)
		}
		if _, err := fmt.Fprintf(pw, "data: %s\n\n", p); err != nil {
			s.logger.Debug("client went away mid-stream", zap.Error(err))
			return
		}
		s.metrics.frames.Inc()
	}
}

func parseRoomID(raw string) (uint64, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	return id, err == nil && id != 0
}

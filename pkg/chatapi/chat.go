package chatapi

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/papercomputeco/factorychat/pkg/chatid"
	"github.com/papercomputeco/factorychat/pkg/chatstream"
	"github.com/papercomputeco/factorychat/pkg/sse"
)

const (
	createRoomPath  = "/v1/chat/room/create/stream"
	sendMessagePath = "/v2/chat"
	roomPath        = "/v1/chat/room"

	eventStreamType = "text/event-stream"
)

type createRoomRequest struct {
	Question string `json:"question"`
}

type sendMessageRequest struct {
	RoomID   string `json:"roomId"`
	Question string `json:"question"`
}

// sendMessageResponse is the buffered /v2/chat reply. Answer is a pointer so
// that a missing answer can be told apart from an empty one.
type sendMessageResponse struct {
	RoomID     chatid.ID `json:"roomId" validate:"required"`
	UserChatID chatid.ID `json:"userChatId" validate:"required"`
	LLMChatID  chatid.ID `json:"llmChatId" validate:"required"`
	Answer     *string   `json:"answer" validate:"required"`
}

// CreateRoom opens a new room with question as its first message and
// streams the answer. onChunk may be nil. Each retry starts from an empty
// accumulator, so Chunk.Accumulated restarts as well.
func (c *Client) CreateRoom(ctx context.Context, question string, onChunk chatstream.ChunkHandler) (*chatstream.Response, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, &ValidationError{Field: "question", Message: "please enter a question"}
	}

	spec := RequestSpec{
		Method: http.MethodPost,
		Header: http.Header{"Accept": []string{eventStreamType}},
		Body:   createRoomRequest{Question: question},
	}

	var out *chatstream.Response
	err := c.do(ctx, createRoomPath, spec, RequestOptions{}, true, func(actx context.Context, resp *http.Response) error {
		r, err := c.consumeStream(actx, resp, onChunk)
		if err != nil {
			return err
		}
		if err := validateResponse(r); err != nil {
			return err
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Debug("room created",
		zap.String("room_id", out.RoomID),
		zap.String("room_name", out.RoomName),
		zap.Int("answer_len", len(out.Answer)),
	)
	return out, nil
}

// SendMessage posts question to an existing room. The backend usually
// answers with a single JSON object, in which case onChunk receives the whole
// answer once; an event stream reply is reduced like CreateRoom.
func (c *Client) SendMessage(ctx context.Context, roomID, question string, onChunk chatstream.ChunkHandler) (*chatstream.Response, error) {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return nil, &ValidationError{Field: "roomId", Message: "no chat room was selected"}
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, &ValidationError{Field: "question", Message: "please enter a question"}
	}

	spec := RequestSpec{
		Method: http.MethodPost,
		Body:   sendMessageRequest{RoomID: roomID, Question: question},
	}

	var out *chatstream.Response
	err := c.do(ctx, sendMessagePath, spec, RequestOptions{ResponseType: ResponseText}, false, func(actx context.Context, resp *http.Response) error {
		var (
			r   *chatstream.Response
			err error
		)
		if isEventStream(resp) {
			r, err = c.consumeStream(actx, resp, onChunk)
		} else {
			r, err = c.readSendMessage(resp, onChunk)
		}
		if err != nil {
			return err
		}
		if err := validateResponse(r); err != nil {
			return err
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteRoom removes a room on the backend.
func (c *Client) DeleteRoom(ctx context.Context, roomID string) error {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return &ValidationError{Field: "roomId", Message: "no chat room was selected"}
	}

	_, err := c.Request(ctx, roomPath, RequestSpec{
		Method: http.MethodDelete,
		Query:  url.Values{"roomId": []string{roomID}},
	}, RequestOptions{})
	return err
}

func (c *Client) consumeStream(ctx context.Context, resp *http.Response, onChunk chatstream.ChunkHandler) (*chatstream.Response, error) {
	handler := func(chunk chatstream.Chunk) {
		c.metrics.Chunks.Inc()
		c.logger.Debug("answer chunk", zap.Int("delta_len", len(chunk.Delta)), zap.String("room_id", chunk.RoomID))
		if onChunk != nil {
			onChunk(chunk)
		}
	}
	return chatstream.ConsumeFrames(ctx, sse.NewTeeReader(resp.Body, c.dump), handler)
}

func (c *Client) readSendMessage(resp *http.Response, onChunk chatstream.ChunkHandler) (*chatstream.Response, error) {
	body := &Body{Status: resp.StatusCode, Header: resp.Header}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	body.raw = chatid.QuoteIDTokens(raw)

	var parsed sendMessageResponse
	if err := body.DecodeJSON(&parsed); err != nil {
		return nil, err
	}
	if err := validateResponse(&parsed); err != nil {
		return nil, err
	}

	r := &chatstream.Response{
		RoomID:     parsed.RoomID.String(),
		UserChatID: parsed.UserChatID.String(),
		LLMChatID:  parsed.LLMChatID.String(),
		Answer:     *parsed.Answer,
	}

	if r.Answer != "" {
		c.metrics.Chunks.Inc()
		if onChunk != nil {
			onChunk(chatstream.Chunk{Delta: r.Answer, Accumulated: r.Answer, RoomID: r.RoomID})
		}
	}
	return r, nil
}

func isEventStream(resp *http.Response) bool {
	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	return err == nil && mediaType == eventStreamType
}

func isStreamError(err error) bool {
	var malformed *chatstream.MalformedStreamError
	return errors.As(err, &malformed) || errors.Is(err, chatstream.ErrFinalized)
}

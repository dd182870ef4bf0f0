package chatapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/papercomputeco/factorychat/pkg/chatid"
	"github.com/papercomputeco/factorychat/pkg/chatstream"
)

const (
	roomListPath    = "/v1/chat/room/list"
	roomHistoryPath = "/v1/chat/room/history"

	// DefaultPageSize is the room list page size used by the web client.
	DefaultPageSize = 10
)

// ChatRoom is one entry of the room list.
type ChatRoom struct {
	RoomID   chatid.ID           `json:"roomId"`
	RoomName chatstream.RoomName `json:"roomName"`
	Date     string              `json:"date"`
}

// RoomList is a page of rooms, newest first.
type RoomList struct {
	ChatRooms []ChatRoom `json:"chatRooms" validate:"required"`
}

// ListRoomsParams selects a page. LastRoomID is the oldest room already
// seen; an empty value requests the first page.
type ListRoomsParams struct {
	Size       int
	LastRoomID string
}

// ServerMessage is a stored chat message as returned by the history
// endpoint.
type ServerMessage struct {
	ChatID    chatid.ID `json:"chatId"`
	Content   string    `json:"content"`
	IsChatbot bool      `json:"isChatbot"`
}

// History is the stored conversation of a room, newest message first.
type History struct {
	RoomID    chatid.ID       `json:"roomId"`
	Chattings []ServerMessage `json:"chattings"`
}

// ListRooms fetches one page of the room list.
func (c *Client) ListRooms(ctx context.Context, params ListRoomsParams) (*RoomList, error) {
	if params.Size <= 0 {
		params.Size = DefaultPageSize
	}

	query := url.Values{"size": []string{strconv.Itoa(params.Size)}}
	if last := strings.TrimSpace(params.LastRoomID); last != "" {
		query.Set("lastRoomId", last)
	}

	body, err := c.Request(ctx, roomListPath, RequestSpec{
		Method: http.MethodGet,
		Query:  query,
	}, RequestOptions{ResponseType: ResponseText})
	if err != nil {
		return nil, err
	}

	body.raw = chatid.QuoteTokens(body.raw, "roomId")

	var list RoomList
	if err := body.DecodeJSON(&list); err != nil {
		return nil, err
	}
	if err := validateResponse(&list); err != nil {
		return nil, err
	}
	return &list, nil
}

// History fetches the stored messages of a room.
func (c *Client) History(ctx context.Context, roomID string) (*History, error) {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return nil, &ValidationError{Field: "roomId", Message: "no chat room was selected"}
	}

	body, err := c.Request(ctx, roomHistoryPath, RequestSpec{
		Method: http.MethodGet,
		Query:  url.Values{"roomId": []string{roomID}},
	}, RequestOptions{ResponseType: ResponseText})
	if err != nil {
		return nil, err
	}

	body.raw = chatid.QuoteTokens(body.raw, "roomId", "chatId")

	var history History
	if err := body.DecodeJSON(&history); err != nil {
		return nil, err
	}
	return &history, nil
}

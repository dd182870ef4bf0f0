package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/factorychat/pkg/chatapi"
	"github.com/papercomputeco/factorychat/pkg/chatstream"
	"github.com/papercomputeco/factorychat/pkg/logger"
	"github.com/papercomputeco/factorychat/pkg/rooms"
	"github.com/papercomputeco/factorychat/pkg/session"
)

type fakeChat struct {
	err         error
	lastRoom    string
	lastTempID  string
	historyRoom string
}

func (f *fakeChat) CreateNewChat(_ context.Context, content string, _ chatstream.ChunkHandler) session.CreateResult {
	if f.err != nil {
		return session.CreateResult{Err: f.err, ShouldRetry: chatapi.IsTimeout(f.err)}
	}
	now := time.Now()
	return session.CreateResult{
		RoomName: "라인 점검",
		Thread: &session.Thread{
			ID: "9007199254740993",
			Messages: []session.Message{
				{ID: "11", Role: session.RoleUser, Content: content, CreatedAt: now},
				{ID: "12", Role: session.RoleAssistant, Content: "정상 가동 중입니다.", CreatedAt: now},
			},
		},
	}
}

func (f *fakeChat) SendToExistingChat(_ context.Context, roomID, content, tempID string, _ chatstream.ChunkHandler) session.SendResult {
	f.lastRoom = roomID
	f.lastTempID = tempID
	if f.err != nil {
		return session.SendResult{Err: f.err}
	}
	return session.SendResult{
		UserMessage:      &session.Message{ID: tempID, Role: session.RoleUser, Content: content},
		AssistantMessage: &session.Message{ID: "22", Role: session.RoleAssistant, Content: "불량률 0.3%"},
		ServerUserChatID: "21",
	}
}

func (f *fakeChat) LoadHistory(_ context.Context, roomID string) ([]session.Message, error) {
	f.historyRoom = roomID
	if f.err != nil {
		return nil, f.err
	}
	return []session.Message{
		{ID: "1", Role: session.RoleUser, Content: "q"},
		{ID: "2", Role: session.RoleAssistant, Content: "a"},
	}, nil
}

type fakeRooms struct {
	calls []string
	err   error
}

func (f *fakeRooms) result(call string) ([]rooms.Room, error) {
	f.calls = append(f.calls, call)
	if f.err != nil {
		return nil, f.err
	}
	return []rooms.Room{{RoomID: "2", RoomName: "b"}, {RoomID: "1", RoomName: "a"}}, nil
}

func (f *fakeRooms) Init(context.Context) ([]rooms.Room, error)     { return f.result("init") }
func (f *fakeRooms) Refresh(context.Context) ([]rooms.Room, error)  { return f.result("refresh") }
func (f *fakeRooms) LoadMore(context.Context) ([]rooms.Room, error) { return f.result("more") }
func (f *fakeRooms) HasMore() bool                                  { return true }

func connect(s *Server) *mcp.ClientSession {
	ctx := context.Background()
	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	_, err := s.mcpServer.Connect(ctx, serverTransport, nil)
	Expect(err).NotTo(HaveOccurred())

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(cs.Close)
	return cs
}

func callTool(cs *mcp.ClientSession, name string, args map[string]any) (*mcp.CallToolResult, string) {
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	Expect(err).NotTo(HaveOccurred())
	Expect(res.Content).NotTo(BeEmpty())

	text, ok := res.Content[0].(*mcp.TextContent)
	Expect(ok).To(BeTrue())
	return res, text.Text
}

var _ = Describe("MCP Server", func() {
	var (
		chat     *fakeChat
		roomList *fakeRooms
		server   *Server
	)

	BeforeEach(func() {
		chat = &fakeChat{}
		roomList = &fakeRooms{}

		var err error
		server, err = NewServer(Config{Chat: chat, Rooms: roomList, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("NewServer", func() {
		It("requires a chat orchestrator", func() {
			_, err := NewServer(Config{Rooms: roomList, Logger: logger.Nop()})
			Expect(err).To(MatchError(ContainSubstring("chat orchestrator is required")))
		})

		It("requires a room list", func() {
			_, err := NewServer(Config{Chat: chat, Logger: logger.Nop()})
			Expect(err).To(MatchError(ContainSubstring("room list is required")))
		})

		It("requires a logger", func() {
			_, err := NewServer(Config{Chat: chat, Rooms: roomList})
			Expect(err).To(MatchError(ContainSubstring("logger is required")))
		})

		It("allows an empty noop server", func() {
			s, err := NewServer(Config{Noop: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Handler()).NotTo(BeNil())
		})

		It("returns an HTTP handler", func() {
			Expect(server.Handler()).NotTo(BeNil())
		})
	})

	It("lists the chat tools", func() {
		cs := connect(server)

		res, err := cs.ListTools(context.Background(), &mcp.ListToolsParams{})
		Expect(err).NotTo(HaveOccurred())

		var names []string
		for _, t := range res.Tools {
			names = append(names, t.Name)
		}
		Expect(names).To(ConsistOf("ask_factory_assistant", "list_rooms", "room_history"))
	})

	Describe("ask_factory_assistant", func() {
		It("creates a room without a room id", func() {
			cs := connect(server)
			res, text := callTool(cs, askToolName, map[string]any{"question": "라인 상태?"})
			Expect(res.IsError).To(BeFalse())

			var out AskOutput
			Expect(json.Unmarshal([]byte(text), &out)).To(Succeed())
			Expect(out).To(Equal(AskOutput{
				RoomID:     "9007199254740993",
				RoomName:   "라인 점검",
				UserChatID: "11",
				LLMChatID:  "12",
				Answer:     "정상 가동 중입니다.",
			}))
		})

		It("continues an existing room", func() {
			cs := connect(server)
			_, text := callTool(cs, askToolName, map[string]any{"question": "불량률?", "room_id": "77"})

			var out AskOutput
			Expect(json.Unmarshal([]byte(text), &out)).To(Succeed())
			Expect(out.RoomID).To(Equal("77"))
			Expect(out.UserChatID).To(Equal("21"))
			Expect(out.Answer).To(Equal("불량률 0.3%"))
			Expect(chat.lastRoom).To(Equal("77"))
			Expect(chat.lastTempID).To(Equal(mcpTempID))
		})

		It("rejects blank questions", func() {
			cs := connect(server)
			res, text := callTool(cs, askToolName, map[string]any{"question": "  "})
			Expect(res.IsError).To(BeTrue())
			Expect(text).To(Equal("question is required"))
		})

		It("reports failures in user terms", func() {
			chat.err = &chatapi.NetworkError{Err: errors.New("connection refused")}
			cs := connect(server)

			res, text := callTool(cs, askToolName, map[string]any{"question": "q"})
			Expect(res.IsError).To(BeTrue())
			Expect(text).To(ContainSubstring("Network connection failed"))
		})
	})

	Describe("list_rooms", func() {
		It("uses the cache by default", func() {
			cs := connect(server)
			_, text := callTool(cs, listRoomsToolName, map[string]any{})

			var out ListRoomsOutput
			Expect(json.Unmarshal([]byte(text), &out)).To(Succeed())
			Expect(out.Count).To(Equal(2))
			Expect(out.HasMore).To(BeTrue())
			Expect(out.Rooms[0].RoomID).To(Equal("2"))
			Expect(roomList.calls).To(Equal([]string{"init"}))
		})

		It("refreshes on request", func() {
			cs := connect(server)
			callTool(cs, listRoomsToolName, map[string]any{"refresh": true})
			Expect(roomList.calls).To(Equal([]string{"refresh"}))
		})

		It("loads more after initializing", func() {
			cs := connect(server)
			callTool(cs, listRoomsToolName, map[string]any{"more": true})
			Expect(roomList.calls).To(Equal([]string{"init", "more"}))
		})

		It("reports failures", func() {
			roomList.err = &chatapi.HTTPError{Status: 500, Message: "db down"}
			cs := connect(server)

			res, text := callTool(cs, listRoomsToolName, map[string]any{})
			Expect(res.IsError).To(BeTrue())
			Expect(text).To(ContainSubstring("db down"))
		})
	})

	Describe("room_history", func() {
		It("returns messages oldest first", func() {
			cs := connect(server)
			_, text := callTool(cs, historyToolName, map[string]any{"room_id": "5"})

			var out HistoryOutput
			Expect(json.Unmarshal([]byte(text), &out)).To(Succeed())
			Expect(out.RoomID).To(Equal("5"))
			Expect(out.Messages).To(Equal([]HistoryMessage{
				{ID: "1", Role: "user", Content: "q"},
				{ID: "2", Role: "assistant", Content: "a"},
			}))
			Expect(chat.historyRoom).To(Equal("5"))
		})

		It("requires a room id", func() {
			cs := connect(server)
			res, _ := callTool(cs, historyToolName, map[string]any{"room_id": ""})
			Expect(res.IsError).To(BeTrue())
		})

		It("reports failures as a tool error", func() {
			chat.err = &chatapi.HTTPError{Status: 404, Message: "room not found"}
			cs := connect(server)

			res, text := callTool(cs, historyToolName, map[string]any{"room_id": "5"})
			Expect(res.IsError).To(BeTrue())
			Expect(text).To(ContainSubstring("room not found"))
		})
	})
})

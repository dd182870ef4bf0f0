package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/factorychat/pkg/logger"
)

const testClient = "client-1"

func request(s *Server, method, target, clientID, body string) (*http.Response, string) {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	if clientID != "" {
		req.Header.Set(clientIDHeader, clientID)
	}

	resp, err := s.app.Test(req, -1)
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	return resp, string(raw)
}

var _ = Describe("Server", func() {
	var s *Server

	BeforeEach(func() {
		s = NewServer(Config{
			Reply: func(q string) string { return "answer to " + q },
			Now:   func() time.Time { return time.Date(2025, time.November, 26, 0, 0, 0, 0, time.UTC) },
		}, logger.Nop())
	})

	createRoom := func(question string) string {
		resp, body := request(s, http.MethodPost, "/v1/chat/room/create/stream", testClient, `{"question":"`+question+`"}`)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		return body
	}

	It("answers ping", func() {
		resp, body := request(s, http.MethodGet, "/ping", "", "")
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(body).To(Equal(`"pong"`))
	})

	Describe("create stream", func() {
		It("streams the room, split name, answer pieces, ids and the done sentinel", func() {
			body := createRoom("line 3")

			Expect(body).To(Equal(
				"data: {\"roomId\":9007199254740993}\n\n" +
					"data: {\"roomName\":[\"lin\",\"e 3\"]}\n\n" +
					"data: {\"answer\":\"answer t\"}\n\n" +
					"data: {\"answer\":\"o line 3\"}\n\n" +
					"data: {\"userChatId\":9007199254740994,\"llmChatId\":9007199254740995}\n\n" +
					"data: [DONE]\n\n",
			))
		})

		It("sets the event stream content type", func() {
			resp, _ := request(s, http.MethodPost, "/v1/chat/room/create/stream", testClient, `{"question":"q"}`)
			Expect(resp.Header.Get("Content-Type")).To(HavePrefix("text/event-stream"))
		})

		It("rejects blank questions", func() {
			resp, body := request(s, http.MethodPost, "/v1/chat/room/create/stream", testClient, `{"question":"   "}`)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(body).To(MatchJSON(`{"message":"question is required"}`))
		})

		It("requires a client id", func() {
			resp, body := request(s, http.MethodPost, "/v1/chat/room/create/stream", "", `{"question":"q"}`)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(body).To(ContainSubstring("X-Client-Id"))
		})
	})

	Describe("v2 chat", func() {
		It("answers with bare numeric ids", func() {
			createRoom("first")

			resp, body := request(s, http.MethodPost, "/v2/chat", testClient, `{"roomId":"9007199254740993","question":"next"}`)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(body).To(Equal(`{"roomId":9007199254740993,"userChatId":9007199254740996,"llmChatId":9007199254740997,"answer":"answer to next"}`))
		})

		It("streams when configured to", func() {
			s.config.StreamReplies = true
			createRoom("first")

			resp, body := request(s, http.MethodPost, "/v2/chat", testClient, `{"roomId":9007199254740993,"question":"x"}`)
			Expect(resp.Header.Get("Content-Type")).To(HavePrefix("text/event-stream"))
			Expect(body).To(HavePrefix("data: {\"roomId\":9007199254740993}\n\n"))
			Expect(body).To(HaveSuffix("data: [DONE]\n\n"))
		})

		It("returns 404 for rooms of another client", func() {
			createRoom("first")

			resp, _ := request(s, http.MethodPost, "/v2/chat", "someone-else", `{"roomId":"9007199254740993","question":"x"}`)
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("requires a room id", func() {
			resp, _ := request(s, http.MethodPost, "/v2/chat", testClient, `{"question":"x"}`)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("keeps the room owner across later requests", func() {
			createRoom("first")
			for _, other := range []string{"client-2", "gzipe-cl", "client-3"} {
				request(s, http.MethodGet, "/v1/chat/room/list?size=10", other, "")
			}

			Expect(s.store.rooms[9007199254740993].Owner).To(Equal(testClient))

			resp, _ := request(s, http.MethodPost, "/v2/chat", testClient, `{"roomId":"9007199254740993","question":"next"}`)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})
	})

	Describe("room list", func() {
		BeforeEach(func() {
			for _, q := range []string{"a", "b", "c"} {
				createRoom(q)
			}
		})

		It("returns rooms newest first", func() {
			_, body := request(s, http.MethodGet, "/v1/chat/room/list?size=2", testClient, "")

			var list struct {
				ChatRooms []struct {
					RoomID   json.Number `json:"roomId"`
					RoomName string      `json:"roomName"`
					Date     string      `json:"date"`
				} `json:"chatRooms"`
			}
			dec := json.NewDecoder(strings.NewReader(body))
			dec.UseNumber()
			Expect(dec.Decode(&list)).To(Succeed())

			Expect(list.ChatRooms).To(HaveLen(2))
			Expect(list.ChatRooms[0].RoomName).To(Equal("c"))
			Expect(list.ChatRooms[1].RoomName).To(Equal("b"))
			Expect(list.ChatRooms[0].Date).To(Equal("2025년 11월 26일"))
		})

		It("pages with lastRoomId", func() {
			// rooms a, b, c take ids 2^53+1, +4, +7
			_, body := request(s, http.MethodGet, "/v1/chat/room/list?size=10&lastRoomId=9007199254740997", testClient, "")
			Expect(body).To(ContainSubstring(`"roomName":"b"`))
			Expect(body).To(ContainSubstring(`"roomName":"a"`))
			Expect(body).NotTo(ContainSubstring(`"roomName":"c"`))
		})

		It("is empty for other clients", func() {
			_, body := request(s, http.MethodGet, "/v1/chat/room/list?size=10", "someone-else", "")
			Expect(body).To(MatchJSON(`{"chatRooms":[]}`))
		})

		It("rejects a bad page size", func() {
			resp, _ := request(s, http.MethodGet, "/v1/chat/room/list?size=0", testClient, "")
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("history and delete", func() {
		It("returns chattings newest first", func() {
			createRoom("first")
			request(s, http.MethodPost, "/v2/chat", testClient, `{"roomId":"9007199254740993","question":"second"}`)

			_, body := request(s, http.MethodGet, "/v1/chat/room/history?roomId=9007199254740993", testClient, "")
			Expect(body).To(Equal(`{"roomId":9007199254740993,"chattings":[` +
				`{"chatId":9007199254740997,"content":"answer to second","isChatbot":true},` +
				`{"chatId":9007199254740996,"content":"second","isChatbot":false},` +
				`{"chatId":9007199254740995,"content":"answer to first","isChatbot":true},` +
				`{"chatId":9007199254740994,"content":"first","isChatbot":false}]}`))
		})

		It("deletes a room", func() {
			createRoom("first")

			resp, _ := request(s, http.MethodDelete, "/v1/chat/room?roomId=9007199254740993", testClient, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			resp, _ = request(s, http.MethodGet, "/v1/chat/room/history?roomId=9007199254740993", testClient, "")
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))

			resp, _ = request(s, http.MethodDelete, "/v1/chat/room?roomId=9007199254740993", testClient, "")
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	It("answers 503 for the configured number of requests", func() {
		s.config.UnavailableFirst = 1

		resp, body := request(s, http.MethodGet, "/v1/chat/room/list", testClient, "")
		Expect(resp.StatusCode).To(Equal(http.StatusServiceUnavailable))
		Expect(body).To(ContainSubstring("unavailable"))

		resp, _ = request(s, http.MethodGet, "/v1/chat/room/list", testClient, "")
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
	})

	It("exposes request metrics", func() {
		createRoom("q")

		_, body := request(s, http.MethodGet, "/metrics", "", "")
		Expect(body).To(ContainSubstring("factorychat_mock_rooms_created_total 1"))
		Expect(body).To(ContainSubstring(`factorychat_mock_requests_total{route="/v1/chat/room/create/stream",status="200"} 1`))
		Expect(body).To(ContainSubstring("factorychat_mock_stream_frames_total"))
	})
})

var _ = Describe("titles and chunks", func() {
	DescribeTable("summarizeTitle",
		func(in, want string) {
			Expect(summarizeTitle(in)).To(Equal(want))
		},
		Entry("short", "라인 상태", "라인 상태"),
		Entry("collapses whitespace", "  라인\n\n3   상태 ", "라인 3 상태"),
		Entry("caps at 20 runes", "1번 라인부터 5번 라인까지 전체 설비 가동률 알려줘", "1번 라인부터 5번 라인까지 전체 설…"),
		Entry("blank", " \t", "새 채팅"),
	)

	It("splits room names in two", func() {
		Expect(splitName("새 채팅")).To(Equal([]string{"새 ", "채팅"}))
		Expect(splitName("a")).To(Equal([]string{"a"}))
	})

	It("splits answers by runes", func() {
		Expect(splitRunes("가나다라마", 2)).To(Equal([]string{"가나", "다라", "마"}))
		Expect(splitRunes("short", 10)).To(Equal([]string{"short"}))
	})
})

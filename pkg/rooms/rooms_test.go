package rooms_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/factorychat/pkg/chatapi"
	"github.com/papercomputeco/factorychat/pkg/chatid"
	"github.com/papercomputeco/factorychat/pkg/chatstream"
	"github.com/papercomputeco/factorychat/pkg/rooms"
	"github.com/papercomputeco/factorychat/pkg/storage/inmemory"
)

// fakeBackend serves rooms numbered total..1, newest first.
type fakeBackend struct {
	total   int
	calls   []chatapi.ListRoomsParams
	deleted []string
	err     error
}

func (f *fakeBackend) ListRooms(_ context.Context, params chatapi.ListRoomsParams) (*chatapi.RoomList, error) {
	f.calls = append(f.calls, params)
	if f.err != nil {
		return nil, f.err
	}

	start := f.total
	if params.LastRoomID != "" {
		fmt.Sscanf(params.LastRoomID, "%d", &start)
		start--
	}

	list := &chatapi.RoomList{ChatRooms: []chatapi.ChatRoom{}}
	for id := start; id > 0 && len(list.ChatRooms) < params.Size; id-- {
		list.ChatRooms = append(list.ChatRooms, chatapi.ChatRoom{
			RoomID:   chatid.ID(fmt.Sprint(id)),
			RoomName: chatstream.RoomName{"room ", fmt.Sprint(id)},
		})
	}
	return list, nil
}

func (f *fakeBackend) DeleteRoom(_ context.Context, roomID string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, roomID)
	return nil
}

func ids(rs []rooms.Room) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.RoomID)
	}
	return out
}

var _ = Describe("List", func() {
	var (
		ctx     context.Context
		backend *fakeBackend
		store   *inmemory.Driver
		list    *rooms.List
	)

	BeforeEach(func() {
		ctx = context.Background()
		backend = &fakeBackend{total: 12}
		store = inmemory.NewDriver()
		list = rooms.NewList(rooms.Config{Backend: backend, Store: store})
	})

	Describe("Init", func() {
		It("fetches the first page when the cache is empty", func() {
			rs, err := list.Init(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(rs).To(HaveLen(10))
			Expect(rs[0]).To(Equal(rooms.Room{RoomID: "12", RoomName: "room 12"}))
			Expect(list.HasMore()).To(BeTrue())

			raw, err := store.Get(ctx, rooms.CacheKey)
			Expect(err).NotTo(HaveOccurred())
			var cached []rooms.Room
			Expect(json.Unmarshal([]byte(raw), &cached)).To(Succeed())
			Expect(cached).To(HaveLen(10))
		})

		It("serves the cache without calling the backend", func() {
			Expect(store.Set(ctx, rooms.CacheKey, `[{"roomId":"5","roomName":"cached","date":""}]`)).To(Succeed())

			rs, err := list.Init(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(rs)).To(Equal([]string{"5"}))
			Expect(backend.calls).To(BeEmpty())
			Expect(list.HasMore()).To(BeTrue())
		})

		It("ignores an unreadable cache", func() {
			Expect(store.Set(ctx, rooms.CacheKey, `not json`)).To(Succeed())

			rs, err := list.Init(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(rs).To(HaveLen(10))
		})

		It("reports backend failures with an empty list", func() {
			backend.err = errors.New("down")
			rs, err := list.Init(ctx)
			Expect(err).To(MatchError(ContainSubstring("down")))
			Expect(rs).To(BeEmpty())
		})
	})

	Describe("LoadMore", func() {
		It("pages by the oldest room id and stops after a short page", func() {
			_, err := list.Init(ctx)
			Expect(err).NotTo(HaveOccurred())

			rs, err := list.LoadMore(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(rs)).To(Equal([]string{"12", "11", "10", "9", "8", "7", "6", "5", "4", "3", "2", "1"}))
			Expect(backend.calls[1].LastRoomID).To(Equal("3"))
			Expect(list.HasMore()).To(BeFalse())

			_, err = list.LoadMore(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(backend.calls).To(HaveLen(2))
		})

		It("drops rooms that are already listed", func() {
			Expect(store.Set(ctx, rooms.CacheKey, `[{"roomId":"4"},{"roomId":"2"},{"roomId":"3"}]`)).To(Succeed())
			_, err := list.Init(ctx)
			Expect(err).NotTo(HaveOccurred())

			rs, err := list.LoadMore(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(rs)).To(Equal([]string{"4", "2", "3", "1"}))
		})

		It("falls back to Init for an empty list", func() {
			rs, err := list.LoadMore(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(rs).To(HaveLen(10))
			Expect(backend.calls[0].LastRoomID).To(BeEmpty())
		})
	})

	Describe("Refresh", func() {
		It("replaces the cached list", func() {
			Expect(store.Set(ctx, rooms.CacheKey, `[{"roomId":"stale"}]`)).To(Succeed())
			_, err := list.Init(ctx)
			Expect(err).NotTo(HaveOccurred())

			rs, err := list.Refresh(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(rs[0].RoomID).To(Equal("12"))
			Expect(ids(rs)).NotTo(ContainElement("stale"))
		})

		It("keeps the current list on failure", func() {
			Expect(store.Set(ctx, rooms.CacheKey, `[{"roomId":"kept"}]`)).To(Succeed())
			_, err := list.Init(ctx)
			Expect(err).NotTo(HaveOccurred())

			backend.err = errors.New("down")
			rs, err := list.Refresh(ctx)
			Expect(err).To(HaveOccurred())
			Expect(ids(rs)).To(Equal([]string{"kept"}))
		})
	})

	Describe("Add", func() {
		It("prepends and removes an earlier entry with the same id", func() {
			Expect(store.Set(ctx, rooms.CacheKey, `[{"roomId":"1"},{"roomId":"2"}]`)).To(Succeed())

			Expect(list.Add(ctx, rooms.Room{RoomID: "2", RoomName: "renamed"})).To(Succeed())
			Expect(ids(list.Rooms())).To(Equal([]string{"2", "1"}))
			Expect(list.Rooms()[0].RoomName).To(Equal("renamed"))

			raw, err := store.Get(ctx, rooms.CacheKey)
			Expect(err).NotTo(HaveOccurred())
			Expect(raw).To(ContainSubstring("renamed"))
		})
	})

	Describe("Delete", func() {
		It("deletes on the backend then drops the entry", func() {
			_, err := list.Init(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(list.Delete(ctx, "11")).To(Succeed())
			Expect(backend.deleted).To(Equal([]string{"11"}))
			Expect(ids(list.Rooms())).NotTo(ContainElement("11"))
		})

		It("keeps the entry when the backend fails", func() {
			_, err := list.Init(ctx)
			Expect(err).NotTo(HaveOccurred())

			backend.err = errors.New("down")
			Expect(list.Delete(ctx, "11")).NotTo(Succeed())
			Expect(ids(list.Rooms())).To(ContainElement("11"))
		})
	})
})

var _ = Describe("FormatDate", func() {
	It("uses the Korean long date form", func() {
		Expect(rooms.FormatDate(time.Date(2025, time.November, 26, 10, 0, 0, 0, time.UTC))).To(Equal("2025년 11월 26일"))
	})
})

// Package rooms keeps the locally cached room list in sync with the chat
// backend: first page on demand, older pages by cursor, and newly created
// rooms prepended as they appear.
package rooms

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/factorychat/pkg/chatapi"
	"github.com/papercomputeco/factorychat/pkg/storage"
)

// CacheKey is the storage key holding the cached room list.
const CacheKey = "chatRooms"

// DefaultName is shown for rooms whose title has not been generated.
const DefaultName = "새 채팅"

// Room is a room list entry.
type Room struct {
	RoomID   string `json:"roomId"`
	RoomName string `json:"roomName"`
	Date     string `json:"date"`
}

// Backend is the subset of the chat API the room list needs.
type Backend interface {
	ListRooms(ctx context.Context, params chatapi.ListRoomsParams) (*chatapi.RoomList, error)
	DeleteRoom(ctx context.Context, roomID string) error
}

// Config configures a List.
type Config struct {
	Backend  Backend
	Store    storage.Driver
	PageSize int
	Logger   *zap.Logger
}

// List is the cached room list. It is safe for concurrent use; operations
// that hit the backend are serialized.
type List struct {
	backend  Backend
	store    storage.Driver
	pageSize int
	logger   *zap.Logger

	mu      sync.Mutex
	rooms   []Room
	hasMore bool
	loaded  bool
}

func NewList(cfg Config) *List {
	if cfg.PageSize <= 0 {
		cfg.PageSize = chatapi.DefaultPageSize
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &List{
		backend:  cfg.Backend,
		store:    cfg.Store,
		pageSize: cfg.PageSize,
		logger:   cfg.Logger,
		hasMore:  true,
	}
}

// Init returns the cached rooms, fetching the first page when the cache is
// empty. Whether more pages exist is unknown for a cached list, so HasMore
// reports true until a short page is seen.
func (l *List) Init(ctx context.Context) ([]Room, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.init(ctx)
}

func (l *List) init(ctx context.Context) ([]Room, error) {
	cached := l.loadCache(ctx)
	if len(cached) > 0 {
		l.rooms = cached
		l.hasMore = true
		return l.snapshot(), nil
	}

	page, err := l.backend.ListRooms(ctx, chatapi.ListRoomsParams{Size: l.pageSize})
	if err != nil {
		l.rooms = nil
		l.hasMore = true
		return nil, fmt.Errorf("loading rooms: %w", err)
	}

	l.rooms = fromAPI(page.ChatRooms)
	l.hasMore = len(page.ChatRooms) == l.pageSize
	l.save(ctx)
	return l.snapshot(), nil
}

// LoadMore appends the next older page, skipping rooms already listed.
func (l *List) LoadMore(ctx context.Context) ([]Room, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.loaded && len(l.rooms) == 0 {
		l.rooms = l.loadCache(ctx)
	}
	if len(l.rooms) == 0 {
		return l.init(ctx)
	}
	if !l.hasMore {
		return l.snapshot(), nil
	}

	oldest := l.rooms[len(l.rooms)-1].RoomID
	if oldest == "" {
		return l.snapshot(), nil
	}

	page, err := l.backend.ListRooms(ctx, chatapi.ListRoomsParams{Size: l.pageSize, LastRoomID: oldest})
	if err != nil {
		return l.snapshot(), fmt.Errorf("loading more rooms: %w", err)
	}

	seen := make(map[string]bool, len(l.rooms))
	for _, r := range l.rooms {
		seen[r.RoomID] = true
	}
	for _, r := range fromAPI(page.ChatRooms) {
		if !seen[r.RoomID] {
			seen[r.RoomID] = true
			l.rooms = append(l.rooms, r)
		}
	}

	l.hasMore = len(page.ChatRooms) == l.pageSize
	l.save(ctx)
	return l.snapshot(), nil
}

// Refresh replaces the cache with the first page. On failure the current
// list is kept.
func (l *List) Refresh(ctx context.Context) ([]Room, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	page, err := l.backend.ListRooms(ctx, chatapi.ListRoomsParams{Size: l.pageSize})
	if err != nil {
		return l.snapshot(), fmt.Errorf("refreshing rooms: %w", err)
	}

	if err := l.store.Delete(ctx, CacheKey); err != nil {
		l.logger.Warn("clearing room cache", zap.Error(err))
	}

	l.rooms = fromAPI(page.ChatRooms)
	l.hasMore = len(page.ChatRooms) == l.pageSize
	l.save(ctx)
	return l.snapshot(), nil
}

// Add puts room at the head of the list, replacing any entry with the same
// id.
func (l *List) Add(ctx context.Context, room Room) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.loaded && len(l.rooms) == 0 {
		l.rooms = l.loadCache(ctx)
	}

	next := make([]Room, 0, len(l.rooms)+1)
	next = append(next, room)
	for _, r := range l.rooms {
		if r.RoomID != room.RoomID {
			next = append(next, r)
		}
	}
	l.rooms = next

	return l.saveErr(ctx)
}

// Delete removes a room on the backend and then from the list.
func (l *List) Delete(ctx context.Context, roomID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.backend.DeleteRoom(ctx, roomID); err != nil {
		return fmt.Errorf("deleting room %s: %w", roomID, err)
	}

	if !l.loaded && len(l.rooms) == 0 {
		l.rooms = l.loadCache(ctx)
	}

	kept := l.rooms[:0]
	for _, r := range l.rooms {
		if r.RoomID != roomID {
			kept = append(kept, r)
		}
	}
	l.rooms = kept

	return l.saveErr(ctx)
}

// Rooms returns a copy of the current list.
func (l *List) Rooms() []Room {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.snapshot()
}

// HasMore reports whether LoadMore may return further rooms.
func (l *List) HasMore() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.hasMore
}

// loadCache reads the cached list. A missing or unreadable cache is empty.
func (l *List) loadCache(ctx context.Context) []Room {
	l.loaded = true

	raw, err := l.store.Get(ctx, CacheKey)
	if err != nil {
		if !storage.IsNotFound(err) {
			l.logger.Warn("reading room cache", zap.Error(err))
		}
		return nil
	}

	var rooms []Room
	if err := json.Unmarshal([]byte(raw), &rooms); err != nil {
		l.logger.Warn("discarding unreadable room cache", zap.Error(err))
		return nil
	}
	return rooms
}

func (l *List) save(ctx context.Context) {
	if err := l.saveErr(ctx); err != nil {
		l.logger.Warn("writing room cache", zap.Error(err))
	}
}

func (l *List) saveErr(ctx context.Context) error {
	l.loaded = true

	raw, err := json.Marshal(l.rooms)
	if err != nil {
		return fmt.Errorf("encoding room cache: %w", err)
	}
	return l.store.Set(ctx, CacheKey, string(raw))
}

func (l *List) snapshot() []Room {
	out := make([]Room, len(l.rooms))
	copy(out, l.rooms)
	return out
}

func fromAPI(in []chatapi.ChatRoom) []Room {
	out := make([]Room, 0, len(in))
	for _, r := range in {
		out = append(out, Room{
			RoomID:   r.RoomID.String(),
			RoomName: r.RoomName.Join(),
			Date:     r.Date,
		})
	}
	return out
}

// FormatDate renders t the way the room list labels dates, e.g.
// "2025년 11월 26일".
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%d년 %d월 %d일", t.Year(), int(t.Month()), t.Day())
}

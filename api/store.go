package api

import (
	"slices"
	"sync"
	"time"
)

// firstID is above 2^53 so ids lose precision when decoded as float64.
const firstID uint64 = 1<<53 + 1

type chatting struct {
	ChatID    uint64 `json:"chatId"`
	Content   string `json:"content"`
	IsChatbot bool   `json:"isChatbot"`
}

type room struct {
	ID        uint64
	Owner     string
	Name      string
	CreatedAt time.Time
	Chattings []chatting
}

// roomStore keeps rooms per client id. Higher ids are newer.
type roomStore struct {
	mu     sync.Mutex
	nextID uint64
	rooms  map[uint64]*room
}

func newRoomStore() *roomStore {
	return &roomStore{
		nextID: firstID,
		rooms:  make(map[uint64]*room),
	}
}

func (s *roomStore) id() uint64 {
	id := s.nextID
	s.nextID++
	return id
}

func (s *roomStore) create(owner, name string, now time.Time) *room {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := &room{
		ID:        s.id(),
		Owner:     owner,
		Name:      name,
		CreatedAt: now,
	}
	s.rooms[r.ID] = r
	return r
}

// addTurn records a question and its answer. ok is false when the room does
// not exist for owner.
func (s *roomStore) addTurn(owner string, roomID uint64, question, answer string) (userChatID, llmChatID uint64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, found := s.rooms[roomID]
	if !found || r.Owner != owner {
		return 0, 0, false
	}

	userChatID = s.id()
	llmChatID = s.id()
	r.Chattings = append(r.Chattings,
		chatting{ChatID: userChatID, Content: question},
		chatting{ChatID: llmChatID, Content: answer, IsChatbot: true},
	)
	return userChatID, llmChatID, true
}

// list returns up to size rooms of owner older than before, newest first.
// A zero before starts at the newest room.
func (s *roomStore) list(owner string, size int, before uint64) []room {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []room
	for _, r := range s.rooms {
		if r.Owner != owner || (before != 0 && r.ID >= before) {
			continue
		}
		out = append(out, room{ID: r.ID, Name: r.Name, CreatedAt: r.CreatedAt})
	}

	slices.SortFunc(out, func(a, b room) int {
		switch {
		case a.ID > b.ID:
			return -1
		case a.ID < b.ID:
			return 1
		default:
			return 0
		}
	})

	if len(out) > size {
		out = out[:size]
	}
	return out
}

// history returns the chattings of a room newest first.
func (s *roomStore) history(owner string, roomID uint64) ([]chatting, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, found := s.rooms[roomID]
	if !found || r.Owner != owner {
		return nil, false
	}

	out := slices.Clone(r.Chattings)
	slices.Reverse(out)
	return out, true
}

func (s *roomStore) delete(owner string, roomID uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, found := s.rooms[roomID]
	if !found || r.Owner != owner {
		return false
	}
	delete(s.rooms, roomID)
	return true
}

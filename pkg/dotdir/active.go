package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	activeRoomFile = "active_room.json"
)

// ActiveRoom is the room a chat session last talked to.
type ActiveRoom struct {
	RoomID   string `json:"roomId"`
	RoomName string `json:"roomName"`
}

// LoadActiveRoom loads the active room from a target .factorychat/active_room.json.
// Returns nil, nil if no room is active.
// If overrideDir is non-empty, it is used instead of the default location.
func (m *Manager) LoadActiveRoom(overrideDir string) (*ActiveRoom, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, activeRoomFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading active room: %w", err)
	}

	room := &ActiveRoom{}
	if err := json.Unmarshal(data, room); err != nil {
		return nil, fmt.Errorf("parsing active room: %w", err)
	}
	if room.RoomID == "" {
		return nil, nil
	}

	return room, nil
}

// SaveActiveRoom persists room as the active room.
func (m *Manager) SaveActiveRoom(room *ActiveRoom, overrideDir string) error {
	if room == nil || room.RoomID == "" {
		return errors.New("cannot save active room without a room id")
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(room, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling active room: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, activeRoomFile), data, 0o600); err != nil {
		return fmt.Errorf("writing active room: %w", err)
	}

	return nil
}

// ClearActiveRoom removes the active room so the next chat session starts a
// new room. Returns nil if no room is active.
func (m *Manager) ClearActiveRoom(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(dir, activeRoomFile)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing active room: %w", err)
	}

	return nil
}

package state

import (
	"errors"
	"fmt"
	"sync"

	"go-voicemaster/internal/models"
)

var ErrUntracked = errors.New("room is not tracked")

// RoomPersister stores ephemeral room records so ownership survives a
// restart.
type RoomPersister interface {
	UpsertRoom(room models.EphemeralChannel) error
	DeleteRoom(channelID string) error
	LoadRooms() ([]models.EphemeralChannel, error)
}

// OwnerTracker holds the recorded owner of every ephemeral room. Ownership is
// only written at provisioning and on explicit transfer; member presence never
// changes it.
type OwnerTracker struct {
	mu      sync.RWMutex
	rooms   map[string]models.EphemeralChannel
	persist RoomPersister
}

func NewOwnerTracker(persist RoomPersister) *OwnerTracker {
	return &OwnerTracker{
		rooms:   make(map[string]models.EphemeralChannel),
		persist: persist,
	}
}

// Load replaces the in-memory records with the persisted ones.
func (t *OwnerTracker) Load() error {
	if t.persist == nil {
		return nil
	}
	rooms, err := t.persist.LoadRooms()
	if err != nil {
		return fmt.Errorf("failed to load rooms: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.rooms = make(map[string]models.EphemeralChannel, len(rooms))
	for _, r := range rooms {
		t.rooms[r.ID] = r
	}
	return nil
}

// Track records a newly provisioned room. The in-memory record is kept even
// when persisting it fails.
func (t *OwnerTracker) Track(room models.EphemeralChannel) error {
	t.mu.Lock()
	t.rooms[room.ID] = room
	t.mu.Unlock()

	if t.persist != nil {
		if err := t.persist.UpsertRoom(room); err != nil {
			return fmt.Errorf("failed to persist room %s: %w", room.ID, err)
		}
	}
	return nil
}

func (t *OwnerTracker) Get(channelID string) (models.EphemeralChannel, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.rooms[channelID]
	return r, ok
}

func (t *OwnerTracker) GetOwner(channelID string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.rooms[channelID]
	if !ok || r.OwnerID == "" {
		return "", false
	}
	return r.OwnerID, true
}

func (t *OwnerTracker) SetOwner(channelID, memberID string) error {
	t.mu.Lock()
	r, ok := t.rooms[channelID]
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUntracked, channelID)
	}
	r.OwnerID = memberID
	t.rooms[channelID] = r
	t.mu.Unlock()

	if t.persist != nil {
		if err := t.persist.UpsertRoom(r); err != nil {
			return fmt.Errorf("failed to persist owner of %s: %w", channelID, err)
		}
	}
	return nil
}

// ClearOwner forgets a room. Clearing an unknown room is a no-op.
func (t *OwnerTracker) ClearOwner(channelID string) error {
	t.mu.Lock()
	_, ok := t.rooms[channelID]
	delete(t.rooms, channelID)
	t.mu.Unlock()

	if ok && t.persist != nil {
		if err := t.persist.DeleteRoom(channelID); err != nil {
			return fmt.Errorf("failed to delete room %s: %w", channelID, err)
		}
	}
	return nil
}

// Rooms lists the tracked rooms of a guild.
func (t *OwnerTracker) Rooms(guildID string) []models.EphemeralChannel {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []models.EphemeralChannel
	for _, r := range t.rooms {
		if r.GuildID == guildID {
			out = append(out, r)
		}
	}
	return out
}

func (t *OwnerTracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rooms)
}

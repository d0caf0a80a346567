package registry

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/hilthontt/sketchroom/internal/domain"
)

type Mode int

const (
	// Existing fails with domain.ErrRoomNotFound when the room is absent.
	Existing Mode = iota
	// CreateIfAbsent creates the room inside the same critical section.
	CreateIfAbsent
)

const (
	DefaultShards                = 32
	DefaultChatHistoryCapacity   = 500
	DefaultStrokeHistoryCapacity = 10000
)

type Options struct {
	Shards                int
	ChatHistoryCapacity   int
	StrokeHistoryCapacity int
	Now                   func() time.Time
}

// Outcome reports lifecycle transitions caused by an Update. A room that
// was created and emptied by the same failed update reports neither.
type Outcome struct {
	Created   bool
	Destroyed bool
	// FinalStrokes holds the stroke history of a destroyed room.
	FinalStrokes []domain.StrokeEvent
}

// Snapshot is a copy of a room's state taken under its lock.
type Snapshot struct {
	ID          string
	CreatedAt   time.Time
	Members     []domain.Member
	ChatHistory []domain.ChatEvent
	Strokes     []domain.StrokeEvent
}

type shard struct {
	mu    sync.Mutex
	rooms map[string]*Room
}

// Registry owns every live room. Operations on one room id serialize on
// that id's shard; different shards proceed in parallel.
type Registry struct {
	shards    []*shard
	owners    *ownerIndex
	chatCap   int
	strokeCap int
	now       func() time.Time
}

func New(options Options) *Registry {
	if options.Shards <= 0 {
		options.Shards = DefaultShards
	}
	if options.ChatHistoryCapacity <= 0 {
		options.ChatHistoryCapacity = DefaultChatHistoryCapacity
	}
	if options.StrokeHistoryCapacity <= 0 {
		options.StrokeHistoryCapacity = DefaultStrokeHistoryCapacity
	}
	if options.Now == nil {
		options.Now = time.Now
	}

	shards := make([]*shard, options.Shards)
	for i := range shards {
		shards[i] = &shard{rooms: make(map[string]*Room)}
	}

	return &Registry{
		shards:    shards,
		owners:    newOwnerIndex(),
		chatCap:   options.ChatHistoryCapacity,
		strokeCap: options.StrokeHistoryCapacity,
		now:       options.Now,
	}
}

func (r *Registry) shardFor(roomID string) *shard {
	return r.shards[xxhash.Sum64String(roomID)%uint64(len(r.shards))]
}

// Update runs fn on the room under its shard lock. With CreateIfAbsent the
// room is created first when missing. Whatever fn returns, and even if it
// panics, a room left without members is removed before the lock is
// released.
func (r *Registry) Update(roomID string, mode Mode, fn func(room *Room) error) (outcome Outcome, err error) {
	s := r.shardFor(roomID)
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		if mode != CreateIfAbsent {
			return outcome, domain.ErrRoomNotFound
		}

		room = &Room{
			id:        roomID,
			createdAt: r.now(),
			chat:      NewHistory[domain.ChatEvent](r.chatCap),
			strokes:   NewHistory[domain.StrokeEvent](r.strokeCap),
			owners:    r.owners,
		}
		s.rooms[roomID] = room
		outcome.Created = true
	}

	defer func() {
		if room.Len() > 0 {
			return
		}

		delete(s.rooms, roomID)
		if outcome.Created {
			outcome.Created = false
			return
		}
		outcome.Destroyed = true
		outcome.FinalStrokes = room.Strokes()
	}()

	return outcome, fn(room)
}

// View runs fn under the room's lock without creating it. It reports
// whether the room existed.
func (r *Registry) View(roomID string, fn func(room *Room)) bool {
	s := r.shardFor(roomID)
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return false
	}

	fn(room)
	return true
}

func (r *Registry) Snapshot(roomID string) (Snapshot, bool) {
	var snap Snapshot
	ok := r.View(roomID, func(room *Room) {
		snap = Snapshot{
			ID:          room.ID(),
			CreatedAt:   room.CreatedAt(),
			Members:     room.Members(),
			ChatHistory: room.ChatHistory(),
			Strokes:     room.Strokes(),
		}
	})
	return snap, ok
}

// Remove drops the room and releases its members. It is a no-op when the
// room does not exist.
func (r *Registry) Remove(roomID string) bool {
	s := r.shardFor(roomID)
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return false
	}

	room.releaseAll()
	delete(s.rooms, roomID)
	return true
}

// RoomOf returns the room the connection currently belongs to.
func (r *Registry) RoomOf(connectionID string) (string, bool) {
	return r.owners.lookup(connectionID)
}

// RoomsContaining scans every shard for rooms listing the connection as a
// member. The owner index keeps this to at most one room; the scan does
// not rely on it.
func (r *Registry) RoomsContaining(connectionID string) []string {
	var ids []string
	for _, s := range r.shards {
		s.mu.Lock()
		for id, room := range s.rooms {
			if _, ok := room.Member(connectionID); ok {
				ids = append(ids, id)
			}
		}
		s.mu.Unlock()
	}
	return ids
}

// Stats counts rooms and members one shard at a time, so the totals are
// not a single atomic cut across shards.
func (r *Registry) Stats() (rooms, members int) {
	for _, s := range r.shards {
		s.mu.Lock()
		rooms += len(s.rooms)
		for _, room := range s.rooms {
			members += room.Len()
		}
		s.mu.Unlock()
	}
	return rooms, members
}

// MemberCount returns the live member count of a room, zero if absent.
func (r *Registry) MemberCount(roomID string) int {
	var n int
	r.View(roomID, func(room *Room) { n = room.Len() })
	return n
}

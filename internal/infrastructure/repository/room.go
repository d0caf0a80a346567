package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/hilthontt/sketchroom/internal/domain"
)

// roomCatalog keeps registered rooms in memory, bounded by capacity and
// forgetting rooms nobody looked up for idleRoomExpiry.
type roomCatalog struct {
	rooms          map[string]*domain.RoomRecord
	lastAccess     map[string]time.Time
	capacity       uint
	idleRoomExpiry time.Duration
	now            func() time.Time
	mu             sync.Mutex
}

func NewRoomCatalog(capacity uint, idleRoomExpiry time.Duration) domain.RoomCatalog {
	return newRoomCatalog(capacity, idleRoomExpiry, time.Now)
}

func newRoomCatalog(capacity uint, idleRoomExpiry time.Duration, now func() time.Time) *roomCatalog {
	if capacity == 0 {
		capacity = 100
	}
	if idleRoomExpiry == 0 {
		idleRoomExpiry = 30 * time.Minute
	}

	return &roomCatalog{
		rooms:          make(map[string]*domain.RoomRecord),
		lastAccess:     make(map[string]time.Time),
		capacity:       capacity,
		idleRoomExpiry: idleRoomExpiry,
		now:            now,
	}
}

func (r *roomCatalog) touch(roomID string) {
	r.lastAccess[roomID] = r.now()
}

func (r *roomCatalog) evictIdle() {
	cutoff := r.now().Add(-r.idleRoomExpiry)
	for id, last := range r.lastAccess {
		if last.Before(cutoff) {
			delete(r.rooms, id)
			delete(r.lastAccess, id)
		}
	}
}

// enforceCapacity makes room for one more entry by dropping the least
// recently accessed rooms.
func (r *roomCatalog) enforceCapacity() {
	if uint(len(r.rooms)) < r.capacity {
		return
	}

	type entry struct {
		id   string
		time time.Time
	}
	entries := make([]entry, 0, len(r.lastAccess))
	for id, t := range r.lastAccess {
		entries = append(entries, entry{id, t})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].time.Before(entries[j].time) })

	excess := len(r.rooms) - int(r.capacity) + 1
	for i := 0; i < excess && i < len(entries); i++ {
		delete(r.rooms, entries[i].id)
		delete(r.lastAccess, entries[i].id)
	}
}

func (r *roomCatalog) Register(ctx context.Context, room *domain.RoomRecord) error {
	if room == nil || room.ID == "" {
		return domain.ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.evictIdle()

	if _, exists := r.rooms[room.ID]; exists {
		return domain.ErrRoomAlreadyExists
	}

	r.enforceCapacity()

	if room.CreatedAt.IsZero() {
		room.CreatedAt = r.now()
	}
	stored := *room
	r.rooms[room.ID] = &stored
	r.touch(room.ID)

	return nil
}

func (r *roomCatalog) GetByID(ctx context.Context, roomID string) (*domain.RoomRecord, error) {
	if roomID == "" {
		return nil, domain.ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.evictIdle()

	room, exists := r.rooms[roomID]
	if !exists {
		return nil, domain.ErrCatalogNotFound
	}
	r.touch(roomID)

	cpy := *room
	return &cpy, nil
}

func (r *roomCatalog) Exists(ctx context.Context, roomID string) (bool, error) {
	_, err := r.GetByID(ctx, roomID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrCatalogNotFound):
		return false, nil
	default:
		return false, err
	}
}

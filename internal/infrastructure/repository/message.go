package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hilthontt/sketchroom/internal/domain"
)

// messageArchive keeps the most recent capacity messages per room.
type messageArchive struct {
	messages map[string][]domain.ChatEvent // roomID -> messages
	capacity uint
	mu       sync.RWMutex
}

func NewMessageArchive(capacity uint) domain.ChatArchive {
	if capacity == 0 {
		capacity = 100
	}
	return &messageArchive{
		capacity: capacity,
		messages: make(map[string][]domain.ChatEvent),
	}
}

func (r *messageArchive) SaveMessage(ctx context.Context, message domain.ChatEvent) error {
	if message.RoomID == "" {
		return domain.ErrInvalidInput
	}

	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	roomMsgs := append(r.messages[message.RoomID], message)

	// Evict oldest if over capacity
	if excess := len(roomMsgs) - int(r.capacity); excess > 0 {
		roomMsgs = append([]domain.ChatEvent(nil), roomMsgs[excess:]...)
	}

	r.messages[message.RoomID] = roomMsgs

	return nil
}

// GetByRoomID returns up to limit most recent messages, oldest first.
// A non-positive limit returns everything retained.
func (r *messageArchive) GetByRoomID(ctx context.Context, roomID string, limit int) ([]domain.ChatEvent, error) {
	if roomID == "" {
		return nil, domain.ErrInvalidInput
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	roomMsgs := r.messages[roomID]
	if limit > 0 && len(roomMsgs) > limit {
		roomMsgs = roomMsgs[len(roomMsgs)-limit:]
	}

	cpy := make([]domain.ChatEvent, len(roomMsgs))
	copy(cpy, roomMsgs)

	return cpy, nil
}

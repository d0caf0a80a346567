package domain

import (
	"context"
	"time"
)

type ChatEvent struct {
	ID           string    `json:"id"`
	RoomID       string    `json:"roomId"`
	DisplayName  string    `json:"username"`
	Text         string    `json:"message"`
	Timestamp    time.Time `json:"timestamp"`
	UserID       int64     `json:"userId"`
	ConnectionID string    `json:"connectionId"`
}

// ChatArchive is the persistence sink for chat messages. It is never
// called from inside a room critical section.
type ChatArchive interface {
	SaveMessage(ctx context.Context, message ChatEvent) error
	GetByRoomID(ctx context.Context, roomID string, limit int) ([]ChatEvent, error)
}

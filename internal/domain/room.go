package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrRoomAlreadyExists = errors.New("room already exists")
	ErrCatalogNotFound   = errors.New("room not registered")
)

// RoomRecord is the persisted side of a room, owned by the catalog.
type RoomRecord struct {
	ID        string    `json:"id" bson:"roomId"`
	Name      string    `json:"name" bson:"name"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// RoomCatalog answers whether a room id is known to persisted storage.
// The HTTP layer consults it before a client opens a realtime session.
type RoomCatalog interface {
	Register(ctx context.Context, room *RoomRecord) error
	GetByID(ctx context.Context, roomID string) (*RoomRecord, error)
	Exists(ctx context.Context, roomID string) (bool, error)
}

// LifecycleEvent is published to external consumers after a state change
// has been committed.
type LifecycleEvent struct {
	Kind         string    `json:"kind"`
	RoomID       string    `json:"roomId"`
	ConnectionID string    `json:"connectionId,omitempty"`
	UserID       int64     `json:"userId,omitempty"`
	MemberCount  int       `json:"memberCount"`
	OccurredAt   time.Time `json:"occurredAt"`
}

type LifecyclePublisher interface {
	Publish(ctx context.Context, event LifecycleEvent) error
}

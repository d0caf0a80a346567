package domain

import (
	"context"
	"encoding/json"
	"maps"
	"time"
)

// StrokeEvent is an appended drawing payload stamped by the server.
// Data holds the client payload as decoded from JSON.
type StrokeEvent struct {
	Data         map[string]any
	Timestamp    time.Time
	UserID       int64
	ConnectionID string
}

// MarshalJSON flattens the payload with the server stamps so clients replay
// the same shape they sent.
func (s StrokeEvent) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Data)+3)
	maps.Copy(out, s.Data)
	out["timestamp"] = s.Timestamp.UnixMilli()
	out["userId"] = s.UserID
	out["connectionId"] = s.ConnectionID
	return json.Marshal(out)
}

type DrawingSnapshot struct {
	RoomID    string        `json:"roomId"`
	Strokes   []StrokeEvent `json:"strokes"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

type DrawingArchive interface {
	SaveDrawing(ctx context.Context, snapshot DrawingSnapshot) error
}

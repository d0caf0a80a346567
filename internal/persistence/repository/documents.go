package repository

import (
	"time"

	"github.com/hilthontt/sketchroom/internal/domain"
)

type messageDocument struct {
	ID           string    `bson:"_id"`
	RoomID       string    `bson:"room_id"`
	Username     string    `bson:"username"`
	Message      string    `bson:"message"`
	UserID       int64     `bson:"user_id"`
	ConnectionID string    `bson:"connection_id"`
	Timestamp    time.Time `bson:"timestamp"`
}

func newMessageDocument(e domain.ChatEvent) messageDocument {
	return messageDocument{
		ID:           e.ID,
		RoomID:       e.RoomID,
		Username:     e.DisplayName,
		Message:      e.Text,
		UserID:       e.UserID,
		ConnectionID: e.ConnectionID,
		Timestamp:    e.Timestamp,
	}
}

func (d messageDocument) toDomain() domain.ChatEvent {
	return domain.ChatEvent{
		ID:           d.ID,
		RoomID:       d.RoomID,
		DisplayName:  d.Username,
		Text:         d.Message,
		UserID:       d.UserID,
		ConnectionID: d.ConnectionID,
		Timestamp:    d.Timestamp,
	}
}

type strokeDocument struct {
	Data         map[string]any `bson:"data"`
	UserID       int64          `bson:"user_id"`
	ConnectionID string         `bson:"connection_id"`
	Timestamp    time.Time      `bson:"timestamp"`
}

type drawingDocument struct {
	RoomID    string           `bson:"room_id"`
	Strokes   []strokeDocument `bson:"strokes"`
	UpdatedAt time.Time        `bson:"updated_at"`
}

func newDrawingDocument(s domain.DrawingSnapshot) drawingDocument {
	strokes := make([]strokeDocument, len(s.Strokes))
	for i, stroke := range s.Strokes {
		strokes[i] = strokeDocument{
			Data:         stroke.Data,
			UserID:       stroke.UserID,
			ConnectionID: stroke.ConnectionID,
			Timestamp:    stroke.Timestamp,
		}
	}

	return drawingDocument{
		RoomID:    s.RoomID,
		Strokes:   strokes,
		UpdatedAt: s.UpdatedAt,
	}
}

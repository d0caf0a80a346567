package repository

import (
	"context"
	"sync"

	"github.com/hilthontt/sketchroom/internal/domain"
)

// DrawingArchive keeps the latest snapshot per room.
type DrawingArchive struct {
	snapshots map[string]domain.DrawingSnapshot
	mu        sync.RWMutex
}

func NewDrawingArchive() *DrawingArchive {
	return &DrawingArchive{snapshots: make(map[string]domain.DrawingSnapshot)}
}

func (r *DrawingArchive) SaveDrawing(ctx context.Context, snapshot domain.DrawingSnapshot) error {
	if snapshot.RoomID == "" {
		return domain.ErrInvalidInput
	}

	strokes := make([]domain.StrokeEvent, len(snapshot.Strokes))
	copy(strokes, snapshot.Strokes)
	snapshot.Strokes = strokes

	r.mu.Lock()
	r.snapshots[snapshot.RoomID] = snapshot
	r.mu.Unlock()

	return nil
}

func (r *DrawingArchive) Latest(roomID string) (domain.DrawingSnapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot, ok := r.snapshots[roomID]
	return snapshot, ok
}

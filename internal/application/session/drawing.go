package session

import (
	"context"
	"encoding/json"
	"math"

	"github.com/hilthontt/sketchroom/internal/domain"
	"github.com/hilthontt/sketchroom/internal/infrastructure/events"
	"github.com/hilthontt/sketchroom/internal/infrastructure/logging"
	"github.com/hilthontt/sketchroom/internal/infrastructure/registry"
	"github.com/hilthontt/sketchroom/internal/infrastructure/ws"
)

// Draw appends a stroke and forwards the raw payload to every member
// except the sender.
func (s *Service) Draw(ctx context.Context, conn ws.Connection, roomID string, drawData map[string]any) error {
	if err := requireRoomID(roomID); err != nil {
		return err
	}
	if err := validateDrawData(drawData); err != nil {
		return err
	}

	var delivery ws.Delivery
	_, err := s.registry.Update(roomID, registry.Existing, func(room *registry.Room) error {
		member, err := requireMember(room, conn.ID())
		if err != nil {
			return err
		}

		room.AppendStroke(domain.StrokeEvent{
			Data:         drawData,
			Timestamp:    s.now(),
			UserID:       member.UserID,
			ConnectionID: conn.ID(),
		})
		delivery = ws.Broadcast(room.Connections(), ws.NewDraw(roomID, drawData), conn.ID())
		return nil
	})
	if err != nil {
		return err
	}

	return s.settle(roomID, delivery)
}

// ClearCanvas truncates the stroke history and tells every member,
// the requester included.
func (s *Service) ClearCanvas(ctx context.Context, conn ws.Connection, roomID string) error {
	if err := requireRoomID(roomID); err != nil {
		return err
	}

	var (
		removed  int
		delivery ws.Delivery
	)
	_, err := s.registry.Update(roomID, registry.Existing, func(room *registry.Room) error {
		if _, err := requireMember(room, conn.ID()); err != nil {
			return err
		}

		removed = room.ClearStrokes()
		delivery = ws.Broadcast(room.Connections(), ws.NewClearCanvas(roomID), "")
		return nil
	})
	if err != nil {
		return err
	}

	s.log(logging.Drawing).Infow("canvas cleared", "room_id", roomID, "connection_id", conn.ID(), "removed", removed)
	s.saveDrawing(roomID, []domain.StrokeEvent{})
	s.publish(domain.LifecycleEvent{Kind: events.CanvasCleared, RoomID: roomID, ConnectionID: conn.ID()})

	return s.settle(roomID, delivery)
}

// LoadDrawing sends the stroke history to the requester only. A room that
// does not exist has an empty drawing.
func (s *Service) LoadDrawing(ctx context.Context, conn ws.Connection, roomID string) error {
	if err := requireRoomID(roomID); err != nil {
		return err
	}

	var err error
	found := s.registry.View(roomID, func(room *registry.Room) {
		if _, err = requireMember(room, conn.ID()); err != nil {
			return
		}
		err = reply(conn, ws.NewLoadDrawing(roomID, room.Strokes()))
	})
	if !found {
		return reply(conn, ws.NewLoadDrawing(roomID, []domain.StrokeEvent{}))
	}

	return err
}

func validateDrawData(data map[string]any) error {
	if data == nil {
		return domain.Reject(domain.ErrInvalidInput, "Invalid draw data")
	}

	if !isFinite(data["x"]) || !isFinite(data["y"]) {
		return domain.Reject(domain.ErrInvalidInput, "Invalid coordinates")
	}

	// Tool names are client-defined; only the type is checked.
	if v, ok := data["tool"]; ok {
		if tool, isString := v.(string); !isString || tool == "" {
			return domain.Reject(domain.ErrInvalidInput, "Invalid drawing tool")
		}
	}

	if v, ok := data["color"]; ok {
		if _, isString := v.(string); !isString {
			return domain.Reject(domain.ErrInvalidInput, "Invalid draw data")
		}
	}

	if v, ok := data["width"]; ok {
		width, isNumber := number(v)
		if !isNumber || width <= 0 || math.IsInf(width, 0) {
			return domain.Reject(domain.ErrInvalidInput, "Invalid draw data")
		}
	}

	if v, ok := data["points"]; ok {
		points, isArray := v.([]any)
		if !isArray {
			return domain.Reject(domain.ErrInvalidInput, "Invalid draw data")
		}
		for _, p := range points {
			point, isObject := p.(map[string]any)
			if !isObject || !isFinite(point["x"]) || !isFinite(point["y"]) {
				return domain.Reject(domain.ErrInvalidInput, "Invalid coordinates")
			}
		}
	}

	return nil
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func isFinite(v any) bool {
	f, ok := number(v)
	return ok && !math.IsNaN(f) && !math.IsInf(f, 0)
}

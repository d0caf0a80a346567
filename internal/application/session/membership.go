package session

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/hilthontt/sketchroom/internal/domain"
	"github.com/hilthontt/sketchroom/internal/infrastructure/events"
	"github.com/hilthontt/sketchroom/internal/infrastructure/logging"
	"github.com/hilthontt/sketchroom/internal/infrastructure/registry"
	"github.com/hilthontt/sketchroom/internal/infrastructure/ws"
)

type JoinInput struct {
	RoomID   string
	UserID   int64
	Username string
}

// Join adds conn to the room, creating the room when it does not exist,
// and announces the new member to everyone in it, the joiner included.
func (s *Service) Join(ctx context.Context, conn ws.Connection, in JoinInput) error {
	if err := requireRoomID(in.RoomID); err != nil {
		return err
	}
	if in.UserID <= 0 {
		return domain.Reject(domain.ErrInvalidInput, "Invalid user ID")
	}
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return domain.Reject(domain.ErrInvalidInput, "Username cannot be empty")
	}

	var (
		memberCount int
		delivery    ws.Delivery
	)
	outcome, err := s.registry.Update(in.RoomID, registry.CreateIfAbsent, func(room *registry.Room) error {
		member := domain.NewMember(conn.ID(), in.UserID, username, s.now())
		if err := room.AddMember(member, conn); err != nil {
			return err
		}

		memberCount = room.Len()
		delivery = ws.Broadcast(room.Connections(), ws.NewMemberJoined(in.RoomID, ws.MemberPayload{
			UserID:      in.UserID,
			Username:    username,
			MemberCount: memberCount,
		}), "")
		return nil
	})
	if err != nil {
		return err
	}

	logger := s.log(logging.Membership)
	if outcome.Created {
		logger.Infow("room created", "room_id", in.RoomID)
		s.publish(domain.LifecycleEvent{Kind: events.RoomCreated, RoomID: in.RoomID, MemberCount: memberCount})
	}
	logger.Infow("member joined",
		logging.Fields(map[logging.ExtraKey]any{
			logging.RoomID:       in.RoomID,
			logging.ConnectionID: conn.ID(),
			logging.MemberCount:  memberCount,
			"user_id":            in.UserID,
		})...,
	)
	s.publish(domain.LifecycleEvent{
		Kind:         events.MemberJoined,
		RoomID:       in.RoomID,
		ConnectionID: conn.ID(),
		UserID:       in.UserID,
		MemberCount:  memberCount,
	})
	s.metrics.RegistryChanged(boolDelta(outcome.Created), 1)

	return s.settle(in.RoomID, delivery)
}

// Leave removes conn from the room on the client's request.
func (s *Service) Leave(ctx context.Context, conn ws.Connection, roomID string) error {
	if err := requireRoomID(roomID); err != nil {
		return err
	}

	return s.removeMember(roomID, conn.ID(), "leave")
}

// Disconnect removes a closed connection from every room it is in. It is
// a no-op when the connection is in no room or was already removed.
func (s *Service) Disconnect(ctx context.Context, connectionID string) {
	roomIDs := s.registry.RoomsContaining(connectionID)
	if roomID, ok := s.registry.RoomOf(connectionID); ok && !slices.Contains(roomIDs, roomID) {
		roomIDs = append(roomIDs, roomID)
	}

	for _, roomID := range roomIDs {
		err := s.removeMember(roomID, connectionID, "disconnect")
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrNotMember), errors.Is(err, domain.ErrRoomNotFound):
			// Lost a race with an explicit leave; already handled.
		default:
			s.log(logging.Membership).Warnw("disconnect cleanup failed", "room_id", roomID, "connection_id", connectionID, "error", err)
		}
	}
}

func (s *Service) removeMember(roomID, connectionID, reason string) error {
	var (
		removed     domain.Member
		memberCount int
		delivery    ws.Delivery
	)
	outcome, err := s.registry.Update(roomID, registry.Existing, func(room *registry.Room) error {
		member, ok := room.RemoveMember(connectionID)
		if !ok {
			return domain.ErrNotMember
		}

		removed = member
		memberCount = room.Len()
		delivery = ws.Broadcast(room.Connections(), ws.NewMemberLeft(roomID, ws.MemberPayload{
			UserID:      member.UserID,
			Username:    member.DisplayName,
			MemberCount: memberCount,
		}), "")
		return nil
	})
	if err != nil {
		return err
	}

	logger := s.log(logging.Membership)
	logger.Infow("member left",
		logging.Fields(map[logging.ExtraKey]any{
			logging.RoomID:       roomID,
			logging.ConnectionID: connectionID,
			logging.MemberCount:  memberCount,
			"reason":             reason,
		})...,
	)
	s.publish(domain.LifecycleEvent{
		Kind:         events.MemberLeft,
		RoomID:       roomID,
		ConnectionID: connectionID,
		UserID:       removed.UserID,
		MemberCount:  memberCount,
	})

	if outcome.Destroyed {
		logger.Infow("room destroyed", "room_id", roomID, "strokes", len(outcome.FinalStrokes))
		s.saveDrawing(roomID, outcome.FinalStrokes)
		s.publish(domain.LifecycleEvent{Kind: events.RoomDeleted, RoomID: roomID})
	}
	s.metrics.RegistryChanged(-boolDelta(outcome.Destroyed), -1)

	return s.settle(roomID, delivery)
}

func boolDelta(b bool) int {
	if b {
		return 1
	}
	return 0
}

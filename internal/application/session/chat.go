package session

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/hilthontt/sketchroom/internal/domain"
	"github.com/hilthontt/sketchroom/internal/infrastructure/events"
	"github.com/hilthontt/sketchroom/internal/infrastructure/logging"
	"github.com/hilthontt/sketchroom/internal/infrastructure/registry"
	"github.com/hilthontt/sketchroom/internal/infrastructure/ws"
)

type ChatInput struct {
	RoomID   string
	Text     string
	Username string
}

// PostMessage appends a chat message and delivers it to every member,
// the sender included.
func (s *Service) PostMessage(ctx context.Context, conn ws.Connection, in ChatInput) error {
	if err := requireRoomID(in.RoomID); err != nil {
		return err
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return domain.Reject(domain.ErrInvalidInput, "Message cannot be empty")
	}
	// Length is measured before trimming.
	if utf8.RuneCountInString(in.Text) > s.maxMessageLength {
		return domain.Reject(domain.ErrMessageTooLong, fmt.Sprintf("Message is too long (max %d characters)", s.maxMessageLength))
	}

	username := strings.TrimSpace(in.Username)
	if username == "" {
		return domain.Reject(domain.ErrInvalidInput, "Username cannot be empty")
	}

	var (
		event    domain.ChatEvent
		delivery ws.Delivery
	)
	_, err := s.registry.Update(in.RoomID, registry.Existing, func(room *registry.Room) error {
		member, err := requireMember(room, conn.ID())
		if err != nil {
			return err
		}

		event = domain.ChatEvent{
			ID:           uuid.NewString(),
			RoomID:       in.RoomID,
			DisplayName:  username,
			Text:         text,
			Timestamp:    s.now(),
			UserID:       member.UserID,
			ConnectionID: conn.ID(),
		}
		room.AppendChat(event)
		delivery = ws.Broadcast(room.Connections(), ws.NewChatMessage(in.RoomID, event), "")
		return nil
	})
	if err != nil {
		return err
	}

	s.log(logging.Chat).Debugw("message posted", "room_id", in.RoomID, "connection_id", conn.ID(), "length", utf8.RuneCountInString(text))

	if s.chats != nil {
		s.background("persist.message", func(ctx context.Context) error {
			return s.chats.SaveMessage(ctx, event)
		})
	}
	s.publish(domain.LifecycleEvent{
		Kind:         events.MessageSent,
		RoomID:       in.RoomID,
		ConnectionID: conn.ID(),
		UserID:       event.UserID,
	})

	return s.settle(in.RoomID, delivery)
}

// LoadChatHistory replays the room's chat history to the requester only.
// A room that does not exist has an empty history.
func (s *Service) LoadChatHistory(ctx context.Context, conn ws.Connection, roomID string) error {
	if err := requireRoomID(roomID); err != nil {
		return err
	}

	var err error
	found := s.registry.View(roomID, func(room *registry.Room) {
		if _, err = requireMember(room, conn.ID()); err != nil {
			return
		}
		err = reply(conn, ws.NewChatHistory(roomID, room.ChatHistory()))
	})
	if !found {
		return reply(conn, ws.NewChatHistory(roomID, []domain.ChatEvent{}))
	}

	return err
}

package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hilthontt/sketchroom/internal/domain"
	"github.com/hilthontt/sketchroom/internal/infrastructure/messaging"
)

// Kinds of lifecycle events, mapped one-to-one to routing keys.
const (
	RoomCreated   = "room_created"
	RoomDeleted   = "room_deleted"
	MemberJoined  = "member_joined"
	MemberLeft    = "member_left"
	MessageSent   = "message_sent"
	CanvasCleared = "canvas_cleared"
)

var routingKeys = map[string]string{
	RoomCreated:   messaging.EventRoomCreated,
	RoomDeleted:   messaging.EventRoomDeleted,
	MemberJoined:  messaging.EventMemberJoined,
	MemberLeft:    messaging.EventMemberLeft,
	MessageSent:   messaging.EventMessageSent,
	CanvasCleared: messaging.EventCanvasCleared,
}

func RoutingKey(kind string) (string, bool) {
	key, ok := routingKeys[kind]
	return key, ok
}

type publishFunc func(ctx context.Context, routingKey string, body []byte) error

type RoomPublisher struct {
	publish publishFunc
}

func NewRoomPublisher(rabbitmq *messaging.RabbitMQ) *RoomPublisher {
	return &RoomPublisher{publish: rabbitmq.PublishMessage}
}

func (p *RoomPublisher) Publish(ctx context.Context, event domain.LifecycleEvent) error {
	routingKey, ok := RoutingKey(event.Kind)
	if !ok {
		return fmt.Errorf("unknown lifecycle event kind %q", event.Kind)
	}

	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.publish(ctx, routingKey, body)
}

// NoopPublisher is used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, domain.LifecycleEvent) error { return nil }

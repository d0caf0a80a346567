package session

import (
	"context"
	"errors"
	"time"

	"github.com/hilthontt/sketchroom/internal/domain"
	"github.com/hilthontt/sketchroom/internal/infrastructure/logging"
	"github.com/hilthontt/sketchroom/internal/infrastructure/metrics"
	"github.com/hilthontt/sketchroom/internal/infrastructure/registry"
	"github.com/hilthontt/sketchroom/internal/infrastructure/worker"
	"github.com/hilthontt/sketchroom/internal/infrastructure/ws"
	"go.uber.org/zap"
)

const DefaultMaxMessageLength = 500

// JobSubmitter runs work outside room critical sections.
type JobSubmitter interface {
	Submit(job worker.Job) error
}

type Options struct {
	Registry         *registry.Registry
	Logger           *zap.SugaredLogger
	Metrics          *metrics.Metrics
	ChatArchive      domain.ChatArchive
	DrawingArchive   domain.DrawingArchive
	Publisher        domain.LifecyclePublisher
	Jobs             JobSubmitter
	MaxMessageLength int
	Now              func() time.Time
}

// Service implements the room session operations on top of the registry.
// Every state change and the broadcast it causes happen inside one
// registry critical section; persistence and lifecycle publishing are
// handed to Jobs afterwards.
type Service struct {
	registry         *registry.Registry
	logger           *zap.SugaredLogger
	metrics          *metrics.Metrics
	chats            domain.ChatArchive
	drawings         domain.DrawingArchive
	publisher        domain.LifecyclePublisher
	jobs             JobSubmitter
	maxMessageLength int
	now              func() time.Time
}

func NewService(options Options) *Service {
	if options.Registry == nil {
		options.Registry = registry.New(registry.Options{})
	}
	if options.Logger == nil {
		options.Logger = zap.NewNop().Sugar()
	}
	if options.MaxMessageLength <= 0 {
		options.MaxMessageLength = DefaultMaxMessageLength
	}
	if options.Now == nil {
		options.Now = time.Now
	}

	return &Service{
		registry:         options.Registry,
		logger:           options.Logger,
		metrics:          options.Metrics,
		chats:            options.ChatArchive,
		drawings:         options.DrawingArchive,
		publisher:        options.Publisher,
		jobs:             options.Jobs,
		maxMessageLength: options.MaxMessageLength,
		now:              options.Now,
	}
}

func (s *Service) Registry() *registry.Registry {
	return s.registry
}

func (s *Service) log(sub logging.SubCategory) *zap.SugaredLogger {
	return logging.For(s.logger, logging.Session, sub)
}

// background submits fn to the job runner. Nothing runs when no runner
// is configured.
func (s *Service) background(name string, fn func(ctx context.Context) error) {
	if s.jobs == nil {
		return
	}

	if err := s.jobs.Submit(worker.Job{Name: name, Fn: fn}); err != nil {
		s.log(logging.Persist).Warnw("background job dropped", "job", name, "error", err)
	}
}

func (s *Service) publish(event domain.LifecycleEvent) {
	if s.publisher == nil {
		return
	}

	event.OccurredAt = s.now()
	s.background("publish."+event.Kind, func(ctx context.Context) error {
		return s.publisher.Publish(ctx, event)
	})
}

func (s *Service) saveDrawing(roomID string, strokes []domain.StrokeEvent) {
	if s.drawings == nil {
		return
	}

	snapshot := domain.DrawingSnapshot{
		RoomID:    roomID,
		Strokes:   strokes,
		UpdatedAt: s.now(),
	}
	s.background("persist.drawing", func(ctx context.Context) error {
		return s.drawings.SaveDrawing(ctx, snapshot)
	})
}

// settle records a committed broadcast. A faulted broadcast is reported to
// the caller but never undoes the state change.
func (s *Service) settle(roomID string, delivery ws.Delivery) error {
	s.metrics.Deliveries(len(delivery.Delivered), len(delivery.Dropped), delivery.Faulted)

	if len(delivery.Dropped) > 0 {
		s.log(logging.Delivery).Warnw("recipients dropped",
			logging.Fields(map[logging.ExtraKey]any{
				logging.RoomID: roomID,
				"dropped":      len(delivery.Dropped),
			})...,
		)
	}

	if delivery.Faulted {
		s.log(logging.Delivery).Errorw("broadcast faulted", "room_id", roomID, "error", delivery.Fault)
		return domain.Reject(domain.ErrDeliveryFailed, "Event was saved but could not be delivered")
	}

	return nil
}

// reply sends msg to the requesting connection only.
func reply(conn ws.Connection, msg *ws.WSMessage) error {
	if err := conn.Send(msg); err != nil {
		return errors.Join(domain.ErrDeliveryFailed, err)
	}
	return nil
}

func requireRoomID(roomID string) error {
	if roomID == "" {
		return domain.Reject(domain.ErrInvalidInput, "Invalid room ID")
	}
	return nil
}

// requireMember is called under the room lock.
func requireMember(room *registry.Room, connectionID string) (domain.Member, error) {
	member, ok := room.Member(connectionID)
	if !ok {
		return domain.Member{}, domain.ErrNotMember
	}
	return member, nil
}

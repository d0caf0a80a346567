package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hilthontt/sketchroom/internal/domain"
	"github.com/hilthontt/sketchroom/internal/infrastructure/logging"
	"github.com/hilthontt/sketchroom/internal/infrastructure/metrics"
	"github.com/hilthontt/sketchroom/internal/infrastructure/tracing"
	"github.com/hilthontt/sketchroom/internal/infrastructure/ws"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// EventLimiter bounds how many inbound events a connection may send.
type EventLimiter interface {
	Allow(key string) (bool, time.Duration)
	Forget(key string)
}

// Dispatcher decodes inbound frames and routes them to the Service. Every
// rejection is answered with an error frame to the originating connection.
type Dispatcher struct {
	service *Service
	limiter EventLimiter
	logger  *zap.SugaredLogger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

func NewDispatcher(service *Service, limiter EventLimiter, logger *zap.SugaredLogger, m *metrics.Metrics) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &Dispatcher{
		service: service,
		limiter: limiter,
		logger:  logging.For(logger, logging.Session, logging.SubCategory("Dispatch")),
		metrics: m,
		tracer:  tracing.GetTracer("github.com/hilthontt/sketchroom/session"),
	}
}

// Handle processes one inbound frame from conn.
func (d *Dispatcher) Handle(ctx context.Context, conn ws.Connection, raw []byte) {
	var envelope ws.Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Type == "" {
		d.fail(conn, "", "", domain.Reject(domain.ErrInvalidInput, "Invalid message format"))
		return
	}

	// Client-chosen types never reach span names or metric labels.
	eventLabel := envelope.Type
	if !ws.IsInbound(eventLabel) {
		eventLabel = ws.UnknownEvent
	}

	ctx, span := d.tracer.Start(ctx, "socket."+eventLabel, trace.WithAttributes(
		attribute.String("sketchroom.connection_id", conn.ID()),
		attribute.String("sketchroom.event_type", eventLabel),
	))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic handling %s: %v", envelope.Type, r)
			span.RecordError(err)
			span.SetStatus(codes.Error, "panic")
			d.logger.Errorw("handler panicked", "event_type", envelope.Type, "connection_id", conn.ID(), "panic", r)
			d.fail(conn, envelope.RoomID, envelope.Type, err)
		}
	}()

	d.metrics.Event(eventLabel)

	if d.limiter != nil {
		if ok, retryAfter := d.limiter.Allow(conn.ID()); !ok {
			d.logger.Warnw("socket rate limited", "connection_id", conn.ID(), "retry_after", retryAfter)
			d.fail(conn, envelope.RoomID, envelope.Type, domain.ErrRateLimited)
			return
		}
	}

	roomID, err := d.route(ctx, conn, envelope)
	if roomID != "" {
		span.SetAttributes(attribute.String("sketchroom.room_id", roomID))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, domain.Code(err))
		d.fail(conn, roomID, envelope.Type, err)
	}
}

func (d *Dispatcher) route(ctx context.Context, conn ws.Connection, envelope ws.Envelope) (string, error) {
	payload, err := decodeFields(envelope.Data)
	if err != nil {
		return envelope.RoomID, err
	}

	roomID, err := payload.roomID(envelope.RoomID)
	if err != nil {
		return envelope.RoomID, err
	}

	switch envelope.Type {
	case ws.RoomJoin:
		userID, err := payload.userID()
		if err != nil {
			return roomID, err
		}
		username, err := payload.username()
		if err != nil {
			return roomID, err
		}
		return roomID, d.service.Join(ctx, conn, JoinInput{RoomID: roomID, UserID: userID, Username: username})

	case ws.RoomLeave:
		return roomID, d.service.Leave(ctx, conn, roomID)

	case ws.ChatMessage:
		text, err := payload.message()
		if err != nil {
			return roomID, err
		}
		username, err := payload.username()
		if err != nil {
			return roomID, err
		}
		return roomID, d.service.PostMessage(ctx, conn, ChatInput{RoomID: roomID, Text: text, Username: username})

	case ws.ChatLoadHistory:
		return roomID, d.service.LoadChatHistory(ctx, conn, roomID)

	case ws.CanvasDraw:
		drawData, err := payload.drawData()
		if err != nil {
			return roomID, err
		}
		return roomID, d.service.Draw(ctx, conn, roomID, drawData)

	case ws.CanvasClearCanvas:
		return roomID, d.service.ClearCanvas(ctx, conn, roomID)

	case ws.CanvasLoadDrawing:
		return roomID, d.service.LoadDrawing(ctx, conn, roomID)

	default:
		return roomID, domain.Reject(domain.ErrInvalidInput, fmt.Sprintf("Unknown event type %q", envelope.Type))
	}
}

// Disconnect runs the once-per-connection cleanup after the socket closed.
func (d *Dispatcher) Disconnect(ctx context.Context, connectionID string) {
	ctx, span := d.tracer.Start(ctx, "socket.disconnect", trace.WithAttributes(
		attribute.String("sketchroom.connection_id", connectionID),
	))
	defer span.End()

	d.service.Disconnect(ctx, connectionID)
	if d.limiter != nil {
		d.limiter.Forget(connectionID)
	}
}

func (d *Dispatcher) fail(conn ws.Connection, roomID, eventType string, err error) {
	code := domain.Code(err)
	d.metrics.Rejection(code)
	d.logger.Warnw("event rejected",
		logging.Fields(map[logging.ExtraKey]any{
			logging.EventType:    eventType,
			logging.RoomID:       roomID,
			logging.ConnectionID: conn.ID(),
			logging.ErrorMessage: err.Error(),
			"code":               code,
		})...,
	)

	if sendErr := conn.Send(ws.NewError(roomID, code, domain.Message(err))); sendErr != nil {
		d.logger.Warnw("error frame not delivered", "connection_id", conn.ID(), "error", sendErr)
	}
}

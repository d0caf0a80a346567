package socket

import (
	"context"
	"net/http"
	"slices"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hilthontt/sketchroom/internal/application/session"
	"github.com/hilthontt/sketchroom/internal/infrastructure/metrics"
	"github.com/hilthontt/sketchroom/internal/infrastructure/ws"
	"go.uber.org/zap"
)

type Options struct {
	ReadBufferSize  int
	WriteBufferSize int
	// AllowedOrigins empty or containing "*" accepts every origin.
	AllowedOrigins []string
	Client         ws.ClientOptions
}

type Handler struct {
	dispatcher *session.Dispatcher
	upgrader   websocket.Upgrader
	client     ws.ClientOptions
	metrics    *metrics.Metrics
	logger     *zap.SugaredLogger
}

func NewHandler(dispatcher *session.Dispatcher, options Options, m *metrics.Metrics, logger *zap.SugaredLogger) *Handler {
	return &Handler{
		dispatcher: dispatcher,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  options.ReadBufferSize,
			WriteBufferSize: options.WriteBufferSize,
			CheckOrigin:     checkOrigin(options.AllowedOrigins),
		},
		client:  options.Client,
		metrics: m,
		logger:  logger,
	}
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}

// HandleConnection upgrades the request and serves the socket until it
// closes. Room membership is established by room:join frames, not by the
// URL.
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.Warnw("websocket upgrade failed", "error", err, "remote_addr", r.RemoteAddr)
		return
	}

	connectionID := uuid.NewString()
	client := ws.NewClient(conn, connectionID, h.client, h.logger.With("connection_id", connectionID))

	// The request context ends with this handler; frames are processed on a
	// context that keeps its values but not its deadline.
	ctx := context.WithoutCancel(r.Context())

	h.metrics.ConnectionOpened()
	h.logger.Debugw("websocket connected", "connection_id", connectionID, "remote_addr", r.RemoteAddr)

	go client.WritePump()
	client.ReadPump(
		func(raw []byte) {
			h.dispatcher.Handle(ctx, client, raw)
		},
		func() {
			h.dispatcher.Disconnect(ctx, connectionID)
			h.metrics.ConnectionClosed()
			h.logger.Debugw("websocket disconnected", "connection_id", connectionID)
		},
	)
}

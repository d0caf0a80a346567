package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hilthontt/sketchroom/internal/application/session"
	"github.com/hilthontt/sketchroom/internal/domain"
	"github.com/hilthontt/sketchroom/internal/infrastructure/configs"
	"github.com/hilthontt/sketchroom/internal/infrastructure/metrics"
	"github.com/hilthontt/sketchroom/internal/infrastructure/ratelimiter"
	"github.com/hilthontt/sketchroom/internal/infrastructure/registry"
	"github.com/hilthontt/sketchroom/internal/infrastructure/repository"
	healthHandler "github.com/hilthontt/sketchroom/internal/presentation/handler/health"
	messagesHandler "github.com/hilthontt/sketchroom/internal/presentation/handler/messages"
	roomHandler "github.com/hilthontt/sketchroom/internal/presentation/handler/rooms"
	socketHandler "github.com/hilthontt/sketchroom/internal/presentation/handler/socket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type testServer struct {
	*httptest.Server
	registry *registry.Registry
	archive  domain.ChatArchive
}

func newTestServer(t *testing.T, limiter ratelimiter.Limiter) *testServer {
	t.Helper()

	logger := zaptest.NewLogger(t).Sugar()
	promRegistry := prometheus.NewRegistry()
	m := metrics.New(promRegistry, promRegistry)

	reg := registry.New(registry.Options{Shards: 4})
	archive := repository.NewMessageArchive(100)
	service := session.NewService(session.Options{
		Registry:    reg,
		Logger:      logger,
		Metrics:     m,
		ChatArchive: archive,
	})
	dispatcher := session.NewDispatcher(service, nil, logger, m)

	app := NewApplication(configs.Config{}, Handlers{
		Rooms:    roomHandler.NewHandler(repository.NewRoomCatalog(10, time.Hour), reg, logger),
		Health:   healthHandler.NewHandler(reg.Stats),
		Messages: messagesHandler.NewHandler(archive, logger),
		Socket:   socketHandler.NewHandler(dispatcher, socketHandler.Options{}, m, logger),
		Metrics:  m.Handler(),
	}, logger, limiter)

	srv := httptest.NewServer(app.Mount())
	t.Cleanup(srv.Close)

	return &testServer{Server: srv, registry: reg, archive: archive}
}

func decode(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)

	for _, path := range []string{"/api/health", "/api/healthz", "/api/ready", "/api/live"} {
		t.Run(path, func(t *testing.T) {
			resp, err := http.Get(srv.URL + path)
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode)

			var body map[string]any
			decode(t, resp, &body)
			assert.Equal(t, "ok", body["status"])
			assert.Equal(t, float64(0), body["rooms"])
		})
	}
}

func TestRoomCatalogEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Post(srv.URL+"/api/rooms", "application/json", strings.NewReader(`{"roomId":"r1","name":"sketch"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created map[string]any
	decode(t, resp, &created)
	assert.Equal(t, "r1", created["roomId"])

	resp, err = http.Post(srv.URL+"/api/rooms", "application/json", strings.NewReader(`{"roomId":"r1"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Post(srv.URL+"/api/rooms", "application/json", strings.NewReader(`{"unknown":true}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Post(srv.URL+"/api/rooms", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var generated map[string]any
	decode(t, resp, &generated)
	assert.NotEmpty(t, generated["roomId"])

	resp, err = http.Get(srv.URL + "/api/rooms/r1")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var fetched map[string]any
	decode(t, resp, &fetched)
	assert.Equal(t, "sketch", fetched["name"])
	assert.Equal(t, float64(0), fetched["memberCount"])

	resp, err = http.Get(srv.URL + "/api/rooms/nope")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestListMessages(t *testing.T) {
	srv := newTestServer(t, nil)
	ctx := context.Background()
	for _, text := range []string{"one", "two", "three"} {
		require.NoError(t, srv.archive.SaveMessage(ctx, domain.ChatEvent{ID: text, RoomID: "r1", Text: text, DisplayName: "a", UserID: 1}))
	}

	resp, err := http.Get(srv.URL + "/api/rooms/r1/messages?limit=2")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Messages []struct {
			Message string `json:"message"`
		} `json:"messages"`
	}
	decode(t, resp, &body)
	require.Len(t, body.Messages, 2)
	assert.Equal(t, "two", body.Messages[0].Message)
	assert.Equal(t, "three", body.Messages[1].Message)

	resp, err = http.Get(srv.URL + "/api/rooms/r1/messages?limit=zero")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestCorsPreflight(t *testing.T) {
	srv := newTestServer(t, nil)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/rooms", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRateLimiterMiddleware(t *testing.T) {
	limiter := ratelimiter.New(ratelimiter.Options{MaxRatePerSecond: 1, MaxBurst: 1})
	srv := newTestServer(t, limiter)

	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("Retry-After"))
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, buf.String(), "sketchroom_rooms")
}

type frame struct {
	Type   string          `json:"type"`
	RoomID string          `json:"roomId"`
	Data   json.RawMessage `json:"data"`
}

func dial(t *testing.T, srv *testServer) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, eventType string, data any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{"type": eventType, "data": data}))
}

// next reads frames until one of the wanted type arrives.
func next(t *testing.T, conn *websocket.Conn, eventType string) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var f frame
		require.NoError(t, conn.ReadJSON(&f))
		if f.Type == eventType {
			return f
		}
	}
}

func memberCount(t *testing.T, f frame) int {
	t.Helper()
	var payload struct {
		MemberCount int `json:"memberCount"`
	}
	require.NoError(t, json.Unmarshal(f.Data, &payload))
	return payload.MemberCount
}

func TestWebSocketSession(t *testing.T) {
	srv := newTestServer(t, nil)
	alice := dial(t, srv)
	bob := dial(t, srv)

	send(t, alice, "room:join", map[string]any{"roomId": "r1", "userId": 1, "username": "alice"})
	assert.Equal(t, 1, memberCount(t, next(t, alice, "room:userJoined")))

	send(t, bob, "room:join", map[string]any{"roomId": "r1", "userId": 2, "username": "bob"})
	assert.Equal(t, 2, memberCount(t, next(t, alice, "room:userJoined")))
	assert.Equal(t, 2, memberCount(t, next(t, bob, "room:userJoined")))

	send(t, bob, "chat:message", map[string]any{"roomId": "r1", "message": "hello", "username": "bob"})
	for _, conn := range []*websocket.Conn{alice, bob} {
		f := next(t, conn, "chat:message")
		var msg map[string]any
		require.NoError(t, json.Unmarshal(f.Data, &msg))
		assert.Equal(t, "hello", msg["message"])
		assert.Equal(t, "bob", msg["username"])
	}

	send(t, alice, "canvas:draw", map[string]any{"roomId": "r1", "drawData": map[string]any{"x": 1, "y": 2, "tool": "pen"}})
	draw := next(t, bob, "canvas:draw")
	assert.JSONEq(t, `{"x":1,"y":2,"tool":"pen"}`, string(draw.Data))

	send(t, alice, "room:join", map[string]any{"roomId": "r1", "userId": 1, "username": "alice"})
	errFrame := next(t, alice, "error")
	assert.Contains(t, string(errFrame.Data), "ALREADY_MEMBER")

	require.NoError(t, bob.Close())
	assert.Equal(t, 1, memberCount(t, next(t, alice, "room:userLeft")))

	send(t, alice, "canvas:loadDrawing", map[string]any{"roomId": "r1"})
	loaded := next(t, alice, "canvas:loadDrawing")
	var strokes []map[string]any
	require.NoError(t, json.Unmarshal(loaded.Data, &strokes))
	require.Len(t, strokes, 1)
	assert.Equal(t, float64(1), strokes[0]["userId"])

	require.NoError(t, alice.Close())
	require.Eventually(t, func() bool {
		rooms, _ := srv.registry.Stats()
		return rooms == 0
	}, 5*time.Second, 10*time.Millisecond)
}

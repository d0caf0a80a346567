package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newServerClient starts a server that wraps each upgraded socket in a
// Client and hands it to run.
func newServerClient(t *testing.T, options ClientOptions, run func(*Client)) *websocket.Conn {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		run(NewClient(conn, "conn-1", options, zap.NewNop().Sugar()))
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	peer, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = peer.Close() })

	return peer
}

func TestClientEchoesFramesThroughPumps(t *testing.T) {
	peer := newServerClient(t, ClientOptions{}, func(c *Client) {
		go c.WritePump()
		c.ReadPump(func(raw []byte) {
			_ = c.Send(&WSMessage{Type: "echo", Data: string(raw)})
		}, func() {})
	})

	require.NoError(t, peer.WriteMessage(websocket.TextMessage, []byte("hello")))

	var got WSMessage
	require.NoError(t, peer.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, peer.ReadJSON(&got))
	assert.Equal(t, "echo", got.Type)
	assert.Equal(t, "hello", got.Data)
}

func TestClientDisconnectRunsOnce(t *testing.T) {
	var calls atomic.Int32
	done := make(chan *Client, 1)

	peer := newServerClient(t, ClientOptions{}, func(c *Client) {
		go c.WritePump()
		c.ReadPump(func([]byte) {}, func() { calls.Add(1) })
		c.Close()
		done <- c
	})

	require.NoError(t, peer.Close())

	select {
	case c := <-done:
		assert.True(t, c.IsClosed())
		assert.ErrorIs(t, c.Send(&WSMessage{Type: "late"}), ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("read pump did not return after peer closed")
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestClientSendDoesNotBlockWhenFull(t *testing.T) {
	result := make(chan error, 1)

	newServerClient(t, ClientOptions{SendBufferSize: 1}, func(c *Client) {
		// No write pump: the buffer never drains.
		assert.NoError(t, c.Send(&WSMessage{Type: "first"}))
		result <- c.Send(&WSMessage{Type: "second"})
		c.Close()
	})

	select {
	case err := <-result:
		assert.ErrorIs(t, err, ErrBufferFull)
	case <-time.After(2 * time.Second):
		t.Fatal("send blocked on a full buffer")
	}
}

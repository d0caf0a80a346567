package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var (
	ErrBufferFull = errors.New("send buffer full")
	ErrClosed     = errors.New("connection closed")
)

// Connection is the registry's view of a live socket.
type Connection interface {
	ID() string
	// Send enqueues msg without blocking.
	Send(msg *WSMessage) error
}

type ClientOptions struct {
	SendBufferSize int
	MaxMessageSize int64
	PongWait       time.Duration
	WriteWait      time.Duration
}

func (o ClientOptions) withDefaults() ClientOptions {
	if o.SendBufferSize <= 0 {
		o.SendBufferSize = 256
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = 64 * 1024
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	return o
}

type Client struct {
	conn    *connWrapper
	raw     *websocket.Conn
	send    chan *WSMessage
	id      string
	options ClientOptions
	logger  *zap.SugaredLogger

	closeOnce      sync.Once
	disconnectOnce sync.Once
	closed         chan struct{}
}

func NewClient(conn *websocket.Conn, id string, options ClientOptions, logger *zap.SugaredLogger) *Client {
	options = options.withDefaults()

	return &Client{
		conn:    newConnWrapper(conn, options.WriteWait),
		raw:     conn,
		send:    make(chan *WSMessage, options.SendBufferSize),
		id:      id,
		options: options,
		logger:  logger.With("connection_id", id),
		closed:  make(chan struct{}),
	}
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) Send(msg *WSMessage) error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}

	select {
	case c.send <- msg:
		return nil
	case <-c.closed:
		return ErrClosed
	default:
		return ErrBufferFull
	}
}

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.conn.Close()
	})
}

func (c *Client) IsClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// ReadPump blocks until the socket fails or is closed, passing every text
// frame to onFrame. onDisconnect runs exactly once afterwards.
func (c *Client) ReadPump(onFrame func(raw []byte), onDisconnect func()) {
	defer func() {
		c.Close()
		c.disconnectOnce.Do(onDisconnect)
	}()

	c.raw.SetReadLimit(c.options.MaxMessageSize)
	_ = c.raw.SetReadDeadline(time.Now().Add(c.options.PongWait))
	c.raw.SetPongHandler(func(string) error {
		return c.raw.SetReadDeadline(time.Now().Add(c.options.PongWait))
	})

	for {
		messageType, raw, err := c.raw.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Warnw("ws read error", "error", err)
			}
			return
		}

		if messageType != websocket.TextMessage || len(raw) == 0 {
			continue
		}

		onFrame(raw)
	}
}

// WritePump drains the send buffer and keeps the peer alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.options.PongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Warnw("ws write error", "error", err)
				return
			}

		case <-ticker.C:
			if err := c.conn.WritePing(); err != nil {
				c.logger.Debugw("ping error", "error", err)
				return
			}

		case <-c.closed:
			_ = c.conn.WriteClose()
			return
		}
	}
}

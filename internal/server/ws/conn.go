package ws

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/dmitrijs2005/gophchat/internal/server/presence"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = pongWait * 9 / 10
	maxFrameSize = 64 << 10
)

// client is one live connection. Outbound frames are queued on out and
// written by a single writer goroutine; the read loop runs on the handler
// goroutine.
type client struct {
	handle string
	conn   *websocket.Conn
	out    chan presence.Event
	done   chan struct{}
	once   sync.Once
	logger logging.Logger
}

var _ presence.Conn = (*client)(nil)

func newClient(conn *websocket.Conn, buffer int, l logging.Logger) *client {
	if buffer <= 0 {
		buffer = 1
	}
	handle := uuid.NewString()
	return &client{
		handle: handle,
		conn:   conn,
		out:    make(chan presence.Event, buffer),
		done:   make(chan struct{}),
		logger: l.With("handle", handle),
	}
}

func (c *client) Handle() string { return c.handle }

// Send never blocks; a full queue or a closed connection drops ev.
func (c *client) Send(ev presence.Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.out <- ev:
		return true
	default:
		return false
	}
}

// Close is idempotent and safe to call from any goroutine.
func (c *client) Close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
		_ = c.conn.Close()
	})
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case ev := <-c.out:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				c.logger.Debug(context.Background(), "write failed", "error", err)
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.Close()
				return
			}
		}
	}
}

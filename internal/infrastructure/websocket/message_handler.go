package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"

	"courtside/internal/usecase"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
)

var ErrClientClosed = errors.New("websocket: client closed")

// Client is one WebSocket connection. It is the event sink of its sync
// session.
type Client struct {
	UserID string
	sess   *usecase.Session
	conn   *websocket.Conn
	send   chan []byte
	closed chan struct{}
}

func newClient(sess *usecase.Session, conn *websocket.Conn) *Client {
	return &Client{
		UserID: sess.UserID,
		sess:   sess,
		conn:   conn,
		send:   make(chan []byte, 32),
		closed: make(chan struct{}),
	}
}

// Send queues ev for the write pump. It blocks while the queue is full.
func (c *Client) Send(ctx context.Context, ev usecase.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	select {
	case c.send <- payload:
		return nil
	case <-c.closed:
		return ErrClientClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// readPump decodes client frames into commands. It closes commands when the
// peer goes away.
func (c *Client) readPump(ctx context.Context, commands chan<- usecase.Command) {
	defer close(commands)

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && ctx.Err() == nil {
				c.sess.Log.Warn("WebSocket read error: %v", err)
			}
			return
		}

		var cmd usecase.Command
		if err := json.Unmarshal(message, &cmd); err != nil || cmd.Type == "" {
			c.sess.Log.Debug("WebSocket: invalid frame from %s: %v", c.UserID, err)
			c.Send(ctx, usecase.Event{
				Type:  usecase.EventError,
				Error: &usecase.EventErrorBody{Code: "BAD_REQUEST", Message: "Invalid message format"},
			})
			continue
		}

		select {
		case commands <- cmd:
		case <-ctx.Done():
			return
		}
	}
}

// writePump writes queued events and keeps the connection alive with pings.
// It closes the connection when ctx ends.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(c.closed)
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.sess.Log.Warn("WebSocket write error: %v", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-ctx.Done():
			c.flush()
			c.conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait),
			)
			return
		}
	}
}

// flush writes whatever is still queued, best effort.
func (c *Client) flush() {
	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		default:
			return
		}
	}
}

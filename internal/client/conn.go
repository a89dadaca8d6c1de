package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"broadside/internal/protocol"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// Conn is a websocket transport to the relay. It implements Sender.
type Conn struct {
	ws *websocket.Conn
	mu sync.Mutex

	// FrameErrors, when set, receives frames the adapter could not apply.
	FrameErrors func(error)
}

func Dial(ctx context.Context, url string) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return &Conn{ws: ws}, nil
}

func (c *Conn) Send(event string, payload any) error {
	frame, err := protocol.Encode(event, payload)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, frame)
}

// Run feeds server frames into a until the connection ends or ctx is done.
// A normal close from the server returns nil.
func (c *Conn) Run(ctx context.Context, a *Adapter) error {
	stop := context.AfterFunc(ctx, func() { _ = c.ws.Close() })
	defer stop()
	for {
		_, msg, err := c.ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			a.ConnectionLost()
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		// A frame the adapter cannot apply is skipped; failing to answer
		// one ends the loop like any other transport failure.
		if err := a.HandleFrame(msg); err != nil {
			if errors.Is(err, ErrSendFailed) {
				a.ConnectionLost()
				return err
			}
			if c.FrameErrors != nil {
				c.FrameErrors(err)
			}
		}
	}
}

func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	return c.ws.Close()
}

package registry

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	closeWait = time.Second
)

var _ Handle = (*WebsocketHandle)(nil)

// WebsocketHandle serialises writes to a single websocket connection.
type WebsocketHandle struct {
	conn      *websocket.Conn
	mu        sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func NewWebsocketHandle(conn *websocket.Conn) *WebsocketHandle {
	return &WebsocketHandle{conn: conn}
}

func (h *WebsocketHandle) Send(ctx context.Context, msg []byte) error {
	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}

	return h.conn.WriteMessage(websocket.TextMessage, msg)
}

// Ping writes a ping control frame.
func (h *WebsocketHandle) Ping() error {
	return h.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (h *WebsocketHandle) Close() error {
	h.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "connection replaced")
		_ = h.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWait))
		h.closeErr = h.conn.Close()
	})

	return h.closeErr
}

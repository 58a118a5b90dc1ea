package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/absmach/flcoord/coordinator"
	"github.com/absmach/flcoord/pkg/api"
	"github.com/absmach/flcoord/pkg/auth"
	"github.com/absmach/flcoord/pkg/fl"
	"github.com/absmach/flcoord/pkg/registry"
	"github.com/gorilla/websocket"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	msgSubmission = "submission"
	msgAck        = "ack"
	msgError      = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsMessage is the envelope of frames exchanged with a connected client.
type wsMessage struct {
	Type   string    `json:"type"`
	Round  uint64    `json:"round,omitempty"`
	Params []float64 `json:"params,omitempty"`
	Error  string    `json:"error,omitempty"`
}

func websocketHandler(svc coordinator.Service, identifier auth.Identifier, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID, err := identifier.Identify(r)
		if err != nil {
			api.EncodeError(r.Context(), err, w)

			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("Websocket upgrade failed", slog.String("client_id", clientID), slog.Any("error", err))

			return
		}

		// The request context is tied to the upgrade, not to the connection.
		ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
		defer cancel()

		handle := registry.NewWebsocketHandle(conn)
		if err := svc.Connect(ctx, clientID, handle); err != nil {
			_ = handle.Close()

			return
		}
		defer func() {
			if err := svc.Disconnect(ctx, clientID, handle); err != nil {
				logger.Warn("Failed to disconnect websocket client", slog.String("client_id", clientID), slog.Any("error", err))
			}
			_ = handle.Close()
		}()

		go keepAlive(ctx, handle)

		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		conn.SetReadLimit(maxBodySize)

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Debug("Websocket read failed", slog.String("client_id", clientID), slog.Any("error", err))
				}

				return
			}

			reply := handleFrame(ctx, svc, clientID, data)
			msg, err := json.Marshal(reply)
			if err != nil {
				continue
			}
			if err := handle.Send(ctx, msg); err != nil {
				return
			}
		}
	}
}

func handleFrame(ctx context.Context, svc coordinator.Service, clientID string, data []byte) wsMessage {
	var in wsMessage
	if err := json.Unmarshal(data, &in); err != nil {
		return wsMessage{Type: msgError, Error: "invalid message format"}
	}

	switch in.Type {
	case msgSubmission:
		err := svc.SubmitUpdate(ctx, fl.Submission{
			Round:    in.Round,
			ClientID: clientID,
			Params:   in.Params,
		})
		if err != nil {
			return wsMessage{Type: msgError, Round: in.Round, Error: err.Error()}
		}

		return wsMessage{Type: msgAck, Round: in.Round}
	default:
		return wsMessage{Type: msgError, Error: "unknown message type: " + in.Type}
	}
}

func keepAlive(ctx context.Context, handle *registry.WebsocketHandle) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := handle.Ping(); err != nil {
				return
			}
		}
	}
}

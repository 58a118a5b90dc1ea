package sdk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

const (
	MessageRoundStart = "round_start"
	MessageAck        = "ack"
	MessageError      = "error"

	wsEndpoint = "/ws"
)

// Message is a frame received from the coordinator over a websocket.
type Message struct {
	Type    string `json:"type"`
	Round   uint64 `json:"round"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Participant is a training client connected to the coordinator over a
// websocket. Reads must come from a single goroutine.
type Participant struct {
	clientID string
	conn     *websocket.Conn
	mu       sync.Mutex
}

// Dial connects clientID to the coordinator at coordinatorURL. Both http(s)
// and ws(s) schemes are accepted.
func Dial(ctx context.Context, coordinatorURL, clientID string) (*Participant, error) {
	u, err := url.Parse(coordinatorURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + wsEndpoint
	q := u.Query()
	q.Set("client_id", clientID)
	u.RawQuery = q.Encode()

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket handshake failed with status %d: %w", resp.StatusCode, err)
		}

		return nil, err
	}

	return &Participant{clientID: clientID, conn: conn}, nil
}

func (p *Participant) ClientID() string {
	return p.clientID
}

// Read blocks until the next frame arrives.
func (p *Participant) Read() (Message, error) {
	_, data, err := p.conn.ReadMessage()
	if err != nil {
		return Message{}, err
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, err
	}

	return msg, nil
}

// WaitRound reads frames until a round start arrives.
func (p *Participant) WaitRound() (Message, error) {
	for {
		msg, err := p.Read()
		if err != nil {
			return Message{}, err
		}
		if msg.Type == MessageRoundStart {
			return msg, nil
		}
	}
}

// Submit uploads params for round. The coordinator answers with an ack or
// error frame.
func (p *Participant) Submit(round uint64, params []float64) error {
	data, err := json.Marshal(struct {
		Type   string    `json:"type"`
		Round  uint64    `json:"round"`
		Params []float64 `json:"params"`
	}{
		Type:   "submission",
		Round:  round,
		Params: params,
	})
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	return p.conn.WriteMessage(websocket.TextMessage, data)
}

func (p *Participant) Close() error {
	p.mu.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = p.conn.WriteMessage(websocket.CloseMessage, msg)
	p.mu.Unlock()

	return p.conn.Close()
}

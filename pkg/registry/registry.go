// Package registry tracks the clients that currently hold a live connection
// to the coordinator and delivers messages to them.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	pkgerrors "github.com/absmach/flcoord/pkg/errors"
)

// Handle is a send-capable connection to one client.
type Handle interface {
	Send(ctx context.Context, msg []byte) error
	Close() error
}

type Conn struct {
	ClientID    string
	Handle      Handle
	ConnectedAt time.Time
}

type Registry struct {
	mu     sync.RWMutex
	conns  map[string]Conn
	logger *slog.Logger
}

func New(logger *slog.Logger) *Registry {
	return &Registry{
		conns:  make(map[string]Conn),
		logger: logger,
	}
}

// Register inserts the connection for clientID, replacing and closing any
// previous one.
func (r *Registry) Register(clientID string, handle Handle) {
	r.mu.Lock()
	old, replaced := r.conns[clientID]
	r.conns[clientID] = Conn{
		ClientID:    clientID,
		Handle:      handle,
		ConnectedAt: time.Now().UTC(),
	}
	r.mu.Unlock()

	if replaced && old.Handle != handle {
		r.closeHandle(clientID, old.Handle)
	}
}

// Unregister removes clientID. Unknown ids are ignored.
func (r *Registry) Unregister(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.conns, clientID)
}

// UnregisterHandle removes clientID only while handle is still its current
// connection, so a dropped connection cannot evict its replacement.
func (r *Registry) UnregisterHandle(clientID string, handle Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[clientID]
	if !ok || c.Handle != handle {
		return false
	}
	delete(r.conns, clientID)

	return true
}

// LiveClients returns a sorted snapshot of connected client ids.
func (r *Registry) LiveClients() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Strings(ids)

	return ids
}

func (r *Registry) Get(clientID string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.conns[clientID]

	return c, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.conns)
}

// Send delivers msg to clientID without waiting for any acknowledgement.
func (r *Registry) Send(ctx context.Context, clientID string, msg []byte) error {
	c, ok := r.Get(clientID)
	if !ok {
		return fmt.Errorf("%w: %s", pkgerrors.ErrNotConnected, clientID)
	}

	if err := c.Handle.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send to client %s: %w", clientID, err)
	}

	return nil
}

// Close drops every connection and closes its handle.
func (r *Registry) Close() {
	r.mu.Lock()
	conns := r.conns
	r.conns = make(map[string]Conn)
	r.mu.Unlock()

	for id, c := range conns {
		r.closeHandle(id, c.Handle)
	}
}

func (r *Registry) closeHandle(clientID string, h Handle) {
	if h == nil {
		return
	}
	if err := h.Close(); err != nil {
		r.logger.Warn("Failed to close client connection",
			slog.String("client_id", clientID),
			slog.Any("error", err),
		)
	}
}

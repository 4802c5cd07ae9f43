package registry

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Conn is a live delivery target. Send must not block; a send that cannot
// be accepted (peer gone, buffer full) returns an error and the registry
// drops the connection.
type Conn interface {
	ID() uuid.UUID
	Send(payload []byte) error
}

type entry struct {
	conn   Conn
	chatID int64
	userID int64
}

// Registry tracks which live connections belong to which chat and user.
// Connections are stored once, keyed by connection id; the chat and user
// indexes hold only ids, so removal never leaves a dangling duplicate.
// All mutation and iteration is serialized through a single RWMutex.
type Registry struct {
	mu     sync.RWMutex
	conns  map[uuid.UUID]*entry
	byChat map[int64]map[uuid.UUID]struct{}
	byUser map[int64]map[uuid.UUID]struct{}
	logger *slog.Logger

	onDeliver func(delivered int)
}

// SetDeliveryHook installs a callback invoked after each fan-out with the
// number of connections reached, used for metrics.
func (r *Registry) SetDeliveryHook(fn func(delivered int)) {
	r.onDeliver = fn
}

func New(logger *slog.Logger) *Registry {
	return &Registry{
		conns:  make(map[uuid.UUID]*entry),
		byChat: make(map[int64]map[uuid.UUID]struct{}),
		byUser: make(map[int64]map[uuid.UUID]struct{}),
		logger: logger,
	}
}

// Connect registers conn under both the chat and the user index.
// Registering the same connection for the same chat twice is a no-op.
func (r *Registry) Connect(chatID, userID int64, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := conn.ID()
	if existing, ok := r.conns[id]; ok && existing.chatID == chatID {
		return
	}

	r.conns[id] = &entry{conn: conn, chatID: chatID, userID: userID}

	if r.byChat[chatID] == nil {
		r.byChat[chatID] = make(map[uuid.UUID]struct{})
	}
	r.byChat[chatID][id] = struct{}{}

	if r.byUser[userID] == nil {
		r.byUser[userID] = make(map[uuid.UUID]struct{})
	}
	r.byUser[userID][id] = struct{}{}

	r.logger.Debug("connection registered", "connID", id, "chatID", chatID, "userID", userID)
}

// Disconnect removes conn from both indexes and prunes index entries that
// became empty. Disconnecting an unknown connection is a no-op.
func (r *Registry) Disconnect(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remove(conn.ID())
}

func (r *Registry) remove(id uuid.UUID) {
	e, ok := r.conns[id]
	if !ok {
		return
	}
	delete(r.conns, id)

	if ids, ok := r.byChat[e.chatID]; ok {
		delete(ids, id)
		if len(ids) == 0 {
			delete(r.byChat, e.chatID)
		}
	}
	if ids, ok := r.byUser[e.userID]; ok {
		delete(ids, id)
		if len(ids) == 0 {
			delete(r.byUser, e.userID)
		}
	}

	r.logger.Debug("connection removed", "connID", id, "chatID", e.chatID, "userID", e.userID)
}

// Broadcast delivers payload to every connection registered under chatID
// and returns the number of successful deliveries. A failing recipient is
// disconnected as a side effect; the rest still receive the payload.
func (r *Registry) Broadcast(chatID int64, payload []byte) int {
	r.mu.RLock()
	targets := r.collect(r.byChat[chatID])
	r.mu.RUnlock()

	return r.deliver(targets, payload)
}

// SendToUser delivers payload to every connection registered under userID,
// across all chats the user has open. Same failure isolation as Broadcast.
func (r *Registry) SendToUser(userID int64, payload []byte) int {
	r.mu.RLock()
	targets := r.collect(r.byUser[userID])
	r.mu.RUnlock()

	return r.deliver(targets, payload)
}

func (r *Registry) collect(ids map[uuid.UUID]struct{}) []Conn {
	targets := make([]Conn, 0, len(ids))
	for id := range ids {
		if e, ok := r.conns[id]; ok {
			targets = append(targets, e.conn)
		}
	}
	return targets
}

func (r *Registry) deliver(targets []Conn, payload []byte) int {
	delivered := 0
	var failed []Conn

	for _, c := range targets {
		if err := c.Send(payload); err != nil {
			r.logger.Warn("dropping unreachable connection", "connID", c.ID(), "error", err)
			failed = append(failed, c)
			continue
		}
		delivered++
	}

	if len(failed) > 0 {
		r.mu.Lock()
		for _, c := range failed {
			r.remove(c.ID())
		}
		r.mu.Unlock()
	}

	if r.onDeliver != nil && delivered > 0 {
		r.onDeliver(delivered)
	}

	return delivered
}

// Len reports the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

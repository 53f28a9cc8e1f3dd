// Package presence tracks which users are online and the live connection
// each of them is reachable on.
package presence

import (
	"context"
	"slices"
	"sync"

	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/dmitrijs2005/gophchat/internal/server/metrics"
	"github.com/samber/lo"
)

// Conn is a live connection as seen by the registry.
type Conn interface {
	// Handle identifies the connection; unique per transport connection.
	Handle() string
	// Send enqueues ev without blocking. It reports false when the event was
	// dropped (queue full or connection closing).
	Send(ev Event) bool
	// Close terminates the connection.
	Close()
}

// Registry maps online users to their connection.
//
// One entry per user, last join wins. Removal is keyed by connection handle
// through a handle->user index, so a stale disconnect never evicts a newer
// connection of the same user. Online-set broadcasts are sent after the
// mutation is committed, outside mu, in commit order.
type Registry struct {
	// bmu orders broadcasts; always taken before mu.
	bmu sync.Mutex
	mu  sync.RWMutex

	byUser    map[int64]Conn
	byHandle  map[string]int64
	listeners map[string]Conn
	closed    bool

	logger  logging.Logger
	metrics *metrics.Metrics
}

// New creates an empty registry. m may be nil.
func New(l logging.Logger, m *metrics.Metrics) *Registry {
	return &Registry{
		byUser:    make(map[int64]Conn),
		byHandle:  make(map[string]int64),
		listeners: make(map[string]Conn),
		logger:    l.With("module", "presence"),
		metrics:   m,
	}
}

// Attach registers c as a broadcast listener. It reports false once the
// registry is closed; the caller should then drop the connection.
func (r *Registry) Attach(c Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return false
	}
	r.listeners[c.Handle()] = c
	r.metrics.IncConnections()
	return true
}

// Join makes c the connection of userID, replacing any previous one, and
// broadcasts the online set to every listener.
func (r *Registry) Join(userID int64, c Conn) {
	r.bmu.Lock()
	defer r.bmu.Unlock()

	handle := c.Handle()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}

	// the handle was joined under a different user before
	if prev, ok := r.byHandle[handle]; ok && prev != userID {
		if cur, ok := r.byUser[prev]; ok && cur.Handle() == handle {
			delete(r.byUser, prev)
		}
	}
	// the user's previous connection loses its index entry
	if old, ok := r.byUser[userID]; ok && old.Handle() != handle {
		delete(r.byHandle, old.Handle())
	}

	r.byUser[userID] = c
	r.byHandle[handle] = userID
	if _, ok := r.listeners[handle]; !ok {
		r.listeners[handle] = c
		r.metrics.IncConnections()
	}
	online, targets := r.snapshotLocked()
	r.mu.Unlock()

	r.logger.Debug(context.Background(), "user joined", "user_id", userID, "handle", handle)
	r.broadcast(online, targets)
}

// Leave detaches the connection with handle. The user it was joined under
// goes offline only if handle is still that user's current connection; a
// stale or unknown handle changes nothing and broadcasts nothing.
func (r *Registry) Leave(handle string) {
	r.bmu.Lock()
	defer r.bmu.Unlock()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}

	if _, ok := r.listeners[handle]; ok {
		delete(r.listeners, handle)
		r.metrics.DecConnections()
	}

	userID, ok := r.byHandle[handle]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.byHandle, handle)

	cur, ok := r.byUser[userID]
	if !ok || cur.Handle() != handle {
		r.mu.Unlock()
		return
	}
	delete(r.byUser, userID)
	online, targets := r.snapshotLocked()
	r.mu.Unlock()

	r.logger.Debug(context.Background(), "user left", "user_id", userID, "handle", handle)
	r.broadcast(online, targets)
}

// Lookup returns the current connection of userID.
func (r *Registry) Lookup(userID int64) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byUser[userID]
	return c, ok
}

// Online returns the online user ids in ascending order.
func (r *Registry) Online() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.onlineLocked()
}

// Close empties the registry and closes every attached connection.
// Subsequent calls are no-ops.
func (r *Registry) Close() {
	r.bmu.Lock()
	defer r.bmu.Unlock()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	conns := lo.Values(r.listeners)
	r.byUser = make(map[int64]Conn)
	r.byHandle = make(map[string]int64)
	r.listeners = make(map[string]Conn)
	r.mu.Unlock()

	r.metrics.SetOnlineUsers(0)
	for _, c := range conns {
		r.metrics.DecConnections()
		c.Close()
	}
	r.logger.Info(context.Background(), "presence registry closed", "connections", len(conns))
}

func (r *Registry) onlineLocked() []int64 {
	ids := lo.Keys(r.byUser)
	slices.Sort(ids)
	return ids
}

func (r *Registry) snapshotLocked() ([]int64, []Conn) {
	return r.onlineLocked(), lo.Values(r.listeners)
}

// broadcast must be called with bmu held and mu released.
func (r *Registry) broadcast(online []int64, targets []Conn) {
	ev := Event{Type: EventOnlineUsers, Payload: OnlineUsersPayload{UserIDs: online}}
	dropped := 0
	for _, c := range targets {
		if !c.Send(ev) {
			dropped++
		}
	}
	r.metrics.SetOnlineUsers(len(online))
	r.metrics.RecordBroadcast(dropped)
}

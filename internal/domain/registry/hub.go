package registry

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/healis/realtime-service/internal/domain/model"
)

// ErrNotFound is returned by Lookup for connection ids that were never
// registered or have already been removed.
var ErrNotFound = errors.New("registry: connection not found")

// Registrar defines the gateway for connection bookkeeping and
// broadcast-time identity resolution.
type Registrar interface {
	Register(conn Connector)
	Lookup(connID uuid.UUID) (model.Identity, error)
	Get(connID uuid.UUID) (Connector, bool)
	Remove(connID uuid.UUID) bool
	ForEach(fn func(conn Connector) bool)
	Len() int
	Shutdown()
}

// Registry is the canonical table of live, authenticated connections.
// A connection id appears here if and only if its credential has been
// verified; the ws handler registers only after the auth gate admits.
type Registry struct {
	// conns stores Map[uuid.UUID]Connector. Optimized for [READ_HEAVY]
	// broadcast scans over registration churn.
	conns sync.Map

	// size tracks live entries; sync.Map has no O(1) length.
	size atomic.Int64
}

var _ Registrar = (*Registry)(nil)

func NewRegistry() *Registry {
	return &Registry{}
}

// Register admits an authenticated connection into the table.
func (r *Registry) Register(conn Connector) {
	if _, loaded := r.conns.LoadOrStore(conn.GetID(), conn); !loaded {
		r.size.Add(1)
	}
}

// Lookup resolves the verified identity behind a connection id.
func (r *Registry) Lookup(connID uuid.UUID) (model.Identity, error) {
	if val, ok := r.conns.Load(connID); ok {
		return val.(Connector).GetIdentity(), nil
	}
	return model.Identity{}, ErrNotFound
}

// Get returns the live connection handle, if any. Broadcast resolution
// goes through here: an id removed by a concurrent disconnect simply
// misses and is skipped.
func (r *Registry) Get(connID uuid.UUID) (Connector, bool) {
	if val, ok := r.conns.Load(connID); ok {
		return val.(Connector), true
	}
	return nil, false
}

// Remove deletes the connection from the table. It reports whether an
// entry existed, and is idempotent: disconnect may race shutdown.
// Callers remove from the registry BEFORE clearing room membership so
// there is no window in which a dead id is still targetable.
func (r *Registry) Remove(connID uuid.UUID) bool {
	if _, loaded := r.conns.LoadAndDelete(connID); loaded {
		r.size.Add(-1)
		return true
	}
	return false
}

// ForEach visits every live connection. Returning false stops the walk.
// Used for role/user/all-connections target resolution at broadcast time.
func (r *Registry) ForEach(fn func(conn Connector) bool) {
	r.conns.Range(func(_, val any) bool {
		return fn(val.(Connector))
	})
}

func (r *Registry) Len() int {
	return int(r.size.Load())
}

// Shutdown performs [GRACEFUL_RECLAMATION]: every connection is closed
// and the table emptied. Safe to call once at process teardown.
func (r *Registry) Shutdown() {
	r.conns.Range(func(key, val any) bool {
		val.(Connector).Close()
		r.conns.Delete(key)
		r.size.Add(-1)
		return true
	})
}

package registry

import (
	"log/slog"
	"sync"

	"github.com/mcoot/gobang-online/internal/model"
)

// Conn is a live transport channel to one user. The registry holds it
// without owning it; Send is best-effort.
type Conn interface {
	Send(payload []byte) error
}

// Registry tracks which connection reaches which user, separately for the
// hall and the room context. It does not enforce exclusivity between the two.
type Registry struct {
	mu     sync.RWMutex
	hall   map[model.UserID]Conn
	room   map[model.UserID]Conn
	logger *slog.Logger
}

// New creates an empty registry
func New(logger *slog.Logger) *Registry {
	return &Registry{
		hall:   make(map[model.UserID]Conn),
		room:   make(map[model.UserID]Conn),
		logger: logger.With(slog.String("component", "registry")),
	}
}

func (r *Registry) table(ctx model.PresenceContext) map[model.UserID]Conn {
	if ctx == model.ContextRoom {
		return r.room
	}
	return r.hall
}

// Enter records uid as present in ctx. Entering again replaces the handle.
func (r *Registry) Enter(ctx model.PresenceContext, uid model.UserID, conn Conn) {
	r.mu.Lock()
	r.table(ctx)[uid] = conn
	r.mu.Unlock()

	r.logger.Debug("user entered",
		slog.String("context", string(ctx)),
		slog.Uint64("uid", uint64(uid)))
}

// EnterIfAbsent records uid in ctx unless it is already there. It reports
// whether conn was entered.
func (r *Registry) EnterIfAbsent(ctx model.PresenceContext, uid model.UserID, conn Conn) bool {
	r.mu.Lock()
	t := r.table(ctx)
	if _, ok := t[uid]; ok {
		r.mu.Unlock()
		return false
	}
	t[uid] = conn
	r.mu.Unlock()

	r.logger.Debug("user entered",
		slog.String("context", string(ctx)),
		slog.Uint64("uid", uint64(uid)))
	return true
}

// EnterIfOffline records uid in ctx only while it is present in neither
// context
func (r *Registry) EnterIfOffline(ctx model.PresenceContext, uid model.UserID, conn Conn) bool {
	r.mu.Lock()
	_, inHall := r.hall[uid]
	_, inRoom := r.room[uid]
	if inHall || inRoom {
		r.mu.Unlock()
		return false
	}
	r.table(ctx)[uid] = conn
	r.mu.Unlock()

	r.logger.Debug("user entered",
		slog.String("context", string(ctx)),
		slog.Uint64("uid", uint64(uid)))
	return true
}

// Exit removes uid from ctx. Exiting an absent user is a no-op.
func (r *Registry) Exit(ctx model.PresenceContext, uid model.UserID) {
	r.mu.Lock()
	delete(r.table(ctx), uid)
	r.mu.Unlock()

	r.logger.Debug("user exited",
		slog.String("context", string(ctx)),
		slog.Uint64("uid", uint64(uid)))
}

// ExitIf removes uid from ctx only while it is still bound to conn, so a
// closing socket cannot evict the socket that replaced it.
func (r *Registry) ExitIf(ctx model.PresenceContext, uid model.UserID, conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.table(ctx)
	if current, ok := t[uid]; ok && current == conn {
		delete(t, uid)
		return true
	}
	return false
}

// IsPresent reports whether uid is in ctx
func (r *Registry) IsPresent(ctx model.PresenceContext, uid model.UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.table(ctx)[uid]
	return ok
}

// Lookup returns the handle for uid in ctx
func (r *Registry) Lookup(ctx model.PresenceContext, uid model.UserID) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.table(ctx)[uid]
	return conn, ok
}

// IsOnline reports whether uid is present in either context
func (r *Registry) IsOnline(uid model.UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, inHall := r.hall[uid]
	_, inRoom := r.room[uid]
	return inHall || inRoom
}

// Count returns the number of users present in ctx
func (r *Registry) Count(ctx model.PresenceContext) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.table(ctx))
}

// Send delivers payload to uid in ctx. A missing handle or failed send is
// reported as false and otherwise ignored.
func (r *Registry) Send(ctx model.PresenceContext, uid model.UserID, payload []byte) bool {
	conn, ok := r.Lookup(ctx, uid)
	if !ok {
		return false
	}
	if err := conn.Send(payload); err != nil {
		r.logger.Warn("send failed",
			slog.String("context", string(ctx)),
			slog.Uint64("uid", uint64(uid)),
			slog.String("error", err.Error()))
		return false
	}
	return true
}

package room

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mcoot/gobang-online/internal/model"
	"github.com/mcoot/gobang-online/internal/services/board"
	"github.com/mcoot/gobang-online/internal/services/registry"
	"github.com/mcoot/gobang-online/internal/storage"
)

// Manager creates and destroys rooms and indexes them by room id and by
// player. Both indexes change together under one lock.
type Manager struct {
	registry     *registry.Registry
	storage      storage.Storage
	boardService board.ServiceInterface
	denyList     []string
	logger       *slog.Logger

	mu     sync.Mutex
	nextID model.RoomID
	rooms  map[model.RoomID]*Room
	users  map[model.UserID]model.RoomID
}

// NewManager creates a room manager. A nil denyList uses DefaultDenyList.
func NewManager(
	reg *registry.Registry,
	store storage.Storage,
	boardService board.ServiceInterface,
	denyList []string,
	logger *slog.Logger,
) *Manager {
	if denyList == nil {
		denyList = DefaultDenyList
	}
	return &Manager{
		registry:     reg,
		storage:      store,
		boardService: boardService,
		denyList:     denyList,
		logger:       logger.With(slog.String("component", "room_manager")),
		nextID:       1,
		rooms:        make(map[model.RoomID]*Room),
		users:        make(map[model.UserID]model.RoomID),
	}
}

// CreateRoom opens a room with white playing first-listed and black second.
// A player still in an active game is refused with ErrAlreadyInRoom. A
// player indexed to a finished room is released from it first.
func (m *Manager) CreateRoom(ctx context.Context, white, black model.UserID) (*Room, error) {
	if white == black {
		return nil, model.ErrSamePlayer
	}

	for _, uid := range []model.UserID{white, black} {
		if !m.registry.IsPresent(model.ContextHall, uid) {
			m.logger.Warn("creating room for user not in hall", slog.Uint64("uid", uint64(uid)))
		}
	}

	m.mu.Lock()
	for _, uid := range []model.UserID{white, black} {
		if r, ok := m.roomOfLocked(uid); ok && r.Status() == model.RoomStatusActive {
			m.mu.Unlock()
			m.logger.Info("refusing room for player in active game",
				slog.Uint64("uid", uint64(uid)),
				slog.Uint64("room_id", uint64(r.ID())))
			return nil, model.ErrAlreadyInRoom
		}
	}
	for _, uid := range []model.UserID{white, black} {
		m.releaseFinishedLocked(ctx, uid)
	}

	id := m.nextID
	m.nextID++
	r := newRoom(id, white, black, m.registry, m.storage, m.boardService, m.denyList, m.logger)
	m.rooms[id] = r
	m.users[white] = id
	m.users[black] = id
	m.mu.Unlock()

	m.logger.Info("room created",
		slog.Uint64("room_id", uint64(id)),
		slog.Uint64("white", uint64(white)),
		slog.Uint64("black", uint64(black)))

	return r, nil
}

// HasActiveRoom reports whether uid holds a slot in a game still in play
func (m *Manager) HasActiveRoom(uid model.UserID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.roomOfLocked(uid)
	return ok && r.Status() == model.RoomStatusActive
}

func (m *Manager) roomOfLocked(uid model.UserID) (*Room, bool) {
	id, ok := m.users[uid]
	if !ok {
		return nil, false
	}
	r, ok := m.rooms[id]
	return r, ok
}

// releaseFinishedLocked counts uid out of the finished room it is indexed
// to and drops that room once it is empty. Callers hold m.mu.
func (m *Manager) releaseFinishedLocked(ctx context.Context, uid model.UserID) {
	old, ok := m.roomOfLocked(uid)
	if !ok {
		return
	}
	old.HandleExit(ctx, uid)
	delete(m.users, uid)
	if old.PlayerCount() == 0 {
		m.removeLocked(old.ID())
	}
}

// GetByRoomID returns the room with the given id
func (m *Manager) GetByRoomID(id model.RoomID) (*Room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	return r, ok
}

// GetByUserID returns the room uid is playing in
func (m *Manager) GetByUserID(uid model.UserID) (*Room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.roomOfLocked(uid)
}

// RemoveRoom drops the room and its player index entries. A player already
// indexed to a newer room keeps that entry.
func (m *Manager) RemoveRoom(id model.RoomID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(id)
}

func (m *Manager) removeLocked(id model.RoomID) {
	r, ok := m.rooms[id]
	if !ok {
		return
	}
	for _, uid := range []model.UserID{r.whiteID, r.blackID} {
		if m.users[uid] == id {
			delete(m.users, uid)
		}
	}
	delete(m.rooms, id)

	m.logger.Info("room removed", slog.Uint64("room_id", uint64(id)))
}

// RemoveRoomUser is the leave entry point for a player's connection. The
// room is destroyed once both players have left.
func (m *Manager) RemoveRoomUser(ctx context.Context, uid model.UserID) error {
	r, ok := m.GetByUserID(uid)
	if !ok {
		return model.ErrNotInRoom
	}

	r.HandleExit(ctx, uid)
	if r.PlayerCount() == 0 {
		m.RemoveRoom(r.ID())
	}
	return nil
}

// Count returns the number of live rooms
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rooms)
}

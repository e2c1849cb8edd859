package matcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mcoot/gobang-online/internal/model"
	"github.com/mcoot/gobang-online/internal/services/registry"
	"github.com/mcoot/gobang-online/internal/services/room"
	"github.com/mcoot/gobang-online/internal/storage"
)

// ErrClosed is returned by Add after Close
var ErrClosed = errors.New("matcher is closed")

// RoomCreator opens a room for a matched pair
type RoomCreator interface {
	CreateRoom(ctx context.Context, white, black model.UserID) (*room.Room, error)
	HasActiveRoom(uid model.UserID) bool
}

// Matcher pairs waiting players of the same tier. Each tier has its own
// queue and a dedicated worker goroutine.
type Matcher struct {
	storage  storage.Storage
	registry *registry.Registry
	rooms    RoomCreator
	logger   *slog.Logger

	queues map[model.Tier]*queue

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// New creates a matcher and starts one worker per tier
func New(store storage.Storage, reg *registry.Registry, rooms RoomCreator, logger *slog.Logger) *Matcher {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Matcher{
		storage:  store,
		registry: reg,
		rooms:    rooms,
		logger:   logger.With(slog.String("component", "matcher")),
		queues:   make(map[model.Tier]*queue, 3),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, tier := range model.Tiers() {
		m.queues[tier] = newQueue()
	}
	for _, tier := range model.Tiers() {
		m.wg.Add(1)
		go m.run(tier)
	}
	return m
}

// Add queues uid in the tier matching its current score
func (m *Matcher) Add(ctx context.Context, uid model.UserID) error {
	if m.ctx.Err() != nil {
		return ErrClosed
	}

	user, err := m.storage.GetUser(ctx, uid)
	if err != nil {
		m.logger.Error("failed to load user for matching",
			slog.Uint64("uid", uint64(uid)),
			slog.String("error", err.Error()))
		return fmt.Errorf("loading user %d: %w", uid, err)
	}

	if m.rooms.HasActiveRoom(uid) {
		return model.ErrAlreadyInRoom
	}
	for _, q := range m.queues {
		if q.contains(uid) {
			return model.ErrAlreadyQueued
		}
	}

	tier := user.Tier()
	if !m.queues[tier].push(uid) {
		return model.ErrAlreadyQueued
	}

	m.logger.Info("match requested",
		slog.Uint64("uid", uint64(uid)),
		slog.String("tier", string(tier)),
		slog.Int("score", user.Score))
	return nil
}

// Remove cancels a pending match request. It is a no-op if uid is not queued.
func (m *Matcher) Remove(ctx context.Context, uid model.UserID) error {
	user, err := m.storage.GetUser(ctx, uid)
	if err != nil {
		m.logger.Error("failed to load user for match cancel",
			slog.Uint64("uid", uint64(uid)),
			slog.String("error", err.Error()))
		return fmt.Errorf("loading user %d: %w", uid, err)
	}

	tier := user.Tier()
	if m.queues[tier].remove(uid) {
		m.logger.Info("match cancelled", slog.Uint64("uid", uint64(uid)), slog.String("tier", string(tier)))
		return nil
	}

	// The score may have crossed a tier boundary since the request was queued
	for t, q := range m.queues {
		if t != tier && q.remove(uid) {
			m.logger.Info("match cancelled", slog.Uint64("uid", uint64(uid)), slog.String("tier", string(t)))
		}
	}
	return nil
}

// QueueLen returns the number of users waiting in tier
func (m *Matcher) QueueLen(tier model.Tier) int {
	q, ok := m.queues[tier]
	if !ok {
		return 0
	}
	return q.len()
}

// Close stops the workers and waits for them to return
func (m *Matcher) Close() {
	m.once.Do(func() {
		m.cancel()
		for _, q := range m.queues {
			q.close()
		}
	})
	m.wg.Wait()
}

func (m *Matcher) run(tier model.Tier) {
	defer m.wg.Done()
	q := m.queues[tier]
	logger := m.logger.With(slog.String("tier", string(tier)))

	for {
		a, b, ok := q.waitPair()
		if !ok {
			logger.Debug("worker stopped")
			return
		}
		m.pair(m.ctx, q, logger, a, b)
	}
}

// pair turns two popped ids into a room. A partner whose opponent has left
// the hall goes back to the queue rather than being dropped.
func (m *Matcher) pair(ctx context.Context, q *queue, logger *slog.Logger, a, b model.UserID) {
	aPresent := m.registry.IsPresent(model.ContextHall, a)
	bPresent := m.registry.IsPresent(model.ContextHall, b)
	switch {
	case !aPresent && !bPresent:
		logger.Info("dropping pair, neither player in hall",
			slog.Uint64("a", uint64(a)), slog.Uint64("b", uint64(b)))
		return
	case !aPresent:
		logger.Info("player left hall before match", slog.Uint64("uid", uint64(a)))
		q.push(b)
		return
	case !bPresent:
		logger.Info("player left hall before match", slog.Uint64("uid", uint64(b)))
		q.push(a)
		return
	}

	r, err := m.rooms.CreateRoom(ctx, a, b)
	if errors.Is(err, model.ErrAlreadyInRoom) {
		// A player who got into a game meanwhile gives up the request
		for _, uid := range []model.UserID{a, b} {
			if m.rooms.HasActiveRoom(uid) {
				logger.Info("dropping request, player already in a game", slog.Uint64("uid", uint64(uid)))
				continue
			}
			q.push(uid)
		}
		return
	}
	if err != nil {
		logger.Error("failed to create room",
			slog.Uint64("a", uint64(a)),
			slog.Uint64("b", uint64(b)),
			slog.String("error", err.Error()))
		q.push(a)
		q.push(b)
		return
	}

	payload, err := json.Marshal(model.Notice{OpType: model.OpMatchSuccess, Result: true})
	if err != nil {
		logger.Error("failed to encode match notice", slog.String("error", err.Error()))
		return
	}
	m.registry.Send(model.ContextHall, a, payload)
	m.registry.Send(model.ContextHall, b, payload)

	logger.Info("players matched",
		slog.Uint64("room_id", uint64(r.ID())),
		slog.Uint64("white", uint64(a)),
		slog.Uint64("black", uint64(b)))
}

package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/gobang-online/internal/model"
	"github.com/mcoot/gobang-online/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface.
// Each user is a hash so ladder updates can use HINCRBY.
type Storage struct {
	client *redis.Client
	cfg    Config
}

// userRecord is the hash layout of a user
type userRecord struct {
	Username     string `redis:"username"`
	PasswordHash string `redis:"password_hash"`
	Score        int    `redis:"score"`
	TotalGames   int    `redis:"total_games"`
	Wins         int    `redis:"wins"`
	CreatedAt    int64  `redis:"created_at"`
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	timeout := cfg.ConnectTimeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) CreateUser(ctx context.Context, u *model.User) error {
	id, err := s.client.Incr(ctx, userSequenceKey()).Result()
	if err != nil {
		return err
	}

	// Claim the username first; a lost race leaves an unused id behind
	claimed, err := s.client.SetNX(ctx, usernameIndexKey(u.Username), id, 0).Result()
	if err != nil {
		return err
	}
	if !claimed {
		return model.ErrUsernameExists
	}

	rec := userRecord{
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		Score:        u.Score,
		TotalGames:   u.TotalGames,
		Wins:         u.Wins,
		CreatedAt:    u.CreatedAt.Unix(),
	}
	if err := s.client.HSet(ctx, userKey(model.UserID(id)), rec).Err(); err != nil {
		s.client.Del(ctx, usernameIndexKey(u.Username))
		return err
	}

	u.ID = model.UserID(id)
	return nil
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	res := s.client.HGetAll(ctx, userKey(id))
	fields, err := res.Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, model.ErrUserNotFound
	}

	var rec userRecord
	if err := res.Scan(&rec); err != nil {
		return nil, fmt.Errorf("decode user %d: %w", id, err)
	}

	return &model.User{
		ID:           id,
		Username:     rec.Username,
		PasswordHash: rec.PasswordHash,
		Score:        rec.Score,
		TotalGames:   rec.TotalGames,
		Wins:         rec.Wins,
		CreatedAt:    time.Unix(rec.CreatedAt, 0).UTC(),
	}, nil
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	idStr, err := s.client.Get(ctx, usernameIndexKey(username)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}

	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt username index for %q: %w", username, err)
	}
	return s.GetUser(ctx, model.UserID(id))
}

func (s *Storage) RecordWin(ctx context.Context, id model.UserID) error {
	return s.recordOutcome(ctx, id, model.ScoreDelta, 1)
}

func (s *Storage) RecordLose(ctx context.Context, id model.UserID) error {
	return s.recordOutcome(ctx, id, -model.ScoreDelta, 0)
}

func (s *Storage) recordOutcome(ctx context.Context, id model.UserID, scoreDelta, wins int64) error {
	key := userKey(id)
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrUserNotFound
	}

	// MULTI/EXEC so the three counters move together
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, key, "score", scoreDelta)
		pipe.HIncrBy(ctx, key, "total_games", 1)
		if wins > 0 {
			pipe.HIncrBy(ctx, key, "wins", wins)
		}
		return nil
	})
	return err
}

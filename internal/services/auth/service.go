package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/gobang-online/internal/dependencies/clock"
	"github.com/mcoot/gobang-online/internal/model"
	"github.com/mcoot/gobang-online/internal/services/session"
	"github.com/mcoot/gobang-online/internal/storage"
)

// Errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidSession     = errors.New("invalid or expired session")
)

// Config holds configuration for the auth service
type Config struct {
	// SessionTimeout is how long an idle session survives outside the hall
	// and the room
	SessionTimeout time.Duration
	BcryptCost     int
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		SessionTimeout: 30 * time.Second,
		BcryptCost:     bcrypt.DefaultCost,
	}
}

// Service registers users and turns credentials into sessions
type Service struct {
	storage  storage.Storage
	sessions *session.Manager
	clock    clock.Clock
	logger   *slog.Logger

	sessionTimeout time.Duration
	bcryptCost     int

	// pins counts live connections holding each session open
	pinMu sync.Mutex
	pins  map[model.SessionID]int
}

// New creates a new AuthService
func New(store storage.Storage, sessions *session.Manager, clk clock.Clock, cfg Config, logger *slog.Logger) *Service {
	if cfg.SessionTimeout == 0 {
		cfg.SessionTimeout = DefaultConfig().SessionTimeout
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = DefaultConfig().BcryptCost
	}
	return &Service{
		storage:        store,
		sessions:       sessions,
		clock:          clk,
		logger:         logger.With(slog.String("component", "auth")),
		sessionTimeout: cfg.SessionTimeout,
		bcryptCost:     cfg.BcryptCost,
		pins:           make(map[model.SessionID]int),
	}
}

// Register creates a user account with a fresh ladder record
func (s *Service) Register(ctx context.Context, username, password string) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &model.User{
		Username:     username,
		PasswordHash: string(hash),
		Score:        model.InitialScore,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.storage.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		slog.Uint64("uid", uint64(user.ID)),
		slog.String("username", username))
	return user, nil
}

// Login checks the credentials and opens a logged-in session with the idle
// timeout armed
func (s *Service) Login(ctx context.Context, username, password string) (*model.Session, *model.User, error) {
	user, err := s.storage.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	sess := s.sessions.Create(user.ID, model.LoggedIn)
	if err := s.sessions.SetExpiry(sess.ID, s.sessionTimeout); err != nil {
		return nil, nil, err
	}

	s.logger.Info("user logged in",
		slog.Uint64("uid", uint64(user.ID)),
		slog.Uint64("ssid", uint64(sess.ID)))
	return sess, user, nil
}

// Authenticate resolves a session credential to its session and user. A
// session on an idle timeout has the timeout restarted; a pinned session
// stays pinned.
func (s *Service) Authenticate(ctx context.Context, credential string) (*model.Session, *model.User, error) {
	id, token, err := ParseCredential(credential)
	if err != nil {
		return nil, nil, ErrInvalidSession
	}

	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, nil, ErrInvalidSession
	}
	if subtle.ConstantTimeCompare([]byte(sess.Token), []byte(token)) != 1 || sess.State != model.LoggedIn {
		return nil, nil, ErrInvalidSession
	}

	if err := s.sessions.Refresh(id, s.sessionTimeout); err != nil {
		return nil, nil, ErrInvalidSession
	}

	user, err := s.storage.GetUser(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, nil, ErrInvalidSession
		}
		return nil, nil, err
	}
	return sess, user, nil
}

// Pin keeps the session alive while the user holds a live connection. Each
// successful Pin must be matched by one Release.
func (s *Service) Pin(id model.SessionID) error {
	s.pinMu.Lock()
	defer s.pinMu.Unlock()
	if err := s.sessions.SetExpiry(id, session.Forever); err != nil {
		return err
	}
	s.pins[id]++
	return nil
}

// Release drops one connection's hold on the session. The idle timeout
// restarts when the last one is gone.
func (s *Service) Release(id model.SessionID) error {
	s.pinMu.Lock()
	defer s.pinMu.Unlock()
	if s.pins[id] > 1 {
		s.pins[id]--
		return nil
	}
	delete(s.pins, id)
	return s.sessions.SetExpiry(id, s.sessionTimeout)
}

// Pinned reports how many connections currently hold the session
func (s *Service) Pinned(id model.SessionID) int {
	s.pinMu.Lock()
	defer s.pinMu.Unlock()
	return s.pins[id]
}

// Logout removes the session
func (s *Service) Logout(id model.SessionID) {
	s.sessions.Remove(id)
}

// SessionTimeout returns the configured idle timeout
func (s *Service) SessionTimeout() time.Duration {
	return s.sessionTimeout
}

// Credential encodes the value a client presents to authenticate
func Credential(sess *model.Session) string {
	return strconv.FormatUint(uint64(sess.ID), 10) + "." + sess.Token
}

// ParseCredential splits a credential into its session id and token
func ParseCredential(credential string) (model.SessionID, string, error) {
	idPart, token, ok := strings.Cut(credential, ".")
	if !ok || token == "" {
		return 0, "", fmt.Errorf("malformed credential")
	}
	id, err := strconv.ParseUint(idPart, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("malformed session id: %w", err)
	}
	return model.SessionID(id), token, nil
}

package storage

import (
	"context"

	"github.com/mcoot/gobang-online/internal/model"
)

// Storage defines the interface for user persistence
type Storage interface {
	// CreateUser assigns the next user id to u and stores it.
	// Returns model.ErrUsernameExists if the username is taken.
	CreateUser(ctx context.Context, u *model.User) error
	GetUser(ctx context.Context, id model.UserID) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)

	// Ladder outcomes
	RecordWin(ctx context.Context, id model.UserID) error
	RecordLose(ctx context.Context, id model.UserID) error

	Close() error
}

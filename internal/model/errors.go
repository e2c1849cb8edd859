package model

import "errors"

// Common errors used across the application
var (
	// User errors
	ErrUserNotFound   = errors.New("user not found")
	ErrUsernameExists = errors.New("username already exists")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")

	// Matchmaking errors
	ErrAlreadyQueued = errors.New("user is already queued")

	// Room errors
	ErrRoomNotFound    = errors.New("room not found")
	ErrSamePlayer      = errors.New("a room needs two distinct players")
	ErrNotInRoom       = errors.New("user is not in a room")
	ErrAlreadyInRoom   = errors.New("user is already playing in a room")
	ErrInvalidPosition = errors.New("invalid board position")
	ErrCellOccupied    = errors.New("cell is already occupied")

	// Presence errors
	ErrAlreadyOnline = errors.New("user is already connected")
)

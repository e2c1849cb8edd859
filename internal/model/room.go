package model

// RoomID uniquely identifies a room for the lifetime of the process
type RoomID uint64

// RoomStatus represents the phase of a room's game
type RoomStatus string

const (
	RoomStatusActive   RoomStatus = "active"   // Game in progress
	RoomStatusFinished RoomStatus = "finished" // Winner decided, terminal
)

// PresenceContext separates lobby presence from in-game presence
type PresenceContext string

const (
	ContextHall PresenceContext = "hall"
	ContextRoom PresenceContext = "room"
)

package model

import "time"

// UserID uniquely identifies a registered user
type UserID uint64

// Ladder scoring
const (
	InitialScore = 1000
	ScoreDelta   = 30
)

// User is a registered account with its ladder record
type User struct {
	ID           UserID    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	Score        int       `json:"score"`
	TotalGames   int       `json:"total_games"`
	Wins         int       `json:"wins"`
	CreatedAt    time.Time `json:"created_at"`
}

// Losses returns the number of games the user did not win
func (u *User) Losses() int {
	return u.TotalGames - u.Wins
}

// Tier returns the matchmaking bracket for the user's current score
func (u *User) Tier() Tier {
	return TierForScore(u.Score)
}

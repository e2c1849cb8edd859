package response

import (
	"time"

	"github.com/mcoot/gobang-online/internal/model"
)

// User represents a user and their ladder record in API responses
type User struct {
	ID         uint64    `json:"id"`
	Username   string    `json:"username"`
	Score      int       `json:"score"`
	TotalGames int       `json:"total_games"`
	Wins       int       `json:"wins"`
	Losses     int       `json:"losses"`
	Tier       string    `json:"tier"`
	CreatedAt  time.Time `json:"created_at"`
}

// UserFromModel converts a model.User to a response User
func UserFromModel(u *model.User) User {
	return User{
		ID:         uint64(u.ID),
		Username:   u.Username,
		Score:      u.Score,
		TotalGames: u.TotalGames,
		Wins:       u.Wins,
		Losses:     u.Losses(),
		Tier:       string(u.Tier()),
		CreatedAt:  u.CreatedAt,
	}
}

// AuthResponse is the response for the login endpoint
type AuthResponse struct {
	User         User   `json:"user"`
	SessionID    uint64 `json:"session_id"`
	SessionToken string `json:"session_token"`
}

// Stats is a snapshot of live server state
type Stats struct {
	HallUsers int            `json:"hall_users"`
	RoomUsers int            `json:"room_users"`
	Rooms     int            `json:"rooms"`
	Sessions  int            `json:"sessions"`
	Queues    map[string]int `json:"queues"`
}

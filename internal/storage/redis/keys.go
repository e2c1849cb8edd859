package redis

import (
	"fmt"

	"github.com/mcoot/gobang-online/internal/model"
)

// Key prefix for all server data
const keyPrefix = "gobang"

// userKey returns the Redis key for a user hash
func userKey(id model.UserID) string {
	return fmt.Sprintf("%s:user:%d", keyPrefix, id)
}

// usernameIndexKey returns the Redis key for the username -> user_id index
func usernameIndexKey(username string) string {
	return fmt.Sprintf("%s:idx:username:%s", keyPrefix, username)
}

// userSequenceKey returns the Redis key of the user id counter
func userSequenceKey() string {
	return fmt.Sprintf("%s:seq:user", keyPrefix)
}

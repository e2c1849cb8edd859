package request

import "unicode/utf8"

// Credential limits
const (
	MinPasswordLength = 6
	MaxUsernameLength = 32
)

// RegisterRequest is the request body for registering a user
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate returns a message describing the first problem, or ""
func (r RegisterRequest) Validate() string {
	switch {
	case r.Username == "":
		return "username is required"
	case utf8.RuneCountInString(r.Username) > MaxUsernameLength:
		return "username is too long"
	case r.Password == "":
		return "password is required"
	case len(r.Password) < MinPasswordLength:
		return "password is too short"
	}
	return ""
}

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate returns a message describing the first problem, or ""
func (r LoginRequest) Validate() string {
	switch {
	case r.Username == "":
		return "username is required"
	case r.Password == "":
		return "password is required"
	}
	return ""
}

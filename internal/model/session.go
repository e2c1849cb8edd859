package model

// SessionID identifies a login session
type SessionID uint64

// LoginState is the authentication state attached to a session
type LoginState string

const (
	LoggedOut LoginState = "logged_out"
	LoggedIn  LoginState = "logged_in"
)

// Session binds a session id to a user. Token is a random secret presented
// alongside the id so that sequential ids cannot be guessed. The expiry timer
// is owned by the session manager and is not part of the value.
type Session struct {
	ID     SessionID
	Token  string
	UserID UserID
	State  LoginState
}

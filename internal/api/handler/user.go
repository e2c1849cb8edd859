package handler

import (
	"encoding/json"
	"net/http"

	"github.com/mcoot/gobang-online/internal/api/middleware"
	"github.com/mcoot/gobang-online/internal/api/request"
	"github.com/mcoot/gobang-online/internal/api/response"
	"github.com/mcoot/gobang-online/internal/services/auth"
)

// UserHandler handles account endpoints
type UserHandler struct {
	authService  *auth.Service
	secureCookie bool
}

// NewUserHandler creates a new user handler
func NewUserHandler(authService *auth.Service, secureCookie bool) *UserHandler {
	return &UserHandler{
		authService:  authService,
		secureCookie: secureCookie,
	}
}

// Register handles POST /api/v1/users/register
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if msg := req.Validate(); msg != "" {
		WriteError(w, NewInvalidRequestError(msg))
		return
	}

	user, err := h.authService.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.UserFromModel(user))
}

// Login handles POST /api/v1/users/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if msg := req.Validate(); msg != "" {
		WriteError(w, NewInvalidRequestError(msg))
		return
	}

	session, user, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		WriteError(w, err)
		return
	}

	credential := auth.Credential(session)
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    credential,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	response.JSON(w, http.StatusOK, response.AuthResponse{
		User:         response.UserFromModel(user),
		SessionID:    uint64(session.ID),
		SessionToken: credential,
	})
}

// Logout handles POST /api/v1/users/logout
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session := middleware.MustGetSession(r.Context())
	h.authService.Logout(session.ID)

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
	})
	response.NoContent(w)
}

// GetMe handles GET /api/v1/users/me
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user := middleware.MustGetUser(r.Context())
	response.JSON(w, http.StatusOK, response.UserFromModel(user))
}

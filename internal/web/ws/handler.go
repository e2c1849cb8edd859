package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/mcoot/gobang-online/internal/api/apierr"
	"github.com/mcoot/gobang-online/internal/api/middleware"
	"github.com/mcoot/gobang-online/internal/model"
	"github.com/mcoot/gobang-online/internal/services/auth"
	"github.com/mcoot/gobang-online/internal/services/matcher"
	"github.com/mcoot/gobang-online/internal/services/registry"
	"github.com/mcoot/gobang-online/internal/services/room"
)

// Reasons sent on refused connections
const (
	reasonAlreadyOnline = "user is already connected"
	reasonNoRoom        = "no room found for user"
	reasonBadMessage    = "malformed message"
)

// Handler serves the hall and room WebSocket endpoints
type Handler struct {
	auth     *auth.Service
	registry *registry.Registry
	matcher  *matcher.Matcher
	rooms    *room.Manager
	hub      *Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// HandlerConfig holds the dependencies of the WebSocket handler
type HandlerConfig struct {
	Auth     *auth.Service
	Registry *registry.Registry
	Matcher  *matcher.Matcher
	Rooms    *room.Manager
	Hub      *Hub
	Logger   *slog.Logger

	// CheckOrigin overrides the upgrader's same-origin check when set
	CheckOrigin func(r *http.Request) bool
}

// NewHandler creates the WebSocket handler
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		auth:     cfg.Auth,
		registry: cfg.Registry,
		matcher:  cfg.Matcher,
		rooms:    cfg.Rooms,
		hub:      cfg.Hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     cfg.CheckOrigin,
		},
		logger: cfg.Logger.With(slog.String("component", "ws")),
	}
}

// connect authenticates the request and upgrades it. On failure the HTTP
// response has already been written.
func (h *Handler) connect(w http.ResponseWriter, r *http.Request) (*model.Session, *Client, bool) {
	credential := middleware.ExtractCredential(r)
	if credential == "" {
		apierr.WriteError(w, apierr.NewUnauthorizedError())
		return nil, nil, false
	}
	sess, user, err := h.auth.Authenticate(r.Context(), credential)
	if err != nil {
		apierr.WriteError(w, err)
		return nil, nil, false
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed",
			slog.Uint64("uid", uint64(user.ID)),
			slog.String("error", err.Error()))
		return nil, nil, false
	}

	client := newClient(conn, user.ID, h.logger)
	h.hub.Register(client)
	go client.writePump()
	return sess, client, true
}

// refuse tells the client why it is being disconnected and closes it
func (h *Handler) refuse(client *Client, op model.OpType, reason string) {
	h.reply(client, model.Notice{OpType: op, Result: false, Reason: reason})
	h.hub.Unregister(client)
}

func (h *Handler) reply(client *Client, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("failed to encode message", slog.String("error", err.Error()))
		return
	}
	if err := client.Send(payload); err != nil {
		client.logger.Warn("reply dropped", slog.String("error", err.Error()))
	}
}

// pin holds the session open for the lifetime of client. It reports
// whether a matching release is owed.
func (h *Handler) pin(client *Client, sess *model.Session) bool {
	if err := h.auth.Pin(sess.ID); err != nil {
		client.logger.Warn("failed to pin session", slog.String("error", err.Error()))
		return false
	}
	return true
}

// release drops this connection's pin on the session
func (h *Handler) release(sess *model.Session) {
	if err := h.auth.Release(sess.ID); err != nil && !errors.Is(err, model.ErrSessionNotFound) {
		h.logger.Warn("failed to release session",
			slog.Uint64("ssid", uint64(sess.ID)),
			slog.String("error", err.Error()))
	}
}

// ServeHall handles GET /ws/hall
func (h *Handler) ServeHall(w http.ResponseWriter, r *http.Request) {
	sess, client, ok := h.connect(w, r)
	if !ok {
		return
	}
	ctx := context.WithoutCancel(r.Context())
	uid := sess.UserID

	if !h.registry.EnterIfOffline(model.ContextHall, uid, client) {
		client.logger.Info("refusing duplicate hall connection")
		h.refuse(client, model.OpHallReady, reasonAlreadyOnline)
		return
	}
	pinned := h.pin(client, sess)
	h.reply(client, model.Notice{OpType: model.OpHallReady, Result: true})

	client.readPump(func(message []byte) {
		h.reply(client, h.handleHallMessage(ctx, uid, message))
	})

	h.registry.ExitIf(model.ContextHall, uid, client)
	if err := h.matcher.Remove(ctx, uid); err != nil {
		client.logger.Warn("failed to cancel match on disconnect", slog.String("error", err.Error()))
	}
	if pinned {
		h.release(sess)
	}
	h.hub.Unregister(client)
}

func (h *Handler) handleHallMessage(ctx context.Context, uid model.UserID, message []byte) model.Notice {
	var req model.HallRequest
	if err := json.Unmarshal(message, &req); err != nil {
		return model.Notice{Result: false, Reason: reasonBadMessage}
	}

	var err error
	switch req.OpType {
	case model.OpMatchStart:
		err = h.matcher.Add(ctx, uid)
	case model.OpMatchStop:
		err = h.matcher.Remove(ctx, uid)
	default:
		return model.Notice{OpType: req.OpType, Result: false, Reason: model.ReasonUnknownRequest}
	}

	if err != nil {
		return model.Notice{OpType: req.OpType, Result: false, Reason: err.Error()}
	}
	return model.Notice{OpType: req.OpType, Result: true}
}

// ServeRoom handles GET /ws/room
func (h *Handler) ServeRoom(w http.ResponseWriter, r *http.Request) {
	sess, client, ok := h.connect(w, r)
	if !ok {
		return
	}
	ctx := context.WithoutCancel(r.Context())
	uid := sess.UserID

	rm, found := h.rooms.GetByUserID(uid)
	if !found {
		h.refuse(client, model.OpRoomReady, reasonNoRoom)
		return
	}
	if !h.registry.EnterIfAbsent(model.ContextRoom, uid, client) {
		client.logger.Info("refusing duplicate room connection")
		h.refuse(client, model.OpRoomReady, reasonAlreadyOnline)
		return
	}
	h.registry.Exit(model.ContextHall, uid)
	pinned := h.pin(client, sess)
	h.reply(client, model.RoomReady{
		OpType:  model.OpRoomReady,
		Result:  true,
		RoomID:  rm.ID(),
		UserID:  uid,
		WhiteID: rm.WhiteID(),
		BlackID: rm.BlackID(),
	})

	client.readPump(func(message []byte) {
		var req model.RoomRequest
		if err := json.Unmarshal(message, &req); err != nil {
			h.reply(client, model.Notice{Result: false, Reason: reasonBadMessage})
			return
		}
		switch res := rm.HandleRequest(ctx, uid, req).(type) {
		case model.MoveResult:
			// Already broadcast to both players
		case model.ChatResult:
			if !res.Result {
				h.reply(client, res)
			}
		default:
			h.reply(client, res)
		}
	})

	h.registry.ExitIf(model.ContextRoom, uid, client)
	if err := h.rooms.RemoveRoomUser(ctx, uid); err != nil && !errors.Is(err, model.ErrNotInRoom) {
		client.logger.Warn("failed to leave room", slog.String("error", err.Error()))
	}
	if pinned {
		h.release(sess)
	}
	h.hub.Unregister(client)
}

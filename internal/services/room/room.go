package room

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"github.com/mcoot/gobang-online/internal/model"
	"github.com/mcoot/gobang-online/internal/services/board"
	"github.com/mcoot/gobang-online/internal/services/registry"
	"github.com/mcoot/gobang-online/internal/storage"
)

// DefaultDenyList is the chat moderation list used when none is configured
var DefaultDenyList = []string{"垃圾"}

// Room hosts one game between a white and a black player
type Room struct {
	id       model.RoomID
	whiteID  model.UserID
	blackID  model.UserID
	denyList []string

	registry     *registry.Registry
	storage      storage.Storage
	boardService board.ServiceInterface
	logger       *slog.Logger

	mu          sync.Mutex
	board       *model.Board
	status      model.RoomStatus
	playerCount int
	left        map[model.UserID]bool
}

// outcome is a decided game waiting to be persisted outside the lock
type outcome struct {
	winner model.UserID
	loser  model.UserID
}

func newRoom(
	id model.RoomID,
	whiteID, blackID model.UserID,
	reg *registry.Registry,
	store storage.Storage,
	boardService board.ServiceInterface,
	denyList []string,
	logger *slog.Logger,
) *Room {
	return &Room{
		id:           id,
		whiteID:      whiteID,
		blackID:      blackID,
		denyList:     denyList,
		registry:     reg,
		storage:      store,
		boardService: boardService,
		logger:       logger.With(slog.Uint64("room_id", uint64(id))),
		board:        model.NewBoard(),
		status:       model.RoomStatusActive,
		playerCount:  2,
		left:         make(map[model.UserID]bool, 2),
	}
}

// ID returns the room id
func (r *Room) ID() model.RoomID { return r.id }

// WhiteID returns the user playing white
func (r *Room) WhiteID() model.UserID { return r.whiteID }

// BlackID returns the user playing black
func (r *Room) BlackID() model.UserID { return r.blackID }

// Status returns the current game state
func (r *Room) Status() model.RoomStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// PlayerCount returns how many players have not yet exited
func (r *Room) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.playerCount
}

// Board returns a snapshot of the board
func (r *Room) Board() model.Board {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.board
}

// IsPlayer reports whether uid holds one of the two slots
func (r *Room) IsPlayer(uid model.UserID) bool {
	return uid == r.whiteID || uid == r.blackID
}

func (r *Room) colorOf(uid model.UserID) model.Color {
	if uid == r.whiteID {
		return model.White
	}
	return model.Black
}

func (r *Room) opponentOf(uid model.UserID) model.UserID {
	if uid == r.whiteID {
		return r.blackID
	}
	return r.whiteID
}

// HandleMove applies a put_chess request and broadcasts the result to both
// players. Rejections leave the room unchanged.
func (r *Room) HandleMove(ctx context.Context, roomID model.RoomID, moverID model.UserID, row, col int) model.MoveResult {
	result := model.MoveResult{
		OpType: model.OpPutChess,
		RoomID: r.id,
		UserID: moverID,
		Row:    row,
		Col:    col,
	}

	if roomID != r.id {
		result.Reason = model.ReasonRoomMismatch
		r.broadcast(ctx, result)
		return result
	}

	var decided *outcome
	r.mu.Lock()
	pos := model.Position{Row: row, Col: col}
	switch {
	case r.status == model.RoomStatusFinished:
		result.Reason = model.ReasonGameOver
	case !r.board.IsValidPosition(pos):
		result.Reason = model.ReasonOffBoard
	case !r.registry.IsPresent(model.ContextRoom, r.whiteID):
		decided = r.finishLocked(r.blackID, r.whiteID)
		result.Result = true
		result.Winner = r.blackID
		result.Reason = model.ReasonOpponentLeft
	case !r.registry.IsPresent(model.ContextRoom, r.blackID):
		decided = r.finishLocked(r.whiteID, r.blackID)
		result.Result = true
		result.Winner = r.whiteID
		result.Reason = model.ReasonOpponentLeft
	default:
		if err := r.boardService.Place(r.board, pos, r.colorOf(moverID)); err != nil {
			result.Reason = model.ReasonCellOccupied
			break
		}
		result.Result = true
		if r.boardService.CheckWin(r.board, pos) {
			decided = r.finishLocked(moverID, r.opponentOf(moverID))
			result.Winner = moverID
			result.Reason = model.ReasonFiveInARow
		}
	}
	r.mu.Unlock()

	if decided != nil {
		r.persist(ctx, *decided)
	}
	r.broadcast(ctx, result)
	return result
}

// HandleChat moderates a chat message and broadcasts it if accepted
func (r *Room) HandleChat(ctx context.Context, roomID model.RoomID, senderID model.UserID, message string) model.ChatResult {
	result := model.ChatResult{
		OpType:  model.OpChat,
		RoomID:  r.id,
		UserID:  senderID,
		Message: message,
	}

	if roomID != r.id {
		result.Reason = model.ReasonRoomMismatch
		return result
	}
	for _, word := range r.denyList {
		if word != "" && strings.Contains(message, word) {
			result.Reason = model.ReasonBannedWord
			return result
		}
	}

	result.Result = true
	r.broadcast(ctx, result)
	return result
}

// HandleExit records that uid left the room. While the game is active the
// remaining player is declared the winner. Each player is counted once.
func (r *Room) HandleExit(ctx context.Context, uid model.UserID) {
	if !r.IsPlayer(uid) {
		return
	}

	var decided *outcome
	var result model.MoveResult
	r.mu.Lock()
	if r.left[uid] {
		r.mu.Unlock()
		return
	}
	if r.status == model.RoomStatusActive {
		winner := r.opponentOf(uid)
		decided = r.finishLocked(winner, uid)
		result = model.MoveResult{
			OpType: model.OpPutChess,
			Result: true,
			Reason: model.ReasonOpponentLeft,
			RoomID: r.id,
			UserID: uid,
			Row:    -1,
			Col:    -1,
			Winner: winner,
		}
	}
	r.left[uid] = true
	r.playerCount--
	r.mu.Unlock()

	r.logger.Info("player exited", slog.Uint64("uid", uint64(uid)))

	if decided != nil {
		r.persist(ctx, *decided)
		r.broadcast(ctx, result)
	}
}

// HandleRequest dispatches a decoded room request for sender. The returned
// value is the response to deliver back on the sender's socket.
func (r *Room) HandleRequest(ctx context.Context, senderID model.UserID, req model.RoomRequest) any {
	switch req.OpType {
	case model.OpPutChess:
		return r.HandleMove(ctx, req.RoomID, senderID, req.Row, req.Col)
	case model.OpChat:
		return r.HandleChat(ctx, req.RoomID, senderID, req.Message)
	default:
		return model.Notice{
			OpType: req.OpType,
			Result: false,
			Reason: model.ReasonUnknownRequest,
		}
	}
}

// finishLocked moves the room to Finished. Callers hold r.mu.
func (r *Room) finishLocked(winner, loser model.UserID) *outcome {
	r.status = model.RoomStatusFinished
	return &outcome{winner: winner, loser: loser}
}

func (r *Room) persist(ctx context.Context, o outcome) {
	r.logger.Info("game finished",
		slog.Uint64("winner", uint64(o.winner)),
		slog.Uint64("loser", uint64(o.loser)))

	if err := r.storage.RecordWin(ctx, o.winner); err != nil {
		r.logger.Error("failed to record win",
			slog.Uint64("uid", uint64(o.winner)),
			slog.String("error", err.Error()))
	}
	if err := r.storage.RecordLose(ctx, o.loser); err != nil {
		r.logger.Error("failed to record loss",
			slog.Uint64("uid", uint64(o.loser)),
			slog.String("error", err.Error()))
	}
}

// broadcast sends v to both players through their room connections
func (r *Room) broadcast(_ context.Context, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		r.logger.Error("failed to encode message", slog.String("error", err.Error()))
		return
	}
	r.registry.Send(model.ContextRoom, r.whiteID, payload)
	r.registry.Send(model.ContextRoom, r.blackID, payload)
}

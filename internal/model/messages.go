package model

// OpType identifies the kind of a WebSocket message
type OpType string

const (
	// Hall messages
	OpHallReady    OpType = "hall_ready"
	OpMatchStart   OpType = "match_start"
	OpMatchStop    OpType = "match_stop"
	OpMatchSuccess OpType = "match_success"

	// Room messages
	OpRoomReady OpType = "room_ready"
	OpPutChess  OpType = "put_chess"
	OpChat      OpType = "chat"
)

// Reasons reported in rejected or decisive results
const (
	ReasonRoomMismatch   = "room id mismatch"
	ReasonGameOver       = "game is over"
	ReasonOffBoard       = "position is off the board"
	ReasonOpponentLeft   = "opponent left the room, you win"
	ReasonCellOccupied   = "cell is already occupied"
	ReasonFiveInARow     = "five in a row, you win!"
	ReasonBannedWord     = "message contains a banned word"
	ReasonUnknownRequest = "unknown request type"
)

// HallRequest is a message sent by a client over the hall socket
type HallRequest struct {
	OpType OpType `json:"optype"`
}

// RoomRequest is a message sent by a client over the room socket
type RoomRequest struct {
	OpType  OpType `json:"optype"`
	RoomID  RoomID `json:"room_id"`
	UserID  UserID `json:"uid"`
	Row     int    `json:"row"`
	Col     int    `json:"col"`
	Message string `json:"message,omitempty"`
}

// MoveResult is the outcome of a put_chess request, broadcast to both players
type MoveResult struct {
	OpType OpType `json:"optype"`
	Result bool   `json:"result"`
	Reason string `json:"reason,omitempty"`
	RoomID RoomID `json:"room_id"`
	UserID UserID `json:"uid"`
	Row    int    `json:"row"`
	Col    int    `json:"col"`
	Winner UserID `json:"winner"`
}

// HasWinner returns true if the move decided the game
func (r MoveResult) HasWinner() bool {
	return r.Winner != 0
}

// ChatResult is the outcome of a chat request
type ChatResult struct {
	OpType  OpType `json:"optype"`
	Result  bool   `json:"result"`
	Reason  string `json:"reason,omitempty"`
	RoomID  RoomID `json:"room_id"`
	UserID  UserID `json:"uid"`
	Message string `json:"message"`
}

// Notice is a lifecycle or acknowledgement message
type Notice struct {
	OpType OpType `json:"optype"`
	Result bool   `json:"result"`
	Reason string `json:"reason,omitempty"`
}

// RoomReady is sent once a player's room socket is accepted
type RoomReady struct {
	OpType  OpType `json:"optype"`
	Result  bool   `json:"result"`
	RoomID  RoomID `json:"room_id"`
	UserID  UserID `json:"uid"`
	WhiteID UserID `json:"white_id"`
	BlackID UserID `json:"black_id"`
}

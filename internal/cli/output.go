package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mcoot/gobang-online/internal/model"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format, w: os.Stdout}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.w, string(data))
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

// PrintEvent outputs one WebSocket message. JSON output is one line per
// message so that it can be piped.
func (o *Output) PrintEvent(raw []byte) {
	if o.format == "json" {
		fmt.Fprintln(o.w, strings.TrimSpace(string(raw)))
		return
	}

	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		fmt.Fprintf(o.w, "[%s] %s\n", time.Now().Format("15:04:05"), string(raw))
		return
	}
	fmt.Fprintf(o.w, "[%s] %s\n", time.Now().Format("15:04:05"), ev.Summary())
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case User:
		o.printUser(v)
	case AuthResult:
		o.printAuthResult(v)
	case Stats:
		o.printStats(v)
	case HealthResult:
		o.printHealthResult(v)
	case *model.Board:
		o.printBoard(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// User response type (matches API)
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

// AuthResult combines user and session credential
type AuthResult struct {
	User         User   `json:"user"`
	SessionID    uint64 `json:"session_id"`
	SessionToken string `json:"session_token"`
}

// Stats response type
type Stats struct {
	HallUsers int            `json:"hall_users"`
	RoomUsers int            `json:"room_users"`
	Rooms     int            `json:"rooms"`
	Sessions  int            `json:"sessions"`
	Queues    map[string]int `json:"queues"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

// Event is the union of the hall and room WebSocket messages
type Event struct {
	OpType  model.OpType `json:"optype"`
	Result  bool         `json:"result"`
	Reason  string       `json:"reason,omitempty"`
	RoomID  uint64       `json:"room_id,omitempty"`
	UserID  uint64       `json:"uid,omitempty"`
	Row     int          `json:"row"`
	Col     int          `json:"col"`
	Winner  uint64       `json:"winner,omitempty"`
	Message string       `json:"message,omitempty"`
	WhiteID uint64       `json:"white_id,omitempty"`
	BlackID uint64       `json:"black_id,omitempty"`
}

// Summary renders the event as one line of text
func (e Event) Summary() string {
	status := "ok"
	if !e.Result {
		status = "rejected"
	}

	var b strings.Builder
	switch e.OpType {
	case model.OpRoomReady:
		if e.Result {
			fmt.Fprintf(&b, "room %d ready: white=%d black=%d you=%d", e.RoomID, e.WhiteID, e.BlackID, e.UserID)
		} else {
			fmt.Fprintf(&b, "room refused: %s", e.Reason)
		}
	case model.OpPutChess:
		fmt.Fprintf(&b, "move by %d at (%d,%d): %s", e.UserID, e.Row, e.Col, status)
		if e.Reason != "" {
			fmt.Fprintf(&b, " (%s)", e.Reason)
		}
		if e.Winner != 0 {
			fmt.Fprintf(&b, ", winner %d", e.Winner)
		}
	case model.OpChat:
		if e.Result {
			fmt.Fprintf(&b, "%d: %s", e.UserID, e.Message)
		} else {
			fmt.Fprintf(&b, "chat rejected: %s", e.Reason)
		}
	default:
		fmt.Fprintf(&b, "%s: %s", e.OpType, status)
		if e.Reason != "" {
			fmt.Fprintf(&b, " (%s)", e.Reason)
		}
	}
	return b.String()
}

func (o *Output) printUser(u User) {
	fmt.Fprintf(o.w, "User: %s (%d)\n", u.Username, u.ID)
	fmt.Fprintf(o.w, "Score: %d [%s]\n", u.Score, u.Tier)
	fmt.Fprintf(o.w, "Games: %d (%d won, %d lost)\n", u.TotalGames, u.Wins, u.Losses)
}

func (o *Output) printAuthResult(a AuthResult) {
	o.printUser(a.User)
	fmt.Fprintf(o.w, "Token: %s\n", a.SessionToken)
}

func (o *Output) printStats(s Stats) {
	fmt.Fprintf(o.w, "Hall: %d\n", s.HallUsers)
	fmt.Fprintf(o.w, "In rooms: %d\n", s.RoomUsers)
	fmt.Fprintf(o.w, "Rooms: %d\n", s.Rooms)
	fmt.Fprintf(o.w, "Sessions: %d\n", s.Sessions)

	tiers := make([]string, 0, len(s.Queues))
	for tier := range s.Queues {
		tiers = append(tiers, tier)
	}
	sort.Strings(tiers)
	fmt.Fprintln(o.w, "Queues:")
	for _, tier := range tiers {
		fmt.Fprintf(o.w, "  %s: %d\n", tier, s.Queues[tier])
	}
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Fprintf(o.w, "Status: %s\n", h.Status)
}

func (o *Output) printBoard(b *model.Board) {
	// Print column headers
	fmt.Fprint(o.w, "   ")
	for col := 0; col < model.BoardSize; col++ {
		fmt.Fprintf(o.w, "%2d", col)
	}
	fmt.Fprintln(o.w)

	// Print rows
	for row := 0; row < model.BoardSize; row++ {
		fmt.Fprintf(o.w, "%2d ", row)
		for col := 0; col < model.BoardSize; col++ {
			fmt.Fprintf(o.w, " %c", stoneRune(b.Cells[row][col]))
		}
		fmt.Fprintln(o.w)
	}
}

func stoneRune(c model.Color) rune {
	switch c {
	case model.White:
		return 'O'
	case model.Black:
		return 'X'
	default:
		return '.'
	}
}

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mcoot/gobang-online/internal/model"
)

// errQuit is returned by parsePlayCommand when the player leaves
var errQuit = errors.New("quit")

func newPlayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Enter your room and play",
		Long: `Connect to the room WebSocket of the game you were matched into.

Commands are read from standard input, one per line:

  put <row> <col>   place a stone (0-14)
  chat <message>    send a chat message
  board             show the board
  quit              leave the room (forfeits an unfinished game)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runPlay(ctx, cmd.InOrStdin(), NewOutput(cfg.Output))
		},
	}
}

// parsePlayCommand turns one input line into a room request. A nil request
// with a nil error asks for the board to be shown.
func parsePlayCommand(line string, roomID model.RoomID) (*model.RoomRequest, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	switch strings.ToLower(fields[0]) {
	case "put", "p":
		if len(fields) != 3 {
			return nil, fmt.Errorf("usage: put <row> <col>")
		}
		row, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("invalid row %q", fields[1])
		}
		col, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, fmt.Errorf("invalid col %q", fields[2])
		}
		return &model.RoomRequest{OpType: model.OpPutChess, RoomID: roomID, Row: row, Col: col}, nil

	case "chat", "say":
		message := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))
		if message == "" {
			return nil, fmt.Errorf("usage: chat <message>")
		}
		return &model.RoomRequest{OpType: model.OpChat, RoomID: roomID, Message: message}, nil

	case "board", "b":
		return nil, nil

	case "quit", "exit", "q":
		return nil, errQuit

	default:
		return nil, fmt.Errorf("unknown command %q", fields[0])
	}
}

func runPlay(ctx context.Context, in io.Reader, out *Output) error {
	s, err := dialSocket("/ws/room")
	if err != nil {
		return err
	}
	defer s.close()

	first, err := s.next()
	if err != nil {
		return fmt.Errorf("connection closed: %w", err)
	}
	out.PrintEvent(first)
	ready := decodeEvent(first)
	if ready.OpType != model.OpRoomReady || !ready.Result {
		return fmt.Errorf("room refused: %s", ready.Reason)
	}

	roomID := model.RoomID(ready.RoomID)
	board := model.NewBoard()
	colorOf := func(uid uint64) model.Color {
		if uid == ready.WhiteID {
			return model.White
		}
		return model.Black
	}
	if out.format != "json" {
		out.PrintMessage(fmt.Sprintf("You play %s", colorOf(ready.UserID)))
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			req, err := parsePlayCommand(line, roomID)
			switch {
			case errors.Is(err, errQuit):
				return nil
			case err != nil:
				out.PrintError(err)
			case req == nil:
				out.Print(board)
			default:
				if err := s.send(req); err != nil {
					return fmt.Errorf("failed to send: %w", err)
				}
			}

		case message, ok := <-s.messages:
			if !ok {
				return fmt.Errorf("connection closed: %w", <-s.errs)
			}
			out.PrintEvent(message)

			ev := decodeEvent(message)
			if ev.OpType != model.OpPutChess || !ev.Result {
				continue
			}
			pos := model.Position{Row: ev.Row, Col: ev.Col}
			if board.IsValidPosition(pos) {
				board.Set(pos, colorOf(ev.UserID))
				if out.format != "json" {
					out.Print(board)
				}
			}
			if ev.Winner != 0 && out.format != "json" {
				if ev.Winner == ready.UserID {
					out.PrintMessage("You win!")
				} else {
					out.PrintMessage("You lose.")
				}
			}
		}
	}
}

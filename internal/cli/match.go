package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mcoot/gobang-online/internal/model"
)

func newMatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "match",
		Short: "Join the hall and wait for an opponent",
		Long: `Connect to the hall WebSocket and ask to be matched against a player
in the same tier:

  - bronze: score below 2000
  - silver: score from 2000 to 2999
  - gold:   score of 3000 and above

The command exits once a match is found; run 'gobangctl play' to enter the
room. Press Ctrl+C to stop waiting.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runMatch(ctx, NewOutput(cfg.Output))
		},
	}
}

func runMatch(ctx context.Context, out *Output) error {
	s, err := dialSocket("/ws/hall")
	if err != nil {
		return err
	}
	defer s.close()

	ready, err := s.next()
	if err != nil {
		return fmt.Errorf("connection closed: %w", err)
	}
	out.PrintEvent(ready)
	if ev := decodeEvent(ready); ev.OpType != model.OpHallReady || !ev.Result {
		return fmt.Errorf("hall refused: %s", ev.Reason)
	}

	if err := s.send(model.HallRequest{OpType: model.OpMatchStart}); err != nil {
		return fmt.Errorf("failed to request match: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			_ = s.send(model.HallRequest{OpType: model.OpMatchStop})
			out.PrintMessage("Stopped waiting")
			return nil

		case message, ok := <-s.messages:
			if !ok {
				return fmt.Errorf("connection closed: %w", <-s.errs)
			}
			out.PrintEvent(message)
			ev := decodeEvent(message)
			switch {
			case ev.OpType == model.OpMatchSuccess:
				if out.format != "json" {
					out.PrintMessage("Match found, run 'gobangctl play' to enter the room")
				}
				return nil
			case ev.OpType == model.OpMatchStart && !ev.Result:
				return fmt.Errorf("match refused: %s", ev.Reason)
			}
		}
	}
}

func decodeEvent(raw []byte) Event {
	var ev Event
	_ = json.Unmarshal(raw, &ev)
	return ev
}

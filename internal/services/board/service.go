package board

import (
	"github.com/mcoot/gobang-online/internal/model"
)

// WinLength is the number of contiguous stones that wins the game
const WinLength = 5

// directions are the four line axes checked from a placed stone:
// horizontal, vertical, anti-diagonal and main diagonal. Each axis is walked
// in both senses.
var directions = [4][2]int{
	{0, 1},
	{1, 0},
	{-1, 1},
	{-1, -1},
}

// Service provides placement and win detection over a board. It holds no
// state and is safe for concurrent use on distinct boards.
type Service struct{}

// New creates a new BoardService
func New() *Service {
	return &Service{}
}

// ValidatePlacement checks if a position is on the board and empty
func (s *Service) ValidatePlacement(board *model.Board, pos model.Position) error {
	if !board.IsValidPosition(pos) {
		return model.ErrInvalidPosition
	}
	if !board.IsEmpty(pos) {
		return model.ErrCellOccupied
	}
	return nil
}

// Place validates and places a stone
func (s *Service) Place(board *model.Board, pos model.Position, color model.Color) error {
	if err := s.ValidatePlacement(board, pos); err != nil {
		return err
	}
	board.Set(pos, color)
	return nil
}

// CheckWin reports whether the stone at pos completes a line of WinLength or
// more. The first axis reaching the threshold decides; the rest are skipped.
func (s *Service) CheckWin(board *model.Board, pos model.Position) bool {
	color := board.Get(pos)
	if color == model.Empty {
		return false
	}
	for _, d := range directions {
		count := 1 + s.run(board, pos, color, d[0], d[1]) + s.run(board, pos, color, -d[0], -d[1])
		if count >= WinLength {
			return true
		}
	}
	return false
}

// run counts same-colored stones from pos (exclusive) along one sense
func (s *Service) run(board *model.Board, pos model.Position, color model.Color, dRow, dCol int) int {
	count := 0
	next := model.Position{Row: pos.Row + dRow, Col: pos.Col + dCol}
	for board.IsValidPosition(next) && board.Get(next) == color {
		count++
		next = model.Position{Row: next.Row + dRow, Col: next.Col + dCol}
	}
	return count
}

// Interface for dependency injection
type ServiceInterface interface {
	ValidatePlacement(board *model.Board, pos model.Position) error
	Place(board *model.Board, pos model.Position, color model.Color) error
	CheckWin(board *model.Board, pos model.Position) bool
}

var _ ServiceInterface = (*Service)(nil)

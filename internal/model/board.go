package model

// BoardSize is the side length of a Gobang board
const BoardSize = 15

// Color is the content of a board cell
type Color uint8

const (
	Empty Color = iota
	White
	Black
)

// String returns a lowercase label for the color
func (c Color) String() string {
	switch c {
	case White:
		return "white"
	case Black:
		return "black"
	default:
		return "empty"
	}
}

// Position identifies a cell on the board
type Position struct {
	Row int // 0-indexed from top
	Col int // 0-indexed from left
}

// Board is a fixed 15x15 grid, row-major
type Board struct {
	Cells [BoardSize][BoardSize]Color
}

// NewBoard creates an empty board
func NewBoard() *Board {
	return &Board{}
}

// Get returns the color at the given position, or Empty if out of bounds
func (b *Board) Get(pos Position) Color {
	if !b.IsValidPosition(pos) {
		return Empty
	}
	return b.Cells[pos.Row][pos.Col]
}

// Set places a stone at the given position
func (b *Board) Set(pos Position, c Color) {
	if b.IsValidPosition(pos) {
		b.Cells[pos.Row][pos.Col] = c
	}
}

// IsEmpty returns true if the cell at the given position is empty
func (b *Board) IsEmpty(pos Position) bool {
	return b.Get(pos) == Empty
}

// IsValidPosition returns true if the position is within bounds
func (b *Board) IsValidPosition(pos Position) bool {
	return pos.Row >= 0 && pos.Row < BoardSize && pos.Col >= 0 && pos.Col < BoardSize
}

// StoneCount returns the number of occupied cells
func (b *Board) StoneCount() int {
	count := 0
	for row := 0; row < BoardSize; row++ {
		for col := 0; col < BoardSize; col++ {
			if b.Cells[row][col] != Empty {
				count++
			}
		}
	}
	return count
}

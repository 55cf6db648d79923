// Package board implements the chess board as an 8x8 grid of packed piece
// bytes, the byte encoding used to persist it, and the move legality rules,
// including path blocking for sliding pieces and the no-legal-move terminal
// check.
package board

import "fmt"

// Square represents a square on the chess board (0-63).
// Uses Little-Endian Rank-File Mapping: A1=0, H1=7, A8=56, H8=63.
type Square uint8

// Square constants for all 64 squares.
const (
	A1 Square = iota
	B1
	C1
	D1
	E1
	F1
	G1
	H1
	A2
	B2
	C2
	D2
	E2
	F2
	G2
	H2
	A3
	B3
	C3
	D3
	E3
	F3
	G3
	H3
	A4
	B4
	C4
	D4
	E4
	F4
	G4
	H4
	A5
	B5
	C5
	D5
	E5
	F5
	G5
	H5
	A6
	B6
	C6
	D6
	E6
	F6
	G6
	H6
	A7
	B7
	C7
	D7
	E7
	F7
	G7
	H7
	A8
	B8
	C8
	D8
	E8
	F8
	G8
	H8
	NoSquare Square = 64
)

// File returns the file (column) of the square (0-7, where 0=a, 7=h).
func (sq Square) File() int {
	return int(sq) & 7
}

// Rank returns the rank (row) of the square (0-7, where 0=1, 7=8).
func (sq Square) Rank() int {
	return int(sq) >> 3
}

// Coord returns the square as an always-in-bounds coordinate pair.
func (sq Square) Coord() Coord {
	return Coord{File: sq.File(), Rank: sq.Rank()}
}

// String returns the algebraic notation for the square (e.g., "e4").
func (sq Square) String() string {
	if sq >= NoSquare {
		return "-"
	}
	return fmt.Sprintf("%c%c", 'a'+sq.File(), '1'+sq.Rank())
}

// NewSquare creates a square from file and rank (0-indexed). Both must be in
// range; use Coord for caller-supplied values that still need validation.
func NewSquare(file, rank int) Square {
	return Square(rank*8 + file)
}

// ParseSquare parses algebraic notation (e.g., "e4") into a Square.
func ParseSquare(s string) (Square, error) {
	c, err := ParseCoord(s)
	if err != nil {
		return NoSquare, err
	}
	return c.Square(), nil
}

// IsValid returns true if the square is a valid board square (0-63).
func (sq Square) IsValid() bool {
	return sq < NoSquare
}

// RelativeRank returns the rank from a given color's perspective.
// For White, rank 0 is the 1st rank; for Black, rank 0 is the 8th rank.
func (sq Square) RelativeRank(c Color) int {
	if c == White {
		return sq.Rank()
	}
	return 7 - sq.Rank()
}

// Coord is a caller-supplied (file, rank) pair that has not yet been bounds
// checked. Move submissions travel as Coords so that out-of-range input is a
// reportable rejection instead of a panic.
type Coord struct {
	File int `json:"file"`
	Rank int `json:"rank"`
}

// InBounds reports whether both components lie in [0,7].
func (c Coord) InBounds() bool {
	return c.File >= 0 && c.File <= 7 && c.Rank >= 0 && c.Rank <= 7
}

// Square converts the coordinate to a Square. Only meaningful when InBounds
// returns true.
func (c Coord) Square() Square {
	return NewSquare(c.File, c.Rank)
}

// String returns algebraic notation when in bounds, otherwise the raw pair.
func (c Coord) String() string {
	if !c.InBounds() {
		return fmt.Sprintf("(%d,%d)", c.File, c.Rank)
	}
	return c.Square().String()
}

// ParseCoord parses algebraic notation (e.g., "e4") into a Coord.
func ParseCoord(s string) (Coord, error) {
	if len(s) != 2 {
		return Coord{}, fmt.Errorf("invalid square: %q", s)
	}

	file := int(s[0] - 'a')
	rank := int(s[1] - '1')

	c := Coord{File: file, Rank: rank}
	if !c.InBounds() {
		return Coord{}, fmt.Errorf("invalid square: %q", s)
	}
	return c, nil
}

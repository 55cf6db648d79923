package board

import "fmt"

// Color represents the color of a piece or player.
type Color uint8

const (
	White Color = iota
	Black
	NoColor Color = 2
)

// Other returns the opposite color.
func (c Color) Other() Color {
	return c ^ 1
}

// String returns the color name.
func (c Color) String() string {
	switch c {
	case White:
		return "White"
	case Black:
		return "Black"
	default:
		return "NoColor"
	}
}

// PieceType represents the type of a chess piece.
// The numeric values 1-6 are part of the stored board format and must not
// change.
type PieceType uint8

const (
	NoPieceType PieceType = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

// String returns the piece type name.
func (pt PieceType) String() string {
	switch pt {
	case Pawn:
		return "Pawn"
	case Knight:
		return "Knight"
	case Bishop:
		return "Bishop"
	case Rook:
		return "Rook"
	case Queen:
		return "Queen"
	case King:
		return "King"
	default:
		return "None"
	}
}

// IsSliding reports whether the piece type moves along a line that can be
// obstructed. Knights jump and pawns/kings move a bounded single step.
func (pt PieceType) IsSliding() bool {
	return pt == Bishop || pt == Rook || pt == Queen
}

// Piece combines PieceType and Color into a single byte, which is also the
// stored representation: bits 0-2 hold the piece type (1-6), bit 3 holds the
// color (set for Black), and zero means an empty square.
type Piece uint8

const (
	colorBit = 0x08
	kindMask = 0x07

	NoPiece Piece = 0

	WhitePawn   Piece = Piece(Pawn)
	WhiteKnight Piece = Piece(Knight)
	WhiteBishop Piece = Piece(Bishop)
	WhiteRook   Piece = Piece(Rook)
	WhiteQueen  Piece = Piece(Queen)
	WhiteKing   Piece = Piece(King)
	BlackPawn   Piece = Piece(Pawn) | colorBit
	BlackKnight Piece = Piece(Knight) | colorBit
	BlackBishop Piece = Piece(Bishop) | colorBit
	BlackRook   Piece = Piece(Rook) | colorBit
	BlackQueen  Piece = Piece(Queen) | colorBit
	BlackKing   Piece = Piece(King) | colorBit
)

// NewPiece creates a Piece from PieceType and Color.
// Panics on an out-of-range type or color; callers construct pieces from the
// fixed constants above, so a bad argument is a bug, not input.
func NewPiece(pt PieceType, c Color) Piece {
	if pt == NoPieceType || pt > King || c > Black {
		panic(fmt.Sprintf("board: invalid piece %d/%d", pt, c))
	}
	p := Piece(pt)
	if c == Black {
		p |= colorBit
	}
	return p
}

// DecodePiece converts a stored byte back into a Piece, rejecting byte values
// that do not appear in the encoding table. Used when reading persisted
// boards, where a bad byte means corruption rather than a programming error.
func DecodePiece(b byte) (Piece, error) {
	if b == 0 {
		return NoPiece, nil
	}
	if b&^(colorBit|kindMask) != 0 || b&kindMask == 0 || PieceType(b&kindMask) > King {
		return NoPiece, fmt.Errorf("invalid piece byte 0x%02x", b)
	}
	return Piece(b), nil
}

// IsEmpty reports whether p denotes an empty square.
func (p Piece) IsEmpty() bool {
	return p == NoPiece
}

// Type returns the PieceType of the piece, or NoPieceType for an empty
// square.
func (p Piece) Type() PieceType {
	return PieceType(p & kindMask)
}

// Color returns the Color of the piece, or NoColor for an empty square.
func (p Piece) Color() Color {
	if p == NoPiece {
		return NoColor
	}
	if p&colorBit != 0 {
		return Black
	}
	return White
}

// String returns the FEN character for the piece.
// Uppercase for white, lowercase for black, space for an empty square.
func (p Piece) String() string {
	if p == NoPiece {
		return " "
	}
	chars := " PNBRQK"
	c := chars[p.Type()]
	if p.Color() == Black {
		c += 'a' - 'A'
	}
	return string(c)
}

// PieceFromChar converts a FEN character to a Piece.
func PieceFromChar(c byte) Piece {
	switch c {
	case 'P':
		return WhitePawn
	case 'N':
		return WhiteKnight
	case 'B':
		return WhiteBishop
	case 'R':
		return WhiteRook
	case 'Q':
		return WhiteQueen
	case 'K':
		return WhiteKing
	case 'p':
		return BlackPawn
	case 'n':
		return BlackKnight
	case 'b':
		return BlackBishop
	case 'r':
		return BlackRook
	case 'q':
		return BlackQueen
	case 'k':
		return BlackKing
	default:
		return NoPiece
	}
}

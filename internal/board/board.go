package board

import (
	"fmt"
	"strconv"
	"strings"
)

// StartPlacement is the piece placement of the starting position in FEN
// board notation.
const StartPlacement = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR"

// backRank is the standard back-rank arrangement from file a to file h.
var backRank = [8]PieceType{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

// Board is an 8x8 grid of packed piece bytes indexed [rank][file], rank 0
// being White's back row. Board is a value type; assignment copies the whole
// grid, which keeps snapshots independent of the live game.
type Board struct {
	grid [8][8]Piece
}

// NewBoard returns a board holding the standard starting position.
func NewBoard() Board {
	var b Board
	for file := 0; file < 8; file++ {
		b.grid[0][file] = NewPiece(backRank[file], White)
		b.grid[1][file] = NewPiece(Pawn, White)
		b.grid[6][file] = NewPiece(Pawn, Black)
		b.grid[7][file] = NewPiece(backRank[file], Black)
	}
	return b
}

// PieceAt returns the piece on the given square, or NoPiece.
func (b *Board) PieceAt(sq Square) Piece {
	return b.grid[sq.Rank()][sq.File()]
}

// IsEmpty reports whether the given square holds no piece.
func (b *Board) IsEmpty(sq Square) bool {
	return b.PieceAt(sq).IsEmpty()
}

// SetPiece places a piece on the given square, replacing whatever was there.
func (b *Board) SetPiece(p Piece, sq Square) {
	b.grid[sq.Rank()][sq.File()] = p
}

// RemovePiece empties the given square.
func (b *Board) RemovePiece(sq Square) {
	b.grid[sq.Rank()][sq.File()] = NoPiece
}

// MovePiece moves the piece on from to to. Whatever occupied to is
// overwritten, which is how captures happen; from becomes empty.
func (b *Board) MovePiece(from, to Square) {
	b.grid[to.Rank()][to.File()] = b.grid[from.Rank()][from.File()]
	b.grid[from.Rank()][from.File()] = NoPiece
}

// Encode packs the board into its 64-byte stored form, one byte per square
// in square order (A1, B1, ... H8).
func (b *Board) Encode() [64]byte {
	var out [64]byte
	for sq := A1; sq < NoSquare; sq++ {
		out[sq] = byte(b.PieceAt(sq))
	}
	return out
}

// DecodeBoard unpacks a 64-byte stored board, validating every byte against
// the encoding table.
func DecodeBoard(raw [64]byte) (Board, error) {
	var b Board
	for sq := A1; sq < NoSquare; sq++ {
		p, err := DecodePiece(raw[sq])
		if err != nil {
			return Board{}, fmt.Errorf("square %s: %v", sq, err)
		}
		b.SetPiece(p, sq)
	}
	return b, nil
}

// Placement returns the piece placement in FEN board notation, rank 8 first.
func (b *Board) Placement() string {
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			piece := b.PieceAt(NewSquare(file, rank))
			if piece == NoPiece {
				empty++
			} else {
				if empty > 0 {
					sb.WriteString(strconv.Itoa(empty))
					empty = 0
				}
				sb.WriteString(piece.String())
			}
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}
	return sb.String()
}

// ParsePlacement builds a board from FEN board notation. The inverse of
// Placement; mostly useful for setting up positions in tests.
func ParsePlacement(placement string) (Board, error) {
	var b Board
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return Board{}, fmt.Errorf("invalid placement: need 8 ranks, got %d", len(ranks))
	}

	for i, rankStr := range ranks {
		rank := 7 - i
		file := 0

		for _, c := range rankStr {
			if file > 7 {
				return Board{}, fmt.Errorf("too many squares in rank %d", rank+1)
			}

			if c >= '1' && c <= '8' {
				file += int(c - '0')
			} else {
				piece := PieceFromChar(byte(c))
				if piece == NoPiece {
					return Board{}, fmt.Errorf("invalid piece character: %c", c)
				}
				b.SetPiece(piece, NewSquare(file, rank))
				file++
			}
		}

		if file != 8 {
			return Board{}, fmt.Errorf("invalid number of squares in rank %d: got %d", rank+1, file)
		}
	}

	return b, nil
}

// String returns a printable diagram of the board, rank 8 at the top.
func (b *Board) String() string {
	s := "\n"
	for rank := 7; rank >= 0; rank-- {
		s += fmt.Sprintf("%d  ", rank+1)
		for file := 0; file < 8; file++ {
			piece := b.PieceAt(NewSquare(file, rank))
			if piece == NoPiece {
				s += ". "
			} else {
				s += piece.String() + " "
			}
		}
		s += "\n"
	}
	s += "\n   a b c d e f g h\n"
	return s
}

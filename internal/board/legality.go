package board

import "errors"

// Rejection reasons returned by ValidateMove. Each is a distinct condition;
// callers map them to response codes without collapsing them together.
var (
	ErrOutOfBounds     = errors.New("square out of bounds")
	ErrEmptySource     = errors.New("no piece at origin")
	ErrWrongColorPiece = errors.New("piece belongs to the opponent")
	ErrOwnPieceCapture = errors.New("cannot capture own piece")
	ErrIllegalShape    = errors.New("move shape illegal for piece")
	ErrPathBlocked     = errors.New("path is blocked")
)

// ValidateMove decides whether the side to move may play from->to on the
// given board. Checks run in a fixed order and the first failure is the
// verdict: bounds, origin occupancy, origin color, destination color, then
// the piece-specific shape and, for sliding pieces, path clearance. The
// board is never modified.
//
// Moving onto a square held by one's own piece is rejected before the shape
// check, which also covers from == to.
func ValidateMove(b *Board, turn Color, from, to Coord) error {
	if !from.InBounds() || !to.InBounds() {
		return ErrOutOfBounds
	}
	origin := from.Square()
	dest := to.Square()

	piece := b.PieceAt(origin)
	if piece.IsEmpty() {
		return ErrEmptySource
	}
	if piece.Color() != turn {
		return ErrWrongColorPiece
	}
	if target := b.PieceAt(dest); !target.IsEmpty() && target.Color() == piece.Color() {
		return ErrOwnPieceCapture
	}

	df := dest.File() - origin.File()
	dr := dest.Rank() - origin.Rank()

	kind := piece.Type()
	switch kind {
	case Pawn:
		return validatePawnMove(b, piece.Color(), origin, dest, df, dr)
	case Knight:
		if !(abs(df) == 1 && abs(dr) == 2) && !(abs(df) == 2 && abs(dr) == 1) {
			return ErrIllegalShape
		}
	case Bishop:
		if df == 0 || abs(df) != abs(dr) {
			return ErrIllegalShape
		}
	case Rook:
		if (df == 0) == (dr == 0) {
			return ErrIllegalShape
		}
	case Queen:
		diagonal := df != 0 && abs(df) == abs(dr)
		straight := (df == 0) != (dr == 0)
		if !diagonal && !straight {
			return ErrIllegalShape
		}
	case King:
		if abs(df) > 1 || abs(dr) > 1 || (df == 0 && dr == 0) {
			return ErrIllegalShape
		}
	default:
		panic("board: unhandled piece type")
	}

	if kind.IsSliding() {
		return pathClear(b, origin, dest)
	}
	return nil
}

// validatePawnMove applies the pawn rules: forward only by color, a single
// step onto an empty square, a double step from the home rank across two
// empty squares, or a diagonal single step that captures. Anything else is a
// shape violation, including a blocked forward step.
func validatePawnMove(b *Board, c Color, origin, dest Square, df, dr int) error {
	forward := 1
	if c == Black {
		forward = -1
	}

	switch {
	case df == 0 && dr == forward:
		if !b.IsEmpty(dest) {
			return ErrIllegalShape
		}
		return nil
	case df == 0 && dr == 2*forward && origin.RelativeRank(c) == 1:
		between := NewSquare(origin.File(), origin.Rank()+forward)
		if !b.IsEmpty(between) || !b.IsEmpty(dest) {
			return ErrIllegalShape
		}
		return nil
	case abs(df) == 1 && dr == forward:
		if b.IsEmpty(dest) {
			return ErrIllegalShape
		}
		return nil
	}
	return ErrIllegalShape
}

// pathClear walks the squares strictly between origin and dest in unit steps
// along the move's line and fails on the first occupied one. Callers have
// already established that the line is straight or diagonal.
func pathClear(b *Board, origin, dest Square) error {
	stepFile := sign(dest.File() - origin.File())
	stepRank := sign(dest.Rank() - origin.Rank())

	file, rank := origin.File()+stepFile, origin.Rank()+stepRank
	for file != dest.File() || rank != dest.Rank() {
		if !b.IsEmpty(NewSquare(file, rank)) {
			return ErrPathBlocked
		}
		file += stepFile
		rank += stepRank
	}
	return nil
}

// HasAnyLegalMove reports whether the given color has at least one legal
// move anywhere on the board. Every piece of that color is tried against
// every square; the first legal verdict short-circuits. With no legal move
// the position is terminal for that color.
func HasAnyLegalMove(b *Board, c Color) bool {
	for from := A1; from < NoSquare; from++ {
		piece := b.PieceAt(from)
		if piece.IsEmpty() || piece.Color() != c {
			continue
		}
		for to := A1; to < NoSquare; to++ {
			if ValidateMove(b, c, from.Coord(), to.Coord()) == nil {
				return true
			}
		}
	}
	return false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

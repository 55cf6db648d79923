// Package game implements the per-session state machine: a single board,
// the turn flag, and the Active/Ended status, mutated only through ApplyMove
// and Resign.
package game

import (
	"errors"

	"github.com/jamesninnes/chess-on-chain/internal/board"
)

// Rejection reasons for session-level preconditions. Move-level reasons come
// from the board package and pass through unchanged.
var (
	ErrSelfPlayNotAllowed = errors.New("players must differ")
	ErrEmptyPlayer        = errors.New("player identity required")
	ErrPlayerTooLong      = errors.New("player identity too long")
	ErrGameNotActive      = errors.New("game not active")
	ErrNotYourTurn        = errors.New("not your turn")
)

// maxPlayerLen bounds a player identity in bytes. Stored game records carry
// identities behind a 16-bit length prefix; the cap keeps every accepted
// identity well inside that limit.
const maxPlayerLen = 255

// Status is the lifecycle state of a game.
type Status uint8

const (
	StatusActive Status = iota
	StatusEnded
)

// String returns the status label used in snapshots and stored records.
func (s Status) String() string {
	if s == StatusEnded {
		return "ended"
	}
	return "active"
}

// EndReason says how a game reached StatusEnded.
type EndReason string

const (
	EndNoLegalMoves EndReason = "no_legal_moves"
	EndResignation  EndReason = "resignation"
)

// Game holds one session's mutable state. The zero value is not usable;
// construct with New or fill every field when rehydrating a stored record.
// Games are not safe for concurrent use; the registry serializes access.
type Game struct {
	ID     uint64
	White  string
	Black  string
	Board  board.Board
	Turn   board.Color
	Status Status
	Winner string
	Reason EndReason
}

// ValidatePlayers checks the identity rules applied at game creation: both
// identities present, neither longer than maxPlayerLen bytes, and distinct.
func ValidatePlayers(white, black string) error {
	if white == "" || black == "" {
		return ErrEmptyPlayer
	}
	if len(white) > maxPlayerLen || len(black) > maxPlayerLen {
		return ErrPlayerTooLong
	}
	if white == black {
		return ErrSelfPlayNotAllowed
	}
	return nil
}

// New creates an active game on the standard starting position with White
// to move.
func New(id uint64, white, black string) (*Game, error) {
	if err := ValidatePlayers(white, black); err != nil {
		return nil, err
	}
	return &Game{
		ID:     id,
		White:  white,
		Black:  black,
		Board:  board.NewBoard(),
		Turn:   board.White,
		Status: StatusActive,
	}, nil
}

// Outcome reports what a successful operation did to the game.
type Outcome struct {
	Ended  bool
	Winner string
	Reason EndReason
}

// ApplyMove validates and applies a move submitted by mover. Preconditions
// run in order: the game must be active, mover must be the registered player
// whose color is on turn, and the move must pass board validation. On
// success the destination is overwritten, the origin emptied, and the turn
// flipped; if the new side to move has no legal reply the game ends with the
// mover as winner. On any rejection the game is left unchanged.
func (g *Game) ApplyMove(mover string, from, to board.Coord) (Outcome, error) {
	if g.Status != StatusActive {
		return Outcome{}, ErrGameNotActive
	}
	color, ok := g.PlayerColor(mover)
	if !ok || color != g.Turn {
		return Outcome{}, ErrNotYourTurn
	}
	if err := board.ValidateMove(&g.Board, g.Turn, from, to); err != nil {
		return Outcome{}, err
	}

	g.Board.MovePiece(from.Square(), to.Square())
	moved := g.Turn
	g.Turn = g.Turn.Other()

	if !board.HasAnyLegalMove(&g.Board, g.Turn) {
		return g.end(g.Player(moved), EndNoLegalMoves), nil
	}
	return Outcome{}, nil
}

// Resign ends an active game in favor of the opponent. Either registered
// player may resign, regardless of whose turn it is.
func (g *Game) Resign(mover string) (Outcome, error) {
	if g.Status != StatusActive {
		return Outcome{}, ErrGameNotActive
	}
	color, ok := g.PlayerColor(mover)
	if !ok {
		return Outcome{}, ErrNotYourTurn
	}
	return g.end(g.Player(color.Other()), EndResignation), nil
}

func (g *Game) end(winner string, reason EndReason) Outcome {
	g.Status = StatusEnded
	g.Winner = winner
	g.Reason = reason
	return Outcome{Ended: true, Winner: winner, Reason: reason}
}

// PlayerColor maps a player identity to its color. The second result is
// false for identities not registered on this game.
func (g *Game) PlayerColor(identity string) (board.Color, bool) {
	switch identity {
	case g.White:
		return board.White, true
	case g.Black:
		return board.Black, true
	}
	return board.NoColor, false
}

// Player returns the identity playing the given color.
func (g *Game) Player(c board.Color) string {
	if c == board.White {
		return g.White
	}
	return g.Black
}

// Snapshot is a caller-facing copy of the game state, safe to hold after
// the game has moved on.
type Snapshot struct {
	ID        uint64    `json:"id"`
	White     string    `json:"white"`
	Black     string    `json:"black"`
	Turn      string    `json:"turn"`
	Status    string    `json:"status"`
	Winner    string    `json:"winner,omitempty"`
	EndReason EndReason `json:"end_reason,omitempty"`
	Board     string    `json:"board"`
}

// Snapshot returns the current state as an immutable copy.
func (g *Game) Snapshot() Snapshot {
	return Snapshot{
		ID:        g.ID,
		White:     g.White,
		Black:     g.Black,
		Turn:      colorLabel(g.Turn),
		Status:    g.Status.String(),
		Winner:    g.Winner,
		EndReason: g.Reason,
		Board:     g.Board.Placement(),
	}
}

func colorLabel(c board.Color) string {
	if c == board.Black {
		return "black"
	}
	return "white"
}

// Package event defines the notifications emitted by the registry and an
// in-process bus that fans them out to subscribers. Events are also appended
// to the store, which assigns the sequence numbers used as feed cursors.
package event

import (
	"time"

	"github.com/google/uuid"
)

// Type labels the notification kinds.
type Type string

const (
	TypeGameCreated Type = "game_created"
	TypeMovePlayed  Type = "move_played"
	TypeGameEnded   Type = "game_ended"
)

// Event is a single notification. Seq is assigned when the event is appended
// to the store; every other field is set at emission time. Fields that do
// not apply to the event type stay empty.
type Event struct {
	Seq    uint64    `json:"seq"`
	ID     string    `json:"id"`
	Type   Type      `json:"type"`
	GameID uint64    `json:"game_id"`
	White  string    `json:"white,omitempty"`
	Black  string    `json:"black,omitempty"`
	Player string    `json:"player,omitempty"`
	From   string    `json:"from,omitempty"`
	To     string    `json:"to,omitempty"`
	Winner string    `json:"winner,omitempty"`
	Reason string    `json:"reason,omitempty"`
	Time   time.Time `json:"time"`
}

// NewGameCreated builds the notification announcing a fresh game.
func NewGameCreated(gameID uint64, white, black string) Event {
	e := newEvent(TypeGameCreated, gameID)
	e.White = white
	e.Black = black
	return e
}

// NewMovePlayed builds the notification for an applied move. from and to are
// algebraic squares.
func NewMovePlayed(gameID uint64, player, from, to string) Event {
	e := newEvent(TypeMovePlayed, gameID)
	e.Player = player
	e.From = from
	e.To = to
	return e
}

// NewGameEnded builds the notification announcing a finished game.
func NewGameEnded(gameID uint64, winner, reason string) Event {
	e := newEvent(TypeGameEnded, gameID)
	e.Winner = winner
	e.Reason = reason
	return e
}

func newEvent(t Type, gameID uint64) Event {
	return Event{
		ID:     uuid.NewString(),
		Type:   t,
		GameID: gameID,
		Time:   time.Now().UTC(),
	}
}

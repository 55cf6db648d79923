// Package registry maps game identifiers to live sessions and serializes
// access to each one. It owns create/read/submit orchestration: an accepted
// mutation is persisted and announced before the call returns, and a
// rejected one leaves no trace.
package registry

import (
	"errors"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/jamesninnes/chess-on-chain/internal/board"
	"github.com/jamesninnes/chess-on-chain/internal/event"
	"github.com/jamesninnes/chess-on-chain/internal/game"
	"github.com/jamesninnes/chess-on-chain/internal/store"
)

// ErrGameNotFound is returned for identifiers with no session.
var ErrGameNotFound = errors.New("game not found")

// session guards one game. The mutex covers the whole
// validate-apply-persist-announce step, so no concurrent submission against
// the same game observes an intermediate state.
type session struct {
	mu sync.Mutex
	g  *game.Game
}

// Registry is the authoritative session table. Distinct games proceed
// concurrently; submissions to one game are serialized by its session lock.
type Registry struct {
	store  *store.Store
	bus    *event.Bus
	logger *zap.Logger

	mu       sync.RWMutex
	sessions map[uint64]*session
}

// New builds a registry over the given store and bus, rehydrating every
// persisted game so sessions survive restarts. A nil logger disables
// logging; a nil bus gets replaced with a private one.
func New(st *store.Store, bus *event.Bus, logger *zap.Logger) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if bus == nil {
		bus = event.NewBus(logger)
	}

	r := &Registry{
		store:    st,
		bus:      bus,
		logger:   logger,
		sessions: make(map[uint64]*session),
	}
	err := st.ForEachGame(func(g *game.Game) error {
		r.sessions[g.ID] = &session{g: g}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if n := len(r.sessions); n > 0 {
		logger.Info("recovered games", zap.Int("count", n))
	}
	return r, nil
}

// CreateGame allocates the next game id, persists a fresh game with the
// initiator as White, and announces it.
func (r *Registry) CreateGame(white, black string) (game.Snapshot, error) {
	if err := game.ValidatePlayers(white, black); err != nil {
		return game.Snapshot{}, err
	}

	id, err := r.store.NextGameID()
	if err != nil {
		return game.Snapshot{}, err
	}
	g, err := game.New(id, white, black)
	if err != nil {
		return game.Snapshot{}, err
	}
	if err := r.store.SaveGame(g); err != nil {
		return game.Snapshot{}, err
	}

	r.mu.Lock()
	r.sessions[id] = &session{g: g}
	r.mu.Unlock()

	r.emit(event.NewGameCreated(id, white, black))
	r.logger.Info("game created",
		zap.Uint64("game_id", id),
		zap.String("white", white),
		zap.String("black", black))
	return g.Snapshot(), nil
}

// Game returns a snapshot of one session.
func (r *Registry) Game(id uint64) (game.Snapshot, error) {
	s, err := r.session(id)
	if err != nil {
		return game.Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.g.Snapshot(), nil
}

// Games returns snapshots of every session in id order.
func (r *Registry) Games() []game.Snapshot {
	r.mu.RLock()
	sessions := make([]*session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	out := make([]game.Snapshot, 0, len(sessions))
	for _, s := range sessions {
		s.mu.Lock()
		out = append(out, s.g.Snapshot())
		s.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SubmitMove applies one move as a single atomic step against the game. The
// mutation happens on a copy that only replaces the session state once it
// has been persisted, so a storage failure leaves the game as it was. On
// success the move is announced; a terminal move additionally announces the
// end of the game.
func (r *Registry) SubmitMove(id uint64, mover string, from, to board.Coord) (game.Snapshot, error) {
	s, err := r.session(id)
	if err != nil {
		return game.Snapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := *s.g
	out, err := next.ApplyMove(mover, from, to)
	if err != nil {
		r.logger.Debug("move rejected",
			zap.Uint64("game_id", id),
			zap.String("mover", mover),
			zap.Error(err))
		return game.Snapshot{}, err
	}
	if err := r.store.SaveGame(&next); err != nil {
		return game.Snapshot{}, err
	}
	s.g = &next

	r.emit(event.NewMovePlayed(id, mover, from.String(), to.String()))
	r.logger.Info("move applied",
		zap.Uint64("game_id", id),
		zap.String("mover", mover),
		zap.String("from", from.String()),
		zap.String("to", to.String()))

	if out.Ended {
		r.emit(event.NewGameEnded(id, out.Winner, string(out.Reason)))
		r.logger.Info("game ended",
			zap.Uint64("game_id", id),
			zap.String("winner", out.Winner),
			zap.String("reason", string(out.Reason)))
	}
	return next.Snapshot(), nil
}

// Resign ends an active game in favor of the opponent and announces the
// result.
func (r *Registry) Resign(id uint64, mover string) (game.Snapshot, error) {
	s, err := r.session(id)
	if err != nil {
		return game.Snapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := *s.g
	out, err := next.Resign(mover)
	if err != nil {
		return game.Snapshot{}, err
	}
	if err := r.store.SaveGame(&next); err != nil {
		return game.Snapshot{}, err
	}
	s.g = &next

	r.emit(event.NewGameEnded(id, out.Winner, string(out.Reason)))
	r.logger.Info("game ended",
		zap.Uint64("game_id", id),
		zap.String("winner", out.Winner),
		zap.String("reason", string(out.Reason)))
	return next.Snapshot(), nil
}

// Events reads the persisted event log after the given cursor. gameID
// filters to a single game when nonzero.
func (r *Registry) Events(after uint64, limit int, gameID uint64) ([]event.Event, error) {
	return r.store.Events(after, limit, gameID)
}

// Subscribe attaches a live event listener.
func (r *Registry) Subscribe(buffer int) (<-chan event.Event, func()) {
	return r.bus.Subscribe(buffer)
}

func (r *Registry) session(id uint64) (*session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrGameNotFound
	}
	return s, nil
}

// emit persists the event, which assigns its sequence number, then fans it
// out to live subscribers. A persistence failure is logged and the event
// still goes out with no sequence.
func (r *Registry) emit(e event.Event) {
	seq, err := r.store.AppendEvent(e)
	if err != nil {
		r.logger.Error("persist event",
			zap.Error(err),
			zap.String("event_type", string(e.Type)),
			zap.Uint64("game_id", e.GameID))
	} else {
		e.Seq = seq
	}
	r.bus.Publish(e)
}

package store

import (
	"encoding/binary"
	"encoding/json"
	"os"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/jamesninnes/chess-on-chain/internal/event"
	"github.com/jamesninnes/chess-on-chain/internal/game"
)

// Key layout. Game records and events live under an 8-byte big-endian
// suffix so iteration yields them in id and sequence order.
var (
	gamePrefix  = []byte("game/")
	eventPrefix = []byte("event/")
	gameSeqKey  = []byte("seq/game")
	eventSeqKey = []byte("seq/event")
)

const (
	seqBandwidth      = 64
	defaultEventBatch = 100
	maxEventBatch     = 500
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store wraps BadgerDB for persistent game records and the event log, and
// hands out the monotonic identifiers both use.
type Store struct {
	db       *badger.DB
	gameSeq  *badger.Sequence
	eventSeq *badger.Sequence
	eventMu  sync.Mutex // keeps event commit order aligned with sequence order
	logger   *zap.Logger
}

// Open opens or creates the database in dir. A nil logger disables logging.
func Open(dir string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "create database dir %s", dir)
	}

	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Disable badger's own logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "open database at %s", dir)
	}

	gameSeq, err := db.GetSequence(gameSeqKey, seqBandwidth)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "open game id sequence")
	}
	eventSeq, err := db.GetSequence(eventSeqKey, seqBandwidth)
	if err != nil {
		gameSeq.Release()
		db.Close()
		return nil, errors.Wrap(err, "open event sequence")
	}

	logger.Info("store opened", zap.String("dir", dir))
	return &Store{
		db:       db,
		gameSeq:  gameSeq,
		eventSeq: eventSeq,
		logger:   logger,
	}, nil
}

// Close releases the id sequences and closes the database.
func (s *Store) Close() error {
	var result error
	if s.gameSeq != nil {
		if err := s.gameSeq.Release(); err != nil {
			result = multierror.Append(result, errors.Wrap(err, "release game id sequence"))
		}
	}
	if s.eventSeq != nil {
		if err := s.eventSeq.Release(); err != nil {
			result = multierror.Append(result, errors.Wrap(err, "release event sequence"))
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			result = multierror.Append(result, errors.Wrap(err, "close database"))
		}
	}
	return result
}

// NextGameID allocates the next game identifier. Ids start at 1 and only
// increase, also across restarts. Restarting can skip over unused ids from
// the sequence lease; that keeps them unique without a write per allocation.
func (s *Store) NextGameID() (uint64, error) {
	n, err := s.gameSeq.Next()
	if err != nil {
		return 0, errors.Wrap(err, "next game id")
	}
	return n + 1, nil
}

func gameKey(id uint64) []byte {
	key := make([]byte, len(gamePrefix)+8)
	copy(key, gamePrefix)
	binary.BigEndian.PutUint64(key[len(gamePrefix):], id)
	return key
}

func eventKey(seq uint64) []byte {
	key := make([]byte, len(eventPrefix)+8)
	copy(key, eventPrefix)
	binary.BigEndian.PutUint64(key[len(eventPrefix):], seq)
	return key
}

// SaveGame writes the game's current state, replacing any previous record.
func (s *Store) SaveGame(g *game.Game) error {
	data, err := encodeGameRecord(g)
	if err != nil {
		return errors.Wrapf(err, "save game %d", g.ID)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(gameKey(g.ID), data)
	})
	return errors.Wrapf(err, "save game %d", g.ID)
}

// LoadGame reads a single game record. Returns ErrNotFound for unknown ids.
func (s *Store) LoadGame(id uint64) (*game.Game, error) {
	var g *game.Game
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(gameKey(id))
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			decoded, err := decodeGameRecord(val)
			if err != nil {
				return err
			}
			g = decoded
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, errors.Wrapf(err, "load game %d", id)
	}
	return g, nil
}

// ForEachGame calls fn for every stored game in id order. Iteration stops on
// the first error fn returns.
func (s *Store) ForEachGame(fn func(*game.Game) error) error {
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = gamePrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(gamePrefix); it.ValidForPrefix(gamePrefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				g, err := decodeGameRecord(val)
				if err != nil {
					return err
				}
				return fn(g)
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return errors.Wrap(err, "iterate games")
}

// AppendEvent assigns the next sequence number, persists the event as JSON,
// and returns the assigned sequence. Appends are serialized so events become
// visible in sequence order: a reader that has seen sequence n has seen
// every event up to n.
func (s *Store) AppendEvent(e event.Event) (uint64, error) {
	s.eventMu.Lock()
	defer s.eventMu.Unlock()

	n, err := s.eventSeq.Next()
	if err != nil {
		return 0, errors.Wrap(err, "next event sequence")
	}
	e.Seq = n + 1

	data, err := json.Marshal(e)
	if err != nil {
		return 0, errors.Wrap(err, "marshal event")
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(eventKey(e.Seq), data)
	})
	if err != nil {
		return 0, errors.Wrapf(err, "save event %d", e.Seq)
	}
	return e.Seq, nil
}

// Events returns up to limit events with sequence greater than after, in
// sequence order. gameID filters to a single game when nonzero.
func (s *Store) Events(after uint64, limit int, gameID uint64) ([]event.Event, error) {
	if limit <= 0 {
		limit = defaultEventBatch
	}
	if limit > maxEventBatch {
		limit = maxEventBatch
	}

	var out []event.Event
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = eventPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(eventKey(after + 1)); it.ValidForPrefix(eventPrefix) && len(out) < limit; it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var e event.Event
				if err := json.Unmarshal(val, &e); err != nil {
					return err
				}
				if gameID != 0 && e.GameID != gameID {
					return nil
				}
				out = append(out, e)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "read events")
	}
	return out, nil
}

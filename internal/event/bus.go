package event

import (
	"sync"

	"go.uber.org/zap"
)

const defaultBuffer = 16

// Bus fans events out to in-process subscribers. Delivery never blocks the
// publisher: a subscriber whose channel buffer is full loses the event, and
// the bus logs the drop. Subscribers needing a complete record read the
// persisted event log instead.
type Bus struct {
	logger *zap.Logger

	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
}

// NewBus creates an empty bus. A nil logger disables logging.
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		logger: logger,
		subs:   make(map[int]chan Event),
	}
}

// Subscribe registers a subscriber with the given channel buffer (a default
// is applied when buffer is not positive). The returned cancel function
// removes the subscription and closes the channel; it is safe to call more
// than once.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = defaultBuffer
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, buffer)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber with buffer room.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.logger.Warn("dropping event for slow subscriber",
				zap.Int("subscriber", id),
				zap.String("event_id", e.ID),
				zap.String("event_type", string(e.Type)),
				zap.Uint64("game_id", e.GameID))
		}
	}
}

// Subscribers returns the current subscriber count.
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

package event

import (
	"testing"
	"time"
)

func TestBusDeliversToSubscribers(t *testing.T) {
	bus := NewBus(nil)

	ch1, cancel1 := bus.Subscribe(4)
	ch2, cancel2 := bus.Subscribe(4)
	defer cancel1()
	defer cancel2()

	sent := NewGameCreated(1, "alice", "bob")
	bus.Publish(sent)

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case got := <-ch:
			if got.ID != sent.ID || got.Type != TypeGameCreated {
				t.Errorf("subscriber %d: got %+v", i, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d: no event delivered", i)
		}
	}
}

func TestBusDropsWhenSubscriberFull(t *testing.T) {
	bus := NewBus(nil)
	ch, cancel := bus.Subscribe(1)
	defer cancel()

	bus.Publish(NewMovePlayed(1, "alice", "e2", "e4"))
	bus.Publish(NewMovePlayed(1, "bob", "e7", "e5"))

	first := <-ch
	if first.From != "e2" {
		t.Fatalf("first delivered event from %q, want e2", first.From)
	}
	select {
	case unexpected := <-ch:
		t.Fatalf("second event should have been dropped, got %+v", unexpected)
	default:
	}
}

func TestBusCancelStopsDelivery(t *testing.T) {
	bus := NewBus(nil)
	ch, cancel := bus.Subscribe(1)

	cancel()
	cancel() // second call is a no-op

	if _, open := <-ch; open {
		t.Fatal("channel should be closed after cancel")
	}
	if n := bus.Subscribers(); n != 0 {
		t.Fatalf("subscriber count = %d after cancel", n)
	}

	// Publishing with no subscribers is fine.
	bus.Publish(NewGameEnded(1, "alice", "resignation"))
}

func TestEventConstructors(t *testing.T) {
	created := NewGameCreated(42, "alice", "bob")
	if created.ID == "" || created.Time.IsZero() {
		t.Error("created event missing id or timestamp")
	}
	if created.Type != TypeGameCreated || created.GameID != 42 ||
		created.White != "alice" || created.Black != "bob" {
		t.Errorf("created event fields: %+v", created)
	}

	move := NewMovePlayed(42, "alice", "b1", "c3")
	if move.Type != TypeMovePlayed || move.Player != "alice" || move.From != "b1" || move.To != "c3" {
		t.Errorf("move event fields: %+v", move)
	}

	ended := NewGameEnded(42, "bob", "no_legal_moves")
	if ended.Type != TypeGameEnded || ended.Winner != "bob" || ended.Reason != "no_legal_moves" {
		t.Errorf("ended event fields: %+v", ended)
	}

	if created.ID == move.ID {
		t.Error("event ids should be unique")
	}
}

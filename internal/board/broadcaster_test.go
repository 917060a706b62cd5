package board

import (
	"testing"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/kitchenboard/pkg/event"
)

func statusUpdate(id int64, status string) Update {
	return Update{Event: event.TicketUpsert{Ticket: ticket(id, status)}, Change: ChangeStatusChanged}
}

func TestBroadcasterDelivers(t *testing.T) {
	bc := NewBroadcaster(4, apt.NewNoopLogger())
	first := bc.Subscribe("screen-1")
	second := bc.Subscribe("screen-2")

	bc.Broadcast(statusUpdate(1, "PENDING"))

	for name, ch := range map[string]<-chan Update{"screen-1": first, "screen-2": second} {
		select {
		case u := <-ch:
			if u.Event.(event.TicketUpsert).Ticket.Status != "PENDING" {
				t.Errorf("%s got %+v", name, u)
			}
		default:
			t.Errorf("%s received nothing", name)
		}
	}
}

func TestBroadcasterEvictsSlowSubscriber(t *testing.T) {
	bc := NewBroadcaster(1, apt.NewNoopLogger())
	slow := bc.Subscribe("slow")
	fast := bc.Subscribe("fast")

	bc.Broadcast(statusUpdate(1, "PENDING"))
	<-fast
	bc.Broadcast(statusUpdate(1, "DONE"))

	if got := bc.Count(); got != 1 {
		t.Fatalf("Count() = %d, want 1 after evicting the slow subscriber", got)
	}

	// The buffered update is still readable, then the channel reports closed.
	u, ok := <-slow
	if !ok || u.Event.(event.TicketUpsert).Ticket.Status != "PENDING" {
		t.Fatalf("first read = %+v, %v; want the buffered PENDING update", u, ok)
	}
	if _, ok := <-slow; ok {
		t.Fatal("slow subscriber channel should be closed so the client resyncs")
	}

	if u := <-fast; u.Event.(event.TicketUpsert).Ticket.Status != "DONE" {
		t.Errorf("fast subscriber got %+v, want DONE", u)
	}

	// Unsubscribing an evicted subscriber is a no-op.
	bc.Unsubscribe("slow")
	bc.Unsubscribe("fast")
	if bc.Count() != 0 {
		t.Errorf("Count() = %d, want 0", bc.Count())
	}
}

func TestBroadcasterClose(t *testing.T) {
	bc := NewBroadcaster(0, nil)
	ch := bc.Subscribe("screen-1")

	bc.Close()

	if _, ok := <-ch; ok {
		t.Error("Close() should close subscriber channels")
	}
	if bc.Count() != 0 {
		t.Errorf("Count() = %d, want 0", bc.Count())
	}
	bc.Broadcast(statusUpdate(1, "DONE"))
}

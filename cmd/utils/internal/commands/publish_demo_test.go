package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/kitchenboard/pkg/event"
)

// MockPublisher is a test mock for events.Publisher
type MockPublisher struct {
	PublishedEvents []PublishedEvent
	PublishFunc     func(ctx context.Context, topic string, data []byte) error
}

type PublishedEvent struct {
	Topic string
	Data  []byte
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, data []byte) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, topic, data)
	}
	m.PublishedEvents = append(m.PublishedEvents, PublishedEvent{Topic: topic, Data: data})
	return nil
}

func TestPublishScript(t *testing.T) {
	script := []event.KitchenSourceEvent{
		event.BoardSnapshot{},
		event.TicketUpsert{Ticket: event.KitchenTicket{ID: 1, Status: "PENDING"}},
		event.TicketRemove{ID: 1},
	}
	pub := &MockPublisher{}

	if err := PublishScript(context.Background(), pub, "kitchen.board", script, 0, apt.NewNoopLogger()); err != nil {
		t.Fatalf("PublishScript() error = %v", err)
	}

	if len(pub.PublishedEvents) != 3 {
		t.Fatalf("published %d events, want 3", len(pub.PublishedEvents))
	}
	for i, p := range pub.PublishedEvents {
		if p.Topic != "kitchen.board" {
			t.Errorf("event %d topic = %q", i, p.Topic)
		}
		evt, err := event.Decode(p.Data)
		if err != nil {
			t.Fatalf("event %d does not decode: %v", i, err)
		}
		if evt.Type() != script[i].Type() {
			t.Errorf("event %d type = %s, want %s", i, evt.Type(), script[i].Type())
		}
	}
}

func TestPublishScriptErrors(t *testing.T) {
	publishErr := errors.New("nats: connection closed")
	pub := &MockPublisher{PublishFunc: func(ctx context.Context, topic string, data []byte) error {
		return publishErr
	}}

	err := PublishScript(context.Background(), pub, "kitchen.board", []event.KitchenSourceEvent{event.TicketRemove{ID: 1}}, 0, apt.NewNoopLogger())
	if !errors.Is(err, publishErr) {
		t.Errorf("PublishScript() error = %v, want %v", err, publishErr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	script := []event.KitchenSourceEvent{event.TicketRemove{ID: 1}, event.TicketRemove{ID: 2}}
	err = PublishScript(ctx, &MockPublisher{}, "kitchen.board", script, time.Hour, apt.NewNoopLogger())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("PublishScript() after cancel error = %v, want context.Canceled", err)
	}
}

package board

import (
	"sync"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/kitchenboard/pkg/event"
)

// Update is one applied event as seen by downstream subscribers.
type Update struct {
	Event  event.KitchenSourceEvent
	Change Change
}

// Broadcaster fans applied events out to stream subscribers.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]chan Update
	buffer      int
	logger      apt.Logger
}

// NewBroadcaster creates a broadcaster whose subscriber channels hold buffer updates.
func NewBroadcaster(buffer int, logger apt.Logger) *Broadcaster {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	if buffer <= 0 {
		buffer = 100
	}
	return &Broadcaster{
		subscribers: make(map[string]chan Update),
		buffer:      buffer,
		logger:      logger,
	}
}

// Subscribe registers a subscriber and returns its update channel.
func (b *Broadcaster) Subscribe(subscriberID string) <-chan Update {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Update, b.buffer)
	b.subscribers[subscriberID] = ch

	b.logger.Info("new board subscriber", "subscriber_id", subscriberID, "total_subscribers", len(b.subscribers))
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broadcaster) Unsubscribe(subscriberID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subscribers[subscriberID]; ok {
		close(ch)
		delete(b.subscribers, subscriberID)
		b.logger.Info("board subscriber disconnected", "subscriber_id", subscriberID, "total_subscribers", len(b.subscribers))
	}
}

// Broadcast hands u to every subscriber without blocking. A subscriber whose
// buffer is full is evicted: its channel is closed so the client reconnects
// and starts again from a fresh snapshot instead of missing u.
func (b *Broadcaster) Broadcast(u Update) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for subscriberID, ch := range b.subscribers {
		select {
		case ch <- u:
		default:
			close(ch)
			delete(b.subscribers, subscriberID)
			SubscribersEvicted.Inc()
			b.logger.Info("subscriber fell behind, evicting", "subscriber_id", subscriberID, "total_subscribers", len(b.subscribers))
		}
	}
}

// Count returns the number of active subscribers.
func (b *Broadcaster) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close disconnects every subscriber.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}

package board

import (
	"fmt"
	"sync"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/kitchenboard/pkg/enums/kitchenstatus"
	"github.com/appetiteclub/kitchenboard/pkg/event"
)

// Change describes what applying one event did to the board.
type Change int

const (
	ChangeNone Change = iota
	ChangeCreated
	ChangeStatusChanged
	ChangeUpdated
	ChangeRemoved
	ChangeReplaced
	ChangeAvailability
)

func (c Change) String() string {
	switch c {
	case ChangeCreated:
		return "created"
	case ChangeStatusChanged:
		return "status_changed"
	case ChangeUpdated:
		return "updated"
	case ChangeRemoved:
		return "removed"
	case ChangeReplaced:
		return "replaced"
	case ChangeAvailability:
		return "availability"
	default:
		return "none"
	}
}

// Highlights reports whether the change should draw attention on screen.
func (c Change) Highlights() bool {
	return c == ChangeCreated || c == ChangeStatusChanged
}

// Board is the authoritative in-memory ticket board. It is only mutated
// through the Apply methods, which must be called from a single goroutine;
// readers may call the query methods concurrently.
type Board struct {
	mu sync.RWMutex

	tickets map[int64]event.KitchenTicket
	order   []int64
	// index by station code -> ticket ids in board order
	byStation map[string][]int64

	availability map[int64]bool
	highlights   map[int64]time.Time

	serverTime   time.Time
	serverOffset time.Duration
	syncedAt     time.Time

	now    func() time.Time
	logger apt.Logger
}

// NewBoard creates an empty board.
func NewBoard(logger apt.Logger) *Board {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Board{
		tickets:      make(map[int64]event.KitchenTicket),
		byStation:    make(map[string][]int64),
		availability: make(map[int64]bool),
		highlights:   make(map[int64]time.Time),
		now:          time.Now,
		logger:       logger,
	}
}

// Apply dispatches evt to the matching operation. Shapes outside the
// KitchenSourceEvent set are rejected without touching the board.
func (b *Board) Apply(evt event.KitchenSourceEvent) (Change, error) {
	switch e := evt.(type) {
	case event.BoardSnapshot:
		return b.ApplySnapshot(e.Items, e.ServerTime)
	case event.TicketUpsert:
		return b.ApplyUpsert(e.Ticket), nil
	case event.TicketRemove:
		return b.ApplyRemove(e.ID), nil
	case event.MenuAvailability:
		return b.ApplyAvailability(e.MenuItemID, e.Available), nil
	default:
		return ChangeNone, fmt.Errorf("apply %T: %w", evt, event.ErrUnknownEventType)
	}
}

// ApplyRaw decodes data and applies it. Malformed input is logged and
// rejected with the board left as it was.
func (b *Board) ApplyRaw(data []byte) (Change, error) {
	evt, err := event.Decode(data)
	if err != nil {
		b.logger.Error("rejected kitchen event", "error", err)
		return ChangeNone, err
	}
	return b.Apply(evt)
}

// ApplySnapshot replaces the whole board with items, keeping their order.
func (b *Board) ApplySnapshot(items []event.KitchenTicket, serverTime time.Time) (Change, error) {
	tickets := make(map[int64]event.KitchenTicket, len(items))
	order := make([]int64, 0, len(items))
	for _, t := range items {
		if _, dup := tickets[t.ID]; dup {
			return ChangeNone, fmt.Errorf("%w: %d", event.ErrDuplicateTicket, t.ID)
		}
		tickets[t.ID] = t
		order = append(order, t.ID)
	}

	now := b.now()

	b.mu.Lock()
	defer b.mu.Unlock()

	for id, prev := range b.tickets {
		next, kept := tickets[id]
		if !kept {
			delete(b.highlights, id)
			continue
		}
		if prev.Status != next.Status {
			b.highlights[id] = now
		}
	}
	// The first snapshot only fills the board; later ones highlight arrivals.
	if !b.syncedAt.IsZero() {
		for id := range tickets {
			if _, existed := b.tickets[id]; !existed {
				b.highlights[id] = now
			}
		}
	}

	b.tickets = tickets
	b.order = order
	b.rebuildStationIndexLocked()

	b.serverTime = serverTime
	if !serverTime.IsZero() {
		b.serverOffset = serverTime.Sub(now)
	}
	b.syncedAt = now

	return ChangeReplaced, nil
}

// ApplyUpsert inserts t or overwrites the ticket with the same id in place.
func (b *Board) ApplyUpsert(t event.KitchenTicket) Change {
	b.mu.Lock()
	defer b.mu.Unlock()

	prev, exists := b.tickets[t.ID]
	var change Change
	switch {
	case !exists:
		change = ChangeCreated
		b.order = append(b.order, t.ID)
		b.byStation[t.Station] = append(b.byStation[t.Station], t.ID)
	case prev.Equal(t):
		return ChangeNone
	case prev.Status != t.Status:
		change = ChangeStatusChanged
	default:
		change = ChangeUpdated
	}

	b.tickets[t.ID] = t
	if exists && prev.Station != t.Station {
		b.rebuildStationIndexLocked()
	}

	if change.Highlights() {
		b.highlights[t.ID] = b.now()
	}
	return change
}

// ApplyRemove deletes the ticket with id. Unknown ids are a no-op.
func (b *Board) ApplyRemove(id int64) Change {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.removeLocked(id) {
		return ChangeNone
	}
	return ChangeRemoved
}

// ApplyAvailability records the purchasability of a menu item.
func (b *Board) ApplyAvailability(menuItemID int64, available bool) Change {
	b.mu.Lock()
	defer b.mu.Unlock()

	if prev, ok := b.availability[menuItemID]; ok && prev == available {
		return ChangeNone
	}
	b.availability[menuItemID] = available
	return ChangeAvailability
}

// Prune drops terminal tickets last updated before now-retention and
// returns the removed ids. A non-positive retention disables pruning.
func (b *Board) Prune(now time.Time, retention time.Duration) []int64 {
	if retention <= 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	cutoff := now.Add(-retention)
	var removed []int64
	for _, id := range append([]int64(nil), b.order...) {
		t := b.tickets[id]
		if kitchenstatus.IsTerminal(t.Status) && t.UpdatedAt.Before(cutoff) {
			b.removeLocked(id)
			removed = append(removed, id)
		}
	}

	if len(removed) > 0 {
		b.logger.Info("pruned completed tickets", "count", len(removed))
	}
	return removed
}

func (b *Board) removeLocked(id int64) bool {
	t, ok := b.tickets[id]
	if !ok {
		return false
	}
	delete(b.tickets, id)
	delete(b.highlights, id)
	b.order = removeID(b.order, id)
	b.byStation[t.Station] = removeID(b.byStation[t.Station], id)
	if len(b.byStation[t.Station]) == 0 {
		delete(b.byStation, t.Station)
	}
	return true
}

func (b *Board) rebuildStationIndexLocked() {
	b.byStation = make(map[string][]int64)
	for _, id := range b.order {
		st := b.tickets[id].Station
		b.byStation[st] = append(b.byStation[st], id)
	}
}

func removeID(ids []int64, id int64) []int64 {
	for i, v := range ids {
		if v == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}

package board

import (
	"time"

	"github.com/appetiteclub/kitchenboard/pkg/event"
)

// View is a consistent copy of the board for rendering.
type View struct {
	Tickets      []event.KitchenTicket `json:"tickets"`
	Availability map[int64]bool        `json:"availability"`
	Highlighted  []int64               `json:"highlighted"`
	ServerTime   time.Time             `json:"serverTime"`
	ServerOffset time.Duration         `json:"serverOffsetNanos"`
	SyncedAt     time.Time             `json:"syncedAt"`
	Stale        bool                  `json:"stale"`
}

// Get returns the ticket with id.
func (b *Board) Get(id int64) (event.KitchenTicket, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	t, ok := b.tickets[id]
	return t, ok
}

// Len returns the number of tickets on the board.
func (b *Board) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.tickets)
}

// IDs returns ticket ids in board order.
func (b *Board) IDs() []int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]int64(nil), b.order...)
}

// Tickets returns all tickets in board order.
func (b *Board) Tickets() []event.KitchenTicket {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ticketsLocked(b.order)
}

// ByStation returns the tickets routed to a station, in board order.
func (b *Board) ByStation(station string) []event.KitchenTicket {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ticketsLocked(b.byStation[station])
}

// ByStatus returns the tickets in a status, in board order.
func (b *Board) ByStatus(status string) []event.KitchenTicket {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]event.KitchenTicket, 0)
	for _, id := range b.order {
		if t := b.tickets[id]; t.Status == status {
			result = append(result, t)
		}
	}
	return result
}

func (b *Board) ticketsLocked(ids []int64) []event.KitchenTicket {
	result := make([]event.KitchenTicket, 0, len(ids))
	for _, id := range ids {
		if t, ok := b.tickets[id]; ok {
			result = append(result, t)
		}
	}
	return result
}

// Availability returns a copy of the menu item availability map.
func (b *Board) Availability() map[int64]bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make(map[int64]bool, len(b.availability))
	for id, ok := range b.availability {
		result[id] = ok
	}
	return result
}

// IsAvailable returns the last reported flag for a menu item. known is false
// when no availability event has been seen for it.
func (b *Board) IsAvailable(menuItemID int64) (available, known bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	available, known = b.availability[menuItemID]
	return available, known
}

// ServerTime returns the server clock reading carried by the last snapshot.
func (b *Board) ServerTime() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.serverTime
}

// ServerNow estimates the server clock at local time t, for "time ago" displays.
func (b *Board) ServerNow(t time.Time) time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return t.Add(b.serverOffset)
}

// SyncedAt returns the local time the last snapshot was applied.
func (b *Board) SyncedAt() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.syncedAt
}

// Highlighted reports whether id was created or changed status within window.
func (b *Board) Highlighted(id int64, window time.Duration) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	at, ok := b.highlights[id]
	return ok && b.now().Sub(at) <= window
}

// View returns a copy of the whole board. Highlighted lists ids changed within window.
func (b *Board) View(window time.Duration) View {
	b.mu.RLock()
	defer b.mu.RUnlock()

	now := b.now()
	v := View{
		Tickets:      b.ticketsLocked(b.order),
		Availability: make(map[int64]bool, len(b.availability)),
		Highlighted:  make([]int64, 0),
		ServerTime:   b.serverTime,
		ServerOffset: b.serverOffset,
		SyncedAt:     b.syncedAt,
	}
	for id, ok := range b.availability {
		v.Availability[id] = ok
	}
	for _, id := range b.order {
		if at, ok := b.highlights[id]; ok && now.Sub(at) <= window {
			v.Highlighted = append(v.Highlighted, id)
		}
	}
	return v
}

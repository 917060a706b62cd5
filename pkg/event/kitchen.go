package event

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	// KitchenBoardTopic carries KitchenSourceEvent envelopes for display boards.
	KitchenBoardTopic = "kitchen.board"
)

// EventType is the tag of a KitchenSourceEvent envelope.
type EventType string

const (
	TypeBoardSnapshot    EventType = "BOARD_SNAPSHOT"
	TypeTicketUpsert     EventType = "TICKET_UPSERT"
	TypeTicketRemove     EventType = "TICKET_REMOVE"
	TypeMenuAvailability EventType = "MENU_AVAILABILITY"
)

var (
	ErrMalformedEvent   = errors.New("malformed kitchen event")
	ErrUnknownEventType = fmt.Errorf("%w: unknown event type", ErrMalformedEvent)
	ErrMissingField     = fmt.Errorf("%w: missing required field", ErrMalformedEvent)
	ErrDuplicateTicket  = fmt.Errorf("%w: duplicate ticket id", ErrMalformedEvent)
)

// KitchenSourceEvent is the closed set of messages a board consumer understands.
// The concrete types are BoardSnapshot, TicketUpsert, TicketRemove and MenuAvailability.
type KitchenSourceEvent interface {
	Type() EventType
	kitchenSourceEvent()
}

// TicketEvent is the subset of KitchenSourceEvent that changes ticket presence.
type TicketEvent interface {
	KitchenSourceEvent
	ticketEvent()
}

// BoardSnapshot replaces the whole board. Items keep the emitter's order.
type BoardSnapshot struct {
	Items      []KitchenTicket `json:"items"`
	ServerTime time.Time       `json:"serverTime"`
}

// TicketUpsert inserts a ticket or replaces the one with the same id.
type TicketUpsert struct {
	Ticket KitchenTicket
}

// TicketRemove deletes a ticket from the board if present.
type TicketRemove struct {
	ID int64 `json:"id"`
}

// MenuAvailability reports that a menu item became (un)purchasable.
type MenuAvailability struct {
	MenuItemID int64 `json:"menuItemId"`
	Available  bool  `json:"available"`
}

func (BoardSnapshot) Type() EventType    { return TypeBoardSnapshot }
func (TicketUpsert) Type() EventType     { return TypeTicketUpsert }
func (TicketRemove) Type() EventType     { return TypeTicketRemove }
func (MenuAvailability) Type() EventType { return TypeMenuAvailability }

func (BoardSnapshot) kitchenSourceEvent()    {}
func (TicketUpsert) kitchenSourceEvent()     {}
func (TicketRemove) kitchenSourceEvent()     {}
func (MenuAvailability) kitchenSourceEvent() {}

func (BoardSnapshot) ticketEvent() {}
func (TicketUpsert) ticketEvent()  {}
func (TicketRemove) ticketEvent()  {}

type envelope struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Decode parses a {"type","payload"} envelope. Any error wraps ErrMalformedEvent.
func Decode(data []byte) (KitchenSourceEvent, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("%w: type", ErrMissingField)
	}
	if len(env.Payload) == 0 || bytes.Equal(env.Payload, []byte("null")) {
		return nil, fmt.Errorf("%w: %s payload", ErrMissingField, env.Type)
	}

	var (
		evt KitchenSourceEvent
		err error
	)
	switch env.Type {
	case TypeBoardSnapshot:
		evt, err = decodeSnapshot(env.Payload)
	case TypeTicketUpsert:
		evt, err = decodeUpsert(env.Payload)
	case TypeTicketRemove:
		evt, err = decodeRemove(env.Payload)
	case TypeMenuAvailability:
		evt, err = decodeAvailability(env.Payload)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, env.Type)
	}
	if err != nil {
		if !errors.Is(err, ErrMalformedEvent) {
			err = fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		return nil, fmt.Errorf("decode %s: %w", env.Type, err)
	}
	return evt, nil
}

func decodeSnapshot(payload []byte) (KitchenSourceEvent, error) {
	var wire struct {
		Items      *[]KitchenTicket `json:"items"`
		ServerTime *time.Time       `json:"serverTime"`
	}
	if err := json.Unmarshal(payload, &wire); err != nil {
		return nil, err
	}
	if wire.Items == nil {
		return nil, fmt.Errorf("%w: items", ErrMissingField)
	}
	if wire.ServerTime == nil {
		return nil, fmt.Errorf("%w: serverTime", ErrMissingField)
	}

	seen := make(map[int64]struct{}, len(*wire.Items))
	for _, t := range *wire.Items {
		if _, dup := seen[t.ID]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateTicket, t.ID)
		}
		seen[t.ID] = struct{}{}
	}

	return BoardSnapshot{Items: *wire.Items, ServerTime: *wire.ServerTime}, nil
}

func decodeUpsert(payload []byte) (KitchenSourceEvent, error) {
	var t KitchenTicket
	if err := json.Unmarshal(payload, &t); err != nil {
		return nil, err
	}
	return TicketUpsert{Ticket: t}, nil
}

func decodeRemove(payload []byte) (KitchenSourceEvent, error) {
	var wire struct {
		ID *int64 `json:"id"`
	}
	if err := json.Unmarshal(payload, &wire); err != nil {
		return nil, err
	}
	if wire.ID == nil {
		return nil, fmt.Errorf("%w: id", ErrMissingField)
	}
	return TicketRemove{ID: *wire.ID}, nil
}

func decodeAvailability(payload []byte) (KitchenSourceEvent, error) {
	var wire struct {
		MenuItemID *int64 `json:"menuItemId"`
		Available  *bool  `json:"available"`
	}
	if err := json.Unmarshal(payload, &wire); err != nil {
		return nil, err
	}
	if wire.MenuItemID == nil {
		return nil, fmt.Errorf("%w: menuItemId", ErrMissingField)
	}
	if wire.Available == nil {
		return nil, fmt.Errorf("%w: available", ErrMissingField)
	}
	return MenuAvailability{MenuItemID: *wire.MenuItemID, Available: *wire.Available}, nil
}

// Encode renders evt in the envelope form accepted by Decode.
func Encode(evt KitchenSourceEvent) ([]byte, error) {
	var payload any
	switch e := evt.(type) {
	case BoardSnapshot:
		if e.Items == nil {
			e.Items = []KitchenTicket{}
		}
		payload = e
	case TicketUpsert:
		payload = e.Ticket
	case TicketRemove:
		payload = e
	case MenuAvailability:
		payload = e
	default:
		return nil, fmt.Errorf("encode %T: %w", evt, ErrUnknownEventType)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", evt.Type(), err)
	}
	return json.Marshal(envelope{Type: evt.Type(), Payload: raw})
}

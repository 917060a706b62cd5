package event

import (
	"errors"
	"testing"
	"time"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		wantType EventType
		wantErr  error
	}{
		{
			name:     "snapshot",
			data:     `{"type":"BOARD_SNAPSHOT","payload":{"items":[{"id":1,"status":"PENDING"},{"id":2,"status":"IN_PROGRESS"}],"serverTime":"2024-01-01T00:00:00Z"}}`,
			wantType: TypeBoardSnapshot,
		},
		{
			name:     "emptySnapshot",
			data:     `{"type":"BOARD_SNAPSHOT","payload":{"items":[],"serverTime":"2024-01-01T00:00:00Z"}}`,
			wantType: TypeBoardSnapshot,
		},
		{
			name:     "upsert",
			data:     `{"type":"TICKET_UPSERT","payload":{"id":2,"status":"DONE","quantity":1}}`,
			wantType: TypeTicketUpsert,
		},
		{
			name:     "remove",
			data:     `{"type":"TICKET_REMOVE","payload":{"id":1}}`,
			wantType: TypeTicketRemove,
		},
		{
			name:     "availability",
			data:     `{"type":"MENU_AVAILABILITY","payload":{"menuItemId":5,"available":false}}`,
			wantType: TypeMenuAvailability,
		},
		{
			name:    "unknownType",
			data:    `{"type":"TICKET_ARCHIVE","payload":{"id":1}}`,
			wantErr: ErrUnknownEventType,
		},
		{
			name:    "missingType",
			data:    `{"payload":{"id":1}}`,
			wantErr: ErrMissingField,
		},
		{
			name:    "missingPayload",
			data:    `{"type":"TICKET_REMOVE"}`,
			wantErr: ErrMissingField,
		},
		{
			name:    "nullPayload",
			data:    `{"type":"TICKET_REMOVE","payload":null}`,
			wantErr: ErrMissingField,
		},
		{
			name:    "removeWithoutID",
			data:    `{"type":"TICKET_REMOVE","payload":{}}`,
			wantErr: ErrMissingField,
		},
		{
			name:    "upsertWithoutStatus",
			data:    `{"type":"TICKET_UPSERT","payload":{"id":3}}`,
			wantErr: ErrMissingField,
		},
		{
			name:    "upsertWithoutID",
			data:    `{"type":"TICKET_UPSERT","payload":{"status":"PENDING"}}`,
			wantErr: ErrMissingField,
		},
		{
			name:    "snapshotWithoutItems",
			data:    `{"type":"BOARD_SNAPSHOT","payload":{"serverTime":"2024-01-01T00:00:00Z"}}`,
			wantErr: ErrMissingField,
		},
		{
			name:    "snapshotWithoutServerTime",
			data:    `{"type":"BOARD_SNAPSHOT","payload":{"items":[]}}`,
			wantErr: ErrMissingField,
		},
		{
			name:    "snapshotWithInvalidItem",
			data:    `{"type":"BOARD_SNAPSHOT","payload":{"items":[{"id":1}],"serverTime":"2024-01-01T00:00:00Z"}}`,
			wantErr: ErrMissingField,
		},
		{
			name:    "snapshotWithDuplicateIDs",
			data:    `{"type":"BOARD_SNAPSHOT","payload":{"items":[{"id":1,"status":"PENDING"},{"id":1,"status":"DONE"}],"serverTime":"2024-01-01T00:00:00Z"}}`,
			wantErr: ErrDuplicateTicket,
		},
		{
			name:    "availabilityWithoutFlag",
			data:    `{"type":"MENU_AVAILABILITY","payload":{"menuItemId":5}}`,
			wantErr: ErrMissingField,
		},
		{
			name:    "wrongFieldType",
			data:    `{"type":"TICKET_REMOVE","payload":{"id":"one"}}`,
			wantErr: ErrMalformedEvent,
		},
		{
			name:    "invalidJSON",
			data:    `not json`,
			wantErr: ErrMalformedEvent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evt, err := Decode([]byte(tt.data))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Decode() error = %v, want %v", err, tt.wantErr)
				}
				if !errors.Is(err, ErrMalformedEvent) {
					t.Errorf("Decode() error = %v, should wrap ErrMalformedEvent", err)
				}
				if evt != nil {
					t.Errorf("Decode() returned event %v alongside error", evt)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if evt.Type() != tt.wantType {
				t.Errorf("Type() = %q, want %q", evt.Type(), tt.wantType)
			}
		})
	}
}

func TestDecodeSnapshotKeepsOrder(t *testing.T) {
	data := `{"type":"BOARD_SNAPSHOT","payload":{"items":[{"id":9,"status":"PENDING"},{"id":3,"status":"PENDING"},{"id":5,"status":"DONE"}],"serverTime":"2024-01-01T00:00:00Z"}}`

	evt, err := Decode([]byte(data))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	snap, ok := evt.(BoardSnapshot)
	if !ok {
		t.Fatalf("Decode() returned %T, want BoardSnapshot", evt)
	}

	want := []int64{9, 3, 5}
	if len(snap.Items) != len(want) {
		t.Fatalf("items = %d, want %d", len(snap.Items), len(want))
	}
	for i, id := range want {
		if snap.Items[i].ID != id {
			t.Errorf("items[%d].ID = %d, want %d", i, snap.Items[i].ID, id)
		}
	}

	wantTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if !snap.ServerTime.Equal(wantTime) {
		t.Errorf("ServerTime = %v, want %v", snap.ServerTime, wantTime)
	}
}

func TestEncodeDecode(t *testing.T) {
	started := time.Date(2024, 1, 1, 12, 5, 0, 0, time.UTC)
	ticket := KitchenTicket{
		ID:           42,
		OrderID:      7,
		OrderItemID:  70,
		MenuItemID:   5,
		Status:       "IN_PROGRESS",
		Station:      "grill",
		Quantity:     2,
		Notes:        "no onions",
		MenuItemName: "Burger",
		TableNumber:  "T4",
		CreatedAt:    time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		UpdatedAt:    started,
		StartedAt:    &started,
	}

	events := []KitchenSourceEvent{
		BoardSnapshot{Items: []KitchenTicket{ticket}, ServerTime: started},
		BoardSnapshot{ServerTime: started},
		TicketUpsert{Ticket: ticket},
		TicketRemove{ID: 42},
		MenuAvailability{MenuItemID: 5, Available: true},
	}

	for _, evt := range events {
		t.Run(string(evt.Type()), func(t *testing.T) {
			data, err := Encode(evt)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}

			got, err := Decode(data)
			if err != nil {
				t.Fatalf("Decode(Encode()) error = %v, data = %s", err, data)
			}
			if got.Type() != evt.Type() {
				t.Errorf("Type() = %q, want %q", got.Type(), evt.Type())
			}
		})
	}
}

func TestEncodeUpsertPreservesTicket(t *testing.T) {
	finished := time.Date(2024, 1, 1, 12, 30, 0, 0, time.UTC)
	ticket := KitchenTicket{ID: 1, Status: "DONE", FinishedAt: &finished, UpdatedAt: finished}

	data, err := Encode(TicketUpsert{Ticket: ticket})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	evt, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	got := evt.(TicketUpsert).Ticket
	if !got.Equal(ticket) {
		t.Errorf("ticket = %+v, want %+v", got, ticket)
	}
}

func TestKitchenTicketEqual(t *testing.T) {
	now := time.Now()
	later := now.Add(time.Minute)
	base := KitchenTicket{ID: 1, Status: "PENDING", CreatedAt: now, StartedAt: &now}

	tests := []struct {
		name   string
		mutate func(k *KitchenTicket)
		want   bool
	}{
		{name: "identical", mutate: func(k *KitchenTicket) {}, want: true},
		{name: "sameInstantOtherZone", mutate: func(k *KitchenTicket) { k.CreatedAt = now.In(time.FixedZone("X", 3600)) }, want: true},
		{name: "status", mutate: func(k *KitchenTicket) { k.Status = "DONE" }, want: false},
		{name: "notes", mutate: func(k *KitchenTicket) { k.Notes = "extra cheese" }, want: false},
		{name: "startedAtCleared", mutate: func(k *KitchenTicket) { k.StartedAt = nil }, want: false},
		{name: "startedAtMoved", mutate: func(k *KitchenTicket) { k.StartedAt = &later }, want: false},
		{name: "finishedAtSet", mutate: func(k *KitchenTicket) { k.FinishedAt = &later }, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other := base
			tt.mutate(&other)
			if got := base.Equal(other); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEncodeUnknownEvent(t *testing.T) {
	if _, err := Encode(nil); !errors.Is(err, ErrUnknownEventType) {
		t.Errorf("Encode(nil) error = %v, want ErrUnknownEventType", err)
	}
}

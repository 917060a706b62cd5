package event

import (
	"encoding/json"
	"fmt"
	"time"
)

// KitchenTicket is one unit of kitchen work as shown on the board.
type KitchenTicket struct {
	ID          int64  `json:"id"`
	OrderID     int64  `json:"orderId"`
	OrderItemID int64  `json:"orderItemId"`
	MenuItemID  int64  `json:"menuItemId"`
	Status      string `json:"status"`
	Station     string `json:"station,omitempty"`
	Quantity    int    `json:"quantity"`
	Notes       string `json:"notes,omitempty"`

	// Denormalized data for display
	MenuItemName string `json:"menuItemName,omitempty"`
	TableNumber  string `json:"tableNumber,omitempty"`

	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// UnmarshalJSON rejects tickets without an id or a status.
func (t *KitchenTicket) UnmarshalJSON(data []byte) error {
	var required struct {
		ID     *int64  `json:"id"`
		Status *string `json:"status"`
	}
	if err := json.Unmarshal(data, &required); err != nil {
		return err
	}
	if required.ID == nil {
		return fmt.Errorf("%w: ticket id", ErrMissingField)
	}
	if required.Status == nil || *required.Status == "" {
		return fmt.Errorf("%w: ticket %d status", ErrMissingField, *required.ID)
	}

	type plain KitchenTicket
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*t = KitchenTicket(p)
	return nil
}

// Equal reports whether both tickets carry the same data.
func (t KitchenTicket) Equal(o KitchenTicket) bool {
	return t.ID == o.ID &&
		t.OrderID == o.OrderID &&
		t.OrderItemID == o.OrderItemID &&
		t.MenuItemID == o.MenuItemID &&
		t.Status == o.Status &&
		t.Station == o.Station &&
		t.Quantity == o.Quantity &&
		t.Notes == o.Notes &&
		t.MenuItemName == o.MenuItemName &&
		t.TableNumber == o.TableNumber &&
		t.CreatedAt.Equal(o.CreatedAt) &&
		t.UpdatedAt.Equal(o.UpdatedAt) &&
		equalTimePtr(t.StartedAt, o.StartedAt) &&
		equalTimePtr(t.FinishedAt, o.FinishedAt)
}

func equalTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/kitchenboard/pkg/event"
)

// ActiveTickets is the kitchen service answer to an active ticket listing.
type ActiveTickets struct {
	Tickets    []event.KitchenTicket `json:"tickets"`
	ServerTime time.Time             `json:"serverTime"`
}

// TicketLister fetches the active tickets in board order.
type TicketLister interface {
	ListActiveTickets(ctx context.Context) (*ActiveTickets, error)
}

// KitchenDataAccess wraps the kitchen service API.
type KitchenDataAccess struct {
	client  *apt.ServiceClient
	session Session
}

func NewKitchenDataAccess(client *apt.ServiceClient, session Session) *KitchenDataAccess {
	return &KitchenDataAccess{client: client, session: session}
}

func (da *KitchenDataAccess) ListActiveTickets(ctx context.Context) (*ActiveTickets, error) {
	if da == nil || da.client == nil {
		return nil, fmt.Errorf("kitchen client not configured")
	}

	resp, err := da.client.Request(ctx, http.MethodGet, da.session.TicketsPath(), nil)
	if err != nil {
		return nil, fmt.Errorf("list active tickets: %w", err)
	}

	var payload ActiveTickets
	if err := decodeSuccessResponse(resp, &payload); err != nil {
		return nil, fmt.Errorf("decode active tickets: %w", err)
	}
	if payload.Tickets == nil {
		payload.Tickets = []event.KitchenTicket{}
	}

	return &payload, nil
}

func decodeSuccessResponse(resp *apt.SuccessResponse, dest interface{}) error {
	if resp == nil {
		return errors.New("nil success response")
	}

	raw, err := json.Marshal(resp.Data)
	if err != nil {
		return err
	}

	return json.Unmarshal(raw, dest)
}

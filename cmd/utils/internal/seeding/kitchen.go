package seeding

import (
	"time"

	"github.com/appetiteclub/kitchenboard/pkg/enums/kitchenstatus"
	"github.com/appetiteclub/kitchenboard/pkg/enums/station"
	"github.com/appetiteclub/kitchenboard/pkg/event"
)

type demoDish struct {
	menuItemID int64
	name       string
	station    string
}

var demoMenu = []demoDish{
	{menuItemID: 101, name: "Smash Burger", station: station.Stations.Grill.Code()},
	{menuItemID: 102, name: "Ribeye Steak", station: station.Stations.Grill.Code()},
	{menuItemID: 201, name: "Caesar Salad", station: station.Stations.Kitchen.Code()},
	{menuItemID: 202, name: "Mushroom Risotto", station: station.Stations.Kitchen.Code()},
	{menuItemID: 301, name: "Tiramisu", station: station.Stations.Dessert.Code()},
	{menuItemID: 401, name: "Negroni", station: station.Stations.Bar.Code()},
	{menuItemID: 501, name: "Flat White", station: station.Stations.Coffee.Code()},
}

// DemoTickets returns n pending tickets spread over the demo menu and tables.
func DemoTickets(now time.Time, n int) []event.KitchenTicket {
	tickets := make([]event.KitchenTicket, 0, n)
	for i := 0; i < n; i++ {
		dish := demoMenu[i%len(demoMenu)]
		created := now.Add(-time.Duration(n-i) * time.Minute)
		tickets = append(tickets, event.KitchenTicket{
			ID:           int64(1000 + i),
			OrderID:      int64(500 + i/3),
			OrderItemID:  int64(9000 + i),
			MenuItemID:   dish.menuItemID,
			MenuItemName: dish.name,
			Station:      dish.station,
			Status:       kitchenstatus.Statuses.Pending.Code(),
			Quantity:     1 + i%2,
			TableNumber:  tableFor(i),
			CreatedAt:    created,
			UpdatedAt:    created,
		})
	}
	return tickets
}

func tableFor(i int) string {
	tables := []string{"T1", "T2", "T3", "T4", "Bar-1", "Patio-2"}
	return tables[(i/3)%len(tables)]
}

// DemoScript is a short service: a snapshot of the open tickets followed by
// the kitchen working through them, one new order, a sold out dish and a
// cancellation.
func DemoScript(now time.Time, n int) []event.KitchenSourceEvent {
	tickets := DemoTickets(now, n)
	script := []event.KitchenSourceEvent{
		event.BoardSnapshot{Items: tickets, ServerTime: now},
	}

	step := now
	advance := func(t event.KitchenTicket, status kitchenstatus.Status) event.KitchenTicket {
		step = step.Add(30 * time.Second)
		t.Status = status.Code()
		t.UpdatedAt = step
		switch status {
		case kitchenstatus.Statuses.InProgress:
			started := step
			t.StartedAt = &started
		case kitchenstatus.Statuses.Done, kitchenstatus.Statuses.Canceled:
			finished := step
			t.FinishedAt = &finished
		}
		return t
	}

	for i := 0; i < len(tickets) && i < 3; i++ {
		tickets[i] = advance(tickets[i], kitchenstatus.Statuses.InProgress)
		script = append(script, event.TicketUpsert{Ticket: tickets[i]})
	}
	if len(tickets) > 0 {
		tickets[0] = advance(tickets[0], kitchenstatus.Statuses.Done)
		script = append(script, event.TicketUpsert{Ticket: tickets[0]})
	}

	extra := DemoTickets(step, n+1)[n]
	extra.Notes = "no onions"
	script = append(script, event.TicketUpsert{Ticket: extra})

	script = append(script, event.MenuAvailability{MenuItemID: demoMenu[1].menuItemID, Available: false})

	if len(tickets) > 1 {
		last := advance(tickets[len(tickets)-1], kitchenstatus.Statuses.Canceled)
		script = append(script, event.TicketUpsert{Ticket: last})
		script = append(script, event.TicketRemove{ID: last.ID})
	}

	return script
}

package station

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknown = errors.New("unknown station")

// Station is the production line a ticket is routed to. The zero Station
// stands for the whole kitchen.
type Station struct {
	Name string
}

func (s Station) Code() string {
	return s.Name
}

func (s Station) Label() string {
	if s.IsZero() {
		return "All stations"
	}
	return strings.ToUpper(s.Name[:1]) + s.Name[1:]
}

func (s Station) IsZero() bool {
	return s.Name == ""
}

// Matches reports whether a ticket routed to code belongs on this station's
// board. Tickets without a station only show on the whole-kitchen board.
func (s Station) Matches(code string) bool {
	return s.IsZero() || s.Name == code
}

type Enum struct {
	Kitchen Station
	Grill   Station
	Dessert Station
	Bar     Station
	Coffee  Station
	Expo    Station
}

var Stations = Enum{
	Kitchen: Station{Name: "kitchen"},
	Grill:   Station{Name: "grill"},
	Dessert: Station{Name: "dessert"},
	Bar:     Station{Name: "bar"},
	Coffee:  Station{Name: "coffee"},
	Expo:    Station{Name: "expo"},
}

var All = []Station{
	Stations.Kitchen,
	Stations.Grill,
	Stations.Dessert,
	Stations.Bar,
	Stations.Coffee,
	Stations.Expo,
}

// Parse resolves a station from config or a query string. Matching ignores
// case and surrounding space; an empty name yields the zero Station.
func Parse(name string) (Station, error) {
	code := strings.ToLower(strings.TrimSpace(name))
	if code == "" {
		return Station{}, nil
	}
	for _, s := range All {
		if s.Name == code {
			return s, nil
		}
	}
	return Station{}, fmt.Errorf("%w %q", ErrUnknown, name)
}

package source

import (
	"fmt"
	"net/url"

	"github.com/appetiteclub/kitchenboard/pkg/enums/station"
)

// Session carries the credentials and scope of one board instance. It is
// passed to the transports explicitly instead of being looked up globally.
type Session struct {
	// Token authenticates the NATS connection.
	Token string
	// Station limits the board to one production line. Empty means all.
	Station string
}

// NewSession normalizes the station code. Unknown stations are rejected.
func NewSession(token, stationName string) (Session, error) {
	s := Session{Token: token}
	if stationName == "" {
		return s, nil
	}
	st, err := station.Parse(stationName)
	if err != nil {
		return s, fmt.Errorf("session: %w", err)
	}
	s.Station = st.Code()
	return s, nil
}

// TicketsPath is the kitchen service path listing the active tickets in scope.
func (s Session) TicketsPath() string {
	q := url.Values{}
	q.Set("active", "true")
	if s.Station != "" {
		q.Set("station", s.Station)
	}
	return "/tickets?" + q.Encode()
}

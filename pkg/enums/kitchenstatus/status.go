package kitchenstatus

import (
	"strings"
)

type Status struct {
	Name string
}

func (s Status) Code() string {
	return s.Name
}

// Label turns IN_PROGRESS into "In Progress".
func (s Status) Label() string {
	parts := strings.Split(strings.ToLower(s.Name), "_")
	for i := range parts {
		if len(parts[i]) > 0 {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, " ")
}

// Terminal reports whether a ticket in this status has left the kitchen flow.
func (s Status) Terminal() bool {
	return s.Name == Statuses.Done.Name || s.Name == Statuses.Canceled.Name
}

type Enum struct {
	Pending    Status
	InProgress Status
	Done       Status
	Canceled   Status
}

var Statuses = Enum{
	Pending:    Status{Name: "PENDING"},
	InProgress: Status{Name: "IN_PROGRESS"},
	Done:       Status{Name: "DONE"},
	Canceled:   Status{Name: "CANCELED"},
}

var All = []Status{
	Statuses.Pending,
	Statuses.InProgress,
	Statuses.Done,
	Statuses.Canceled,
}

// ByName returns the status for a given name, or nil if not found
func ByName(name string) *Status {
	for _, s := range All {
		if s.Name == name {
			return &s
		}
	}
	return nil
}

// IsTerminal reports whether name is a known terminal status.
func IsTerminal(name string) bool {
	s := ByName(name)
	return s != nil && s.Terminal()
}

package report

import (
	"errors"
	"strings"
)

type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "In Progress"
	StatusResolved   Status = "Resolved"
)

var ErrUnknownStatus = errors.New("unknown report status")

// Statuses lists every state in lifecycle order.
var Statuses = []Status{StatusPending, StatusInProgress, StatusResolved}

// Valid reports whether s is a known state. The lifecycle is flat: a report
// in any state may be set to any valid state, including back out of Resolved.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// ParseStatus accepts the exact wire values only.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.TrimSpace(raw))
	if !s.Valid() {
		return "", ErrUnknownStatus
	}
	return s, nil
}

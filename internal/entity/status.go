// Package entity provides the units and players that take part in a battle.
package entity

import "fmt"

// Status is a unit's availability within the current turn.
type Status int

const (
	// StatusReady - the unit has not acted this turn
	StatusReady Status = iota
	// StatusMoved - the unit has moved but may still attack
	StatusMoved
	// StatusAttacked - the unit has attacked this turn
	StatusAttacked
	// StatusExhausted - the unit can take no further action this turn
	StatusExhausted
	// StatusDead - terminal; nothing changes a dead unit
	StatusDead
)

// String returns a human-readable status name.
func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusMoved:
		return "moved"
	case StatusAttacked:
		return "attacked"
	case StatusExhausted:
		return "exhausted"
	case StatusDead:
		return "dead"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status as its name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name.
func (s *Status) UnmarshalText(text []byte) error {
	for c := StatusReady; c <= StatusDead; c++ {
		if c.String() == string(text) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", text)
}

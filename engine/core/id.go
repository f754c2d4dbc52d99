package core

import (
	"fmt"

	"github.com/segmentio/ksuid"
)

// ID is a sortable, globally unique identifier backed by KSUID.
type ID string

func (c ID) String() string {
	return string(c)
}

func (c ID) IsZero() bool {
	return c == ""
}

// NewID generates a new KSUID-based identifier.
func NewID() (ID, error) {
	id, err := ksuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generating id: %w", err)
	}
	return ID(id.String()), nil
}

// MustNewID generates a new identifier and panics on entropy failure.
func MustNewID() ID {
	id, err := NewID()
	if err != nil {
		panic(err)
	}
	return id
}

// ParseID validates s as a KSUID string.
func ParseID(s string) (ID, error) {
	if s == "" {
		return "", fmt.Errorf("empty ID")
	}
	id, err := ksuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid ID format %q: %w", s, err)
	}
	return ID(id.String()), nil
}

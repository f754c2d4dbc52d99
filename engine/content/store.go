// Package content interns JSON values behind small integer handles.
package content

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/graffiticode/graffiticode/engine/core"
)

// Handle identifies an interned value within one Store.
type Handle uint64

const (
	// NilHandle is reserved for null and never allocated.
	NilHandle Handle = 0
	// EmptyObjectHandle is pre-seeded with {}.
	EmptyObjectHandle Handle = 1
)

func (h Handle) String() string {
	return strconv.FormatUint(uint64(h), 10)
}

// ParseHandle parses the decimal form of a handle.
func ParseHandle(s string) (Handle, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return NilHandle, fmt.Errorf("invalid content handle %q: %w", s, err)
	}
	return Handle(n), nil
}

// Store is a process-local bijection between JSON content and handles.
// Equality is structural: values with the same canonical JSON share a handle.
type Store struct {
	mu     sync.RWMutex
	ids    map[string]Handle
	values []any
}

// NewStore returns a store seeded with the empty object at EmptyObjectHandle.
func NewStore() *Store {
	s := &Store{
		ids:    make(map[string]Handle),
		values: []any{nil},
	}
	if _, err := s.Intern(map[string]any{}); err != nil {
		panic(err)
	}
	return s
}

// Intern returns the handle for v, allocating one the first time its content is seen.
func (s *Store) Intern(v any) (Handle, error) {
	if v == nil {
		return NilHandle, nil
	}
	key, err := core.CanonicalJSON(v)
	if err != nil {
		return NilHandle, fmt.Errorf("content: serialize value: %w", err)
	}
	if string(key) == "null" {
		return NilHandle, nil
	}
	s.mu.RLock()
	h, ok := s.ids[string(key)]
	s.mu.RUnlock()
	if ok {
		return h, nil
	}
	stored, err := core.DeepCopy(v)
	if err != nil {
		return NilHandle, fmt.Errorf("content: copy value: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.ids[string(key)]; ok {
		return h, nil
	}
	h = Handle(len(s.values))
	s.values = append(s.values, stored)
	s.ids[string(key)] = h
	return h, nil
}

// Lookup returns a copy of the value interned under h.
// The second result is false when h was never allocated.
func (s *Store) Lookup(h Handle) (any, bool) {
	if h == NilHandle {
		return nil, false
	}
	s.mu.RLock()
	if uint64(h) >= uint64(len(s.values)) {
		s.mu.RUnlock()
		return nil, false
	}
	v := s.values[h]
	s.mu.RUnlock()
	copied, err := core.DeepCopy(v)
	if err != nil {
		return nil, false
	}
	return copied, true
}

// Len returns the number of allocated handles, the reserved null handle excluded.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values) - 1
}

package envstore

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrKeyConflict indicates two directives targeted the same key within
	// one unit's execution window. The first value is never silently lost.
	ErrKeyConflict = errors.New("envstore: key already has a live entry for this unit")
	// ErrUnexpectedValue indicates the external value changed between apply
	// and restore. Restoration still proceeds for the tracked entry.
	ErrUnexpectedValue = errors.New("envstore: external value changed between apply and restore")
)

// Store tracks externally mutated keys per test unit so every mutation can be
// unwound in strict reverse order. One Store guards one external-resource
// domain; its lock serializes apply/restore against that domain.
type Store struct {
	kv    KeyValue
	mu    sync.Mutex
	units map[string][]savedEntry
}

type savedEntry struct {
	key     string
	prior   string
	present bool
	applied *string // nil means the key was unset for the unit
	depth   int
}

// Handle references one live SavedEntry.
type Handle struct {
	unit  string
	key   string
	depth int
}

func (h Handle) Unit() string { return h.unit }
func (h Handle) Key() string  { return h.key }
func (h Handle) Depth() int   { return h.depth }

// New constructs a Store over the supplied key/value domain.
func New(kv KeyValue) *Store {
	return &Store{
		kv:    kv,
		units: map[string][]savedEntry{},
	}
}

// Apply saves the key's current external value, then writes value (or unsets
// the key when value is nil). A second apply for the same key within the same
// unit fails with ErrKeyConflict before anything is written.
func (s *Store) Apply(unit, key string, value *string) (Handle, error) {
	if unit == "" {
		return Handle{}, fmt.Errorf("envstore: unit must not be empty")
	}
	if key == "" {
		return Handle{}, fmt.Errorf("envstore: key must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.units[unit]
	for _, entry := range entries {
		if entry.key == key {
			return Handle{}, fmt.Errorf("%w: %q", ErrKeyConflict, key)
		}
	}

	prior, present := s.kv.Lookup(key)
	var err error
	if value == nil {
		err = s.kv.Unset(key)
	} else {
		err = s.kv.Set(key, *value)
	}
	if err != nil {
		return Handle{}, fmt.Errorf("envstore: apply %q: %w", key, err)
	}

	entry := savedEntry{
		key:     key,
		prior:   prior,
		present: present,
		applied: value,
		depth:   len(entries),
	}
	s.units[unit] = append(entries, entry)
	return Handle{unit: unit, key: key, depth: entry.depth}, nil
}

// RestoreAll restores every live entry for unit in strict reverse order of
// application, then discards them. Restoration is best effort: a failed
// restore is reported but does not stop the remaining entries.
func (s *Store) RestoreAll(unit string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.units[unit]
	delete(s.units, unit)

	var errs []error
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]

		current, ok := s.kv.Lookup(entry.key)
		switch {
		case entry.applied == nil:
			if ok {
				errs = append(errs, fmt.Errorf("%w: %q reappeared as %q", ErrUnexpectedValue, entry.key, current))
			}
		case !ok:
			errs = append(errs, fmt.Errorf("%w: %q disappeared", ErrUnexpectedValue, entry.key))
		case current != *entry.applied:
			errs = append(errs, fmt.Errorf("%w: %q is %q, expected %q", ErrUnexpectedValue, entry.key, current, *entry.applied))
		}

		var err error
		if entry.present {
			err = s.kv.Set(entry.key, entry.prior)
		} else {
			err = s.kv.Unset(entry.key)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("envstore: restore %q: %w", entry.key, err))
		}
	}
	return errors.Join(errs...)
}

// Live reports the number of unrestored entries for unit.
func (s *Store) Live(unit string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.units[unit])
}

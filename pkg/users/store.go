// Package users persists subscriber notification preferences. The store is
// a single JSON file that is rewritten completely on every mutation and can
// be reloaded cheaply, which the reminder engine does once per cycle.
package users

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/nn1ks/lsfbot/pkg/timetable"
)

// DefaultLeadMinutes is the lead time assigned when a subscriber enables
// direct messages for the first time.
const DefaultLeadMinutes = 30

// Preference is one subscriber's notification configuration.
type Preference struct {
	ID             string          `json:"id"`
	Group          timetable.Group `json:"group,omitempty"`
	Enabled        bool            `json:"enabled"`
	LeadMinutes    *int            `json:"lead_minutes,omitempty"`
	FollowPrevious bool            `json:"follow_previous"`
}

type fileFormat struct {
	Users []Preference `json:"users"`
}

// Store holds the subscriber preferences backed by a JSON file.
type Store struct {
	mu    sync.RWMutex
	path  string
	prefs []Preference
}

// Open loads the store from the given path. A missing file yields an empty
// store; the file is created on the first mutation.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the file. On failure the in-memory state is kept so
// callers can continue with the last successfully loaded copy.
func (s *Store) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read users file: %w", err)
	}

	var file fileFormat
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse users file: %w", err)
	}

	s.mu.Lock()
	s.prefs = file.Users
	s.mu.Unlock()
	return nil
}

// List returns a copy of all preferences.
func (s *Store) List() []Preference {
	s.mu.RLock()
	defer s.mu.RUnlock()
	prefs := make([]Preference, len(s.prefs))
	copy(prefs, s.prefs)
	return prefs
}

// Get returns the preference of one subscriber.
func (s *Store) Get(id string) (Preference, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, pref := range s.prefs {
		if pref.ID == id {
			return pref, true
		}
	}
	return Preference{}, false
}

// Upsert applies mutate to the subscriber's record, creating it first if it
// does not exist, and rewrites the file.
func (s *Store) Upsert(id string, mutate func(*Preference)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.prefs {
		if s.prefs[i].ID == id {
			mutate(&s.prefs[i])
			return s.write()
		}
	}

	pref := Preference{ID: id}
	mutate(&pref)
	s.prefs = append(s.prefs, pref)
	return s.write()
}

// Update applies mutate to an existing record and rewrites the file. It is
// a no-op for unknown subscribers.
func (s *Store) Update(id string, mutate func(*Preference)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.prefs {
		if s.prefs[i].ID == id {
			mutate(&s.prefs[i])
			return s.write()
		}
	}
	return nil
}

// Remove deletes the subscriber's record and rewrites the file.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.prefs {
		if s.prefs[i].ID == id {
			s.prefs = append(s.prefs[:i], s.prefs[i+1:]...)
			return s.write()
		}
	}
	return nil
}

func (s *Store) write() error {
	data, err := json.MarshalIndent(fileFormat{Users: s.prefs}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize users: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write users file: %w", err)
	}
	return nil
}

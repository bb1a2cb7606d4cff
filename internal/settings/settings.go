/*
tc2-charge-controller - Battery charging policy for the TC2 power controller
Copyright (C) 2024, The Cacophony Project

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package settings holds bounded integer settings, each identified by a four
// character id, persisted to a small YAML file in the config directory.
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const idLength = 4

// ValidationError is returned when a value is outside of a setting's bounds.
type ValidationError struct {
	ID    string
	Value int
	Min   int
	Max   int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("value %d for setting '%s' is outside of [%d, %d]", e.Value, e.ID, e.Min, e.Max)
}

// Setting is a bounded integer value. Min <= value <= Max always holds.
type Setting struct {
	ID    string
	Short string
	Desc  string
	Min   int
	Max   int

	store *Store
	value int
}

// Value returns the last validated value.
func (st *Setting) Value() int {
	st.store.mu.Lock()
	defer st.store.mu.Unlock()
	return st.value
}

// Set validates and stores a new value. On error the stored value is unchanged.
func (st *Setting) Set(v int) error {
	if err := st.validate(v); err != nil {
		return err
	}
	st.store.mu.Lock()
	defer st.store.mu.Unlock()
	if err := st.store.save(st.key(), v); err != nil {
		return err
	}
	st.value = v
	return nil
}

func (st *Setting) validate(v int) error {
	if v < st.Min || v > st.Max {
		return &ValidationError{ID: st.ID, Value: v, Min: st.Min, Max: st.Max}
	}
	return nil
}

func (st *Setting) key() string {
	return strings.ToLower(st.ID)
}

// Store owns the registered settings and their backing file.
type Store struct {
	mu       sync.Mutex
	path     string
	v        *viper.Viper
	log      *logrus.Logger
	settings []*Setting
}

// NewStore loads the settings file at path. An empty path keeps values in memory only.
func NewStore(path string, log *logrus.Logger) (*Store, error) {
	s := &Store{
		path: path,
		v:    viper.New(),
		log:  log,
	}
	if path == "" {
		return s, nil
	}
	s.v.SetConfigFile(path)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Debugf("No settings file at '%s', using defaults", path)
		return s, nil
	}
	if err := s.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read settings file '%s': %w", path, err)
	}
	return s, nil
}

// Register adds a setting. A persisted value is used if it is within bounds,
// otherwise the default is.
func (s *Store) Register(id, short, desc string, min, max, def int) (*Setting, error) {
	if len(id) != idLength {
		return nil, fmt.Errorf("setting id '%s' is not %d characters", id, idLength)
	}
	if min > max {
		return nil, fmt.Errorf("setting '%s' has min %d greater than max %d", id, min, max)
	}
	st := &Setting{ID: id, Short: short, Desc: desc, Min: min, Max: max, store: s}
	if err := st.validate(def); err != nil {
		return nil, fmt.Errorf("invalid default: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.settings {
		if other.ID == id {
			return nil, fmt.Errorf("setting '%s' already registered", id)
		}
	}

	st.value = def
	if s.v.IsSet(st.key()) {
		stored := s.v.GetInt(st.key())
		if err := st.validate(stored); err != nil {
			s.log.Warnf("Ignoring stored value: %v", err)
		} else {
			st.value = stored
		}
	}
	s.settings = append(s.settings, st)
	return st, nil
}

// Lookup finds a registered setting by id.
func (s *Store) Lookup(id string) (*Setting, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.settings {
		if st.ID == id {
			return st, true
		}
	}
	return nil, false
}

// Settings returns the registered settings in registration order.
func (s *Store) Settings() []*Setting {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Setting(nil), s.settings...)
}

// save must be called with s.mu held.
func (s *Store) save(key string, v int) error {
	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	lock := flock.New(s.path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock settings file: %w", err)
	}
	defer lock.Unlock()

	// Written from a copy so a failed write leaves s.v as it was.
	next := viper.New()
	next.SetConfigFile(s.path)
	for k, val := range s.v.AllSettings() {
		next.Set(k, val)
	}
	next.Set(key, v)
	if err := next.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	s.v = next
	return nil
}

// Package fixture holds the in-memory RFP pipeline records for the lifetime
// of the process.
package fixture

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/kalambet/rfpdesk/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Store owns a Dataset. Reads return copies; the only mutation of an
// existing record is ApplyValidation.
type Store struct {
	mu sync.RWMutex
	ds Dataset
}

// NewStore takes ownership of ds.
func NewStore(ds Dataset) *Store {
	return &Store{ds: ds}
}

func (s *Store) RFPs() []model.RFP {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.ds.RFPs)
}

func (s *Store) RFP(id string) (model.RFP, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.ds.RFPs {
		if r.ID == id {
			return r, nil
		}
	}
	return model.RFP{}, ErrNotFound
}

func (s *Store) Agents() []model.AgentStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.AgentStatus, len(s.ds.Agents))
	for i, a := range s.ds.Agents {
		a.Warnings = slices.Clone(a.Warnings)
		out[i] = a
	}
	return out
}

func (s *Store) ValidationItems() []model.ValidationItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.ds.ValidationItems)
}

func (s *Store) ValidationItem(id string) (model.ValidationItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.ds.ValidationItems {
		if v.ID == id {
			return v, nil
		}
	}
	return model.ValidationItem{}, ErrNotFound
}

func (s *Store) SKUMatches() []model.SKUMatch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.ds.SKUMatches)
}

func (s *Store) Pricing() []model.PricingBreakdown {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.ds.Pricing)
}

func (s *Store) Documents() []model.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.ds.Documents)
}

func (s *Store) Document(id string) (model.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.ds.Documents {
		if d.ID == id {
			return d, nil
		}
	}
	return model.Document{}, ErrNotFound
}

// Alerts returns alerts newest first.
func (s *Store) Alerts() []model.Alert {
	s.mu.RLock()
	out := slices.Clone(s.ds.Alerts)
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Activity returns the activity log newest first.
func (s *Store) Activity() []model.ActivityLog {
	s.mu.RLock()
	out := slices.Clone(s.ds.Activity)
	s.mu.RUnlock()
	sortActivity(out)
	return out
}

// ActivityFor returns the activity entries of one RFP, newest first.
func (s *Store) ActivityFor(rfpID string) []model.ActivityLog {
	s.mu.RLock()
	var out []model.ActivityLog
	for _, a := range s.ds.Activity {
		if a.RFPID == rfpID {
			out = append(out, a)
		}
	}
	s.mu.RUnlock()
	sortActivity(out)
	return out
}

func sortActivity(entries []model.ActivityLog) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
}

func (s *Store) Benchmarks() model.Benchmarks {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ds.Benchmarks
}

// Snapshot returns a copy of every collection taken under one read lock.
func (s *Store) Snapshot() Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	agents := make([]model.AgentStatus, len(s.ds.Agents))
	for i, a := range s.ds.Agents {
		a.Warnings = slices.Clone(a.Warnings)
		agents[i] = a
	}
	return Dataset{
		RFPs:            slices.Clone(s.ds.RFPs),
		Agents:          agents,
		ValidationItems: slices.Clone(s.ds.ValidationItems),
		SKUMatches:      slices.Clone(s.ds.SKUMatches),
		Pricing:         slices.Clone(s.ds.Pricing),
		Documents:       slices.Clone(s.ds.Documents),
		Alerts:          slices.Clone(s.ds.Alerts),
		Activity:        slices.Clone(s.ds.Activity),
		Benchmarks:      s.ds.Benchmarks,
	}
}

// ApplyValidation replaces validation item id with the copy returned by fn.
// fn runs under the store's write lock; if it returns an error the item is
// left untouched and the error is returned as is.
func (s *Store) ApplyValidation(id string, fn func(model.ValidationItem) (model.ValidationItem, error)) (model.ValidationItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, v := range s.ds.ValidationItems {
		if v.ID != id {
			continue
		}
		next, err := fn(v)
		if err != nil {
			return v, err
		}
		if next.ID != v.ID {
			return v, fmt.Errorf("validation item %s: transition changed id to %s", v.ID, next.ID)
		}
		s.ds.ValidationItems[i] = next
		return next, nil
	}
	return model.ValidationItem{}, ErrNotFound
}

// AppendActivity adds an entry to the activity log.
func (s *Store) AppendActivity(entry model.ActivityLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ds.Activity = append(s.ds.Activity, entry)
}

// UpsertAlert stores alert. An existing alert with the same ID and type is
// replaced but keeps its CreatedAt. It reports whether the alert is new or
// changed type, i.e. whether it was raised rather than refreshed.
func (s *Store) UpsertAlert(alert model.Alert) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, a := range s.ds.Alerts {
		if a.ID == alert.ID {
			if a.Type == alert.Type {
				alert.CreatedAt = a.CreatedAt
			}
			s.ds.Alerts[i] = alert
			return a.Type != alert.Type
		}
	}
	s.ds.Alerts = append(s.ds.Alerts, alert)
	return true
}

// ResolveAlert turns the alert with the given ID into an info alert with the
// given title and description. Alerts are never deleted. It reports whether
// an unresolved alert was found.
func (s *Store) ResolveAlert(id, title, description string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, a := range s.ds.Alerts {
		if a.ID == id && a.Type != model.AlertInfo {
			s.ds.Alerts[i].Type = model.AlertInfo
			s.ds.Alerts[i].Title = title
			s.ds.Alerts[i].Description = description
			return true
		}
	}
	return false
}

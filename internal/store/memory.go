// Package store implements service.Store over SQL databases and in memory.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joeblew999/plat-iftar/internal/service"
)

// Memory is an in-process store. Used by tests and the "memory" driver.
type Memory struct {
	mu   sync.RWMutex
	locs map[string]service.Location
	now  func() time.Time
}

// NewMemory creates an empty memory store.
func NewMemory() *Memory {
	return &Memory{locs: make(map[string]service.Location), now: time.Now}
}

// List returns matching locations, newest first.
func (m *Memory) List(_ context.Context, f service.ListFilter) ([]service.Location, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]service.Location, 0, len(m.locs))
	for _, l := range m.locs {
		if f.Matches(l) {
			result = append(result, l)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// Get returns a location by ID.
func (m *Memory) Get(_ context.Context, id string) (service.Location, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	l, ok := m.locs[id]
	if !ok {
		return service.Location{}, service.ErrNotFound
	}
	return l, nil
}

// Create stores a new location with a generated ID.
func (m *Memory) Create(_ context.Context, fields service.LocationFields) (service.Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l := fromFields(uuid.NewString(), fields, m.now().UTC())
	m.locs[l.ID] = l
	return l, nil
}

// Update overwrites a location. Returns 0 when id does not exist.
func (m *Memory) Update(_ context.Context, id string, fields service.LocationFields) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.locs[id]
	if !ok {
		return 0, nil
	}
	m.locs[id] = fromFields(id, fields, old.CreatedAt)
	return 1, nil
}

// Delete removes a location. Returns 0 when id does not exist.
func (m *Memory) Delete(_ context.Context, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.locs[id]; !ok {
		return 0, nil
	}
	delete(m.locs, id)
	return 1, nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }

func fromFields(id string, f service.LocationFields, created time.Time) service.Location {
	return service.Location{
		ID:        id,
		Name:      f.Name,
		Area:      f.Area,
		IftarType: f.IftarType,
		Audience:  f.Audience,
		Lat:       f.Lat,
		Lng:       f.Lng,
		Date:      f.Date,
		CreatedAt: created,
	}
}

// Package clientsync keeps a client's view of one or more profiles in step
// with the server. Polls and realtime events are both treated as full-row
// snapshots and merged by a last-write-wins reducer keyed on updated_at.
package clientsync

import (
	"sort"
	"sync"

	"portal/internal/models"
	"portal/internal/observability"
)

// Source labels where a snapshot came from.
type Source string

const (
	SourceFetch  Source = "fetch"
	SourcePoll   Source = "poll"
	SourceStream Source = "stream"
	SourceLocal  Source = "local"
)

// Reducer holds the newest known snapshot of each profile. It is safe for
// concurrent use.
type Reducer struct {
	mu       sync.RWMutex
	profiles map[string]*models.Profile
}

// NewReducer returns an empty reducer.
func NewReducer() *Reducer {
	return &Reducer{profiles: make(map[string]*models.Profile)}
}

// Apply stores p if it is newer than what the reducer holds for the same id.
// Duplicates and older snapshots are ignored. It reports whether p was stored.
func (r *Reducer) Apply(src Source, p *models.Profile) bool {
	if p == nil || p.ID == "" {
		return false
	}
	r.mu.Lock()
	prev, ok := r.profiles[p.ID]
	applied := !ok || p.UpdatedAt.After(prev.UpdatedAt)
	if applied {
		r.profiles[p.ID] = p.Clone()
	}
	r.mu.Unlock()

	result := "ignored"
	if applied {
		result = "applied"
	}
	observability.ClientSyncReductions.WithLabelValues(string(src), result).Inc()
	return applied
}

// Replace stores p unconditionally. Used for optimistic writes and their rollback.
func (r *Reducer) Replace(p *models.Profile) {
	if p == nil || p.ID == "" {
		return
	}
	r.mu.Lock()
	r.profiles[p.ID] = p.Clone()
	r.mu.Unlock()
}

// Get returns a copy of the snapshot for id, or nil.
func (r *Reducer) Get(id string) *models.Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.profiles[id].Clone()
}

// All returns copies of every snapshot, oldest created first.
func (r *Reducer) All() []models.Profile {
	r.mu.RLock()
	out := make([]models.Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, *p.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Len is the number of profiles held.
func (r *Reducer) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.profiles)
}

package board

import (
	"context"
	"sort"
	"sync"

	"leadboard/internal/model"
)

// BoardSource is what a per-board store exposes to the parent coordinator.
type BoardSource interface {
	Leads() []model.Lead
	Refetch(ctx context.Context) error
}

// Registry maps board ids to their sources. It is owned by an Engine; there is no global instance.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]BoardSource
}

func NewRegistry() *Registry {
	return &Registry{sources: map[string]BoardSource{}}
}

func (r *Registry) Register(boardID string, src BoardSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[boardID] = src
}

func (r *Registry) Lookup(boardID string) (BoardSource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src, ok := r.sources[boardID]
	return src, ok
}

// IDs returns the registered board ids, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.sources))
	for id := range r.sources {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Reset drops every registration.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = map[string]BoardSource{}
}

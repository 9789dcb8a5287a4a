package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/webdex/webdex/internal/crawl"
)

// Registry tracks domains in process memory.
type Registry struct {
	mu      sync.Mutex
	domains map[string]crawl.Domain
}

// NewRegistry constructs a Registry.
func NewRegistry() *Registry {
	return &Registry{domains: make(map[string]crawl.Domain)}
}

// SelectBatch returns up to limit non-complete domains, least recently
// active first.
func (r *Registry) SelectBatch(_ context.Context, limit int) ([]crawl.Domain, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []crawl.Domain
	for _, d := range r.domains {
		if d.Status != crawl.DomainStatusComplete {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastActivity.Equal(out[j].LastActivity) {
			return out[i].Hostname < out[j].Hostname
		}
		return out[i].LastActivity.Before(out[j].LastActivity)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// RegisterIfNew inserts hostname as pending; existing statuses are never
// downgraded.
func (r *Registry) RegisterIfNew(_ context.Context, hostname string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.domains[hostname]; ok {
		return nil
	}
	r.domains[hostname] = crawl.Domain{
		Hostname: hostname,
		Status:   crawl.DomainStatusPending,
	}
	return nil
}

// MarkComplete flips hostname to complete; unknown hostnames are a no-op.
func (r *Registry) MarkComplete(_ context.Context, hostname string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.domains[hostname]
	if !ok {
		return nil
	}
	d.Status = crawl.DomainStatusComplete
	r.domains[hostname] = d
	return nil
}

// TouchActivity records at as hostname's last activity.
func (r *Registry) TouchActivity(_ context.Context, hostname string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.domains[hostname]
	if !ok {
		return nil
	}
	d.LastActivity = at
	r.domains[hostname] = d
	return nil
}

// CountByStatus returns registry counts keyed by status.
func (r *Registry) CountByStatus(_ context.Context) (map[crawl.DomainStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[crawl.DomainStatus]int64)
	for _, d := range r.domains {
		counts[d.Status]++
	}
	return counts, nil
}

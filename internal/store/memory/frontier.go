// Package memory provides in-memory store implementations for local runs
// and tests.
package memory

import (
	"context"
	"sync"

	"github.com/webdex/webdex/internal/crawl"
)

// Frontier keeps per-domain FIFO queues and seen-sets in process memory.
type Frontier struct {
	mu     sync.Mutex
	queues map[string][]*crawl.FrontierEntry
	seen   map[string]map[string]struct{}
}

// NewFrontier constructs a Frontier.
func NewFrontier() *Frontier {
	return &Frontier{
		queues: make(map[string][]*crawl.FrontierEntry),
		seen:   make(map[string]map[string]struct{}),
	}
}

// ClaimNext marks and returns the oldest unvisited entry for hostname.
func (f *Frontier) ClaimNext(_ context.Context, hostname string) (crawl.FrontierEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, entry := range f.queues[hostname] {
		if entry.Visited {
			continue
		}
		entry.Visited = true
		return *entry, nil
	}
	return crawl.FrontierEntry{}, crawl.ErrEmptyFrontier
}

// EnqueueIfNew appends url unless hostname has seen it before.
func (f *Frontier) EnqueueIfNew(_ context.Context, hostname, url string, depth int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	urls, ok := f.seen[hostname]
	if !ok {
		urls = make(map[string]struct{})
		f.seen[hostname] = urls
	}
	if _, dup := urls[url]; dup {
		return false, nil
	}
	urls[url] = struct{}{}
	f.queues[hostname] = append(f.queues[hostname], &crawl.FrontierEntry{
		Hostname: hostname,
		URL:      url,
		Depth:    depth,
	})
	return true, nil
}

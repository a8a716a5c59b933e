package search

import (
	"sync"

	"github.com/kvora49/Lead-finder-sub001/internal/model"
)

// Deduplicator merges result pages across the variants of one search,
// keeping the first occurrence of each business.
type Deduplicator struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	results []model.RawResult
}

func NewDeduplicator() *Deduplicator {
	return &Deduplicator{seen: make(map[string]struct{})}
}

// Add appends the records not seen before and returns them.
func (d *Deduplicator) Add(page []model.RawResult) []model.RawResult {
	d.mu.Lock()
	defer d.mu.Unlock()

	var added []model.RawResult
	for _, r := range page {
		k := r.DedupKey()
		if _, ok := d.seen[k]; ok {
			continue
		}
		d.seen[k] = struct{}{}
		d.results = append(d.results, r)
		added = append(added, r)
	}
	return added
}

func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.results)
}

// Results returns a copy of the merged records in first-seen order.
func (d *Deduplicator) Results() []model.RawResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]model.RawResult, len(d.results))
	copy(out, d.results)
	return out
}

// Merge de-duplicates lists in order.
func Merge(lists ...[]model.RawResult) []model.RawResult {
	d := NewDeduplicator()
	for _, l := range lists {
		d.Add(l)
	}
	return d.Results()
}

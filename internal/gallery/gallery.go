// Package gallery stores named reference descriptor sets and finds the entry
// that best matches a query set.
package gallery

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/andresmejia3/stampscan/internal/descriptor"
)

// ErrEmptyGallery means Search was called before any reference was registered.
var ErrEmptyGallery = errors.New("gallery has no entries")

// Result is the outcome of a single Search.
// Matched is false when no entry produced a single descriptor pairing.
type Result struct {
	Label   string
	Score   float64 // mean Hamming distance, lower is better
	Pairs   int
	Matched bool
}

// Score is one entry's aggregate distance to a query.
type Score struct {
	Label string
	Score float64
	Pairs int
}

// Gallery maps labels to descriptor sets and remembers insertion order so that
// searches are deterministic.
type Gallery struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]descriptor.Set
}

// New returns an empty gallery.
func New() *Gallery {
	return &Gallery{entries: make(map[string]descriptor.Set)}
}

// Register stores set under label. An existing label is overwritten in place and
// keeps its original position; replaced reports whether that happened.
func (g *Gallery) Register(label string, set descriptor.Set) (replaced bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, replaced = g.entries[label]; !replaced {
		g.order = append(g.order, label)
	}
	g.entries[label] = set
	return replaced
}

// Len returns the number of entries.
func (g *Gallery) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.order)
}

// Labels returns the labels in insertion order.
func (g *Gallery) Labels() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string(nil), g.order...)
}

// Entry returns the descriptor set stored under label.
func (g *Gallery) Entry(label string) (descriptor.Set, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	set, ok := g.entries[label]
	return set, ok
}

// Search scans every entry and returns the one with the strictly lowest mean
// Hamming distance to query. Ties keep the entry registered first.
func (g *Gallery) Search(query descriptor.Set) (Result, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if len(g.order) == 0 {
		return Result{}, ErrEmptyGallery
	}

	var best Result
	for _, label := range g.order {
		score, pairs, err := meanDistance(query, g.entries[label])
		if err != nil {
			return Result{}, fmt.Errorf("entry %q: %w", label, err)
		}
		if pairs == 0 {
			continue
		}
		if !best.Matched || score < best.Score {
			best = Result{Label: label, Score: score, Pairs: pairs, Matched: true}
		}
	}
	return best, nil
}

// Rank scores every entry that pairs with query, best first. Equal scores keep
// insertion order, so Rank(q)[0] agrees with Search(q).
func (g *Gallery) Rank(query descriptor.Set) ([]Score, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if len(g.order) == 0 {
		return nil, ErrEmptyGallery
	}

	var scores []Score
	for _, label := range g.order {
		score, pairs, err := meanDistance(query, g.entries[label])
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", label, err)
		}
		if pairs == 0 {
			continue
		}
		scores = append(scores, Score{Label: label, Score: score, Pairs: pairs})
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Score < scores[j].Score })
	return scores, nil
}

// meanDistance pairs each query descriptor with its nearest train descriptor
// and averages the distances. pairs is 0 when either set is empty.
func meanDistance(query, train descriptor.Set) (float64, int, error) {
	if len(query) == 0 || len(train) == 0 {
		return 0, 0, nil
	}
	if err := descriptor.CheckWidth(query, train); err != nil {
		return 0, 0, err
	}

	var sum, pairs int
	for _, q := range query {
		idx, dist := descriptor.Nearest(q, train)
		if idx < 0 {
			continue
		}
		sum += dist
		pairs++
	}
	if pairs == 0 {
		return 0, 0, nil
	}
	return float64(sum) / float64(pairs), pairs, nil
}

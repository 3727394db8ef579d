// Package watchlist keeps the ordered list of movies a user has watched.
package watchlist

import (
	"sync"

	"github.com/Clark-Hu/popcorn/internal/domain"
)

// List is an in-memory ordered collection of watched entries, unique by
// movie identifier. It is safe for concurrent use.
type List struct {
	mu      sync.RWMutex
	entries []domain.WatchedEntry
}

// New returns an empty list.
func New() *List {
	return &List{}
}

// Add appends entry. An entry whose identifier is already present replaces
// the existing one in place and Add reports false.
func (l *List) Add(entry domain.WatchedEntry) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.entries {
		if l.entries[i].ID == entry.ID {
			l.entries[i] = entry
			return false
		}
	}
	l.entries = append(l.entries, entry)
	return true
}

// Remove deletes the entry with the given identifier and reports whether one
// was present.
func (l *List) Remove(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.entries {
		if l.entries[i].ID == id {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Contains reports whether id is in the list.
func (l *List) Contains(id string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for i := range l.entries {
		if l.entries[i].ID == id {
			return true
		}
	}
	return false
}

// Entries returns a copy of the list in insertion order.
func (l *List) Entries() []domain.WatchedEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.WatchedEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Replace swaps the whole list, dropping later duplicates. Used when a
// session is restored from a mirror.
func (l *List) Replace(entries []domain.WatchedEntry) {
	seen := make(map[string]struct{}, len(entries))
	next := make([]domain.WatchedEntry, 0, len(entries))
	for _, e := range entries {
		if _, dup := seen[e.ID]; dup {
			continue
		}
		seen[e.ID] = struct{}{}
		next = append(next, e)
	}

	l.mu.Lock()
	l.entries = next
	l.mu.Unlock()
}

// Summary computes the stats panel values. It returns false for an empty
// list, where no averages exist.
func (l *List) Summary() (domain.Summary, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Summarize(l.entries)
}

// Summarize averages over every entry: a missing rating or runtime adds 0 to
// the sum but still counts toward the denominator.
func Summarize(entries []domain.WatchedEntry) (domain.Summary, bool) {
	if len(entries) == 0 {
		return domain.Summary{}, false
	}

	var ratingSum, runtimeSum, userSum float64
	for _, e := range entries {
		if e.HasCatalogRating {
			ratingSum += e.CatalogRating
		}
		if e.HasRuntime {
			runtimeSum += float64(e.RuntimeMinutes)
		}
		userSum += float64(e.UserRating)
	}

	n := float64(len(entries))
	return domain.Summary{
		Count:                 len(entries),
		AverageCatalogRating:  ratingSum / n,
		AverageRuntimeMinutes: runtimeSum / n,
		AverageUserRating:     userSum / n,
	}, true
}

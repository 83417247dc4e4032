package wiki

import (
	"slices"
	"strings"
	"sync"

	"golang.org/x/text/cases"
)

// LookupEntry maps a page's display name to its canonical URI.
type LookupEntry struct {
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// LookupIndex is the list of known pages scraped from the wiki's category
// listing. Entries keep their listing order so the first match of a search
// is deterministic. It is safe for concurrent use.
type LookupIndex struct {
	mu      sync.RWMutex
	entries []LookupEntry
}

// NewLookupIndex creates an index holding entries.
func NewLookupIndex(entries ...LookupEntry) *LookupIndex {
	idx := &LookupIndex{}
	idx.Replace(entries)
	return idx
}

// Replace swaps the whole index. Repeated names keep their first entry.
func (l *LookupIndex) Replace(entries []LookupEntry) {
	seen := make(map[string]struct{}, len(entries))
	kept := make([]LookupEntry, 0, len(entries))
	for _, e := range entries {
		if _, dup := seen[e.Name]; dup {
			continue
		}
		seen[e.Name] = struct{}{}
		kept = append(kept, e)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = kept
}

// Clear empties the index.
func (l *LookupIndex) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}

// Len returns the number of entries.
func (l *LookupIndex) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Entries returns a copy of the index.
func (l *LookupIndex) Entries() []LookupEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.entries)
}

// Get returns the entry with exactly the given name.
func (l *LookupIndex) Get(name string) (LookupEntry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, e := range l.entries {
		if e.Name == name {
			return e, true
		}
	}
	return LookupEntry{}, false
}

// Search returns the entries matching any whitespace-separated term of query.
// Tiers are tried in order and the first one with results wins:
// exact name, case-sensitive substring, case-insensitive substring.
func (l *LookupIndex) Search(query string) []LookupEntry {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return nil
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.entries) == 0 {
		return nil
	}

	if matches := l.filterLocked(terms, func(name, term string) bool { return name == term }); len(matches) > 0 {
		return matches
	}
	if matches := l.filterLocked(terms, strings.Contains); len(matches) > 0 {
		return matches
	}

	caser := cases.Fold()
	folded := make([]string, len(terms))
	for i, term := range terms {
		folded[i] = caser.String(term)
	}
	return l.filterLocked(folded, func(name, term string) bool {
		return strings.Contains(caser.String(name), term)
	})
}

// First returns the first entry Search would return.
func (l *LookupIndex) First(query string) (LookupEntry, bool) {
	matches := l.Search(query)
	if len(matches) == 0 {
		return LookupEntry{}, false
	}
	return matches[0], true
}

func (l *LookupIndex) filterLocked(terms []string, match func(name, term string) bool) []LookupEntry {
	var matches []LookupEntry
	for _, e := range l.entries {
		for _, term := range terms {
			if match(e.Name, term) {
				matches = append(matches, e)
				break
			}
		}
	}
	return matches
}

// Package index implements the inverted index: token → ordered, duplicate
// free list of document identifiers.
package index

import (
	"sort"
	"sync"
)

// InvertedIndex is safe for concurrent use.
type InvertedIndex struct {
	mu       sync.RWMutex
	postings map[string][]string
	members  map[string]map[string]struct{}
}

// TermEntry is one token with its documents, as returned by Snapshot.
type TermEntry struct {
	Term   string
	DocIDs []string
}

func New() *InvertedIndex {
	return &InvertedIndex{
		postings: make(map[string][]string),
		members:  make(map[string]map[string]struct{}),
	}
}

// Add appends docID to token's list unless it is already there. It reports
// whether the list changed. Tokens are stored as given; callers normalise.
func (ix *InvertedIndex) Add(token, docID string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	set, ok := ix.members[token]
	if !ok {
		set = make(map[string]struct{})
		ix.members[token] = set
	}
	if _, dup := set[docID]; dup {
		return false
	}
	set[docID] = struct{}{}
	ix.postings[token] = append(ix.postings[token], docID)
	return true
}

// Lookup returns a copy of the documents containing token, in first-indexed
// order. A missing token yields an empty slice and does not create an entry.
func (ix *InvertedIndex) Lookup(token string) []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	ids := ix.postings[token]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// Contains reports whether docID is listed under token.
func (ix *InvertedIndex) Contains(token, docID string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.members[token][docID]
	return ok
}

// TermCount returns the number of distinct tokens.
func (ix *InvertedIndex) TermCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.postings)
}

// Snapshot copies the whole index, sorted by term.
func (ix *InvertedIndex) Snapshot() []TermEntry {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	entries := make([]TermEntry, 0, len(ix.postings))
	for term, ids := range ix.postings {
		cp := make([]string, len(ids))
		copy(cp, ids)
		entries = append(entries, TermEntry{Term: term, DocIDs: cp})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}

package source

import (
	"context"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/linkrank-search/internal/indexer/tokenizer"
)

type page struct {
	links   []string
	tokens  []string
	content string
}

// Memory is an in-process Source. Content is tokenized once on Put.
type Memory struct {
	mu    sync.RWMutex
	pages map[string]page
	order []string
}

func NewMemory(docs ...Document) *Memory {
	m := &Memory{pages: make(map[string]page, len(docs))}
	for _, d := range docs {
		m.Put(d)
	}
	return m
}

// Put adds or replaces a document.
func (m *Memory) Put(doc Document) {
	links := make([]string, len(doc.Links))
	copy(links, doc.Links)
	m.mu.Lock()
	if _, ok := m.pages[doc.ID]; !ok {
		m.order = append(m.order, doc.ID)
	}
	m.pages[doc.ID] = page{links: links, tokens: tokenizer.Tokenize(doc.Content), content: doc.Content}
	m.mu.Unlock()
}

func (m *Memory) Links(_ context.Context, id string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p := m.pages[id]
	out := make([]string, len(p.links))
	copy(out, p.links)
	return out, nil
}

func (m *Memory) Content(_ context.Context, id string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p := m.pages[id]
	out := make([]string, len(p.tokens))
	copy(out, p.tokens)
	return out, nil
}

// Len returns the number of documents held.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.pages)
}

// Documents returns every document in the order it was first added.
func (m *Memory) Documents() []Document {
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs := make([]Document, 0, len(m.order))
	for _, id := range m.order {
		p := m.pages[id]
		links := make([]string, len(p.links))
		copy(links, p.links)
		docs = append(docs, Document{ID: id, Links: links, Content: p.content})
	}
	return docs
}

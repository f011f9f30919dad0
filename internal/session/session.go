// Package session holds the in-memory working set of the current editing
// session. It is the fastest resolver tier and the only tier allowed to hold
// unsaved state; nothing here survives a restart.
package session

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/halim714/markpress/pkg/interfaces"
)

// Store is the in-memory document tier. Safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	docs map[uuid.UUID]*interfaces.Document
}

// New builds an empty session store.
func New() *Store {
	return &Store{docs: map[uuid.UUID]*interfaces.Document{}}
}

var _ interfaces.Provider = (*Store)(nil)

func (s *Store) Name() string { return "session" }

// TryGet returns a deep copy of the held document. The session never holds
// partial state: an entry is either a full document or absent.
func (s *Store) TryGet(_ context.Context, id uuid.UUID) (*interfaces.Document, interfaces.Fidelity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, interfaces.Miss, nil
	}
	return doc.Clone(), interfaces.Full, nil
}

// Backfill accepts a full document resolved by a later tier.
func (s *Store) Backfill(_ context.Context, doc *interfaces.Document) error {
	s.Put(doc)
	return nil
}

// Put stores a deep copy of doc, replacing any previous entry.
func (s *Store) Put(doc *interfaces.Document) {
	if doc == nil || doc.ID == uuid.Nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = doc.Clone()
}

// Get returns a deep copy, or nil when the session does not hold id.
func (s *Store) Get(id uuid.UUID) *interfaces.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs[id].Clone()
}

// Delete drops the entry. Absent entries are ignored.
func (s *Store) Delete(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
}

// List returns summaries for every held document, newest update first.
func (s *Store) List() []interfaces.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]interfaces.Summary, 0, len(s.docs))
	for _, doc := range s.docs {
		summaries = append(summaries, doc.Summarize())
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].UpdatedAt.Equal(summaries[j].UpdatedAt) {
			return summaries[i].Filename < summaries[j].Filename
		}
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	return summaries
}

// Len reports how many documents the session holds.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

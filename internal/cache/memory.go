package cache

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/halim714/markpress/pkg/interfaces"
)

// MemoryStore is a map-backed CacheStore used when the durable cache is
// disabled. Contents do not survive process restarts; every other behaviour
// matches the SQLite store, including the no-downgrade rule for summaries.
type MemoryStore struct {
	mu      sync.RWMutex
	full    map[uuid.UUID]*interfaces.Document
	partial map[uuid.UUID]interfaces.Summary
}

// NewMemoryStore builds an empty in-memory cache.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		full:    map[uuid.UUID]*interfaces.Document{},
		partial: map[uuid.UUID]interfaces.Summary{},
	}
}

var _ interfaces.CacheStore = (*MemoryStore)(nil)

func (s *MemoryStore) Put(_ context.Context, doc *interfaces.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.full[doc.ID] = doc.Clone()
	delete(s.partial, doc.ID)
	return nil
}

func (s *MemoryStore) PutSummary(_ context.Context, summary interfaces.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc, ok := s.full[summary.ID]; ok {
		// refresh listing fields, keep the body
		doc.Title = summary.Title
		doc.Filename = summary.Filename
		doc.Status = summary.Status
		doc.UpdatedAt = summary.UpdatedAt
		doc.PublishedAt = summary.PublishedAt
		return nil
	}
	s.partial[summary.ID] = summary
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*interfaces.Document, interfaces.Fidelity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if doc, ok := s.full[id]; ok {
		return doc.Clone(), interfaces.Full, nil
	}
	if summary, ok := s.partial[id]; ok {
		return &interfaces.Document{
			ID:          summary.ID,
			Title:       summary.Title,
			Filename:    summary.Filename,
			Status:      summary.Status,
			UpdatedAt:   summary.UpdatedAt,
			PublishedAt: summary.PublishedAt,
		}, interfaces.Partial, nil
	}
	return nil, interfaces.Miss, nil
}

func (s *MemoryStore) List(_ context.Context) ([]interfaces.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]interfaces.Summary, 0, len(s.full)+len(s.partial))
	for _, doc := range s.full {
		out = append(out, doc.Summarize())
	}
	for _, summary := range s.partial {
		out = append(out, summary)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].Filename < out[j].Filename
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.full, id)
	delete(s.partial, id)
	return nil
}

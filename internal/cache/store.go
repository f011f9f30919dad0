package cache

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/halim714/markpress/internal/logging"
	"github.com/halim714/markpress/pkg/interfaces"
)

// Store implements the durable cache tier over SQLite.
//
// Fidelity rules: a full row always replaces a partial one, and a summary
// refresh never downgrades a full row to partial. The full body is kept and
// only the listing fields are updated.
type Store struct {
	repo   repository.Repository[*Entry]
	logger interfaces.Logger
	now    func() time.Time
}

// NewStore builds a cache store on the given database. The table must exist;
// call Migrate during startup.
func NewStore(db *bun.DB, logger interfaces.Logger) *Store {
	if logger == nil {
		logger = logging.NoOp()
	}
	return &Store{
		repo:   NewEntryRepository(db),
		logger: logger,
		now:    time.Now,
	}
}

var _ interfaces.CacheStore = (*Store)(nil)

// Put stores the full document, replacing whatever fidelity the row had.
func (s *Store) Put(ctx context.Context, doc *Document) error {
	if doc == nil || doc.ID == uuid.Nil {
		return fmt.Errorf("cache: document with id is required")
	}

	entry := entryFromDocument(doc)
	entry.Fidelity = fidelityFull
	entry.CachedAt = s.now().UTC()

	if _, err := s.repo.Upsert(ctx, entry); err != nil {
		return fmt.Errorf("cache: put %s: %w", doc.ID, err)
	}
	s.logger.Debug("cache.put", "document_id", doc.ID.String(), "filename", doc.Filename)
	return nil
}

// PutSummary refreshes listing fields. A missing row is created partial; an
// existing full row keeps its body and fidelity.
func (s *Store) PutSummary(ctx context.Context, summary interfaces.Summary) error {
	if summary.ID == uuid.Nil {
		return fmt.Errorf("cache: summary with id is required")
	}

	existing, err := s.repo.GetByID(ctx, summary.ID.String())
	if err != nil {
		if !isNotFound(err) {
			return fmt.Errorf("cache: put summary %s: %w", summary.ID, err)
		}
		entry := &Entry{
			ID:          summary.ID,
			Title:       summary.Title,
			Filename:    summary.Filename,
			Status:      string(summary.Status),
			TitleMode:   string(interfaces.TitleModeAuto),
			Fidelity:    fidelityPartial,
			UpdatedAt:   summary.UpdatedAt,
			PublishedAt: summary.PublishedAt,
			CachedAt:    s.now().UTC(),
		}
		if _, err := s.repo.Create(ctx, entry); err != nil {
			return fmt.Errorf("cache: put summary %s: %w", summary.ID, err)
		}
		return nil
	}

	existing.Title = summary.Title
	existing.Filename = summary.Filename
	existing.Status = string(summary.Status)
	existing.UpdatedAt = summary.UpdatedAt
	existing.PublishedAt = summary.PublishedAt
	existing.CachedAt = s.now().UTC()

	if _, err := s.repo.Update(ctx, existing); err != nil {
		return fmt.Errorf("cache: put summary %s: %w", summary.ID, err)
	}
	return nil
}

// Get returns the cached document and the fidelity of what was found. A
// partial row comes back as a document with an empty body and MISS-level
// trust for content fields.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*interfaces.Document, interfaces.Fidelity, error) {
	entry, err := s.repo.GetByID(ctx, id.String())
	if err != nil {
		if isNotFound(err) {
			return nil, interfaces.Miss, nil
		}
		return nil, interfaces.Miss, fmt.Errorf("cache: get %s: %w", id, err)
	}

	doc := documentFromEntry(entry)
	if entry.Fidelity == fidelityFull {
		return doc, interfaces.Full, nil
	}
	return doc, interfaces.Partial, nil
}

// List returns the cached listing projection ordered by last update, newest
// first.
func (s *Store) List(ctx context.Context) ([]interfaces.Summary, error) {
	records, _, err := s.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("?TableAlias.updated_at DESC")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("cache: list: %w", err)
	}

	summaries := make([]interfaces.Summary, 0, len(records))
	for _, entry := range records {
		summaries = append(summaries, interfaces.Summary{
			ID:          entry.ID,
			Title:       entry.Title,
			Filename:    entry.Filename,
			Status:      interfaces.Status(entry.Status),
			UpdatedAt:   entry.UpdatedAt,
			PublishedAt: entry.PublishedAt,
		})
	}
	return summaries, nil
}

// Delete removes the row. Deleting an absent row is not an error.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	entry, err := s.repo.GetByID(ctx, id.String())
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("cache: delete %s: %w", id, err)
	}
	if err := s.repo.Delete(ctx, entry); err != nil {
		return fmt.Errorf("cache: delete %s: %w", id, err)
	}
	return nil
}

// Document aliases the shared document type for call-site brevity.
type Document = interfaces.Document

func entryFromDocument(doc *Document) *Entry {
	return &Entry{
		ID:           doc.ID,
		Title:        doc.Title,
		Content:      doc.Content,
		FrontMatter:  doc.FrontMatter,
		Tags:         doc.Tags,
		TitleMode:    string(doc.TitleMode),
		Status:       string(doc.Status),
		VersionToken: doc.VersionToken,
		Filename:     doc.Filename,
		PublicPath:   doc.PublicPath,
		PublishedAt:  doc.PublishedAt,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}
}

func documentFromEntry(entry *Entry) *interfaces.Document {
	return &interfaces.Document{
		ID:           entry.ID,
		Title:        entry.Title,
		Content:      entry.Content,
		FrontMatter:  entry.FrontMatter,
		Tags:         entry.Tags,
		TitleMode:    interfaces.TitleMode(entry.TitleMode),
		Status:       interfaces.Status(entry.Status),
		VersionToken: entry.VersionToken,
		Filename:     entry.Filename,
		PublicPath:   entry.PublicPath,
		PublishedAt:  entry.PublishedAt,
		CreatedAt:    entry.CreatedAt,
		UpdatedAt:    entry.UpdatedAt,
	}
}

func isNotFound(err error) bool {
	return goerrors.IsCategory(err, repository.CategoryDatabaseNotFound)
}

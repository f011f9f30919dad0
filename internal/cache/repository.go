package cache

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// NewEntryRepository creates a repository for cached document rows.
func NewEntryRepository(db *bun.DB) repository.Repository[*Entry] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*Entry]{
		NewRecord:          func() *Entry { return &Entry{} },
		GetID:              func(e *Entry) uuid.UUID { return e.ID },
		SetID:              func(e *Entry, id uuid.UUID) { e.ID = id },
		GetIdentifier:      func() string { return "filename" },
		GetIdentifierValue: func(e *Entry) string { return e.Filename },
	})
}

// Migrate creates the cache table when missing. SQLite only; the cache is a
// local artifact and carries no cross-device schema history.
func Migrate(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*Entry)(nil)).IfNotExists().Exec(ctx)
	return err
}

package cache

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/halim714/markpress/pkg/interfaces"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	sqlDB, err := sql.Open("sqlite3", "file:"+t.Name()+"?mode=memory&cache=shared&_fk=1")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	db := bun.NewDB(sqlDB, sqlitedialect.New())
	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewStore(db, nil)
}

func sampleDocument(id uuid.UUID) *interfaces.Document {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	return &interfaces.Document{
		ID:           id,
		Title:        "Weekend Notes",
		Content:      "# Weekend Notes\n\nbody",
		FrontMatter:  map[string]any{"tags": []any{"life"}},
		TitleMode:    interfaces.TitleModeAuto,
		Status:       interfaces.StatusDraft,
		CreatedAt:    now,
		UpdatedAt:    now,
		VersionToken: "tok-1",
		Filename:     "weekend-notes-1a2b3c4d-20260314.md",
	}
}

func TestPutThenGetReturnsFullFidelity(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	id := uuid.New()

	if err := store.Put(ctx, sampleDocument(id)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	doc, fidelity, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if fidelity != interfaces.Full {
		t.Fatalf("expected full fidelity, got %s", fidelity)
	}
	if doc.Content != "# Weekend Notes\n\nbody" {
		t.Fatalf("unexpected content %q", doc.Content)
	}
	if doc.VersionToken != "tok-1" {
		t.Fatalf("unexpected token %q", doc.VersionToken)
	}
}

func TestGetMissingIsMissWithoutError(t *testing.T) {
	store := newTestStore(t)

	doc, fidelity, err := store.Get(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if doc != nil || fidelity != interfaces.Miss {
		t.Fatalf("expected miss, got doc=%v fidelity=%s", doc, fidelity)
	}
}

func TestPutSummaryCreatesPartialRow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	id := uuid.New()

	summary := interfaces.Summary{
		ID:        id,
		Title:     "Listed Only",
		Filename:  "listed-only-11223344-20260314.md",
		Status:    interfaces.StatusDraft,
		UpdatedAt: time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC),
	}
	if err := store.PutSummary(ctx, summary); err != nil {
		t.Fatalf("PutSummary: %v", err)
	}

	doc, fidelity, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if fidelity != interfaces.Partial {
		t.Fatalf("expected partial fidelity, got %s", fidelity)
	}
	if doc.Content != "" {
		t.Fatalf("partial row must not carry a body, got %q", doc.Content)
	}
	if doc.Filename != summary.Filename {
		t.Fatalf("unexpected filename %q", doc.Filename)
	}
}

func TestPutSummaryNeverDowngradesFullRow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	id := uuid.New()

	if err := store.Put(ctx, sampleDocument(id)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	summary := interfaces.Summary{
		ID:        id,
		Title:     "Renamed In Listing",
		Filename:  "renamed-in-listing-1a2b3c4d-20260314.md",
		Status:    interfaces.StatusDraft,
		UpdatedAt: time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC),
	}
	if err := store.PutSummary(ctx, summary); err != nil {
		t.Fatalf("PutSummary: %v", err)
	}

	doc, fidelity, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if fidelity != interfaces.Full {
		t.Fatalf("summary refresh downgraded fidelity to %s", fidelity)
	}
	if doc.Content != "# Weekend Notes\n\nbody" {
		t.Fatalf("summary refresh dropped the body")
	}
	if doc.Title != "Renamed In Listing" {
		t.Fatalf("summary fields not refreshed, title=%q", doc.Title)
	}
}

func TestFullPutReplacesPartialRow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	id := uuid.New()

	if err := store.PutSummary(ctx, interfaces.Summary{
		ID:        id,
		Title:     "Partial First",
		Filename:  "partial-first-aabbccdd-20260314.md",
		Status:    interfaces.StatusDraft,
		UpdatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("PutSummary: %v", err)
	}

	full := sampleDocument(id)
	if err := store.Put(ctx, full); err != nil {
		t.Fatalf("Put: %v", err)
	}

	_, fidelity, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if fidelity != interfaces.Full {
		t.Fatalf("expected full after upgrade, got %s", fidelity)
	}
}

func TestListOrdersByUpdatedAtDescending(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	older := sampleDocument(uuid.New())
	older.Title = "Older"
	older.Filename = "older-00000001-20260310.md"
	older.UpdatedAt = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	newer := sampleDocument(uuid.New())
	newer.Title = "Newer"
	newer.Filename = "newer-00000002-20260314.md"
	newer.UpdatedAt = time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)

	if err := store.Put(ctx, older); err != nil {
		t.Fatalf("Put older: %v", err)
	}
	if err := store.Put(ctx, newer); err != nil {
		t.Fatalf("Put newer: %v", err)
	}

	summaries, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}
	if summaries[0].Title != "Newer" || summaries[1].Title != "Older" {
		t.Fatalf("unexpected order: %q then %q", summaries[0].Title, summaries[1].Title)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	id := uuid.New()

	if err := store.Put(ctx, sampleDocument(id)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(ctx, id); err != nil {
		t.Fatalf("repeat Delete: %v", err)
	}

	_, fidelity, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if fidelity != interfaces.Miss {
		t.Fatalf("expected miss after delete, got %s", fidelity)
	}
}

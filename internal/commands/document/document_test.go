package documentcmd

import (
	"context"
	"sync"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"github.com/halim714/markpress/internal/editor"
	"github.com/halim714/markpress/internal/reconcile"
	"github.com/halim714/markpress/internal/remote/memorystore"
	"github.com/halim714/markpress/pkg/interfaces"
)

type stubCache struct {
	mu   sync.Mutex
	full map[uuid.UUID]*interfaces.Document
}

func newStubCache() *stubCache {
	return &stubCache{full: map[uuid.UUID]*interfaces.Document{}}
}

func (c *stubCache) Put(_ context.Context, doc *interfaces.Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.full[doc.ID] = doc.Clone()
	return nil
}

func (c *stubCache) PutSummary(context.Context, interfaces.Summary) error { return nil }

func (c *stubCache) Get(_ context.Context, id uuid.UUID) (*interfaces.Document, interfaces.Fidelity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if doc, ok := c.full[id]; ok {
		return doc.Clone(), interfaces.Full, nil
	}
	return nil, interfaces.Miss, nil
}

func (c *stubCache) List(context.Context) ([]interfaces.Summary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []interfaces.Summary
	for _, doc := range c.full {
		out = append(out, doc.Summarize())
	}
	return out, nil
}

func (c *stubCache) Delete(_ context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.full, id)
	return nil
}

func newTestEditor(t *testing.T, store interfaces.RemoteStore) *editor.Service {
	t.Helper()
	svc, err := editor.New(editor.Options{
		Remote:   store,
		Dir:      "documents",
		Cache:    newStubCache(),
		Debounce: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("editor.New: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close(context.Background()) })
	return svc
}

func TestSaveDocumentCommandValidation(t *testing.T) {
	if err := (SaveDocumentCommand{}).Validate(); err == nil {
		t.Fatal("expected validation error for nil id")
	}
	if err := (SaveDocumentCommand{DocumentID: uuid.New()}).Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestPublishAndDeleteCommandValidation(t *testing.T) {
	if err := (PublishDocumentCommand{}).Validate(); err == nil {
		t.Fatal("expected validation error for nil id")
	}
	if err := (UnpublishDocumentCommand{}).Validate(); err == nil {
		t.Fatal("expected validation error for nil id")
	}
	if err := (DeleteDocumentCommand{}).Validate(); err == nil {
		t.Fatal("expected validation error for nil id")
	}
}

func TestSaveDocumentHandlerFlushesPendingEdits(t *testing.T) {
	ctx := context.Background()
	store := memorystore.New()
	svc := newTestEditor(t, store)

	doc := svc.Create(ctx)
	if _, err := svc.UpdateContent(ctx, doc.ID, "# Queued\n\nbody"); err != nil {
		t.Fatalf("UpdateContent: %v", err)
	}

	handler := NewSaveDocumentHandler(svc, nil)
	if err := handler.Execute(ctx, SaveDocumentCommand{DocumentID: doc.ID}); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	entries, err := store.ListWithContent(ctx, "documents")
	if err != nil {
		t.Fatalf("ListWithContent: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one remote file after save, got %d", len(entries))
	}
}

func TestSaveDocumentHandlerRejectsInvalidMessage(t *testing.T) {
	svc := newTestEditor(t, memorystore.New())
	handler := NewSaveDocumentHandler(svc, nil)

	err := handler.Execute(context.Background(), SaveDocumentCommand{})
	if err == nil {
		t.Fatal("expected validation failure")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryValidation) {
		t.Fatalf("expected validation category, got %v", err)
	}
}

func TestDeleteDocumentHandlerRemovesRemoteFile(t *testing.T) {
	ctx := context.Background()
	store := memorystore.New()
	svc := newTestEditor(t, store)

	doc := svc.Create(ctx)
	if _, err := svc.UpdateContent(ctx, doc.ID, "# Gone Soon\n\nbody"); err != nil {
		t.Fatalf("UpdateContent: %v", err)
	}
	if err := svc.Save(ctx, doc.ID); err != nil {
		t.Fatalf("Save: %v", err)
	}

	handler := NewDeleteDocumentHandler(svc, nil)
	if err := handler.Execute(ctx, DeleteDocumentCommand{DocumentID: doc.ID}); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	entries, err := store.ListWithContent(ctx, "documents")
	if err != nil {
		t.Fatalf("ListWithContent: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty remote after delete, got %d entries", len(entries))
	}
}

func TestReconcileHandlerRetainsReport(t *testing.T) {
	ctx := context.Background()
	store := memorystore.New()
	store.Seed("documents/2026-08-30-orphan-a1b2c3d4.md", []byte("---\ntitle: Orphan\n---\n\nbody"))

	rec, err := reconcile.New(reconcile.Options{
		Remote: store,
		Dir:    "documents",
		Cache:  newStubCache(),
	})
	if err != nil {
		t.Fatalf("reconcile.New: %v", err)
	}

	handler := NewReconcileHandler(rec, nil)
	if err := handler.Execute(ctx, ReconcileCommand{DryRun: true}); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	report := handler.LastReport()
	if report == nil {
		t.Fatal("expected a retained report")
	}
	if !report.DryRun {
		t.Fatal("expected dry-run report")
	}
	if len(report.Changes) != 1 {
		t.Fatalf("expected one planned change, got %d", len(report.Changes))
	}
	if report.Applied() != 0 {
		t.Fatalf("dry run applied %d changes", report.Applied())
	}
}

package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/halim714/markpress/internal/document"
	"github.com/halim714/markpress/internal/naming"
	"github.com/halim714/markpress/internal/remote"
	"github.com/halim714/markpress/internal/remote/memorystore"
	"github.com/halim714/markpress/pkg/interfaces"
)

func seedRemoteDoc(t *testing.T, store *memorystore.Store, title string) (*interfaces.Document, string) {
	t.Helper()

	doc := &interfaces.Document{
		ID:        uuid.New(),
		Title:     title,
		Content:   "# " + title + "\n\nbody",
		TitleMode: interfaces.TitleModeAuto,
		Status:    interfaces.StatusDraft,
		CreatedAt: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}
	doc.Filename = naming.Generate(doc.CreatedAt, doc.Title, doc.ID)

	encoded, err := document.Encode(doc)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	token := store.Seed("notes/"+doc.Filename, encoded)
	doc.VersionToken = token
	return doc, token
}

func TestRemoteProviderDirectReadWithHint(t *testing.T) {
	store := memorystore.New()
	seeded, token := seedRemoteDoc(t, store, "Direct Read")
	provider := &RemoteProvider{Store: store, Dir: "notes"}

	hint := &interfaces.Document{ID: seeded.ID, Filename: seeded.Filename}
	doc, fidelity, err := provider.TryGetWithHint(context.Background(), seeded.ID, hint)
	if err != nil {
		t.Fatalf("TryGetWithHint: %v", err)
	}
	if fidelity != interfaces.Full {
		t.Fatalf("expected full fidelity, got %s", fidelity)
	}
	if doc.Title != "Direct Read" || doc.VersionToken != token {
		t.Fatalf("unexpected doc %+v", doc)
	}
}

func TestRemoteProviderStaleHintFallsBackToScan(t *testing.T) {
	store := memorystore.New()
	seeded, _ := seedRemoteDoc(t, store, "Renamed Since")
	provider := &RemoteProvider{Store: store, Dir: "notes"}

	hint := &interfaces.Document{ID: seeded.ID, Filename: "old-name-deadbeef-20250101.md"}
	doc, fidelity, err := provider.TryGetWithHint(context.Background(), seeded.ID, hint)
	if err != nil {
		t.Fatalf("TryGetWithHint: %v", err)
	}
	if fidelity != interfaces.Full {
		t.Fatalf("expected full fidelity via scan, got %s", fidelity)
	}
	if doc.Filename != seeded.Filename {
		t.Fatalf("scan returned wrong file %q", doc.Filename)
	}
}

// lagStore hides a path for the first few reads, the way a hosted API can
// 404 on content it just committed.
type lagStore struct {
	*memorystore.Store
	path   string
	misses int
	reads  int
}

func (s *lagStore) Read(ctx context.Context, path string) (*interfaces.RemoteFile, error) {
	if path == s.path {
		s.reads++
		if s.reads <= s.misses {
			return nil, &remote.NotFoundError{Path: path}
		}
	}
	return s.Store.Read(ctx, path)
}

func TestRemoteProviderHintWithTokenWaitsOutEchoWindow(t *testing.T) {
	store := memorystore.New()
	seeded, token := seedRemoteDoc(t, store, "Just Written")
	lagging := &lagStore{Store: store, path: "notes/" + seeded.Filename, misses: 2}
	provider := &RemoteProvider{
		Store: lagging,
		Dir:   "notes",
		Echo:  remote.RetryPolicy{MaxAttempts: 4, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
	}

	hint := &interfaces.Document{ID: seeded.ID, Filename: seeded.Filename, VersionToken: token}
	doc, fidelity, err := provider.TryGetWithHint(context.Background(), seeded.ID, hint)
	if err != nil {
		t.Fatalf("TryGetWithHint: %v", err)
	}
	if fidelity != interfaces.Full || doc.Title != "Just Written" {
		t.Fatalf("unexpected result %s / %+v", fidelity, doc)
	}
	if lagging.reads < 3 {
		t.Fatalf("expected the read to be retried, got %d attempts", lagging.reads)
	}
}

func TestRemoteProviderHintWithTokenFallsBackToScanWhenGone(t *testing.T) {
	store := memorystore.New()
	seeded, token := seedRemoteDoc(t, store, "Moved Away")
	provider := &RemoteProvider{
		Store: store,
		Dir:   "notes",
		Echo:  remote.RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
	}

	// the hinted path never existed under this name; once the echo budget is
	// spent the provider scans and still finds the document
	hint := &interfaces.Document{ID: seeded.ID, Filename: "old-name-deadbeef-20250101.md", VersionToken: token}
	doc, fidelity, err := provider.TryGetWithHint(context.Background(), seeded.ID, hint)
	if err != nil {
		t.Fatalf("TryGetWithHint: %v", err)
	}
	if fidelity != interfaces.Full || doc.Filename != seeded.Filename {
		t.Fatalf("unexpected result %s / %+v", fidelity, doc)
	}
}

func TestRemoteProviderScanFindsDocWithoutHint(t *testing.T) {
	store := memorystore.New()
	_, _ = seedRemoteDoc(t, store, "First Doc")
	target, _ := seedRemoteDoc(t, store, "Second Doc")
	provider := &RemoteProvider{Store: store, Dir: "notes"}

	doc, fidelity, err := provider.TryGet(context.Background(), target.ID)
	if err != nil {
		t.Fatalf("TryGet: %v", err)
	}
	if fidelity != interfaces.Full || doc.Title != "Second Doc" {
		t.Fatalf("unexpected result %s / %+v", fidelity, doc)
	}
}

func TestRemoteProviderScanMiss(t *testing.T) {
	store := memorystore.New()
	_, _ = seedRemoteDoc(t, store, "Unrelated")
	provider := &RemoteProvider{Store: store, Dir: "notes"}

	doc, fidelity, err := provider.TryGet(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("TryGet: %v", err)
	}
	if doc != nil || fidelity != interfaces.Miss {
		t.Fatalf("expected miss, got %v/%s", doc, fidelity)
	}
}

func TestRemoteProviderOpaqueNameResolvedByMetadata(t *testing.T) {
	store := memorystore.New()
	doc := &interfaces.Document{
		ID:        uuid.New(),
		Title:     "Imported Note",
		Content:   "# Imported Note",
		TitleMode: interfaces.TitleModeManual,
		Status:    interfaces.StatusDraft,
		Filename:  "imported.md",
	}
	encoded, err := document.Encode(doc)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	store.Seed("notes/imported.md", encoded)

	provider := &RemoteProvider{Store: store, Dir: "notes"}
	got, fidelity, err := provider.TryGet(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("TryGet: %v", err)
	}
	if fidelity != interfaces.Full || got.Title != "Imported Note" {
		t.Fatalf("unexpected result %s / %+v", fidelity, got)
	}
}

package publisher

import (
	"context"
	"strings"
	"testing"
	"time"

	urlkit "github.com/goliatone/go-urlkit"
	"github.com/google/uuid"

	"github.com/halim714/markpress/internal/frontmatter"
	"github.com/halim714/markpress/internal/remote/memorystore"
	"github.com/halim714/markpress/pkg/interfaces"
)

func newTestPublisher(t *testing.T, store *memorystore.Store, resolver TargetResolver) *Publisher {
	t.Helper()

	pub, err := New(Options{
		PublicStore: store,
		Routes:      urlkit.NewRouteManager(RouteConfig("https://halim714.github.io")),
		Resolver:    resolver,
		Now:         func() time.Time { return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return pub
}

func draftDoc(title, content string) *interfaces.Document {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	return &interfaces.Document{
		ID:        uuid.New(),
		Title:     title,
		Content:   content,
		TitleMode: interfaces.TitleModeAuto,
		Status:    interfaces.StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestPublishEmitsPostWithSiteMetadata(t *testing.T) {
	store := memorystore.New()
	pub := newTestPublisher(t, store, nil)

	doc := draftDoc("Spring Cleaning", "# Spring Cleaning\n\nSome body.\n")
	doc.Tags = []string{"home"}
	doc.FrontMatter = map[string]any{"mood": "calm"}

	out, err := pub.Publish(context.Background(), doc)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if out.Status != interfaces.StatusPublished {
		t.Fatalf("expected published status, got %s", out.Status)
	}
	if out.PublicPath != "_posts/2026-03-14-spring-cleaning.md" {
		t.Fatalf("unexpected public path %q", out.PublicPath)
	}
	if out.PublishedAt == nil {
		t.Fatal("publish must set the timestamp")
	}

	file, err := store.Read(context.Background(), out.PublicPath)
	if err != nil {
		t.Fatalf("read published file: %v", err)
	}
	meta, body := frontmatter.Parse(file.Content)

	if meta["layout"] != "post" || meta["title"] != "Spring Cleaning" {
		t.Fatalf("unexpected site metadata %v", meta)
	}
	if meta["permalink"] != "/2026/03/14/spring-cleaning/" {
		t.Fatalf("unexpected permalink %v", meta["permalink"])
	}
	if meta["mood"] != "calm" {
		t.Fatalf("custom metadata dropped: %v", meta)
	}
	tags, ok := meta["tags"].([]any)
	if !ok || len(tags) != 1 || tags[0] != "home" {
		t.Fatalf("tags missing from site metadata: %v", meta)
	}
	if _, ok := meta["id"]; ok {
		t.Fatal("engine bookkeeping leaked into the public file")
	}
	if !strings.Contains(string(body), "Some body.") {
		t.Fatalf("body missing from published file: %q", body)
	}
}

func TestRepublishKeepsPermalinkStable(t *testing.T) {
	store := memorystore.New()
	pub := newTestPublisher(t, store, nil)

	doc := draftDoc("Stable Post", "original\n")
	first, err := pub.Publish(context.Background(), doc)
	if err != nil {
		t.Fatalf("first publish: %v", err)
	}

	// republishing much later keeps the original date and path
	first.Content = "revised\n"
	later, err := New(Options{
		PublicStore: store,
		Routes:      urlkit.NewRouteManager(RouteConfig("https://halim714.github.io")),
		Now:         func() time.Time { return time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	second, err := later.Publish(context.Background(), first)
	if err != nil {
		t.Fatalf("second publish: %v", err)
	}
	if second.PublicPath != first.PublicPath {
		t.Fatalf("republish moved the post: %q vs %q", second.PublicPath, first.PublicPath)
	}

	file, err := store.Read(context.Background(), second.PublicPath)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(file.Content), "revised") {
		t.Fatal("republish did not update content")
	}
}

func TestPublishAfterRenameRemovesOldPost(t *testing.T) {
	store := memorystore.New()
	pub := newTestPublisher(t, store, nil)

	doc := draftDoc("First Title", "body\n")
	published, err := pub.Publish(context.Background(), doc)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	oldPath := published.PublicPath

	published.Title = "Second Title"
	renamed, err := pub.Publish(context.Background(), published)
	if err != nil {
		t.Fatalf("republish: %v", err)
	}
	if renamed.PublicPath == oldPath {
		t.Fatal("rename should move the post")
	}

	if _, err := store.Read(context.Background(), oldPath); err == nil {
		t.Fatalf("old post still present at %s", oldPath)
	}
	if _, err := store.Read(context.Background(), renamed.PublicPath); err != nil {
		t.Fatalf("new post missing: %v", err)
	}
}

func TestPublishEmptyDocumentRefused(t *testing.T) {
	pub := newTestPublisher(t, memorystore.New(), nil)
	_, err := pub.Publish(context.Background(), draftDoc("Empty", "  \n"))
	if err == nil {
		t.Fatal("expected refusal for empty content")
	}
}

func TestUnpublishPrefersRecordedPath(t *testing.T) {
	store := memorystore.New()
	pub := newTestPublisher(t, store, nil)

	doc := draftDoc("To Remove", "body\n")
	published, err := pub.Publish(context.Background(), doc)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	// title changed after publish; recorded path must still win
	published.Title = "Renamed After Publish"
	out, err := pub.Unpublish(context.Background(), published)
	if err != nil {
		t.Fatalf("Unpublish: %v", err)
	}
	if out.Status != interfaces.StatusDraft || out.PublicPath != "" {
		t.Fatalf("unexpected state after unpublish: %+v", out)
	}
	if out.PublishedAt == nil {
		t.Fatal("unpublish must keep the publish timestamp")
	}

	entries, err := store.ListWithContent(context.Background(), "_posts")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("post not removed, %d entries left", len(entries))
	}
}

func TestRepublishAfterUnpublishKeepsOriginalDate(t *testing.T) {
	store := memorystore.New()
	pub := newTestPublisher(t, store, nil)

	first, err := pub.Publish(context.Background(), draftDoc("Comeback", "body\n"))
	if err != nil {
		t.Fatalf("first publish: %v", err)
	}
	unpublished, err := pub.Unpublish(context.Background(), first)
	if err != nil {
		t.Fatalf("Unpublish: %v", err)
	}

	later, err := New(Options{
		PublicStore: store,
		Routes:      urlkit.NewRouteManager(RouteConfig("https://halim714.github.io")),
		Now:         func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	second, err := later.Publish(context.Background(), unpublished)
	if err != nil {
		t.Fatalf("second publish: %v", err)
	}

	if second.PublishedAt == nil || !second.PublishedAt.Equal(*first.PublishedAt) {
		t.Fatalf("publish timestamp not preserved across unpublish: first=%v got=%v",
			first.PublishedAt, second.PublishedAt)
	}
	if second.PublicPath != first.PublicPath {
		t.Fatalf("republish after unpublish moved the post: %q vs %q",
			second.PublicPath, first.PublicPath)
	}
}

func TestStageFixesPublishStateWithoutWriting(t *testing.T) {
	store := memorystore.New()
	pub := newTestPublisher(t, store, nil)

	staged, err := pub.Stage(draftDoc("Staged", "body\n"))
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if staged.Status != interfaces.StatusPublished || staged.PublishedAt == nil {
		t.Fatalf("unexpected staged state: %+v", staged)
	}

	entries, err := store.ListWithContent(context.Background(), "_posts")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 0 {
		t.Fatal("stage must not touch the public repository")
	}

	// the actual publish reuses the staged timestamp
	out, err := pub.Publish(context.Background(), staged)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !out.PublishedAt.Equal(*staged.PublishedAt) {
		t.Fatalf("publish replaced the staged timestamp: %v vs %v", out.PublishedAt, staged.PublishedAt)
	}

	if _, err := pub.Stage(draftDoc("Empty", "  \n")); err == nil {
		t.Fatal("expected refusal for empty content")
	}
}

func TestUnpublishMissingFileSucceeds(t *testing.T) {
	pub := newTestPublisher(t, memorystore.New(), nil)

	doc := draftDoc("Ghost", "body\n")
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	doc.Status = interfaces.StatusPublished
	doc.PublishedAt = &at
	doc.PublicPath = "_posts/2026-03-01-ghost.md"

	if _, err := pub.Unpublish(context.Background(), doc); err != nil {
		t.Fatalf("Unpublish of missing file: %v", err)
	}
}

func TestPublishRewritesInternalLinks(t *testing.T) {
	store := memorystore.New()
	target := uuid.New()
	missing := uuid.New()

	resolver := TargetResolverFunc(func(_ context.Context, id uuid.UUID) (*LinkTarget, error) {
		if id == target {
			return &LinkTarget{Title: "Target Post", URL: "https://halim714.github.io/2026/01/02/target-post/", Published: true}, nil
		}
		return &LinkTarget{Title: "Draft Only", Published: false}, nil
	})
	pub := newTestPublisher(t, store, resolver)

	content := "See [[" + target.String() + "]] and [[" + missing.String() + "|my draft]].\n"
	out, err := pub.Publish(context.Background(), draftDoc("Linker", content))
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	file, err := store.Read(context.Background(), out.PublicPath)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	body := string(file.Content)
	if !strings.Contains(body, "[Target Post](https://halim714.github.io/2026/01/02/target-post/)") {
		t.Fatalf("published link not rewritten: %q", body)
	}
	if strings.Contains(body, missing.String()) {
		t.Fatalf("unpublished link id leaked: %q", body)
	}
	if !strings.Contains(body, "my draft") {
		t.Fatalf("unpublished link label lost: %q", body)
	}
}

func TestPublishStripsEmbeddedMetadataBlock(t *testing.T) {
	store := memorystore.New()
	pub := newTestPublisher(t, store, nil)

	content := "---\ntitle: Pasted\nid: 1234\n---\nActual body.\n"
	out, err := pub.Publish(context.Background(), draftDoc("Clean Output", content))
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	file, err := store.Read(context.Background(), out.PublicPath)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	meta, body := frontmatter.Parse(file.Content)
	if meta["title"] != "Clean Output" {
		t.Fatalf("site metadata overridden by pasted block: %v", meta)
	}
	if strings.Contains(string(body), "---") {
		t.Fatalf("embedded metadata block survived: %q", body)
	}
}

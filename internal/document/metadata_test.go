package document

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/halim714/markpress/pkg/interfaces"
)

func TestMergeMetadataRecognizedFieldsTakePrecedence(t *testing.T) {
	id := uuid.New()
	doc := &interfaces.Document{
		ID:        id,
		Title:     "Real Title",
		TitleMode: interfaces.TitleModeManual,
		Status:    interfaces.StatusDraft,
		FrontMatter: map[string]any{
			"title":    "Stale Title",
			"x_custom": "kept",
		},
	}

	meta := MergeMetadata(doc)
	if meta[KeyTitle] != "Real Title" {
		t.Fatalf("expected typed title to win, got %v", meta[KeyTitle])
	}
	if meta[KeyID] != id.String() {
		t.Fatalf("expected id %s, got %v", id, meta[KeyID])
	}
	if meta["x_custom"] != "kept" {
		t.Fatalf("expected custom field preserved, got %v", meta["x_custom"])
	}
	if meta[KeyPublished] != false {
		t.Fatalf("expected published=false for draft, got %v", meta[KeyPublished])
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	id := uuid.New()
	published := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	doc := &interfaces.Document{
		ID:          id,
		Title:       "Hello World",
		Content:     "# Hello World\n\nBody text.\n",
		TitleMode:   interfaces.TitleModeAuto,
		Status:      interfaces.StatusPublished,
		CreatedAt:   time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		UpdatedAt:   time.Date(2026, 3, 14, 8, 59, 0, 0, time.UTC),
		PublishedAt: &published,
		PublicPath:  "/2026/03/14/hello-world/",
		FrontMatter: map[string]any{"series": "greetings"},
	}

	raw, err := Encode(doc)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got := Decode("hello-world-deadbeef-20260301.md", raw, "tok-1")
	if got.ID != id {
		t.Fatalf("id mismatch: %s vs %s", got.ID, id)
	}
	if got.Title != doc.Title {
		t.Fatalf("title mismatch: %q", got.Title)
	}
	if got.Content != doc.Content {
		t.Fatalf("content mismatch: %q", got.Content)
	}
	if got.Status != interfaces.StatusPublished {
		t.Fatalf("status mismatch: %q", got.Status)
	}
	if got.PublishedAt == nil || !got.PublishedAt.Equal(published) {
		t.Fatalf("publishedAt mismatch: %v", got.PublishedAt)
	}
	if got.PublicPath != doc.PublicPath {
		t.Fatalf("public path mismatch: %q", got.PublicPath)
	}
	if got.FrontMatter["series"] != "greetings" {
		t.Fatalf("custom field lost: %#v", got.FrontMatter)
	}
	if got.VersionToken != "tok-1" {
		t.Fatalf("version token mismatch: %q", got.VersionToken)
	}
}

func TestDecodeEncodeKeepsTagsAndDate(t *testing.T) {
	raw := "---\nid: " + uuid.NewString() + "\ntitle: Tagged\ndate: 2026-02-01\ntags:\n  - go\n  - notes\n---\nbody\n"

	doc := Decode("tagged-deadbeef-20260201.md", []byte(raw), "tok")
	if len(doc.Tags) != 2 || doc.Tags[0] != "go" || doc.Tags[1] != "notes" {
		t.Fatalf("tags not lifted from metadata: %#v", doc.Tags)
	}
	if _, ok := doc.FrontMatter[KeyDate]; !ok {
		t.Fatalf("author date dropped from custom view: %#v", doc.FrontMatter)
	}

	encoded, err := Encode(doc)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	again := Decode("tagged-deadbeef-20260201.md", encoded, "tok-2")
	if len(again.Tags) != 2 || again.Tags[0] != "go" || again.Tags[1] != "notes" {
		t.Fatalf("tags lost in encode cycle: %#v\nfile: %s", again.Tags, encoded)
	}
	if _, ok := again.FrontMatter[KeyDate]; !ok {
		t.Fatalf("author date lost in encode cycle: %s", encoded)
	}
}

func TestApplyMetadataLiftsScalarTag(t *testing.T) {
	doc := &interfaces.Document{}
	ApplyMetadata(doc, map[string]any{KeyTags: "solo"})
	if len(doc.Tags) != 1 || doc.Tags[0] != "solo" {
		t.Fatalf("scalar tag not lifted: %#v", doc.Tags)
	}
	if _, ok := doc.FrontMatter[KeyTags]; ok {
		t.Fatal("tags must move out of the custom view")
	}
}

func TestDecodeWithoutMetadataBlock(t *testing.T) {
	raw := "Just a body, no block.\n"

	doc := Decode("note-cafebabe-20260101.md", []byte(raw), "tok")
	if doc.Content != raw {
		t.Fatalf("expected body preserved, got %q", doc.Content)
	}
	if doc.Status != interfaces.StatusDraft {
		t.Fatalf("expected draft default, got %q", doc.Status)
	}
	if doc.TitleMode != interfaces.TitleModeAuto {
		t.Fatalf("expected auto title mode default, got %q", doc.TitleMode)
	}
	if doc.ID != uuid.Nil {
		t.Fatalf("expected nil id, got %s", doc.ID)
	}
}

func TestApplyMetadataIgnoresMalformedReservedValues(t *testing.T) {
	doc := &interfaces.Document{}
	ApplyMetadata(doc, map[string]any{
		KeyID:        "not-a-uuid",
		KeyStatus:    "archived",
		KeyTitleMode: "weird",
		KeyCreatedAt: "yesterday",
		"custom":     42,
	})

	if doc.ID != uuid.Nil {
		t.Fatalf("expected nil id for malformed value, got %s", doc.ID)
	}
	if doc.Status != interfaces.StatusDraft {
		t.Fatalf("expected draft fallback, got %q", doc.Status)
	}
	if doc.TitleMode != interfaces.TitleModeAuto {
		t.Fatalf("expected auto fallback, got %q", doc.TitleMode)
	}
	if !doc.CreatedAt.IsZero() {
		t.Fatalf("expected zero created_at, got %v", doc.CreatedAt)
	}
	if doc.FrontMatter["custom"] != 42 {
		t.Fatalf("expected custom key preserved, got %#v", doc.FrontMatter)
	}
}

func TestEncodeStripsReservedFromCustomView(t *testing.T) {
	doc := &interfaces.Document{
		ID:     uuid.New(),
		Title:  "T",
		Status: interfaces.StatusDraft,
		FrontMatter: map[string]any{
			"status": "published", // stale copy, must not leak through
		},
	}

	raw, err := Encode(doc)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if strings.Count(string(raw), "status:") != 1 {
		t.Fatalf("expected a single status key, got %q", raw)
	}
}

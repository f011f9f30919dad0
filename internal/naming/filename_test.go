package naming

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestGenerateHelloWorld(t *testing.T) {
	id := uuid.New()
	createdAt := time.Date(2026, 5, 2, 10, 30, 0, 0, time.UTC)

	name := Generate(createdAt, "Hello World", id)

	want := regexp.MustCompile(`^hello-world-[0-9a-f]{8}-\d{8}\.md$`)
	if !want.MatchString(name) {
		t.Fatalf("unexpected filename %q", name)
	}
	if !Matches(name, id) {
		t.Fatalf("generated name %q does not match its own id", name)
	}
}

func TestGenerateEmptyTitleFallback(t *testing.T) {
	createdAt := time.Date(2026, 5, 2, 10, 30, 0, 0, time.UTC)

	for _, title := range []string{"", "   ", "\t\n", "!!!"} {
		name := Generate(createdAt, title, uuid.New())
		if name == "" || strings.HasPrefix(name, "-") {
			t.Fatalf("title %q produced invalid name %q", title, name)
		}
		if !strings.HasPrefix(name, "note-") {
			t.Fatalf("title %q expected fallback literal, got %q", title, name)
		}
	}
}

func TestGenerateTruncatesAtSeparatorBoundary(t *testing.T) {
	long := strings.Repeat("verylongword ", 12)
	name := Generate(time.Now(), long, uuid.New())

	slugPart := strings.SplitN(name, "-verylongword", 2)[0]
	_ = slugPart
	parsed := Parse(name)
	if strings.HasSuffix(parsed.Slug, "-") {
		t.Fatalf("slug ends with separator: %q", parsed.Slug)
	}
	if len(parsed.Slug) > 48 {
		t.Fatalf("slug too long (%d): %q", len(parsed.Slug), parsed.Slug)
	}
}

func TestParseCurrentPattern(t *testing.T) {
	parsed := Parse("my-first-note-0a1b2c3d-20260502.md")
	if parsed.Slug != "my-first-note" {
		t.Fatalf("slug: %q", parsed.Slug)
	}
	if parsed.IDPrefix != "0a1b2c3d" {
		t.Fatalf("id prefix: %q", parsed.IDPrefix)
	}
	if parsed.Date.Format("20060102") != "20260502" {
		t.Fatalf("date: %v", parsed.Date)
	}
	if parsed.Legacy {
		t.Fatal("current pattern flagged legacy")
	}
}

func TestParseLegacyPattern(t *testing.T) {
	parsed := Parse("old-note_deadbeef.md")
	if parsed.Slug != "old-note" || parsed.IDPrefix != "deadbeef" || !parsed.Legacy {
		t.Fatalf("unexpected parse: %#v", parsed)
	}
}

func TestParseOpaqueFallback(t *testing.T) {
	parsed := Parse("README.md")
	if parsed.Slug != "README" || parsed.IDPrefix != "" {
		t.Fatalf("unexpected parse: %#v", parsed)
	}
}

func TestGenerateUniquenessAcrossRandomizedTriples(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	titles := []string{
		"Hello World", "Notes", "Weekly Plan", "hello world", "Notes!",
		"A much longer and more descriptive document title",
	}

	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		title := titles[rng.Intn(len(titles))]
		id := uuid.New()
		createdAt := time.Unix(int64(1500000000+rng.Intn(500000000)), 0)

		name := Generate(createdAt, title, id)
		if _, dup := seen[name]; dup {
			t.Fatalf("collision at iteration %d: %q", i, name)
		}
		seen[name] = struct{}{}
	}
}

func TestEnsureUniqueAppendsTokenOnCollision(t *testing.T) {
	ours := uuid.New()
	other := uuid.New()
	taken := map[string]uuid.UUID{
		"hello-world-0a1b2c3d-20260502.md": other,
	}
	lookup := func(name string) uuid.UUID { return taken[name] }

	name, err := EnsureUnique("hello-world-0a1b2c3d-20260502.md", ours, lookup)
	if err != nil {
		t.Fatalf("EnsureUnique: %v", err)
	}
	if name == "hello-world-0a1b2c3d-20260502.md" {
		t.Fatal("expected a new name on collision")
	}
	if !strings.HasSuffix(name, ".md") {
		t.Fatalf("expected .md suffix, got %q", name)
	}
}

func TestEnsureUniqueKeepsOwnName(t *testing.T) {
	ours := uuid.New()
	taken := map[string]uuid.UUID{"mine.md": ours}
	lookup := func(name string) uuid.UUID { return taken[name] }

	name, err := EnsureUnique("mine.md", ours, lookup)
	if err != nil {
		t.Fatalf("EnsureUnique: %v", err)
	}
	if name != "mine.md" {
		t.Fatalf("expected existing mapping reused, got %q", name)
	}
}

func TestEnsureUniqueGivesUpAfterBoundedRetries(t *testing.T) {
	other := uuid.New()
	lookup := func(string) uuid.UUID { return other }

	if _, err := EnsureUnique("x.md", uuid.New(), lookup); err == nil {
		t.Fatal("expected error when every candidate collides")
	}
}

func ExampleGenerate() {
	id := uuid.MustParse("0a1b2c3d-0000-4000-8000-000000000000")
	name := Generate(time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC), "Hello World", id)
	fmt.Println(name)
	// Output: hello-world-0a1b2c3d-20260502.md
}

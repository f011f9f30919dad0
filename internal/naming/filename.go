// Package naming derives and parses document filenames. Names are
// deterministic over (title, id, creation date) so every tier of the system
// can reconstruct the same path without coordination.
package naming

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/goliatone/go-slug"
	"github.com/google/uuid"
)

const (
	// Extension is appended to every generated document filename.
	Extension = ".md"

	// maxSlugLen bounds the slug portion; truncation happens at a separator
	// boundary so names never end mid-word.
	maxSlugLen = 48

	// fallbackSlug replaces empty or unsluggable titles.
	fallbackSlug = "note"

	idPrefixLen = 8
	dateLayout  = "20060102"
)

var (
	// current pattern: <slug>-<8 hex>-<8 digit date>.md
	currentPattern = regexp.MustCompile(`^(.*)-([0-9a-f]{8})-(\d{8})$`)
	// legacy pattern: <slug>_<8 hex>.md (no date stamp, underscore joiner)
	legacyPattern = regexp.MustCompile(`^(.*)_([0-9a-f]{8})$`)
)

// Parsed is the result of decomposing a filename. IDPrefix is empty when the
// name matches no known pattern; Slug always carries a usable value.
type Parsed struct {
	Slug     string
	IDPrefix string
	Date     time.Time
	Legacy   bool
}

// Generate builds the canonical filename for a document:
// slug(title) + "-" + first 8 hex of the id + "-" + compact date + ".md".
// Empty or unsluggable titles fall back to a literal plus timestamp so the
// result is always non-empty.
func Generate(createdAt time.Time, title string, id uuid.UUID) string {
	s := Slugify(title)
	if s == "" {
		s = fmt.Sprintf("%s-%d", fallbackSlug, createdAt.Unix())
	}
	return fmt.Sprintf("%s-%s-%s%s", s, idPrefix(id), createdAt.Format(dateLayout), Extension)
}

// Parse recognises the current pattern, the legacy underscore pattern, and
// otherwise treats the whole base name as an opaque slug. It never fails.
func Parse(name string) Parsed {
	base := strings.TrimSuffix(name, Extension)

	if m := currentPattern.FindStringSubmatch(base); m != nil {
		parsed := Parsed{Slug: m[1], IDPrefix: m[2]}
		if at, err := time.Parse(dateLayout, m[3]); err == nil {
			parsed.Date = at
			return parsed
		}
	}

	if m := legacyPattern.FindStringSubmatch(base); m != nil {
		return Parsed{Slug: m[1], IDPrefix: m[2], Legacy: true}
	}

	return Parsed{Slug: base}
}

// Matches reports whether the filename carries the given document id.
func Matches(name string, id uuid.UUID) bool {
	parsed := Parse(name)
	return parsed.IDPrefix != "" && parsed.IDPrefix == idPrefix(id)
}

// Slugify normalizes a title into a filename-safe slug, truncated at a
// separator boundary.
func Slugify(title string) string {
	normalized, err := slug.Normalize(title)
	if err != nil || normalized == "" {
		return ""
	}
	return truncateAtBoundary(normalized, maxSlugLen)
}

// EnsureUnique returns a filename that does not map to a different document.
// lookup reports the id currently owning a name, or uuid.Nil when the name is
// free. On collision a short random token is appended and the check retried;
// an existing mapping to the same id is reused as-is.
func EnsureUnique(name string, id uuid.UUID, lookup func(string) uuid.UUID) (string, error) {
	owner := lookup(name)
	if owner == uuid.Nil || owner == id {
		return name, nil
	}

	base := strings.TrimSuffix(name, Extension)
	for attempt := 0; attempt < 5; attempt++ {
		candidate := fmt.Sprintf("%s-%s%s", base, randomToken(), Extension)
		owner := lookup(candidate)
		if owner == uuid.Nil || owner == id {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("naming: could not find unique name for %q", name)
}

func idPrefix(id uuid.UUID) string {
	return strings.ReplaceAll(id.String(), "-", "")[:idPrefixLen]
}

func truncateAtBoundary(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	if idx := strings.LastIndex(cut, "-"); idx > 0 {
		cut = cut[:idx]
	}
	return strings.Trim(cut, "-")
}

func randomToken() string {
	buf := make([]byte, 2)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%04x", time.Now().UnixNano()&0xffff)
	}
	return hex.EncodeToString(buf)
}

// Package document binds the markpress document model to its file
// representation: reserved metadata fields, the metadata merge applied on
// save and publish, and decoding of remote file content back into documents.
package document

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/halim714/markpress/internal/frontmatter"
	"github.com/halim714/markpress/pkg/interfaces"
)

// Reserved metadata keys. Every other key is treated as opaque custom data
// and passes through save/publish/reload untouched.
const (
	KeyID          = "id"
	KeyTitle       = "title"
	KeyTitleMode   = "title_mode"
	KeyCreatedAt   = "created_at"
	KeyUpdatedAt   = "updated_at"
	KeyPublished   = "published"
	KeyStatus      = "status"
	KeyPermalink   = "permalink"
	KeyLayout      = "layout"
	KeyDate        = "date"
	KeyTags        = "tags"
	KeyPublishedAt = "published_at"
)

// ReservedKeys lists every metadata key owned by the engine.
var ReservedKeys = []string{
	KeyID, KeyTitle, KeyTitleMode, KeyCreatedAt, KeyUpdatedAt, KeyPublished,
	KeyStatus, KeyPermalink, KeyLayout, KeyDate, KeyTags, KeyPublishedAt,
}

var reservedSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(ReservedKeys))
	for _, key := range ReservedKeys {
		set[key] = struct{}{}
	}
	return set
}()

// IsReserved reports whether key belongs to the engine-owned metadata schema.
func IsReserved(key string) bool {
	_, ok := reservedSet[key]
	return ok
}

// ownedByModel reports whether key is stripped from the custom metadata view
// because a typed field carries it. A "date" key is reserved for the public
// file, where publish overwrites it, but on the private file it is the
// author's value and passes through untouched.
func ownedByModel(key string) bool {
	return IsReserved(key) && key != KeyDate
}

// MergeMetadata produces the metadata map written on save: the document's
// custom fields carried over verbatim, with recognized fields overwritten
// from the typed model so the file always reflects current state.
func MergeMetadata(doc *interfaces.Document) map[string]any {
	meta := make(map[string]any, len(doc.FrontMatter)+8)
	for key, value := range doc.FrontMatter {
		if ownedByModel(key) {
			continue
		}
		meta[key] = value
	}

	meta[KeyID] = doc.ID.String()
	meta[KeyTitle] = doc.Title
	meta[KeyTitleMode] = string(doc.TitleMode)
	meta[KeyStatus] = string(doc.Status)
	meta[KeyPublished] = doc.Status == interfaces.StatusPublished
	if !doc.CreatedAt.IsZero() {
		meta[KeyCreatedAt] = doc.CreatedAt.UTC().Format(time.RFC3339)
	}
	if !doc.UpdatedAt.IsZero() {
		meta[KeyUpdatedAt] = doc.UpdatedAt.UTC().Format(time.RFC3339)
	}
	if doc.PublishedAt != nil {
		meta[KeyPublishedAt] = doc.PublishedAt.UTC().Format(time.RFC3339)
	}
	if len(doc.Tags) > 0 {
		meta[KeyTags] = doc.Tags
	}
	if doc.PublicPath != "" {
		meta[KeyPermalink] = doc.PublicPath
	}
	return meta
}

// ApplyMetadata populates the typed document fields from a parsed metadata
// map. Unknown keys stay in FrontMatter; recognized keys are lifted into the
// model and removed from the custom view so they cannot drift apart.
func ApplyMetadata(doc *interfaces.Document, meta map[string]any) {
	custom := make(map[string]any, len(meta))
	for key, value := range meta {
		if !ownedByModel(key) {
			custom[key] = value
		}
	}
	doc.FrontMatter = custom

	doc.Tags = tagsField(meta)

	if raw, ok := stringField(meta, KeyID); ok {
		if id, err := uuid.Parse(raw); err == nil {
			doc.ID = id
		}
	}
	if title, ok := stringField(meta, KeyTitle); ok {
		doc.Title = title
	}
	if mode, ok := stringField(meta, KeyTitleMode); ok {
		switch interfaces.TitleMode(mode) {
		case interfaces.TitleModeAuto, interfaces.TitleModeManual:
			doc.TitleMode = interfaces.TitleMode(mode)
		}
	}
	if status, ok := stringField(meta, KeyStatus); ok {
		switch interfaces.Status(status) {
		case interfaces.StatusDraft, interfaces.StatusPublished:
			doc.Status = interfaces.Status(status)
		}
	}
	if doc.Status == "" {
		doc.Status = interfaces.StatusDraft
	}
	if doc.TitleMode == "" {
		doc.TitleMode = interfaces.TitleModeAuto
	}
	if at, ok := timeField(meta, KeyCreatedAt); ok {
		doc.CreatedAt = at
	}
	if at, ok := timeField(meta, KeyUpdatedAt); ok {
		doc.UpdatedAt = at
	}
	if at, ok := timeField(meta, KeyPublishedAt); ok {
		doc.PublishedAt = &at
	}
	if permalink, ok := stringField(meta, KeyPermalink); ok {
		doc.PublicPath = permalink
	}
}

// Encode renders the document's private file content: merged metadata block
// followed by the body.
func Encode(doc *interfaces.Document) ([]byte, error) {
	return frontmatter.Stringify([]byte(doc.Content), MergeMetadata(doc))
}

// Decode reconstructs a document from remote file content. The filename and
// version token come from the store; metadata not present in the file keeps
// zero values so callers can backfill from the filename.
func Decode(filename string, content []byte, versionToken string) *interfaces.Document {
	meta, body := frontmatter.Parse(content)

	doc := &interfaces.Document{
		Content:      string(body),
		Filename:     filename,
		VersionToken: versionToken,
	}
	ApplyMetadata(doc, meta)
	return doc
}

func stringField(meta map[string]any, key string) (string, bool) {
	raw, ok := meta[key]
	if !ok {
		return "", false
	}
	value, ok := raw.(string)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

// tagsField lifts the tags list into its typed form. YAML hands sequences
// back as []any; a lone scalar counts as a single tag.
func tagsField(meta map[string]any) []string {
	raw, ok := meta[KeyTags]
	if !ok {
		return nil
	}
	switch value := raw.(type) {
	case []string:
		return append([]string(nil), value...)
	case []any:
		tags := make([]string, 0, len(value))
		for _, item := range value {
			if tag, ok := item.(string); ok && strings.TrimSpace(tag) != "" {
				tags = append(tags, tag)
			}
		}
		if len(tags) == 0 {
			return nil
		}
		return tags
	case string:
		if strings.TrimSpace(value) == "" {
			return nil
		}
		return []string{value}
	default:
		return nil
	}
}

func timeField(meta map[string]any, key string) (time.Time, bool) {
	raw, ok := meta[key]
	if !ok {
		return time.Time{}, false
	}
	switch value := raw.(type) {
	case time.Time:
		return value, true
	case string:
		if at, err := time.Parse(time.RFC3339, strings.TrimSpace(value)); err == nil {
			return at, true
		}
	}
	return time.Time{}, false
}

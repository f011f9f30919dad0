package interfaces

import (
	"time"

	"github.com/google/uuid"
)

// TitleMode distinguishes titles derived from content from titles the author
// set explicitly. Auto titles track the first heading; manual titles persist.
type TitleMode string

const (
	TitleModeAuto   TitleMode = "auto"
	TitleModeManual TitleMode = "manual"
)

// Status captures the publication lifecycle of a document.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// Document is the canonical in-memory representation of a markdown document.
// Content holds the body only; the metadata block is carried separately in
// FrontMatter so unknown keys survive every save/publish/reload cycle.
type Document struct {
	ID          uuid.UUID
	Title       string
	Content     string
	FrontMatter map[string]any
	// Tags is the author's tag list, kept as a typed field so the site
	// generator and the private file always agree on it.
	Tags         []string
	TitleMode    TitleMode
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
	PublishedAt  *time.Time
	VersionToken string
	Filename     string
	// PublicPath records the path emitted on the last publish so unpublish
	// can remove the exact file even after a title change.
	PublicPath string
}

// Summary is the partial projection of a document used by list views and
// partial cache entries. It never carries the body.
type Summary struct {
	ID          uuid.UUID
	Title       string
	Filename    string
	Status      Status
	UpdatedAt   time.Time
	PublishedAt *time.Time
}

// Clone returns a deep copy so callers can mutate snapshots freely.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := *d
	if d.FrontMatter != nil {
		fm := make(map[string]any, len(d.FrontMatter))
		for k, v := range d.FrontMatter {
			fm[k] = v
		}
		out.FrontMatter = fm
	}
	if d.Tags != nil {
		out.Tags = append([]string(nil), d.Tags...)
	}
	if d.PublishedAt != nil {
		at := *d.PublishedAt
		out.PublishedAt = &at
	}
	return &out
}

// Summarize projects the document onto its partial representation.
func (d *Document) Summarize() Summary {
	return Summary{
		ID:          d.ID,
		Title:       d.Title,
		Filename:    d.Filename,
		Status:      d.Status,
		UpdatedAt:   d.UpdatedAt,
		PublishedAt: d.PublishedAt,
	}
}

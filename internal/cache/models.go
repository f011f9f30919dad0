// Package cache is the durable on-device tier. Documents land in a SQLite
// database so restarts and offline sessions keep working; each row records
// whether it carries the full document or only the listing projection.
package cache

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	fidelityPartial = "partial"
	fidelityFull    = "full"
)

// Entry is one cached document row. Fidelity distinguishes rows hydrated from
// a listing (partial, no body) from rows hydrated from a full read.
type Entry struct {
	bun.BaseModel `bun:"table:document_cache,alias:dc"`

	ID           uuid.UUID      `bun:",pk,type:uuid" json:"id"`
	Title        string         `bun:"title,notnull" json:"title"`
	Content      string         `bun:"content" json:"content"`
	FrontMatter  map[string]any `bun:"front_matter,type:jsonb" json:"front_matter,omitempty"`
	Tags         []string       `bun:"tags,type:jsonb" json:"tags,omitempty"`
	TitleMode    string         `bun:"title_mode,notnull,default:'auto'" json:"title_mode"`
	Status       string         `bun:"status,notnull,default:'draft'" json:"status"`
	Fidelity     string         `bun:"fidelity,notnull,default:'partial'" json:"fidelity"`
	VersionToken string         `bun:"version_token" json:"version_token,omitempty"`
	Filename     string         `bun:"filename,notnull" json:"filename"`
	PublicPath   string         `bun:"public_path" json:"public_path,omitempty"`
	PublishedAt  *time.Time     `bun:"published_at,nullzero" json:"published_at,omitempty"`
	CreatedAt    time.Time      `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt    time.Time      `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`
	CachedAt     time.Time      `bun:"cached_at,nullzero,default:current_timestamp" json:"cached_at"`
}

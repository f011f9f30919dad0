package interfaces

import (
	"context"

	"github.com/google/uuid"
)

// RemoteFile is a single file read back from the remote content store.
// VersionToken identifies the exact revision and is required for any
// subsequent conditional write or delete of the same path.
type RemoteFile struct {
	Path         string
	Content      []byte
	VersionToken string
}

// RemoteEntry is one element of a directory listing. Err carries a per-entry
// decode failure so a single corrupt file never aborts the whole listing.
type RemoteEntry struct {
	Name         string
	VersionToken string
	Content      []byte
	Err          error
}

// RemoteStore is the optimistic-concurrency adapter over the Git-hosted
// content store. Every Write and Delete corresponds to exactly one history
// entry in the backing repository; callers must not batch mutations.
//
// Write semantics: expectedToken must be the token last observed for path, or
// empty for create. A mismatch, or a create against an existing path, fails
// with a CONFLICT error and must never be retried silently.
type RemoteStore interface {
	Read(ctx context.Context, path string) (*RemoteFile, error)
	Write(ctx context.Context, path string, content []byte, expectedToken, message string) (string, error)
	Delete(ctx context.Context, path, token, message string) error
	ListWithContent(ctx context.Context, dir string) ([]RemoteEntry, error)
}

// CacheStore is the durable on-device tier. Implementations distinguish
// partial (summary-only) rows from full rows; a partial row must never be
// handed out as authoritative content.
type CacheStore interface {
	Put(ctx context.Context, doc *Document) error
	PutSummary(ctx context.Context, summary Summary) error
	Get(ctx context.Context, id uuid.UUID) (*Document, Fidelity, error)
	List(ctx context.Context) ([]Summary, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

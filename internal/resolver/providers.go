package resolver

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/halim714/markpress/internal/document"
	"github.com/halim714/markpress/internal/identity"
	"github.com/halim714/markpress/internal/naming"
	"github.com/halim714/markpress/internal/remote"
	"github.com/halim714/markpress/pkg/interfaces"
)

// CacheProvider adapts the durable cache tier to the resolver chain.
type CacheProvider struct {
	Cache interfaces.CacheStore
}

var (
	_ interfaces.Provider = (*CacheProvider)(nil)
	_ Backfiller          = (*CacheProvider)(nil)
)

func (p *CacheProvider) Name() string { return "cache" }

func (p *CacheProvider) TryGet(ctx context.Context, id uuid.UUID) (*interfaces.Document, interfaces.Fidelity, error) {
	return p.Cache.Get(ctx, id)
}

func (p *CacheProvider) Backfill(ctx context.Context, doc *interfaces.Document) error {
	return p.Cache.Put(ctx, doc)
}

// RemoteProvider is the authoritative tier. With a filename hint it reads the
// path directly; without one it scans the directory listing for a filename
// that encodes the id, falling back to decoding metadata for legacy names.
// A hinted path carrying a version token is known to exist, so a missing read
// is retried across the hosted API's read-after-write echo window.
type RemoteProvider struct {
	Store interfaces.RemoteStore
	Dir   string
	Echo  remote.RetryPolicy
}

var _ interfaces.Provider = (*RemoteProvider)(nil)
var _ HintedProvider = (*RemoteProvider)(nil)

func (p *RemoteProvider) Name() string { return "remote" }

func (p *RemoteProvider) TryGet(ctx context.Context, id uuid.UUID) (*interfaces.Document, interfaces.Fidelity, error) {
	return p.scan(ctx, id)
}

func (p *RemoteProvider) TryGetWithHint(ctx context.Context, id uuid.UUID, hint *interfaces.Document) (*interfaces.Document, interfaces.Fidelity, error) {
	if hint == nil || hint.Filename == "" {
		return p.scan(ctx, id)
	}

	var (
		file *interfaces.RemoteFile
		err  error
	)
	if hint.VersionToken != "" {
		file, err = remote.ReadAfterWrite(ctx, p.Store, p.join(hint.Filename), p.Echo)
		if err != nil && remote.IsTransient(err) {
			// echo window exhausted; the file may have been renamed remotely
			return p.scan(ctx, id)
		}
	} else {
		file, err = p.Store.Read(ctx, p.join(hint.Filename))
	}
	if err != nil {
		if remote.IsNotFound(err) {
			// hint went stale, the file may have been renamed remotely
			return p.scan(ctx, id)
		}
		return nil, interfaces.Miss, err
	}

	doc := document.Decode(hint.Filename, file.Content, file.VersionToken)
	if doc.ID == uuid.Nil {
		doc.ID = identity.DocumentUUID(hint.Filename)
	}
	if doc.ID != id {
		// the path now holds a different document
		return p.scan(ctx, id)
	}
	return doc, interfaces.Full, nil
}

func (p *RemoteProvider) scan(ctx context.Context, id uuid.UUID) (*interfaces.Document, interfaces.Fidelity, error) {
	entries, err := p.Store.ListWithContent(ctx, p.Dir)
	if err != nil {
		return nil, interfaces.Miss, err
	}

	for _, entry := range entries {
		if entry.Err != nil || !strings.HasSuffix(entry.Name, ".md") {
			continue
		}
		if !naming.Matches(entry.Name, id) && identity.DocumentUUID(entry.Name) != id {
			// cheap name checks failed; only decode when the name is opaque
			if parsed := naming.Parse(entry.Name); parsed.IDPrefix != "" {
				continue
			}
			doc := document.Decode(entry.Name, entry.Content, entry.VersionToken)
			if doc.ID != id {
				continue
			}
			return doc, interfaces.Full, nil
		}

		doc := document.Decode(entry.Name, entry.Content, entry.VersionToken)
		if doc.ID == uuid.Nil {
			doc.ID = identity.DocumentUUID(entry.Name)
		}
		if doc.ID != id {
			continue
		}
		return doc, interfaces.Full, nil
	}
	return nil, interfaces.Miss, nil
}

func (p *RemoteProvider) join(name string) string {
	dir := strings.Trim(p.Dir, "/")
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

// Package resolver walks the tier chain (session, cache, remote) to turn a
// document id into authoritative content. Partial hits never terminate the
// walk; they only contribute routing hints. A full hit is backfilled into
// every earlier tier so the next resolve lands closer to memory.
package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/halim714/markpress/internal/logging"
	"github.com/halim714/markpress/pkg/interfaces"
)

// ErrNotFound reports that no tier holds the document.
var ErrNotFound = errors.New("resolver: document not found")

// IsNotFound reports whether err means every tier missed.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// HintedProvider is an optional extension for tiers that can use routing
// hints gathered from earlier partial hits, typically the filename.
type HintedProvider interface {
	TryGetWithHint(ctx context.Context, id uuid.UUID, hint *interfaces.Document) (*interfaces.Document, interfaces.Fidelity, error)
}

// Backfiller is an optional extension for tiers that accept a full document
// resolved by a later tier.
type Backfiller interface {
	Backfill(ctx context.Context, doc *interfaces.Document) error
}

// Chain resolves documents through an ordered provider list. Concurrent
// resolves of the same id collapse into a single walk.
type Chain struct {
	providers []interfaces.Provider
	logger    interfaces.Logger
	group     singleflight.Group
}

// New builds a chain over the given providers, consulted in order.
func New(providers []interfaces.Provider, logger interfaces.Logger) *Chain {
	if logger == nil {
		logger = logging.NoOp()
	}
	return &Chain{providers: providers, logger: logger}
}

var _ interfaces.Resolver = (*Chain)(nil)

// Resolve returns the document with full fidelity, or ErrNotFound when every
// tier misses. A tier failure is tolerated while later tiers remain; the
// last failure surfaces only if nothing could serve the id.
func (c *Chain) Resolve(ctx context.Context, id uuid.UUID) (*interfaces.Document, error) {
	value, err, _ := c.group.Do(id.String(), func() (any, error) {
		return c.resolve(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return value.(*interfaces.Document).Clone(), nil
}

func (c *Chain) resolve(ctx context.Context, id uuid.UUID) (*interfaces.Document, error) {
	var hint *interfaces.Document
	var lastErr error

	for i, provider := range c.providers {
		doc, fidelity, err := c.tryGet(ctx, provider, id, hint)
		if err != nil {
			lastErr = fmt.Errorf("resolver: tier %s: %w", provider.Name(), err)
			c.logger.Warn("resolver.tier_failed", "tier", provider.Name(), "document_id", id.String(), "error", err.Error())
			continue
		}

		switch fidelity {
		case interfaces.Full:
			c.logger.Debug("resolver.hit", "tier", provider.Name(), "document_id", id.String())
			c.backfill(ctx, c.providers[:i], doc)
			return doc, nil
		case interfaces.Partial:
			hint = mergeHint(hint, doc)
			c.logger.Debug("resolver.partial", "tier", provider.Name(), "document_id", id.String())
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (c *Chain) tryGet(ctx context.Context, provider interfaces.Provider, id uuid.UUID, hint *interfaces.Document) (*interfaces.Document, interfaces.Fidelity, error) {
	if hinted, ok := provider.(HintedProvider); ok && hint != nil {
		return hinted.TryGetWithHint(ctx, id, hint)
	}
	return provider.TryGet(ctx, id)
}

func (c *Chain) backfill(ctx context.Context, earlier []interfaces.Provider, doc *interfaces.Document) {
	for _, provider := range earlier {
		filler, ok := provider.(Backfiller)
		if !ok {
			continue
		}
		if err := filler.Backfill(ctx, doc.Clone()); err != nil {
			// a failed backfill costs a future walk, never the resolve
			c.logger.Warn("resolver.backfill_failed", "tier", provider.Name(), "document_id", doc.ID.String(), "error", err.Error())
		}
	}
}

// mergeHint folds a new partial hit into the accumulated hint. Earlier tiers
// win for fields they already supplied.
func mergeHint(acc, next *interfaces.Document) *interfaces.Document {
	if next == nil {
		return acc
	}
	if acc == nil {
		return next.Clone()
	}
	if acc.Filename == "" {
		acc.Filename = next.Filename
	}
	if acc.Title == "" {
		acc.Title = next.Title
	}
	if acc.Status == "" {
		acc.Status = next.Status
	}
	if acc.PublicPath == "" {
		acc.PublicPath = next.PublicPath
	}
	return acc
}

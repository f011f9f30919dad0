// Package markpress is a markdown document editor that persists documents as
// files in a Git-hosted repository. Documents move through three tiers: the
// in-memory session, a durable SQLite cache, and the authoritative remote.
// Edits auto-save with optimistic concurrency; publishing emits Jekyll-style
// posts into a second repository.
package markpress

import (
	"context"

	"github.com/halim714/markpress/internal/di"
	"github.com/halim714/markpress/internal/editor"
	"github.com/halim714/markpress/internal/publisher"
	"github.com/halim714/markpress/internal/reconcile"
	"github.com/halim714/markpress/pkg/interfaces"
)

// Editor exports the document editing engine contract.
type Editor = editor.Service

// Reconciler exports the cache reconciliation engine.
type Reconciler = reconcile.Reconciler

// ReconcileReport exports the reconciliation outcome.
type ReconcileReport = reconcile.Report

// Publisher exports the site publishing engine.
type Publisher = publisher.Publisher

// Document exports the canonical document model.
type Document = interfaces.Document

// Summary exports the partial document projection used by listings.
type Summary = interfaces.Summary

// Event exports the bus envelope delivered to subscribers.
type Event = interfaces.Event

// SaveState exports the auto-save status values.
type SaveState = interfaces.SaveState

// ListSource exports the listing provenance marker.
type ListSource = editor.ListSource

// Option forwards dependency overrides into the runtime container.
type Option = di.Option

// WithRemoteStore injects the private document store.
var WithRemoteStore = di.WithRemoteStore

// WithPublicStore injects the public site store.
var WithPublicStore = di.WithPublicStore

// WithCacheStore injects the durable cache.
var WithCacheStore = di.WithCacheStore

// WithLoggerProvider injects a custom logger provider.
var WithLoggerProvider = di.WithLoggerProvider

// Module is the top level runtime facade.
type Module struct {
	container *di.Container
}

// New constructs the editor runtime using the provided configuration and
// optional dependency overrides.
func New(cfg Config, opts ...Option) (*Module, error) {
	container, err := di.NewContainer(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Module{container: container}, nil
}

// Editor returns the document editing engine.
func (m *Module) Editor() *Editor {
	return m.container.Editor()
}

// Reconciler returns the cache reconciler.
func (m *Module) Reconciler() *Reconciler {
	return m.container.Reconciler()
}

// Publisher returns the site publisher, or nil when publishing is disabled.
func (m *Module) Publisher() *Publisher {
	return m.container.Publisher()
}

// LoggerProvider returns the runtime's logger provider so embedders and the
// CLI can derive scoped loggers from the same configuration.
func (m *Module) LoggerProvider() interfaces.LoggerProvider {
	return m.container.LoggerProvider()
}

// Subscribe attaches a listener to the runtime event bus. The returned cancel
// function detaches it; cancelling twice is safe.
func (m *Module) Subscribe() (<-chan Event, func()) {
	return m.container.Bus().Subscribe()
}

// Close flushes pending saves and releases held resources.
func (m *Module) Close(ctx context.Context) error {
	return m.container.Close(ctx)
}

// Package di assembles the markpress runtime from configuration: loggers,
// remote stores, the durable cache, the event bus, the publisher, and the
// editor engine, with injection points for every piece so tests and host
// applications can swap implementations.
package di

import (
	"context"
	"database/sql"
	"fmt"

	urlkit "github.com/goliatone/go-urlkit"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/halim714/markpress/internal/cache"
	"github.com/halim714/markpress/internal/editor"
	"github.com/halim714/markpress/internal/events"
	"github.com/halim714/markpress/internal/logging"
	"github.com/halim714/markpress/internal/logging/gologger"
	"github.com/halim714/markpress/internal/publisher"
	"github.com/halim714/markpress/internal/reconcile"
	"github.com/halim714/markpress/internal/remote"
	"github.com/halim714/markpress/internal/remote/githubstore"
	"github.com/halim714/markpress/internal/runtimeconfig"
	"github.com/halim714/markpress/pkg/interfaces"
)

// Container wires the runtime dependency graph.
type Container struct {
	cfg runtimeconfig.Config

	loggerProvider interfaces.LoggerProvider
	bus            *events.Bus
	db             *bun.DB
	cacheStore     interfaces.CacheStore
	remoteStore    interfaces.RemoteStore
	publicStore    interfaces.RemoteStore
	pub            *publisher.Publisher
	editorSvc      *editor.Service
	reconciler     *reconcile.Reconciler

	links *linkResolver
}

// Option overrides a dependency before the container builds the graph.
type Option func(*Container)

// WithLoggerProvider injects a custom logger provider.
func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return func(c *Container) { c.loggerProvider = provider }
}

// WithRemoteStore injects the private document store, bypassing the
// GitHub-backed default.
func WithRemoteStore(store interfaces.RemoteStore) Option {
	return func(c *Container) { c.remoteStore = store }
}

// WithPublicStore injects the public site store.
func WithPublicStore(store interfaces.RemoteStore) Option {
	return func(c *Container) { c.publicStore = store }
}

// WithCacheStore injects the durable cache, bypassing the SQLite default.
func WithCacheStore(store interfaces.CacheStore) Option {
	return func(c *Container) { c.cacheStore = store }
}

// NewContainer creates a container with the provided configuration.
func NewContainer(cfg runtimeconfig.Config, opts ...Option) (*Container, error) {
	c := &Container{cfg: cfg}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.validate(); err != nil {
		return nil, err
	}

	if c.loggerProvider == nil {
		provider, err := buildLoggerProvider(cfg.Logging)
		if err != nil {
			return nil, err
		}
		c.loggerProvider = provider
	}

	c.bus = events.NewBus()

	if c.remoteStore == nil {
		store, err := buildRemoteStore(cfg.Private, cfg.Retry, logging.RemoteLogger(c.loggerProvider))
		if err != nil {
			return nil, fmt.Errorf("di: private store: %w", err)
		}
		c.remoteStore = store
	}

	if c.cacheStore == nil {
		store, err := c.buildCacheStore()
		if err != nil {
			return nil, fmt.Errorf("di: cache: %w", err)
		}
		c.cacheStore = store
	}

	if cfg.Site.Enabled {
		if c.publicStore == nil {
			store, err := buildRemoteStore(cfg.Site.Repo, cfg.Retry, logging.PublisherLogger(c.loggerProvider))
			if err != nil {
				return nil, fmt.Errorf("di: public store: %w", err)
			}
			c.publicStore = store
		}

		c.links = &linkResolver{}
		pub, err := publisher.New(publisher.Options{
			PublicStore: c.publicStore,
			Routes:      urlkit.NewRouteManager(publisher.RouteConfig(cfg.Site.BaseURL)),
			Resolver:    c.links,
			PostsDir:    cfg.Site.PostsDir,
			Layout:      cfg.Site.Layout,
			Logger:      logging.PublisherLogger(c.loggerProvider),
		})
		if err != nil {
			return nil, fmt.Errorf("di: publisher: %w", err)
		}
		c.pub = pub
	}

	svc, err := editor.New(editor.Options{
		Remote:    c.remoteStore,
		Dir:       cfg.Private.Dir,
		Cache:     c.cacheStore,
		Publisher: c.pub,
		Bus:       c.bus,
		Logger:    logging.ModuleLogger(c.loggerProvider, "editor"),
		Debounce:  cfg.Autosave.Debounce,
	})
	if err != nil {
		return nil, fmt.Errorf("di: editor: %w", err)
	}
	c.editorSvc = svc
	if c.links != nil {
		c.links.fn = svc.ResolveLinkTarget
	}

	rec, err := svc.Reconciler()
	if err != nil {
		return nil, fmt.Errorf("di: reconciler: %w", err)
	}
	c.reconciler = rec

	return c, nil
}

func (c *Container) validate() error {
	// injected stores relax the corresponding config requirements
	if c.remoteStore != nil && c.cacheStore != nil {
		if c.cfg.Autosave.Debounce <= 0 {
			return runtimeconfig.ErrDebounceInvalid
		}
		return nil
	}
	return c.cfg.Validate()
}

// Editor returns the document editing engine.
func (c *Container) Editor() *editor.Service { return c.editorSvc }

// Reconciler returns the cache reconciler.
func (c *Container) Reconciler() *reconcile.Reconciler { return c.reconciler }

// Bus returns the in-process event bus.
func (c *Container) Bus() *events.Bus { return c.bus }

// Cache returns the durable cache store.
func (c *Container) Cache() interfaces.CacheStore { return c.cacheStore }

// Remote returns the private document store.
func (c *Container) Remote() interfaces.RemoteStore { return c.remoteStore }

// Publisher returns the site publisher, or nil when publishing is disabled.
func (c *Container) Publisher() *publisher.Publisher { return c.pub }

// LoggerProvider returns the configured logger provider.
func (c *Container) LoggerProvider() interfaces.LoggerProvider { return c.loggerProvider }

// Close flushes pending saves and releases held resources.
func (c *Container) Close(ctx context.Context) error {
	var first error
	if c.editorSvc != nil {
		if err := c.editorSvc.Close(ctx); err != nil && first == nil {
			first = err
		}
	}
	if c.bus != nil {
		c.bus.Close()
	}
	if c.db != nil {
		if err := c.db.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (c *Container) buildCacheStore() (interfaces.CacheStore, error) {
	if !c.cfg.Cache.Enabled {
		return cache.NewMemoryStore(), nil
	}

	sqlDB, err := sql.Open("sqlite3", "file:"+c.cfg.Cache.Path+"?_fk=1")
	if err != nil {
		return nil, err
	}
	db := bun.NewDB(sqlDB, sqlitedialect.New())
	if err := cache.Migrate(context.Background(), db); err != nil {
		db.Close()
		return nil, err
	}
	c.db = db
	return cache.NewStore(db, logging.ModuleLogger(c.loggerProvider, "cache")), nil
}

func buildLoggerProvider(cfg runtimeconfig.LoggingConfig) (interfaces.LoggerProvider, error) {
	if !cfg.Enabled {
		return noOpProvider{}, nil
	}

	format := cfg.Format
	if cfg.Provider == "console" && format == "" {
		format = "console"
	}
	return gologger.NewProvider(gologger.Config{
		Level:     cfg.Level,
		Format:    format,
		AddSource: cfg.AddSource,
		Focus:     cfg.Focus,
	})
}

func buildRemoteStore(repo runtimeconfig.RepoConfig, retry runtimeconfig.RetryConfig, logger interfaces.Logger) (interfaces.RemoteStore, error) {
	policy := remote.DefaultRetryPolicy()
	if retry.Attempts > 0 {
		policy.MaxAttempts = retry.Attempts
	}
	if retry.Backoff > 0 {
		policy.BaseDelay = retry.Backoff
	}

	token := repo.Token
	return githubstore.New(githubstore.Options{
		BaseURL:       repo.BaseURL,
		Owner:         repo.Owner,
		Repo:          repo.Repo,
		Branch:        repo.Branch,
		TokenProvider: func(context.Context) (string, error) { return token, nil },
		Retry:         policy,
		Logger:        logger,
	})
}

// linkResolver defers link resolution until the editor exists; the publisher
// and the editor reference each other.
type linkResolver struct {
	fn func(ctx context.Context, id uuid.UUID) (*publisher.LinkTarget, error)
}

func (r *linkResolver) ResolveLink(ctx context.Context, id uuid.UUID) (*publisher.LinkTarget, error) {
	if r == nil || r.fn == nil {
		return nil, nil
	}
	return r.fn(ctx, id)
}

type noOpProvider struct{}

func (noOpProvider) GetLogger(string) interfaces.Logger { return logging.NoOp() }

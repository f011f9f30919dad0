// Package editor is the orchestration core: it owns the session tier, wires
// the resolver chain over session, cache, and remote, runs the auto-save
// engine, and fronts publish, preview, and reconciliation.
package editor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/halim714/markpress/internal/autosave"
	"github.com/halim714/markpress/internal/document"
	"github.com/halim714/markpress/internal/identity"
	"github.com/halim714/markpress/internal/logging"
	"github.com/halim714/markpress/internal/naming"
	"github.com/halim714/markpress/internal/publisher"
	"github.com/halim714/markpress/internal/reconcile"
	"github.com/halim714/markpress/internal/remote"
	"github.com/halim714/markpress/internal/resolver"
	"github.com/halim714/markpress/internal/session"
	"github.com/halim714/markpress/internal/validation"
	"github.com/halim714/markpress/pkg/interfaces"
)

// Options wires a Service.
type Options struct {
	Remote    interfaces.RemoteStore
	Dir       string
	Cache     interfaces.CacheStore
	Publisher *publisher.Publisher
	Bus       interfaces.EventBus
	Logger    interfaces.Logger
	Debounce  time.Duration
	Now       func() time.Time
}

// Service is the document editing engine.
type Service struct {
	session *session.Store
	cache   interfaces.CacheStore
	store   interfaces.RemoteStore
	dir     string
	chain   interfaces.Resolver
	saves   *autosave.Manager
	pub     *publisher.Publisher
	preview *publisher.Preview
	bus     interfaces.EventBus
	logger  interfaces.Logger
	now     func() time.Time
}

// New validates options and assembles the engine.
func New(opts Options) (*Service, error) {
	if opts.Remote == nil {
		return nil, fmt.Errorf("editor: remote store is required")
	}
	if opts.Cache == nil {
		return nil, fmt.Errorf("editor: cache store is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NoOp()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	s := &Service{
		session: session.New(),
		cache:   opts.Cache,
		store:   opts.Remote,
		dir:     strings.Trim(opts.Dir, "/"),
		pub:     opts.Publisher,
		bus:     opts.Bus,
		logger:  logger,
		now:     now,
	}

	s.chain = resolver.New([]interfaces.Provider{
		s.session,
		&resolver.CacheProvider{Cache: opts.Cache},
		&resolver.RemoteProvider{Store: opts.Remote, Dir: opts.Dir},
	}, logger)

	saveOpts := []autosave.Option{autosave.WithLogger(logger)}
	if opts.Debounce > 0 {
		saveOpts = append(saveOpts, autosave.WithDebounce(opts.Debounce))
	}
	s.saves = autosave.New(autosave.SaverFunc(s.persist), opts.Bus, saveOpts...)

	if s.pub != nil {
		s.preview = publisher.NewPreview(publisher.TargetResolverFunc(s.resolveLink))
	} else {
		s.preview = publisher.NewPreview(nil)
	}
	return s, nil
}

// Create registers a new empty document in the session. Nothing is written
// anywhere until content arrives.
func (s *Service) Create(_ context.Context) *interfaces.Document {
	doc := &interfaces.Document{
		ID:        uuid.New(),
		TitleMode: interfaces.TitleModeAuto,
		Status:    interfaces.StatusDraft,
		CreatedAt: s.now().UTC(),
		UpdatedAt: s.now().UTC(),
	}
	s.session.Put(doc)
	s.logger.Debug("editor.create", "document_id", doc.ID.String())
	return doc.Clone()
}

// CreateWithID registers a new empty document under a caller-chosen id.
// Import flows use it to derive stable ids from external names.
func (s *Service) CreateWithID(_ context.Context, id uuid.UUID) *interfaces.Document {
	doc := &interfaces.Document{
		ID:        id,
		TitleMode: interfaces.TitleModeAuto,
		Status:    interfaces.StatusDraft,
		CreatedAt: s.now().UTC(),
		UpdatedAt: s.now().UTC(),
	}
	s.session.Put(doc)
	return doc.Clone()
}

// Open resolves id through the tier chain and loads it into the session.
func (s *Service) Open(ctx context.Context, id uuid.UUID) (*interfaces.Document, error) {
	doc, err := s.chain.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	s.session.Put(doc)
	s.saves.Track(doc)
	return doc, nil
}

// UpdateContent replaces the document body and schedules an auto-save. With
// an auto title the first heading drives the document title; a change is
// announced on the bus.
func (s *Service) UpdateContent(ctx context.Context, id uuid.UUID, content string) (*interfaces.Document, error) {
	doc, err := s.sessionDoc(ctx, id)
	if err != nil {
		return nil, err
	}

	doc.Content = content
	doc.UpdatedAt = s.now().UTC()

	if doc.TitleMode == interfaces.TitleModeAuto {
		if title := DeriveTitle(content); title != doc.Title {
			doc.Title = title
			s.publishTitleChanged(doc)
		}
	}

	s.session.Put(doc)
	s.saves.Update(doc)
	return doc.Clone(), nil
}

// SetTitle pins an explicit title. An empty title reverts to auto mode and
// re-derives from content.
func (s *Service) SetTitle(ctx context.Context, id uuid.UUID, title string) (*interfaces.Document, error) {
	doc, err := s.sessionDoc(ctx, id)
	if err != nil {
		return nil, err
	}

	title = strings.TrimSpace(title)
	previous := doc.Title
	if title == "" {
		doc.TitleMode = interfaces.TitleModeAuto
		doc.Title = DeriveTitle(doc.Content)
	} else {
		doc.TitleMode = interfaces.TitleModeManual
		doc.Title = title
	}
	doc.UpdatedAt = s.now().UTC()

	if doc.Title != previous {
		s.publishTitleChanged(doc)
	}
	s.session.Put(doc)
	s.saves.Update(doc)
	return doc.Clone(), nil
}

// Save flushes any pending snapshot immediately.
func (s *Service) Save(ctx context.Context, id uuid.UUID) error {
	return s.saves.Flush(ctx, id)
}

// SaveState reports the auto-save state for id.
func (s *Service) SaveState(id uuid.UUID) (interfaces.SaveState, error) {
	return s.saves.State(id)
}

// Delete removes the document everywhere: the remote file, the published
// post if any, the cache row, and the session entry.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	s.saves.Forget(id)

	doc, err := s.chain.Resolve(ctx, id)
	if err != nil {
		if resolver.IsNotFound(err) {
			// never materialized; drop local traces only
			s.session.Delete(id)
			return s.cache.Delete(ctx, id)
		}
		return err
	}

	if doc.Status == interfaces.StatusPublished && s.pub != nil {
		if _, err := s.pub.Unpublish(ctx, doc); err != nil {
			return fmt.Errorf("editor: unpublish before delete: %w", err)
		}
	}

	if doc.Filename != "" {
		path := s.join(doc.Filename)
		if err := s.store.Delete(ctx, path, doc.VersionToken, deleteMessage(doc)); err != nil {
			return fmt.Errorf("editor: delete %s: %w", path, err)
		}
	}

	if err := s.cache.Delete(ctx, id); err != nil {
		return err
	}
	s.session.Delete(id)
	s.publishListChanged()
	s.logger.Info("editor.deleted", "document_id", id.String())
	return nil
}

// List returns the document listing. The remote listing is authoritative and
// refreshes the cache as a side effect; when the remote is unreachable the
// cached listing serves, marked by the returned source.
func (s *Service) List(ctx context.Context) ([]interfaces.Summary, ListSource, error) {
	entries, err := s.store.ListWithContent(ctx, s.dir)
	if err != nil {
		if !remote.IsTransient(err) {
			return nil, ListSourceNone, fmt.Errorf("editor: list: %w", err)
		}
		cached, cacheErr := s.cache.List(ctx)
		if cacheErr != nil {
			return nil, ListSourceNone, fmt.Errorf("editor: list: %w", err)
		}
		s.logger.Warn("editor.list_offline", "error", err.Error())
		return cached, ListSourceCache, nil
	}

	summaries := make([]interfaces.Summary, 0, len(entries))
	for _, entry := range entries {
		if entry.Err != nil {
			s.logger.Warn("editor.list_entry_failed", "name", entry.Name, "error", entry.Err.Error())
			continue
		}
		if !strings.HasSuffix(entry.Name, ".md") {
			continue
		}
		doc := s.decode(entry.Name, entry.Content, entry.VersionToken)
		summary := doc.Summarize()
		summaries = append(summaries, summary)
		if err := s.cache.PutSummary(ctx, summary); err != nil {
			s.logger.Warn("editor.list_backfill_failed", "document_id", summary.ID.String(), "error", err.Error())
		}
	}
	return summaries, ListSourceRemote, nil
}

// Publish flushes pending edits, emits the public post, and persists the
// updated publication state back to the private file.
func (s *Service) Publish(ctx context.Context, id uuid.UUID) (*interfaces.Document, error) {
	if s.pub == nil {
		return nil, fmt.Errorf("editor: publishing is not configured")
	}
	if err := s.saves.Flush(ctx, id); err != nil {
		return nil, fmt.Errorf("editor: flush before publish: %w", err)
	}

	doc, err := s.chain.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	// the private file records the publish state before the post is emitted;
	// a crash in between re-derives the same public path on the next publish
	staged, err := s.pub.Stage(doc)
	if err != nil {
		return nil, err
	}
	recorded, err := s.persist(ctx, staged)
	if err != nil {
		return nil, fmt.Errorf("editor: record publish state: %w", err)
	}

	published, err := s.pub.Publish(ctx, recorded)
	if err != nil {
		return nil, err
	}

	stored := published
	if published.PublicPath != recorded.PublicPath {
		if stored, err = s.persist(ctx, published); err != nil {
			return nil, fmt.Errorf("editor: record publish state: %w", err)
		}
	}
	s.session.Put(stored)
	s.saves.Track(stored)
	s.publishListChanged()
	return stored.Clone(), nil
}

// Unpublish removes the public post and records the draft state.
func (s *Service) Unpublish(ctx context.Context, id uuid.UUID) (*interfaces.Document, error) {
	if s.pub == nil {
		return nil, fmt.Errorf("editor: publishing is not configured")
	}

	doc, err := s.chain.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	draft, err := s.pub.Unpublish(ctx, doc)
	if err != nil {
		return nil, err
	}

	stored, err := s.persist(ctx, draft)
	if err != nil {
		return nil, fmt.Errorf("editor: record unpublish state: %w", err)
	}
	s.session.Put(stored)
	s.saves.Track(stored)
	s.publishListChanged()
	return stored.Clone(), nil
}

// Preview renders the document body to HTML as publishing would emit it.
func (s *Service) Preview(ctx context.Context, id uuid.UUID) ([]byte, error) {
	doc, err := s.chain.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.preview.Render(ctx, doc.Content)
}

// Reconciler builds a reconciler over the engine's stores.
func (s *Service) Reconciler() (*reconcile.Reconciler, error) {
	return reconcile.New(reconcile.Options{
		Remote:  s.store,
		Dir:     s.dir,
		Cache:   s.cache,
		Session: s.session,
		Bus:     s.bus,
		Logger:  s.logger,
	})
}

// Close flushes pending saves and stops the auto-save engine.
func (s *Service) Close(ctx context.Context) error {
	err := s.saves.FlushAll(ctx)
	s.saves.Close()
	return err
}

// persist is the auto-save sink: it materializes the filename on first save,
// validates metadata, writes the private file with its version token, and
// refreshes cache and session.
func (s *Service) persist(ctx context.Context, doc *interfaces.Document) (*interfaces.Document, error) {
	out := doc.Clone()

	materialized := false
	if out.Filename == "" {
		name, err := s.materializeName(ctx, out)
		if err != nil {
			return nil, err
		}
		out.Filename = name
		materialized = true
	}

	meta := document.MergeMetadata(out)
	if err := validation.ValidateMetadata(meta); err != nil {
		return nil, fmt.Errorf("editor: validate %s: %w", out.ID, err)
	}

	encoded, err := document.Encode(out)
	if err != nil {
		return nil, fmt.Errorf("editor: encode %s: %w", out.ID, err)
	}

	token, err := s.store.Write(ctx, s.join(out.Filename), encoded, out.VersionToken, saveMessage(out))
	if err != nil {
		return nil, err
	}
	out.VersionToken = token

	logger := logging.WithDocumentContext(s.logger, out.ID.String(), s.join(out.Filename), "save")
	if err := s.cache.Put(ctx, out); err != nil {
		logger.Warn("editor.cache_put_failed", "error", err.Error())
	}
	s.session.Put(out)
	if materialized {
		s.publishListChanged()
	}

	logger.Debug("editor.saved", "token", token)
	return out, nil
}

// materializeName assigns the collision-free filename used from now on.
func (s *Service) materializeName(ctx context.Context, doc *interfaces.Document) (string, error) {
	createdAt := doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now().UTC()
	}

	taken := map[string]uuid.UUID{}
	entries, err := s.store.ListWithContent(ctx, s.dir)
	if err == nil {
		for _, entry := range entries {
			if entry.Err == nil {
				taken[entry.Name] = s.decode(entry.Name, entry.Content, entry.VersionToken).ID
			}
		}
	}

	base := naming.Generate(createdAt, doc.Title, doc.ID)
	return naming.EnsureUnique(base, doc.ID, func(name string) uuid.UUID {
		return taken[name]
	})
}

func (s *Service) sessionDoc(ctx context.Context, id uuid.UUID) (*interfaces.Document, error) {
	if doc := s.session.Get(id); doc != nil {
		return doc, nil
	}
	return s.Open(ctx, id)
}

// ResolveLinkTarget reports how an internal document link should render.
// Publishers targeting this engine's documents use it to rewrite wiki-style
// links into permalinks.
func (s *Service) ResolveLinkTarget(ctx context.Context, id uuid.UUID) (*publisher.LinkTarget, error) {
	return s.resolveLink(ctx, id)
}

func (s *Service) resolveLink(ctx context.Context, id uuid.UUID) (*publisher.LinkTarget, error) {
	doc, err := s.chain.Resolve(ctx, id)
	if err != nil {
		if resolver.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	target := &publisher.LinkTarget{
		Title:     doc.Title,
		Published: doc.Status == interfaces.StatusPublished,
	}
	if target.Published && doc.PublishedAt != nil && s.pub != nil {
		url, err := s.pub.Permalink(doc.PublishedAt.UTC(), naming.Slugify(doc.Title))
		if err != nil {
			return nil, err
		}
		target.URL = url
	}
	return target, nil
}

func (s *Service) decode(name string, content []byte, token string) *interfaces.Document {
	doc := document.Decode(name, content, token)
	if doc.ID == uuid.Nil {
		doc.ID = identity.DocumentUUID(name)
	}
	return doc
}

func (s *Service) publishTitleChanged(doc *interfaces.Document) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(interfaces.Event{
		Type:    interfaces.EventTitleChanged,
		Payload: interfaces.TitleChanged{ID: doc.ID, Title: doc.Title},
	})
}

func (s *Service) publishListChanged() {
	if s.bus == nil {
		return
	}
	s.bus.Publish(interfaces.Event{
		Type:    interfaces.EventDocumentListChanged,
		Payload: interfaces.DocumentListChanged{},
	})
}

func (s *Service) join(name string) string {
	if s.dir == "" {
		return name
	}
	return s.dir + "/" + name
}

// ListSource reports which tier served a listing.
type ListSource string

const (
	ListSourceNone   ListSource = ""
	ListSourceRemote ListSource = "remote"
	ListSourceCache  ListSource = "cache"
)

// DeriveTitle extracts the document title from content: the first ATX
// heading wins, then the first non-empty line, then a placeholder.
func DeriveTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			return strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
		}
		if len(trimmed) > 80 {
			trimmed = strings.TrimSpace(trimmed[:80])
		}
		return trimmed
	}
	return "Untitled"
}

func saveMessage(doc *interfaces.Document) string {
	title := strings.TrimSpace(doc.Title)
	if title == "" {
		title = doc.Filename
	}
	return fmt.Sprintf("save: %s", title)
}

func deleteMessage(doc *interfaces.Document) string {
	title := strings.TrimSpace(doc.Title)
	if title == "" {
		title = doc.Filename
	}
	return fmt.Sprintf("delete: %s", title)
}

// Package reconcile audits the durable cache against the remote store and
// repairs drift in both directions: remote edits are pulled into the cache,
// locally newer full documents are pushed up, and cache rows whose remote
// file disappeared are dropped. Where both sides changed, the newer
// updated_at wins. Documents sharing a title under distinct ids are collapsed
// to the most recently updated copy; the loser is evicted from every tier.
package reconcile

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/halim714/markpress/internal/document"
	"github.com/halim714/markpress/internal/identity"
	"github.com/halim714/markpress/internal/logging"
	"github.com/halim714/markpress/internal/remote"
	"github.com/halim714/markpress/pkg/interfaces"
)

// Action names one reconciliation step.
type Action string

const (
	// ActionPull refreshes the cache from the remote file.
	ActionPull Action = "pull"
	// ActionPush writes locally newer content to the remote store.
	ActionPush Action = "push"
	// ActionDrop removes a cache row whose remote file is gone.
	ActionDrop Action = "drop"
	// ActionEvict removes the losing copy of a title collision from every
	// tier: remote file, cache row, and in-memory session entry.
	ActionEvict Action = "evict"
)

// Change is one planned or applied reconciliation step.
type Change struct {
	ID       uuid.UUID
	Filename string
	Action   Action
	Reason   string
	Err      error
}

// Report summarises one reconciliation run. In dry-run mode the changes are
// planned but nothing is touched.
type Report struct {
	DryRun     bool
	StartedAt  time.Time
	Duration   time.Duration
	Changes    []Change
	ListErrors []error
}

// Applied counts changes that ran without error.
func (r *Report) Applied() int {
	if r.DryRun {
		return 0
	}
	n := 0
	for _, c := range r.Changes {
		if c.Err == nil {
			n++
		}
	}
	return n
}

// SessionEvictor drops an in-memory document entry. Satisfied by the session
// store; optional, eviction skips the tier when absent.
type SessionEvictor interface {
	Delete(id uuid.UUID)
}

// Options configures a Reconciler.
type Options struct {
	Remote      interfaces.RemoteStore
	Dir         string
	Cache       interfaces.CacheStore
	Session     SessionEvictor
	Bus         interfaces.EventBus
	Logger      interfaces.Logger
	Concurrency int
	Now         func() time.Time
}

// Reconciler runs cache-against-remote audits.
type Reconciler struct {
	remote      interfaces.RemoteStore
	dir         string
	cache       interfaces.CacheStore
	session     SessionEvictor
	bus         interfaces.EventBus
	logger      interfaces.Logger
	concurrency int
	now         func() time.Time
}

// New validates options and builds a Reconciler.
func New(opts Options) (*Reconciler, error) {
	if opts.Remote == nil || opts.Cache == nil {
		return nil, fmt.Errorf("reconcile: remote and cache stores are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NoOp()
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Reconciler{
		remote:      opts.Remote,
		dir:         opts.Dir,
		cache:       opts.Cache,
		session:     opts.Session,
		bus:         opts.Bus,
		logger:      logger,
		concurrency: concurrency,
		now:         now,
	}, nil
}

// Reconcile audits both stores and returns the report. With dryRun set the
// planned changes are reported without applying anything.
func (r *Reconciler) Reconcile(ctx context.Context, dryRun bool) (*Report, error) {
	report := &Report{DryRun: dryRun, StartedAt: r.now().UTC()}

	remoteDocs, listErrs, err := r.listRemote(ctx)
	if err != nil {
		return nil, fmt.Errorf("reconcile: list remote: %w", err)
	}
	report.ListErrors = listErrs

	localDocs, err := r.cache.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("reconcile: list cache: %w", err)
	}
	localByID := make(map[uuid.UUID]interfaces.Summary, len(localDocs))
	for _, summary := range localDocs {
		localByID[summary.ID] = summary
	}

	changes := r.plan(ctx, remoteDocs, localByID)
	report.Changes = changes

	if !dryRun {
		r.apply(ctx, changes, remoteDocs)
		applied := 0
		for _, c := range changes {
			if c.Err == nil {
				applied++
			}
		}
		if applied > 0 && r.bus != nil {
			r.bus.Publish(interfaces.Event{
				Type:    interfaces.EventDocumentListChanged,
				Payload: interfaces.DocumentListChanged{},
			})
		}
	}

	report.Duration = r.now().UTC().Sub(report.StartedAt)
	r.logger.Info("reconcile.done",
		"dry_run", dryRun,
		"changes", len(report.Changes),
		"list_errors", len(report.ListErrors),
	)
	return report, nil
}

// listRemote decodes every markdown file in the watched directory. Per-entry
// failures become report entries instead of aborting the audit.
func (r *Reconciler) listRemote(ctx context.Context) (map[uuid.UUID]*interfaces.Document, []error, error) {
	entries, err := r.remote.ListWithContent(ctx, r.dir)
	if err != nil {
		return nil, nil, err
	}

	docs := make(map[uuid.UUID]*interfaces.Document, len(entries))
	var listErrs []error
	for _, entry := range entries {
		if entry.Err != nil {
			listErrs = append(listErrs, fmt.Errorf("%s: %w", entry.Name, entry.Err))
			continue
		}
		if !strings.HasSuffix(entry.Name, ".md") {
			continue
		}
		doc := document.Decode(entry.Name, entry.Content, entry.VersionToken)
		if doc.ID == uuid.Nil {
			doc.ID = identity.DocumentUUID(entry.Name)
		}
		docs[doc.ID] = doc
	}
	return docs, listErrs, nil
}

func (r *Reconciler) plan(ctx context.Context, remoteDocs map[uuid.UUID]*interfaces.Document, localByID map[uuid.UUID]interfaces.Summary) []Change {
	changes, evicted := collisionEvictions(remoteDocs, localByID)

	for id, remoteDoc := range remoteDocs {
		if _, gone := evicted[id]; gone {
			continue
		}
		local, ok := localByID[id]
		if !ok {
			changes = append(changes, Change{
				ID: id, Filename: remoteDoc.Filename, Action: ActionPull,
				Reason: "present remotely, missing locally",
			})
			continue
		}

		switch {
		case remoteDoc.UpdatedAt.After(local.UpdatedAt):
			changes = append(changes, Change{
				ID: id, Filename: remoteDoc.Filename, Action: ActionPull,
				Reason: "remote copy is newer",
			})
		case local.UpdatedAt.After(remoteDoc.UpdatedAt):
			if full := r.localFull(ctx, id); full != nil {
				changes = append(changes, Change{
					ID: id, Filename: full.Filename, Action: ActionPush,
					Reason: "local copy is newer",
				})
			} else {
				// only a listing projection survived locally; the remote
				// body is the best content we have
				changes = append(changes, Change{
					ID: id, Filename: remoteDoc.Filename, Action: ActionPull,
					Reason: "local copy newer but partial",
				})
			}
		}
	}

	for id, local := range localByID {
		if _, gone := evicted[id]; gone {
			continue
		}
		if _, ok := remoteDocs[id]; ok {
			continue
		}
		if full := r.localFull(ctx, id); full != nil && strings.TrimSpace(full.Content) != "" {
			changes = append(changes, Change{
				ID: id, Filename: full.Filename, Action: ActionPush,
				Reason: "missing remotely, restoring from local copy",
			})
		} else {
			changes = append(changes, Change{
				ID: id, Filename: local.Filename, Action: ActionDrop,
				Reason: "missing remotely, no local content to restore",
			})
		}
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].Filename < changes[j].Filename })
	return changes
}

type contender struct {
	id        uuid.UUID
	title     string
	filename  string
	updatedAt time.Time
}

// collisionEvictions finds documents that share a title under distinct ids,
// across the union of remote files and cache rows. The copy with the most
// recent known updated_at survives; every other copy is planned for eviction
// from all tiers. Untitled documents never collide.
func collisionEvictions(remoteDocs map[uuid.UUID]*interfaces.Document, localByID map[uuid.UUID]interfaces.Summary) ([]Change, map[uuid.UUID]struct{}) {
	byID := map[uuid.UUID]contender{}
	note := func(id uuid.UUID, title, filename string, updatedAt time.Time) {
		c, ok := byID[id]
		if !ok {
			byID[id] = contender{id: id, title: title, filename: filename, updatedAt: updatedAt}
			return
		}
		// keep the freshest view of the document across both tiers
		if updatedAt.After(c.updatedAt) {
			c.updatedAt = updatedAt
		}
		if c.filename == "" {
			c.filename = filename
		}
		if c.title == "" {
			c.title = title
		}
		byID[id] = c
	}
	for id, doc := range remoteDocs {
		note(id, doc.Title, doc.Filename, doc.UpdatedAt)
	}
	for id, summary := range localByID {
		note(id, summary.Title, summary.Filename, summary.UpdatedAt)
	}

	groups := map[string][]contender{}
	for _, c := range byID {
		key := strings.ToLower(strings.TrimSpace(c.title))
		if key == "" {
			continue
		}
		groups[key] = append(groups[key], c)
	}

	var changes []Change
	evicted := map[uuid.UUID]struct{}{}
	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		sort.Slice(group, func(i, j int) bool {
			if !group[i].updatedAt.Equal(group[j].updatedAt) {
				return group[i].updatedAt.After(group[j].updatedAt)
			}
			return group[i].filename < group[j].filename
		})
		winner := group[0]
		for _, loser := range group[1:] {
			evicted[loser.id] = struct{}{}
			changes = append(changes, Change{
				ID: loser.id, Filename: loser.filename, Action: ActionEvict,
				Reason: fmt.Sprintf("title %q also held by newer %s", loser.title, winner.filename),
			})
		}
	}
	return changes, evicted
}

func (r *Reconciler) apply(ctx context.Context, changes []Change, remoteDocs map[uuid.UUID]*interfaces.Document) {
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(r.concurrency)

	var mu sync.Mutex
	for i := range changes {
		change := &changes[i]
		group.Go(func() error {
			err := r.applyOne(ctx, change, remoteDocs)
			if err != nil {
				mu.Lock()
				change.Err = err
				mu.Unlock()
				r.logger.Warn("reconcile.change_failed",
					"action", string(change.Action),
					"filename", change.Filename,
					"error", err.Error(),
				)
			}
			// failures stay per-change; one bad file never aborts the run
			return nil
		})
	}
	_ = group.Wait()
}

func (r *Reconciler) applyOne(ctx context.Context, change *Change, remoteDocs map[uuid.UUID]*interfaces.Document) error {
	switch change.Action {
	case ActionPull:
		doc := remoteDocs[change.ID]
		if doc == nil {
			return fmt.Errorf("reconcile: no remote copy for %s", change.ID)
		}
		return r.cache.Put(ctx, doc)

	case ActionPush:
		doc := r.localFull(ctx, change.ID)
		if doc == nil {
			return fmt.Errorf("reconcile: local copy for %s vanished", change.ID)
		}
		encoded, err := document.Encode(doc)
		if err != nil {
			return err
		}
		expected := doc.VersionToken
		if _, ok := remoteDocs[change.ID]; !ok {
			// remote file is gone, recreate it
			expected = ""
		}
		token, err := r.remote.Write(ctx, r.join(doc.Filename), encoded, expected, reconcileMessage(doc))
		if err != nil {
			if remote.IsConflict(err) {
				return fmt.Errorf("reconcile: push %s: %w", doc.Filename, err)
			}
			return err
		}
		doc.VersionToken = token
		return r.cache.Put(ctx, doc)

	case ActionDrop:
		return r.cache.Delete(ctx, change.ID)

	case ActionEvict:
		if doc, ok := remoteDocs[change.ID]; ok {
			err := r.remote.Delete(ctx, r.join(doc.Filename), doc.VersionToken, evictMessage(doc))
			if err != nil && !remote.IsNotFound(err) {
				return err
			}
		}
		if r.session != nil {
			r.session.Delete(change.ID)
		}
		return r.cache.Delete(ctx, change.ID)
	}
	return fmt.Errorf("reconcile: unknown action %q", change.Action)
}

func (r *Reconciler) localFull(ctx context.Context, id uuid.UUID) *interfaces.Document {
	doc, fidelity, err := r.cache.Get(ctx, id)
	if err != nil || fidelity != interfaces.Full {
		return nil
	}
	return doc
}

func (r *Reconciler) join(name string) string {
	dir := strings.Trim(r.dir, "/")
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

func evictMessage(doc *interfaces.Document) string {
	return fmt.Sprintf("reconcile: drop duplicate %s", doc.Filename)
}

func reconcileMessage(doc *interfaces.Document) string {
	title := strings.TrimSpace(doc.Title)
	if title == "" {
		title = doc.Filename
	}
	return fmt.Sprintf("reconcile: %s", title)
}

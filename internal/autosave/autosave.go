// Package autosave runs the debounced save loop. Every edit lands here; the
// engine decides when a snapshot is worth persisting, collapses bursts into a
// single write, and reports state transitions over the event bus.
package autosave

import (
	"context"
	"crypto/sha256"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/halim714/markpress/internal/logging"
	"github.com/halim714/markpress/internal/remote"
	"github.com/halim714/markpress/pkg/interfaces"
)

// DefaultDebounce is the quiet period after the last edit before a save runs.
const DefaultDebounce = 2 * time.Second

// Saver persists a snapshot and returns the stored document, carrying the
// fresh version token and any filename assigned on first materialization.
type Saver interface {
	Save(ctx context.Context, doc *interfaces.Document) (*interfaces.Document, error)
}

// SaverFunc adapts a function to the Saver interface.
type SaverFunc func(ctx context.Context, doc *interfaces.Document) (*interfaces.Document, error)

func (f SaverFunc) Save(ctx context.Context, doc *interfaces.Document) (*interfaces.Document, error) {
	return f(ctx, doc)
}

type fingerprint [sha256.Size]byte

// fingerprintOf covers everything that makes a snapshot worth saving. Saving
// is skipped when nothing the file would contain has changed.
func fingerprintOf(doc *interfaces.Document) fingerprint {
	h := sha256.New()
	h.Write([]byte(doc.Title))
	h.Write([]byte{0})
	h.Write([]byte(doc.Content))
	h.Write([]byte{0})
	h.Write([]byte(doc.TitleMode))

	var fp fingerprint
	copy(fp[:], h.Sum(nil))
	return fp
}

type entry struct {
	doc        *interfaces.Document
	state      interfaces.SaveState
	lastErr    error
	lastSaved  fingerprint
	hasSaved   bool
	generation uint64
	timer      *time.Timer
	saving     bool
	dirty      bool
}

// Manager owns the per-document save state machines.
type Manager struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*entry

	saver    Saver
	bus      interfaces.EventBus
	debounce time.Duration
	logger   interfaces.Logger

	wg     sync.WaitGroup
	closed bool
}

// Option customises a Manager.
type Option func(*Manager)

// WithDebounce overrides the quiet period.
func WithDebounce(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.debounce = d
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// New builds a Manager. bus may be nil when nothing listens.
func New(saver Saver, bus interfaces.EventBus, opts ...Option) *Manager {
	m := &Manager{
		entries:  map[uuid.UUID]*entry{},
		saver:    saver,
		bus:      bus,
		debounce: DefaultDebounce,
		logger:   logging.NoOp(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Track registers a document that already matches its persisted form, e.g.
// one just resolved from the remote. Its current state counts as saved.
func (m *Manager) Track(doc *interfaces.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || doc == nil || doc.ID == uuid.Nil {
		return
	}

	e := m.entry(doc.ID)
	e.doc = doc.Clone()
	e.state = interfaces.SaveStateSaved
	e.lastSaved = fingerprintOf(doc)
	e.hasSaved = true
}

// Update records an edited snapshot and schedules a save after the quiet
// period. Snapshots whose fingerprint matches the last persisted state are
// absorbed without scheduling anything.
//
// A document that has never been materialized (no version token, nothing
// saved yet) whose content and title are both empty stays virtual: no timer,
// no remote file.
func (m *Manager) Update(doc *interfaces.Document) {
	if doc == nil || doc.ID == uuid.Nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}

	e := m.entry(doc.ID)
	next := doc.Clone()
	// editor snapshots carry content; the engine owns persistence identity
	if prev := e.doc; prev != nil {
		if next.VersionToken == "" {
			next.VersionToken = prev.VersionToken
		}
		if next.Filename == "" {
			next.Filename = prev.Filename
		}
		if next.PublicPath == "" {
			next.PublicPath = prev.PublicPath
		}
	}
	exists := e.hasSaved || next.VersionToken != ""
	if exists && strings.TrimSpace(next.Content) == "" {
		// Clearing an existing document is not save-worthy. The last
		// snapshot stays in place so a later flush cannot wipe the
		// remote copy.
		m.stopTimerLocked(e)
		if e.state != interfaces.SaveStateSaved && !e.saving {
			m.transitionLocked(doc.ID, e, interfaces.SaveStateSaved, nil)
		}
		return
	}

	e.doc = next
	e.generation++

	if !e.hasSaved && e.doc.VersionToken == "" && isBlank(e.doc) {
		m.stopTimerLocked(e)
		if e.state != interfaces.SaveStateSaved {
			m.transitionLocked(doc.ID, e, interfaces.SaveStateSaved, nil)
		}
		return
	}

	fp := fingerprintOf(e.doc)
	if e.hasSaved && fp == e.lastSaved && !e.saving {
		m.stopTimerLocked(e)
		m.transitionLocked(doc.ID, e, interfaces.SaveStateSaved, nil)
		return
	}

	if e.saving {
		// current save carries a stale snapshot, run again when it lands
		e.dirty = true
		return
	}

	m.transitionLocked(doc.ID, e, interfaces.SaveStatePending, nil)
	m.scheduleLocked(doc.ID, e)
}

// Flush saves the pending snapshot immediately, bypassing the debounce.
// Documents with nothing pending return nil without touching the store.
func (m *Manager) Flush(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	e, ok := m.entries[id]
	if !ok || m.closed {
		m.mu.Unlock()
		return nil
	}
	if e.state != interfaces.SaveStatePending && e.state != interfaces.SaveStateError {
		m.mu.Unlock()
		return nil
	}
	m.stopTimerLocked(e)
	gen := e.generation
	m.mu.Unlock()

	return m.save(ctx, id, gen)
}

// FlushAll flushes every pending document. The first failure is returned
// after all documents were attempted.
func (m *Manager) FlushAll(ctx context.Context) error {
	m.mu.Lock()
	ids := make([]uuid.UUID, 0, len(m.entries))
	for id, e := range m.entries {
		if e.state == interfaces.SaveStatePending || e.state == interfaces.SaveStateError {
			ids = append(ids, id)
		}
	}
	m.mu.Unlock()

	var firstErr error
	for _, id := range ids {
		if err := m.Flush(ctx, id); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// State reports the save state for id. Unknown documents are saved: there is
// nothing of theirs to lose.
func (m *Manager) State(id uuid.UUID) (interfaces.SaveState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return interfaces.SaveStateSaved, nil
	}
	return e.state, e.lastErr
}

// Forget drops all bookkeeping for id, cancelling any pending save. Used
// after a document is deleted.
func (m *Manager) Forget(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[id]; ok {
		m.stopTimerLocked(e)
		e.generation++
		delete(m.entries, id)
	}
}

// Close cancels every timer and waits for in-flight saves to finish. Pending
// snapshots are not flushed; call FlushAll first on clean shutdown.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	for _, e := range m.entries {
		m.stopTimerLocked(e)
		e.generation++
	}
	m.mu.Unlock()

	m.wg.Wait()
}

func (m *Manager) entry(id uuid.UUID) *entry {
	e, ok := m.entries[id]
	if !ok {
		e = &entry{state: interfaces.SaveStateSaved}
		m.entries[id] = e
	}
	return e
}

func (m *Manager) scheduleLocked(id uuid.UUID, e *entry) {
	m.stopTimerLocked(e)
	gen := e.generation
	e.timer = time.AfterFunc(m.debounce, func() {
		m.wg.Add(1)
		defer m.wg.Done()
		if err := m.save(context.Background(), id, gen); err != nil {
			m.logger.Warn("autosave.failed", "document_id", id.String(), "error", err.Error())
		}
	})
}

func (m *Manager) stopTimerLocked(e *entry) {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

func (m *Manager) save(ctx context.Context, id uuid.UUID, gen uint64) error {
	m.mu.Lock()
	e, ok := m.entries[id]
	if !ok || m.closed || e.generation != gen || e.saving {
		m.mu.Unlock()
		return nil
	}
	snapshot := e.doc.Clone()
	e.saving = true
	e.dirty = false
	m.transitionLocked(id, e, interfaces.SaveStateSaving, nil)
	m.mu.Unlock()

	stored, err := m.saver.Save(ctx, snapshot)

	m.mu.Lock()
	defer m.mu.Unlock()
	e.saving = false

	if current, tracked := m.entries[id]; !tracked || current != e || m.closed {
		// the document was forgotten or the manager shut down while the
		// save was in flight; do not resurrect timers or emit events
		return nil
	}

	if err != nil {
		// conflicts stay in error until the caller reconciles; they are
		// never retried with the same stale token
		m.transitionLocked(id, e, interfaces.SaveStateError, err)
		if remote.IsConflict(err) {
			m.logger.Warn("autosave.conflict", "document_id", id.String())
		}
		return err
	}

	e.lastSaved = fingerprintOf(snapshot)
	e.hasSaved = true
	if stored != nil {
		// carry forward the fresh token and any assigned filename
		e.doc.VersionToken = stored.VersionToken
		if stored.Filename != "" {
			e.doc.Filename = stored.Filename
		}
		if stored.PublicPath != "" {
			e.doc.PublicPath = stored.PublicPath
		}
	}

	if e.dirty || e.generation != gen {
		// edits arrived while the save was in flight
		m.transitionLocked(id, e, interfaces.SaveStatePending, nil)
		m.scheduleLocked(id, e)
		return nil
	}

	m.transitionLocked(id, e, interfaces.SaveStateSaved, nil)
	return nil
}

func (m *Manager) transitionLocked(id uuid.UUID, e *entry, state interfaces.SaveState, err error) {
	e.state = state
	e.lastErr = err
	if m.bus != nil {
		m.bus.Publish(interfaces.Event{
			Type:    interfaces.EventSaveStatus,
			Payload: interfaces.SaveStatus{ID: id, State: state, Err: err},
		})
	}
}

func isBlank(doc *interfaces.Document) bool {
	return strings.TrimSpace(doc.Content) == "" && strings.TrimSpace(doc.Title) == ""
}

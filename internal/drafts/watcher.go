// Package drafts feeds local markdown files into the editing engine. A
// watcher mirrors a drafts directory: every write lands in the auto-save
// pipeline, which debounces and persists to the remote like any other edit.
package drafts

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/halim714/markpress/internal/document"
	"github.com/halim714/markpress/internal/editor"
	"github.com/halim714/markpress/internal/frontmatter"
	"github.com/halim714/markpress/internal/identity"
	"github.com/halim714/markpress/internal/logging"
	"github.com/halim714/markpress/internal/resolver"
	"github.com/halim714/markpress/pkg/interfaces"
)

// Watcher mirrors a local directory of markdown drafts into the editor.
type Watcher struct {
	editor *editor.Service
	root   string
	logger interfaces.Logger

	// ids maps relative file paths to the documents they feed.
	ids map[string]uuid.UUID
}

// NewWatcher builds a watcher over root feeding svc.
func NewWatcher(svc *editor.Service, root string, logger interfaces.Logger) (*Watcher, error) {
	if svc == nil {
		return nil, fmt.Errorf("drafts: editor service is required")
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("drafts: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("drafts: %s is not a directory", root)
	}
	if logger == nil {
		logger = logging.NoOp()
	}
	return &Watcher{
		editor: svc,
		root:   root,
		logger: logger,
		ids:    map[string]uuid.UUID{},
	}, nil
}

// Run scans the directory once, then processes file change events until ctx
// is cancelled. New subdirectories created at runtime join the watch list.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := addDirsRecursive(watcher, w.root); err != nil {
		return err
	}
	if err := w.scan(ctx); err != nil {
		return err
	}

	w.logger.Info("drafts.watching", "root", w.root)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("drafts.stopped")
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(watcher, ev.Name); addErr != nil {
						w.logger.Warn("drafts.watch_dir_failed", "path", ev.Name, "error", addErr.Error())
					}
					w.scanDir(ctx, ev.Name)
					continue
				}
			}

			if !strings.HasSuffix(ev.Name, ".md") {
				continue
			}
			rel, relErr := filepath.Rel(w.root, ev.Name)
			if relErr != nil {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				if err := w.SyncFile(ctx, rel); err != nil {
					w.logger.Warn("drafts.sync_failed", "path", rel, "error", err.Error())
				}
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// the remote copy stays; only the local mirror is gone
				delete(w.ids, rel)
				w.logger.Debug("drafts.unlinked", "path", rel)
			}

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("drafts.watcher_error", "error", watchErr.Error())
		}
	}
}

// SyncFile pushes one file's current content into the editing engine. The
// document id comes from the file's metadata when present, otherwise it is
// derived deterministically from the relative path.
func (w *Watcher) SyncFile(ctx context.Context, rel string) error {
	raw, err := os.ReadFile(filepath.Join(w.root, rel))
	if err != nil {
		return err
	}

	meta, body := frontmatter.Parse(raw)
	id := w.ids[rel]
	if id == uuid.Nil {
		id = metadataID(meta)
	}
	if id == uuid.Nil {
		id = identity.DocumentUUID(rel)
	}

	if _, known := w.ids[rel]; !known {
		if _, err := w.editor.Open(ctx, id); err != nil {
			if !resolver.IsNotFound(err) {
				return err
			}
			w.editor.CreateWithID(ctx, id)
			w.logger.Info("drafts.adopted", "path", rel, "document_id", id.String())
		}
		w.ids[rel] = id
	}

	_, err = w.editor.UpdateContent(ctx, id, string(body))
	return err
}

// Tracked reports the document id feeding from rel, if any.
func (w *Watcher) Tracked(rel string) (uuid.UUID, bool) {
	id, ok := w.ids[rel]
	return id, ok
}

func (w *Watcher) scan(ctx context.Context) error {
	return filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".md") {
			return nil
		}
		rel, relErr := filepath.Rel(w.root, path)
		if relErr != nil {
			return nil
		}
		if syncErr := w.SyncFile(ctx, rel); syncErr != nil {
			w.logger.Warn("drafts.sync_failed", "path", rel, "error", syncErr.Error())
		}
		return nil
	})
}

func (w *Watcher) scanDir(ctx context.Context, dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".md") {
			return nil
		}
		rel, relErr := filepath.Rel(w.root, path)
		if relErr != nil {
			return nil
		}
		if syncErr := w.SyncFile(ctx, rel); syncErr != nil {
			w.logger.Warn("drafts.sync_failed", "path", rel, "error", syncErr.Error())
		}
		return nil
	})
}

func metadataID(meta map[string]any) uuid.UUID {
	raw, ok := meta[document.KeyID].(string)
	if !ok {
		return uuid.Nil
	}
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil
	}
	return id
}

func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}

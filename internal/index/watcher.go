package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventCallback is called after a watcher-driven index change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, path string)

const reconcileDelay = 200 * time.Millisecond

// Watch follows vault changes with fsnotify until ctx is cancelled, calling
// cb (if non-nil) after each successful index mutation. Directories created
// at runtime are watched too; renames trigger a debounced reconcile.
func (ix *Indexer) Watch(ctx context.Context, vaultRoot string, cb EventCallback) error {
	if cb == nil {
		cb = func(string, string) {}
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, vaultRoot); err != nil {
		return err
	}
	ix.logger.Info("watcher: started", slog.String("root", vaultRoot))

	reconcile := time.NewTimer(reconcileDelay)
	reconcile.Stop()
	defer reconcile.Stop()

	for {
		select {
		case <-ctx.Done():
			ix.logger.Info("watcher: stopped")
			return nil

		case <-reconcile.C:
			ix.reconcile(cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) && isDir(ev.Name) {
				if err := addDirsRecursive(w, ev.Name); err != nil {
					ix.logger.Warn("watcher: add new dir failed",
						slog.String("path", ev.Name), slog.String("error", err.Error()))
				}
				ix.indexNewDir(vaultRoot, ev.Name, cb)
				continue
			}
			if !strings.HasSuffix(ev.Name, ".md") {
				continue
			}
			rel, err := filepath.Rel(vaultRoot, ev.Name)
			if err != nil {
				continue
			}
			if ix.handle(ev, filepath.ToSlash(rel), cb) {
				reconcile.Reset(reconcileDelay)
			}

		case werr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			ix.logger.Error("watcher: error", slog.String("error", werr.Error()))
		}
	}
}

// handle applies one file event to the index. It reports whether a
// reconcile pass should follow.
func (ix *Indexer) handle(ev fsnotify.Event, rel string, cb EventCallback) bool {
	switch {
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		data, err := ix.store.Read(rel)
		if err != nil {
			ix.logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
			return false
		}
		if err := ix.IndexFile(rel, data); err != nil {
			ix.logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
			return false
		}
		kind := "updated"
		if ev.Has(fsnotify.Create) {
			kind = "created"
		}
		ix.logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", kind))
		cb(kind, rel)

	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		// A rename only reports the old name; the new one shows up as a
		// Create if it stays inside a watched directory, and reconcile
		// catches the rest.
		if err := ix.db.DeleteDocument(rel); err != nil {
			ix.logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", err.Error()))
		} else {
			ix.logger.Debug("watcher: deleted", slog.String("path", rel))
			cb("deleted", rel)
		}
		return ev.Has(fsnotify.Rename)
	}
	return false
}

// reconcile removes index entries whose file is gone and indexes files that
// are new or changed.
func (ix *Indexer) reconcile(cb EventCallback) {
	checksums, err := ix.db.AllChecksums()
	if err != nil {
		ix.logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}
	metas, err := ix.store.List("")
	if err != nil {
		ix.logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[m.Path] = m.Checksum
	}
	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := ix.db.DeleteDocument(p); err == nil {
			cb("deleted", p)
		}
	}
	for p, cs := range disk {
		if checksums[p] == cs {
			continue
		}
		data, err := ix.store.Read(p)
		if err != nil {
			continue
		}
		if err := ix.IndexFile(p, data); err == nil {
			cb("created", p)
		}
	}
	ix.refreshGauge()
}

// indexNewDir indexes the .md files of a directory that appeared at runtime.
func (ix *Indexer) indexNewDir(vaultRoot, dir string, cb EventCallback) {
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(p, ".md") {
			return nil
		}
		rel, err := filepath.Rel(vaultRoot, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		data, err := ix.store.Read(rel)
		if err != nil {
			return nil
		}
		if err := ix.IndexFile(rel, data); err == nil {
			cb("created", rel)
		}
		return nil
	})
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(p)
		}
		return nil
	})
}

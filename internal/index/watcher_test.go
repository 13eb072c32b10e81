package index

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/smartblock/internal/blocks"
	"github.com/starford/smartblock/internal/storage"
)

const oneBlock = "# Doc\n<!-- block:id=w1 type=note -->\nwatched block content\n<!-- /block -->\n"

func watcherTestEnv(t *testing.T) (string, *Indexer, *DB) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	db := testDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return vaultDir, NewIndexer(db, store, blocks.New(), logger, nil), db
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func indexed(db *DB, path string) func() bool {
	return func() bool {
		cs, _ := db.GetChecksum(path)
		return cs != ""
	}
}

func TestSync_IndexesBlocksAndRemovesStale(t *testing.T) {
	vaultDir, ix, db := watcherTestEnv(t)
	_ = os.WriteFile(filepath.Join(vaultDir, "a.md"), []byte(oneBlock), 0o644)
	_ = os.WriteFile(filepath.Join(vaultDir, "b.md"), []byte("no blocks here\n"), 0o644)
	if err := ix.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	corpus, _ := db.Corpus()
	if len(corpus) != 1 || corpus[0].Block.ID != "w1" || corpus[0].Block.Content != "watched block content" {
		t.Fatalf("corpus = %+v", corpus)
	}
	docs, _ := db.ListDocuments()
	if len(docs) != 2 || docs[0].Title != "Doc" {
		t.Errorf("documents = %+v", docs)
	}

	_ = os.Remove(filepath.Join(vaultDir, "a.md"))
	if err := ix.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if n, _ := db.CountBlocks(); n != 0 {
		t.Errorf("stale blocks remain: %d", n)
	}
}

func TestSync_CountsWarnings(t *testing.T) {
	vaultDir, ix, db := watcherTestEnv(t)
	_ = os.WriteFile(filepath.Join(vaultDir, "o.md"), []byte("<!-- block:id=open type=note -->\nnever closed\n"), 0o644)
	_ = ix.Sync()
	docs, _ := db.ListDocuments()
	if len(docs) != 1 || docs[0].Warnings != 1 || docs[0].BlockCount != 0 {
		t.Errorf("documents = %+v", docs)
	}
}

func TestWatcher_NewFileIndexed(t *testing.T) {
	vaultDir, ix, db := watcherTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string
	go ix.Watch(ctx, vaultDir, func(kind, path string) {
		mu.Lock()
		events = append(events, kind+":"+path)
		mu.Unlock()
	})
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(vaultDir, "new.md"), []byte(oneBlock), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, indexed(db, "new.md"), "new file not indexed by watcher")
	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "created:new.md" {
				return true
			}
		}
		return false
	}, "expected created:new.md callback")
}

func TestWatcher_NewDirWatched(t *testing.T) {
	vaultDir, ix, db := watcherTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ix.Watch(ctx, vaultDir, nil)
	time.Sleep(100 * time.Millisecond)

	subDir := filepath.Join(vaultDir, "subdir")
	_ = os.MkdirAll(subDir, 0o755)
	time.Sleep(100 * time.Millisecond)
	_ = os.WriteFile(filepath.Join(subDir, "deep.md"), []byte(oneBlock), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, indexed(db, "subdir/deep.md"), "file in new subdir not indexed by watcher")
}

func TestWatcher_DeleteRemovesFromIndex(t *testing.T) {
	vaultDir, ix, db := watcherTestEnv(t)
	_ = os.WriteFile(filepath.Join(vaultDir, "del.md"), []byte(oneBlock), 0o644)
	_ = ix.Sync()
	if !indexed(db, "del.md")() {
		t.Fatal("precondition: file should be indexed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ix.Watch(ctx, vaultDir, nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Remove(filepath.Join(vaultDir, "del.md"))
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool { return !indexed(db, "del.md")() }, "deleted file still in index")
}

func TestWatcher_RenameReconciles(t *testing.T) {
	vaultDir, ix, db := watcherTestEnv(t)
	_ = os.WriteFile(filepath.Join(vaultDir, "old.md"), []byte(oneBlock), 0o644)
	_ = ix.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ix.Watch(ctx, vaultDir, nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Rename(filepath.Join(vaultDir, "old.md"), filepath.Join(vaultDir, "renamed.md"))
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return !indexed(db, "old.md")() && indexed(db, "renamed.md")()
	}, "rename reconciliation failed: old path should be removed and new path indexed")
}

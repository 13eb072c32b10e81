// Package testutil provides shared test helpers for vaults, indexes and
// block documents.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/smartblock/internal/index"
	"github.com/starford/smartblock/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault directory with a storage.FS.
func TestVault(t *testing.T, skip ...string) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir, skip...)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// WriteFile writes content under dir, creating parents.
func WriteFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// Block renders one marked block. attrs are appended to the start marker
// verbatim, e.g. "reorderable=true".
func Block(id, typ, content string, attrs ...string) string {
	head := fmt.Sprintf("<!-- block:id=%s type=%s", id, typ)
	if len(attrs) > 0 {
		head += " " + strings.Join(attrs, " ")
	}
	return head + " -->\n" + content + "\n<!-- /block -->"
}

// Doc joins parts with newlines into a document.
func Doc(parts ...string) string {
	return strings.Join(parts, "\n") + "\n"
}

package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/smartblock/internal/apperr"
)

func tempVault(t *testing.T, skip ...string) *FS {
	t.Helper()
	fs, err := NewFS(t.TempDir(), skip...)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempVault(t)
	content := []byte("<!-- block:id=a type=note -->\nhello block\n<!-- /block -->\n")
	if err := s.Write("doc.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("doc.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempVault(t)
	if err := s.Write(".blocks/a/b.md.json", []byte("{}")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	ok, err := s.Exists(".blocks/a/b.md.json")
	if err != nil || !ok {
		t.Errorf("Exists = %v, %v", ok, err)
	}
}

func TestReadMissingIsNotFound(t *testing.T) {
	s := tempVault(t)
	if _, err := s.Read("nope.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if err := s.Delete("nope.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("delete err = %v, want ErrNotFound", err)
	}
}

func TestMove(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("old.md", []byte("data"))
	if err := s.Move("old.md", "sub/new.md"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if ok, _ := s.Exists("old.md"); ok {
		t.Error("old path should not exist")
	}
	got, err := s.Read("sub/new.md")
	if err != nil || string(got) != "data" {
		t.Errorf("Read after move = %q, %v", got, err)
	}
}

func TestList_SkipsConfiguredDirs(t *testing.T) {
	s := tempVault(t, ".blocks")
	_ = s.Write("a.md", []byte("a"))
	_ = s.Write("sub/b.md", []byte("b"))
	_ = s.Write("readme.txt", []byte("not md"))
	_ = s.Write(".blocks/hidden.md", []byte("skipped"))

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2: %v", len(items), items)
	}
	for _, it := range items {
		if len(it.Checksum) != 64 {
			t.Errorf("%s checksum = %q", it.Path, it.Checksum)
		}
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempVault(t)
	for _, p := range []string{"../../etc/passwd", "../outside.md", "/etc/shadow"} {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestOverwriteLeavesNoTempFiles(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("atomic.md", []byte("original content"))
	if err := s.Write("atomic.md", []byte("updated content")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.md")
	if string(got) != "updated content" {
		t.Errorf("got %q", got)
	}
	entries, _ := os.ReadDir(s.Root())
	if len(entries) != 1 {
		t.Errorf("leftover files: %v", entries)
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	p := filepath.Join(t.TempDir(), "file")
	_ = os.WriteFile(p, []byte("x"), 0o644)
	if _, err := NewFS(p); err == nil {
		t.Error("expected error when root is a file")
	}
}

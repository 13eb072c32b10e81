package sidecar

import (
	"context"
	"path"
	"strings"

	"github.com/starford/smartblock/internal/storage"
)

// Persister reads and writes the raw sidecar bytes for a document. Read
// returns an error wrapping apperr.ErrNotFound when nothing was saved yet.
type Persister interface {
	Read(ctx context.Context, docID string) ([]byte, error)
	Write(ctx context.Context, docID string, data []byte) error
	Delete(ctx context.Context, docID string) error
}

// VaultPersister keeps sidecars inside the vault under dir, mirroring the
// document tree: notes/a.md -> <dir>/notes/a.md.json.
type VaultPersister struct {
	fs  storage.Provider
	dir string
}

// NewVaultPersister returns a Persister over fs.
func NewVaultPersister(fs storage.Provider, dir string) *VaultPersister {
	return &VaultPersister{fs: fs, dir: dir}
}

// PathFor returns the vault-relative sidecar path of docID.
func (p *VaultPersister) PathFor(docID string) string {
	return path.Join(p.dir, strings.TrimPrefix(path.Clean("/"+docID), "/")+".json")
}

func (p *VaultPersister) Read(_ context.Context, docID string) ([]byte, error) {
	return p.fs.Read(p.PathFor(docID))
}

func (p *VaultPersister) Write(_ context.Context, docID string, data []byte) error {
	return p.fs.Write(p.PathFor(docID), data)
}

func (p *VaultPersister) Delete(_ context.Context, docID string) error {
	return p.fs.Delete(p.PathFor(docID))
}

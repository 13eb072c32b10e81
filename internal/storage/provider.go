// Package storage defines the vault file-system abstraction.
package storage

import "github.com/starford/smartblock/internal/models"

// Provider is the interface for vault file operations. Paths are relative to
// the vault root.
type Provider interface {
	// List returns metadata for every .md file under dir.
	List(dir string) ([]models.DocumentInfo, error)
	Read(path string) ([]byte, error)
	// Write replaces path atomically, creating parent directories.
	Write(path string, content []byte) error
	Delete(path string) error
	Move(oldPath, newPath string) error
	// Exists reports whether path names an existing file.
	Exists(path string) (bool, error)
}

package index

import "github.com/starford/smartblock/internal/models"

// BlockIndex is the read/write surface of the block index. Consumers depend
// on it rather than on *DB.
type BlockIndex interface {
	UpsertDocument(d DocumentRow, blocks []models.Block) error
	DeleteDocument(path string) error
	GetChecksum(path string) (string, error)
	AllChecksums() (map[string]string, error)
	ListDocuments() ([]DocumentRow, error)
	Corpus() ([]Entry, error)
	FindBlock(id string) ([]Entry, error)
	CountBlocks() (int, error)
	Search(query string, limit int) ([]SearchResult, error)
	Close() error
}

var _ BlockIndex = (*DB)(nil)

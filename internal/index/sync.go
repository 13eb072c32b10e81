package index

import (
	"io"
	"log/slog"
	"time"

	"github.com/starford/smartblock/internal/blocks"
	"github.com/starford/smartblock/internal/checksum"
	"github.com/starford/smartblock/internal/document"
	"github.com/starford/smartblock/internal/metrics"
	"github.com/starford/smartblock/internal/storage"
)

// Indexer keeps a BlockIndex in step with the vault.
type Indexer struct {
	db      BlockIndex
	store   storage.Provider
	engine  *blocks.Engine
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewIndexer returns an Indexer. m may be nil.
func NewIndexer(db BlockIndex, store storage.Provider, engine *blocks.Engine, logger *slog.Logger, m *metrics.Metrics) *Indexer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Indexer{db: db, store: store, engine: engine, logger: logger, metrics: m}
}

// Sync walks the vault and brings the index up to date:
//   - new/changed documents are parsed and upserted
//   - documents removed from disk are deleted from the index
func (ix *Indexer) Sync() error {
	metas, err := ix.store.List("")
	if err != nil {
		return err
	}
	checksums, err := ix.db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}
		if checksums[m.Path] == m.Checksum {
			continue
		}
		data, err := ix.store.Read(m.Path)
		if err != nil {
			ix.logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := ix.IndexFile(m.Path, data); err != nil {
			ix.logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			ix.logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := ix.db.DeleteDocument(p); err != nil {
			ix.logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
		} else {
			ix.logger.Debug("sync: removed stale", slog.String("path", p))
		}
	}
	ix.refreshGauge()
	return nil
}

// IndexFile parses data and upserts the document with its blocks.
func (ix *Indexer) IndexFile(path string, data []byte) error {
	start := time.Now()
	res := ix.engine.Parse(string(data))

	kinds := make([]string, len(res.Warnings))
	for i, w := range res.Warnings {
		kinds[i] = string(w.Kind)
	}
	ix.metrics.ObserveParse(len(res.Blocks), kinds, time.Since(start))

	row := DocumentRow{
		Path:      path,
		Title:     document.Read(path, data).Title,
		Checksum:  checksum.Sum(data),
		Warnings:  len(res.Warnings),
		UpdatedAt: time.Now().UTC(),
	}
	return ix.db.UpsertDocument(row, res.Blocks)
}

// Remove drops a document from the index.
func (ix *Indexer) Remove(path string) error {
	return ix.db.DeleteDocument(path)
}

func (ix *Indexer) refreshGauge() {
	if n, err := ix.db.CountBlocks(); err == nil {
		ix.metrics.SetIndexedBlocks(n)
	}
}

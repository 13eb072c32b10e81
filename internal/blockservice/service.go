// Package blockservice coordinates documents, the block engine, sidecar
// metadata and the block index behind one API used by the REST and MCP layers.
package blockservice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/starford/smartblock/internal/ai"
	"github.com/starford/smartblock/internal/apperr"
	"github.com/starford/smartblock/internal/blocks"
	"github.com/starford/smartblock/internal/checksum"
	"github.com/starford/smartblock/internal/document"
	"github.com/starford/smartblock/internal/events"
	"github.com/starford/smartblock/internal/extract"
	"github.com/starford/smartblock/internal/index"
	"github.com/starford/smartblock/internal/jobs"
	"github.com/starford/smartblock/internal/metrics"
	"github.com/starford/smartblock/internal/models"
	"github.com/starford/smartblock/internal/reorder"
	"github.com/starford/smartblock/internal/sidecar"
	"github.com/starford/smartblock/internal/storage"
)

// DefaultExtractDir is where extracted notes are written when no directory
// is configured.
const DefaultExtractDir = "extracted"

// Service is the block-level domain layer.
type Service struct {
	store      storage.Provider
	engine     *blocks.Engine
	db         index.BlockIndex
	indexer    *index.Indexer
	sidecar    *sidecar.Store
	bus        *events.Bus
	advisor    *reorder.Advisor
	summarizer ai.Summarizer
	processor  *jobs.Processor
	registry   *jobs.Registry
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time

	extractDir     string
	extractOptions extract.Options

	// mu serializes read-modify-write cycles on vault documents.
	mu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithBus sets the bus that receives block and job events.
func WithBus(b *events.Bus) Option {
	return func(s *Service) { s.bus = b }
}

// WithAdvisor sets the reorder advisor.
func WithAdvisor(a *reorder.Advisor) Option {
	return func(s *Service) { s.advisor = a }
}

// WithSummarizer sets the summarizer used by Summarize and summarize jobs.
func WithSummarizer(sum ai.Summarizer) Option {
	return func(s *Service) { s.summarizer = sum }
}

// WithJobRegistry sets where processed jobs are kept for lookup.
func WithJobRegistry(r *jobs.Registry) Option {
	return func(s *Service) { s.registry = r }
}

// WithMetrics records job outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithExtractDir sets the vault directory for extracted notes.
func WithExtractDir(dir string) Option {
	return func(s *Service) {
		if dir = strings.Trim(dir, "/"); dir != "" {
			s.extractDir = dir
		}
	}
}

// WithExtractDefaults sets the options used by extract jobs.
func WithExtractDefaults(o extract.Options) Option {
	return func(s *Service) { s.extractOptions = o }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service. db and indexer must share the same index.
func New(store storage.Provider, engine *blocks.Engine, db index.BlockIndex, indexer *index.Indexer, meta *sidecar.Store, opts ...Option) *Service {
	s := &Service{
		store:      store,
		engine:     engine,
		db:         db,
		indexer:    indexer,
		sidecar:    meta,
		advisor:    reorder.NewAdvisor(nil),
		summarizer: ai.Truncate{},
		registry:   jobs.NewRegistry(0),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:        func() time.Time { return time.Now().UTC() },
		extractDir: DefaultExtractDir,
		extractOptions: extract.Options{
			AddSourceReference: true,
			CreateBacklink:     true,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.processor = jobs.NewProcessor(jobs.OnSettled(s.jobSettled))
	s.processor.Handle(jobs.Summarize, s.summarizeJob)
	s.processor.Handle(jobs.Extract, s.extractJob)
	return s
}

// Engine exposes the block engine, e.g. for validation endpoints.
func (s *Service) Engine() *blocks.Engine { return s.engine }

// Document reads and parses a document.
func (s *Service) Document(_ context.Context, path string) (*models.DocumentBlocks, error) {
	data, err := s.read(path)
	if err != nil {
		return nil, err
	}
	res := s.engine.Parse(string(data))
	warnings := make([]string, len(res.Warnings))
	for i, w := range res.Warnings {
		warnings[i] = w.Message
	}
	return &models.DocumentBlocks{
		Path:     path,
		Title:    document.Read(path, data).Title,
		Checksum: checksum.Sum(data),
		Blocks:   res.Blocks,
		Warnings: warnings,
		ReadAt:   s.now(),
	}, nil
}

// ListDocuments returns all indexed documents.
func (s *Service) ListDocuments(_ context.Context) ([]index.DocumentRow, error) {
	rows, err := s.db.ListDocuments()
	if err != nil {
		return nil, err
	}
	return nonNilSlice(rows), nil
}

// Search runs a full-text query over indexed blocks.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	res, err := s.db.Search(query, limit)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(res), nil
}

// IndexFile parses data and upserts it into the index. The watcher and
// startup sync go through the same path.
func (s *Service) IndexFile(path string, data []byte) error {
	return s.indexer.IndexFile(path, data)
}

// Sidecar returns the metadata for a document; missing sidecars are empty.
func (s *Service) Sidecar(ctx context.Context, path string) *models.SidecarMetadata {
	return s.sidecar.Load(ctx, path)
}

// PruneSidecar drops metadata for blocks no longer present in the document
// and returns the removed ids.
func (s *Service) PruneSidecar(ctx context.Context, path string) ([]string, error) {
	data, err := s.read(path)
	if err != nil {
		return nil, err
	}
	live := make([]string, 0)
	for _, b := range s.engine.ParseBlocks(string(data)) {
		live = append(live, b.ID)
	}
	var removed []string
	if _, err := s.sidecar.Update(ctx, path, func(m *models.SidecarMetadata) error {
		removed = sidecar.Prune(m, live)
		return nil
	}); err != nil {
		return nil, err
	}
	if len(removed) > 0 {
		s.logger.Info("sidecar pruned", slog.String("document", path), slog.Int("removed", len(removed)))
	}
	return nonNilSlice(removed), nil
}

func (s *Service) read(path string) ([]byte, error) {
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, fmt.Errorf("document %q: %w", path, apperr.ErrNotFound)
		}
		return nil, err
	}
	return data, nil
}

// load reads and parses path, returning the text and its blocks.
func (s *Service) load(path string) (string, []models.Block, error) {
	data, err := s.read(path)
	if err != nil {
		return "", nil, err
	}
	text := string(data)
	return text, s.engine.ParseBlocks(text), nil
}

// find returns the first block with id; duplicates after it are shadowed.
func find(bs []models.Block, id string) (models.Block, bool) {
	i := slices.IndexFunc(bs, func(b models.Block) bool { return b.ID == id })
	if i < 0 {
		return models.Block{}, false
	}
	return bs[i], true
}

func findLast(bs []models.Block, id string) (models.Block, bool) {
	for i := len(bs) - 1; i >= 0; i-- {
		if bs[i].ID == id {
			return bs[i], true
		}
	}
	return models.Block{}, false
}

func blockNotFound(path, id string) error {
	return fmt.Errorf("block %q in %q: %w", id, path, apperr.ErrNotFound)
}

// write stores text and reindexes it. Index failures are logged; the
// watcher will retry on its next pass.
func (s *Service) write(path, text string) error {
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	data := []byte(text)
	if err := s.store.Write(path, data); err != nil {
		return err
	}
	if err := s.indexer.IndexFile(path, data); err != nil {
		s.logger.Warn("reindex failed", slog.String("path", path), slog.String("error", err.Error()))
	}
	return nil
}

func (s *Service) emit(t events.Type, doc, blockID string, data any) {
	if s.bus == nil {
		return
	}
	s.bus.Emit(events.Event{Type: t, Document: doc, BlockID: blockID, Data: data})
}

func (s *Service) touch(ctx context.Context, doc, id string, p sidecar.Patch) {
	if _, err := s.sidecar.Update(ctx, doc, func(m *models.SidecarMetadata) error {
		sidecar.UpdateBlockMetadata(m, id, p, s.now())
		return nil
	}); err != nil {
		s.logger.Warn("sidecar update failed",
			slog.String("document", doc), slog.String("block_id", id), slog.String("error", err.Error()))
	}
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

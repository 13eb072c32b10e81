package blockservice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/starford/smartblock/internal/apperr"
	"github.com/starford/smartblock/internal/blocks"
	"github.com/starford/smartblock/internal/events"
	"github.com/starford/smartblock/internal/models"
	"github.com/starford/smartblock/internal/query"
	"github.com/starford/smartblock/internal/sidecar"
)

// ListOptions filter and order ListBlocks. Zero values mean no filter and
// document order.
type ListOptions struct {
	Criteria  query.Criteria
	SortBy    query.Field
	Direction query.Direction
}

// BlockDetail is a block together with its sidecar metadata.
type BlockDetail struct {
	Document string                `json:"document"`
	Block    models.Block          `json:"block"`
	Metadata *models.BlockMetadata `json:"metadata,omitempty"`
}

// CreateInput describes a block to append to a document.
type CreateInput struct {
	Content string
	blocks.CreateOptions
	// CreateDocument allows writing a new document when path does not exist.
	CreateDocument bool
}

// ListBlocks parses a document and returns its blocks filtered and sorted.
func (s *Service) ListBlocks(ctx context.Context, path string, opts ListOptions) ([]models.Block, error) {
	_, bs, err := s.load(path)
	if err != nil {
		return nil, err
	}
	meta := s.sidecar.Load(ctx, path)
	bs = query.Filter(bs, meta, opts.Criteria)
	if opts.SortBy != "" {
		bs = query.Sort(bs, meta, opts.SortBy, opts.Direction)
	}
	return bs, nil
}

// GetBlock returns one block and its metadata.
func (s *Service) GetBlock(ctx context.Context, path, id string) (*BlockDetail, error) {
	_, bs, err := s.load(path)
	if err != nil {
		return nil, err
	}
	b, ok := find(bs, id)
	if !ok {
		return nil, blockNotFound(path, id)
	}
	return &BlockDetail{
		Document: path,
		Block:    b,
		Metadata: s.sidecar.Load(ctx, path).Block(id),
	}, nil
}

// CreateBlock appends a new block to the end of a document.
func (s *Service) CreateBlock(ctx context.Context, path string, in CreateInput) (*BlockDetail, error) {
	b, err := s.engine.Create(in.Content, in.CreateOptions)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	text := ""
	if data, err := s.read(path); err == nil {
		text = string(data)
	} else if !in.CreateDocument || !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	existing := s.engine.ParseBlocks(text)
	if _, dup := find(existing, b.ID); dup {
		return nil, fmt.Errorf("block %q in %q: %w", b.ID, path, apperr.ErrAlreadyExists)
	}

	var lines []string
	if trimmed := strings.TrimRight(text, "\n"); trimmed != "" {
		lines = append(strings.Split(trimmed, "\n"), "")
	}
	b.LineRange = models.LineRange{Start: len(lines) + 1}
	lines = append(lines, strings.Split(b.Content, "\n")...)
	b.LineRange.End = len(lines)

	out, err := s.engine.Generate(strings.Join(lines, "\n"), []models.Block{b})
	if err != nil {
		return nil, err
	}
	if err := s.write(path, out); err != nil {
		return nil, err
	}

	if c, ok := findLast(s.engine.ParseBlocks(out), b.ID); ok {
		b = c
	}
	s.touch(ctx, path, b.ID, sidecar.Patch{})
	s.emit(events.BlockCreated, path, b.ID, b)
	return &BlockDetail{Document: path, Block: b, Metadata: s.sidecar.Load(ctx, path).Block(b.ID)}, nil
}

// UpdateBlock edits a block in place. A non-empty ifMatch must equal the
// block's current content hash, otherwise ErrConflict is returned.
func (s *Service) UpdateBlock(ctx context.Context, path, id string, u blocks.Update, ifMatch string) (*BlockDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	text, bs, err := s.load(path)
	if err != nil {
		return nil, err
	}
	cur, ok := find(bs, id)
	if !ok {
		return nil, blockNotFound(path, id)
	}
	if ifMatch != "" && ifMatch != cur.ContentHash {
		return nil, fmt.Errorf("block %q hash %s, want %s: %w", id, cur.ContentHash, ifMatch, apperr.ErrConflict)
	}
	next, err := s.engine.Update(cur, u)
	if err != nil {
		return nil, err
	}
	out, err := s.engine.Generate(text, []models.Block{next})
	if err != nil {
		return nil, err
	}
	if err := s.write(path, out); err != nil {
		return nil, err
	}
	if b, ok := find(s.engine.ParseBlocks(out), id); ok {
		next = b
	}

	now := s.now()
	s.touch(ctx, path, id, sidecar.Patch{UpdatedAt: &now})
	s.emit(events.BlockUpdated, path, id, next)
	return &BlockDetail{Document: path, Block: next, Metadata: s.sidecar.Load(ctx, path).Block(id)}, nil
}

// DeleteBlock removes a block's markers, and its content unless keepContent
// is set. The first block with id is removed. Its sidecar entry is dropped
// unless another block with the same id is still in the document.
func (s *Service) DeleteBlock(ctx context.Context, path, id string, keepContent bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	text, bs, err := s.load(path)
	if err != nil {
		return err
	}
	b, ok := find(bs, id)
	if !ok {
		return blockNotFound(path, id)
	}
	out, err := s.engine.Remove(text, b, keepContent)
	if err != nil {
		return err
	}
	if err := s.write(path, out); err != nil {
		return err
	}
	if _, dup := findLast(s.engine.ParseBlocks(out), id); !dup {
		if _, err := s.sidecar.Update(ctx, path, func(m *models.SidecarMetadata) error {
			delete(m.Blocks, id)
			return nil
		}); err != nil {
			return err
		}
	}
	s.emit(events.BlockDeleted, path, id, map[string]bool{"keep_content": keepContent})
	return nil
}

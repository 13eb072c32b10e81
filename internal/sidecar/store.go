// Package sidecar stores derived per-block metadata next to, never inside,
// the markdown documents.
package sidecar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/tailscale/hujson"

	"github.com/starford/smartblock/internal/apperr"
	"github.com/starford/smartblock/internal/models"
)

// Store loads and saves sidecar metadata through a Persister.
type Store struct {
	p      Persister
	logger *slog.Logger
	now    func() time.Time
	mu     sync.Mutex // serializes Update
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for degraded loads.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore returns a Store backed by p.
func NewStore(p Persister, opts ...Option) *Store {
	s := &Store{
		p:      p,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the sidecar of docID. A missing sidecar yields an empty one.
// Unreadable or corrupt sidecars are logged and also yield an empty one, so
// derived data can never block access to a document.
func (s *Store) Load(ctx context.Context, docID string) *models.SidecarMetadata {
	data, err := s.p.Read(ctx, docID)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			s.logger.Warn("sidecar: load failed, using empty metadata",
				slog.String("doc", docID), slog.String("error", err.Error()))
		}
		return models.NewSidecarMetadata()
	}
	meta, err := Decode(data)
	if err != nil {
		s.logger.Warn("sidecar: decode failed, using empty metadata",
			slog.String("doc", docID), slog.String("error", err.Error()))
		return models.NewSidecarMetadata()
	}
	return meta
}

// Save refreshes LastUpdated and writes meta.
func (s *Store) Save(ctx context.Context, docID string, meta *models.SidecarMetadata) error {
	if meta == nil {
		meta = models.NewSidecarMetadata()
	}
	meta.LastUpdated = s.now()
	if meta.Version == "" {
		meta.Version = models.SidecarVersion
	}
	if meta.Blocks == nil {
		meta.Blocks = make(map[string]*models.BlockMetadata)
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("sidecar: encode %s: %w", docID, err)
	}
	if err := s.p.Write(ctx, docID, append(data, '\n')); err != nil {
		return fmt.Errorf("sidecar: save %s: %w", docID, err)
	}
	return nil
}

// Update runs fn on the loaded sidecar and saves the result. Calls on the
// same Store are serialized.
func (s *Store) Update(ctx context.Context, docID string, fn func(*models.SidecarMetadata) error) (*models.SidecarMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	meta := s.Load(ctx, docID)
	if err := fn(meta); err != nil {
		return nil, err
	}
	if err := s.Save(ctx, docID, meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// Delete removes the sidecar of docID. A missing sidecar is not an error.
func (s *Store) Delete(ctx context.Context, docID string) error {
	if err := s.p.Delete(ctx, docID); err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return fmt.Errorf("sidecar: delete %s: %w", docID, err)
	}
	return nil
}

// Now returns the store clock's current time.
func (s *Store) Now() time.Time { return s.now() }

// Decode parses a sidecar, accepting comments and trailing commas.
func Decode(data []byte) (*models.SidecarMetadata, error) {
	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("sidecar: invalid JSONC: %w", err)
	}
	meta := models.NewSidecarMetadata()
	if err := json.Unmarshal(std, meta); err != nil {
		return nil, fmt.Errorf("sidecar: invalid JSON: %w", err)
	}
	if meta.Version == "" {
		meta.Version = models.SidecarVersion
	}
	if meta.Blocks == nil {
		meta.Blocks = make(map[string]*models.BlockMetadata)
	}
	return meta, nil
}

// Patch lists the metadata fields to merge. Nil fields are left alone;
// Fields entries are merged key by key.
type Patch struct {
	AISummary   *string        `json:"aiSummary,omitempty"`
	ExtractedTo *string        `json:"extractedTo,omitempty"`
	UpdatedAt   *time.Time     `json:"updatedAt,omitempty"`
	Fields      map[string]any `json:"fields,omitempty"`
}

// UpdateBlockMetadata merges p into the entry for id, creating it if absent,
// and stamps LastProcessed with now.
func UpdateBlockMetadata(meta *models.SidecarMetadata, id string, p Patch, now time.Time) *models.BlockMetadata {
	if meta.Blocks == nil {
		meta.Blocks = make(map[string]*models.BlockMetadata)
	}
	m := meta.Blocks[id]
	if m == nil {
		m = &models.BlockMetadata{CreatedAt: now}
		meta.Blocks[id] = m
	}
	if p.AISummary != nil {
		m.AISummary = *p.AISummary
	}
	if p.ExtractedTo != nil {
		m.ExtractedTo = *p.ExtractedTo
	}
	if p.UpdatedAt != nil {
		m.UpdatedAt = *p.UpdatedAt
	}
	if len(p.Fields) > 0 {
		if m.Fields == nil {
			m.Fields = make(map[string]any, len(p.Fields))
		}
		maps.Copy(m.Fields, p.Fields)
	}
	m.LastProcessed = now
	return m
}

// Prune drops entries whose id is not in live and returns the removed ids,
// sorted. Orphaned entries are otherwise kept indefinitely.
func Prune(meta *models.SidecarMetadata, live []string) []string {
	keep := make(map[string]struct{}, len(live))
	for _, id := range live {
		keep[id] = struct{}{}
	}
	var removed []string
	for id := range meta.Blocks {
		if _, ok := keep[id]; !ok {
			removed = append(removed, id)
		}
	}
	slices.Sort(removed)
	for _, id := range removed {
		delete(meta.Blocks, id)
	}
	return removed
}

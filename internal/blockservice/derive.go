package blockservice

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"slices"
	"strings"
	"unicode"

	"github.com/starford/smartblock/internal/apperr"
	"github.com/starford/smartblock/internal/events"
	"github.com/starford/smartblock/internal/extract"
	"github.com/starford/smartblock/internal/jobs"
	"github.com/starford/smartblock/internal/models"
	"github.com/starford/smartblock/internal/reorder"
	"github.com/starford/smartblock/internal/sidecar"
	"github.com/starford/smartblock/internal/similarity"
)

// ExtractResult is the note written by ExtractBlock.
type ExtractResult struct {
	Path     string           `json:"path"`
	Document extract.Document `json:"document"`
}

// SimilarMatch is a similarity hit with the document that holds it.
type SimilarMatch struct {
	Document string `json:"document"`
	similarity.Match
}

// ReorderSuggestion is a proposed order together with the blocks it refers to.
type ReorderSuggestion struct {
	Order  []int          `json:"order"`
	Blocks []models.Block `json:"blocks"`
}

// ExtractBlock writes a block out as a standalone note under the extract
// directory and records the target in the source document's sidecar. The
// source document is not changed.
func (s *Service) ExtractBlock(ctx context.Context, docPath, id string, opts extract.Options) (*ExtractResult, error) {
	_, bs, err := s.load(docPath)
	if err != nil {
		return nil, err
	}
	b, ok := find(bs, id)
	if !ok {
		return nil, blockNotFound(docPath, id)
	}

	opts.SourceDocument = docPath
	if opts.Now.IsZero() {
		opts.Now = s.now()
	}
	doc := extract.Extract(b, opts)
	data, err := doc.Render()
	if err != nil {
		return nil, fmt.Errorf("render extracted note: %w", err)
	}

	s.mu.Lock()
	target, err := s.freePath(slug(doc.Title, b.ID))
	if err == nil {
		err = s.store.Write(target, data)
	}
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if err := s.indexer.IndexFile(target, data); err != nil {
		s.logger.Warn("index extracted note failed", slog.String("path", target), slog.String("error", err.Error()))
	}

	s.touch(ctx, docPath, id, sidecar.Patch{ExtractedTo: &target})
	s.emit(events.BlockExtracted, docPath, id, map[string]string{"path": target})
	s.logger.Info("block extracted",
		slog.String("document", docPath), slog.String("block_id", id), slog.String("target", target))
	return &ExtractResult{Path: target, Document: doc}, nil
}

// freePath returns the first unused <extractDir>/<name>[-n].md.
func (s *Service) freePath(name string) (string, error) {
	for n := 1; ; n++ {
		file := name + ".md"
		if n > 1 {
			file = fmt.Sprintf("%s-%d.md", name, n)
		}
		p := path.Join(s.extractDir, file)
		exists, err := s.store.Exists(p)
		if err != nil {
			return "", err
		}
		if !exists {
			return p, nil
		}
	}
}

// slug lowercases title and collapses everything but letters and digits
// into single dashes.
func slug(title, fallback string) string {
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
			dash = false
			continue
		}
		if !dash && sb.Len() > 0 {
			sb.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimRight(sb.String(), "-")
	if r := []rune(out); len(r) > 60 {
		out = strings.TrimRight(string(r[:60]), "-")
	}
	if out == "" {
		return fallback
	}
	return out
}

// FindSimilar ranks every indexed block against the given block. limit <= 0
// returns all matches.
func (s *Service) FindSimilar(_ context.Context, docPath, id string, limit int) ([]SimilarMatch, error) {
	_, bs, err := s.load(docPath)
	if err != nil {
		return nil, err
	}
	b, ok := find(bs, id)
	if !ok {
		return nil, blockNotFound(docPath, id)
	}
	corpus, err := s.db.Corpus()
	if err != nil {
		return nil, err
	}

	// Matches carry no document, so score one document at a time.
	byDoc := make(map[string][]models.Block)
	var order []string
	for _, e := range corpus {
		if _, seen := byDoc[e.Document]; !seen {
			order = append(order, e.Document)
		}
		byDoc[e.Document] = append(byDoc[e.Document], e.Block)
	}
	out := []SimilarMatch{}
	for _, doc := range order {
		for _, m := range similarity.FindSimilar(b, byDoc[doc]) {
			out = append(out, SimilarMatch{Document: doc, Match: m})
		}
	}
	slices.SortStableFunc(out, func(x, y SimilarMatch) int {
		switch {
		case x.Score > y.Score:
			return -1
		case x.Score < y.Score:
			return 1
		}
		return 0
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SuggestReorder asks the advisor for a new order of the document's blocks.
// The document is not changed.
func (s *Service) SuggestReorder(ctx context.Context, docPath string, opts reorder.Options) (*ReorderSuggestion, error) {
	_, bs, err := s.load(docPath)
	if err != nil {
		return nil, err
	}
	order, err := s.advisor.Suggest(ctx, bs, opts)
	if err != nil {
		return nil, err
	}
	suggested, err := reorder.Apply(bs, order)
	if err != nil {
		return nil, err
	}
	return &ReorderSuggestion{Order: order, Blocks: suggested}, nil
}

// ApplyReorder rewrites the document so that slot i holds block order[i].
// Non-reorderable blocks must stay in place.
func (s *Service) ApplyReorder(_ context.Context, docPath string, order []int) ([]models.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	text, bs, err := s.load(docPath)
	if err != nil {
		return nil, err
	}
	for i, b := range bs {
		if i < len(order) && !b.Reorderable && order[i] != i {
			return nil, fmt.Errorf("block %q is not reorderable: %w", b.ID, apperr.ErrInvalidRange)
		}
	}
	out, err := s.engine.Reorder(text, bs, order)
	if err != nil {
		return nil, err
	}
	if err := s.write(docPath, out); err != nil {
		return nil, err
	}
	next := s.engine.ParseBlocks(out)
	ids := make([]string, len(next))
	for i, b := range next {
		ids[i] = b.ID
	}
	s.emit(events.BlocksReordered, docPath, "", map[string]any{"order": order, "ids": ids})
	return next, nil
}

// Summarize generates a summary for a block and stores it in the sidecar.
func (s *Service) Summarize(ctx context.Context, docPath, id string) (string, error) {
	_, bs, err := s.load(docPath)
	if err != nil {
		return "", err
	}
	b, ok := find(bs, id)
	if !ok {
		return "", blockNotFound(docPath, id)
	}
	summary, err := s.summarizer.Summarize(ctx, b)
	if err != nil {
		return "", fmt.Errorf("summarize %q: %w", id, err)
	}
	s.touch(ctx, docPath, id, sidecar.Patch{AISummary: &summary})
	s.emit(events.BlockSummarized, docPath, id, map[string]string{"summary": summary})
	return summary, nil
}

// ProcessBlocks runs one job of type t per block and returns the settled
// jobs. Empty ids means every block in the document.
func (s *Service) ProcessBlocks(ctx context.Context, docPath string, ids []string, t jobs.Type) ([]jobs.Job, error) {
	_, bs, err := s.load(docPath)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		for _, b := range bs {
			ids = append(ids, b.ID)
		}
	}
	batch := jobs.NewJobs(docPath, ids, t)
	s.processor.Process(ctx, batch)
	s.registry.Add(batch...)

	out := make([]jobs.Job, len(batch))
	for i, j := range batch {
		out[i] = *j
	}
	return out, nil
}

// Job returns a processed job by id.
func (s *Service) Job(id string) (jobs.Job, bool) {
	return s.registry.Get(id)
}

// Jobs returns the retained jobs, oldest first.
func (s *Service) Jobs() []jobs.Job {
	return s.registry.List()
}

func (s *Service) summarizeJob(ctx context.Context, j *jobs.Job) (any, error) {
	return s.Summarize(ctx, j.Document, j.BlockID)
}

func (s *Service) extractJob(ctx context.Context, j *jobs.Job) (any, error) {
	res, err := s.ExtractBlock(ctx, j.Document, j.BlockID, s.extractOptions)
	if err != nil {
		return nil, err
	}
	return res.Path, nil
}

// jobSettled runs on processor goroutines.
func (s *Service) jobSettled(j *jobs.Job) {
	s.metrics.JobSettled(string(j.Type), string(j.Status))
	t := events.JobCompleted
	if j.Status == jobs.Failed {
		t = events.JobFailed
		s.logger.Warn("job failed",
			slog.String("job_id", j.ID), slog.String("type", string(j.Type)),
			slog.String("block_id", j.BlockID), slog.String("error", j.Error))
	}
	s.emit(t, j.Document, j.BlockID, map[string]string{"job_id": j.ID, "type": string(j.Type), "status": string(j.Status)})
}

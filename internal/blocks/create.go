package blocks

import (
	"slices"
	"strings"

	"github.com/starford/smartblock/internal/models"
)

// CreateOptions are the optional fields of a new block.
type CreateOptions struct {
	ID          string
	Type        models.BlockType
	Title       string
	Tags        []string
	Reorderable *bool
}

// Update lists the fields to change on an existing block. Nil fields are left alone.
type Update struct {
	Type        *models.BlockType `json:"type,omitempty"`
	Title       *string           `json:"title,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Reorderable *bool             `json:"reorderable,omitempty"`
	Content     *string           `json:"content,omitempty"`
}

// Create builds a new block from content. The block has no LineRange until it
// is written into a document. An invalid result is returned as *ValidationError.
func (e *Engine) Create(content string, opts CreateOptions) (models.Block, error) {
	b := models.Block{
		ID:          opts.ID,
		Type:        opts.Type,
		Title:       opts.Title,
		Tags:        normalizeTags(opts.Tags),
		Reorderable: e.defaultReorderable,
		Content:     content,
	}
	if b.ID == "" {
		b.ID = e.newID()
	}
	if b.Type == "" {
		b.Type = models.TypeNote
	}
	if opts.Reorderable != nil {
		b.Reorderable = *opts.Reorderable
	}
	b.ContentHash = e.hash(b.Content)
	if err := e.check(b); err != nil {
		return models.Block{}, err
	}
	return b, nil
}

// Update applies u to a copy of b, recomputing the hash when content changes.
func (e *Engine) Update(b models.Block, u Update) (models.Block, error) {
	out := b
	out.Tags = slices.Clone(b.Tags)
	if u.Type != nil {
		out.Type = *u.Type
	}
	if u.Title != nil {
		out.Title = *u.Title
	}
	if u.Tags != nil {
		out.Tags = normalizeTags(u.Tags)
	}
	if u.Reorderable != nil {
		out.Reorderable = *u.Reorderable
	}
	if u.Content != nil && *u.Content != b.Content {
		out.Content = *u.Content
		out.ContentHash = e.hash(out.Content)
	}
	if err := e.check(out); err != nil {
		return models.Block{}, err
	}
	return out, nil
}

// normalizeTags trims tags and drops empty ones. Order and duplicates are kept.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

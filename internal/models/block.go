// Package models defines the domain types for smartblock.
package models

import "time"

// BlockType is one entry of the closed block vocabulary.
type BlockType string

// Default vocabulary.
const (
	TypeSummary    BlockType = "summary"
	TypeZettel     BlockType = "zettel"
	TypeQuote      BlockType = "quote"
	TypeArgument   BlockType = "argument"
	TypeDefinition BlockType = "definition"
	TypeExample    BlockType = "example"
	TypeQuestion   BlockType = "question"
	TypeInsight    BlockType = "insight"
	TypeTodo       BlockType = "todo"
	TypeNote       BlockType = "note"
)

// DefaultTypes returns the built-in block vocabulary.
func DefaultTypes() []string {
	return []string{
		string(TypeSummary), string(TypeZettel), string(TypeQuote), string(TypeArgument),
		string(TypeDefinition), string(TypeExample), string(TypeQuestion), string(TypeInsight),
		string(TypeTodo), string(TypeNote),
	}
}

// LineRange is a 1-indexed inclusive span of document lines. It is only valid
// against the text it was computed from.
type LineRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// IsZero reports whether the range was never set.
func (r LineRange) IsZero() bool {
	return r.Start == 0 && r.End == 0
}

// Block is an addressable unit of a markdown document bounded by markers.
type Block struct {
	ID          string            `json:"id"`
	Type        BlockType         `json:"type"`
	Title       string            `json:"title,omitempty"`
	Tags        []string          `json:"tags"`
	Reorderable bool              `json:"reorderable"`
	Content     string            `json:"content"`
	ContentHash string            `json:"content_hash"`
	LineRange   LineRange         `json:"line_range"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

// SidecarVersion is the schema version written into every sidecar file.
const SidecarVersion = "1.0.0"

// SidecarMetadata holds derived data for one document, keyed by block id.
type SidecarMetadata struct {
	Version     string                    `json:"version"`
	LastUpdated time.Time                 `json:"lastUpdated"`
	Blocks      map[string]*BlockMetadata `json:"blocks"`
}

// NewSidecarMetadata returns an empty sidecar at the current schema version.
func NewSidecarMetadata() *SidecarMetadata {
	return &SidecarMetadata{
		Version: SidecarVersion,
		Blocks:  make(map[string]*BlockMetadata),
	}
}

// Block returns the metadata for id, or nil.
func (m *SidecarMetadata) Block(id string) *BlockMetadata {
	if m == nil {
		return nil
	}
	return m.Blocks[id]
}

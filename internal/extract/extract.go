// Package extract turns a single block into a standalone note.
package extract

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/starford/smartblock/internal/document"
	"github.com/starford/smartblock/internal/models"
)

// TitleRunes is the length of a title derived from content.
const TitleRunes = 50

// Options control what is carried from the source block.
type Options struct {
	InheritTags        bool   `json:"inherit_tags"`
	AddSourceReference bool   `json:"add_source_reference"`
	CreateBacklink     bool   `json:"create_backlink"`
	SourceDocument     string `json:"source_document,omitempty"`
	// Now stamps the note; zero means time.Now.
	Now time.Time `json:"-"`
}

// Document is a note derived from one block. It is not yet written anywhere.
type Document struct {
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	Tags           []string  `json:"tags"`
	SourceBlockID  string    `json:"source_block"`
	SourceDocument string    `json:"source_document,omitempty"`
	Created        time.Time `json:"created"`
}

// Extract builds the new document. b is not modified.
func Extract(b models.Block, opts Options) Document {
	created := opts.Now
	if created.IsZero() {
		created = time.Now().UTC()
	}
	doc := Document{
		Title:          Title(b),
		Tags:           []string{},
		SourceBlockID:  b.ID,
		SourceDocument: opts.SourceDocument,
		Created:        created,
	}
	if opts.InheritTags {
		doc.Tags = slices.Clone(b.Tags)
	}

	var body strings.Builder
	if opts.AddSourceReference {
		fmt.Fprintf(&body, "> Extracted from block %s\n\n", b.ID)
	}
	body.WriteString(b.Content)
	if opts.CreateBacklink && opts.SourceDocument != "" {
		fmt.Fprintf(&body, "\n\n## Related\n\n- [[%s]]", document.Stem(opts.SourceDocument))
	}
	doc.Content = body.String()
	return doc
}

// Title returns the block title, or the start of its content on one line.
func Title(b models.Block) string {
	if t := strings.TrimSpace(b.Title); t != "" {
		return t
	}
	flat := strings.Join(strings.Fields(b.Content), " ")
	runes := []rune(flat)
	if len(runes) <= TitleRunes {
		return flat
	}
	return strings.TrimSpace(string(runes[:TitleRunes])) + "..."
}

// Render returns the note file: frontmatter followed by the body.
func (d Document) Render() ([]byte, error) {
	fields := []document.Field{
		{Key: "title", Value: d.Title},
		{Key: "tags", Value: d.Tags},
		{Key: "source_block", Value: d.SourceBlockID},
	}
	if d.SourceDocument != "" {
		fields = append(fields, document.Field{Key: "source_document", Value: d.SourceDocument})
	}
	fields = append(fields, document.Field{Key: "created", Value: d.Created.UTC().Format(time.RFC3339)})
	return document.Compose(fields, d.Content)
}

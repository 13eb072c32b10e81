// Package query filters and sorts an in-memory block list joined with its
// sidecar metadata.
package query

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/starford/smartblock/internal/models"
)

// Criteria is a conjunction of predicates. Zero-valued fields match everything.
type Criteria struct {
	Types         []models.BlockType
	Tags          []string // any-of
	Reorderable   *bool
	HasSummary    *bool
	HasExtraction *bool
	Text          string // case-insensitive substring of content, title or tags
}

// Field names a sort key.
type Field string

const (
	ByPosition Field = "position"
	ByType     Field = "type"
	ByTitle    Field = "title"
	ByCreated  Field = "created"
	ByUpdated  Field = "updated"
	ByLength   Field = "length"
)

// Direction is the sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseField validates a sort key. Empty means position.
func ParseField(s string) (Field, error) {
	switch f := Field(s); f {
	case "":
		return ByPosition, nil
	case ByPosition, ByType, ByTitle, ByCreated, ByUpdated, ByLength:
		return f, nil
	default:
		return "", fmt.Errorf("query: unknown sort field %q", s)
	}
}

// ParseDirection validates a direction. Empty means ascending.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToLower(s)); d {
	case "":
		return Asc, nil
	case Asc, Desc:
		return d, nil
	default:
		return "", fmt.Errorf("query: unknown sort direction %q", s)
	}
}

// Filter returns the blocks matching every predicate in c, in input order.
func Filter(blocks []models.Block, meta *models.SidecarMetadata, c Criteria) []models.Block {
	text := strings.ToLower(c.Text)
	out := make([]models.Block, 0, len(blocks))
	for _, b := range blocks {
		if len(c.Types) > 0 && !slices.Contains(c.Types, b.Type) {
			continue
		}
		if len(c.Tags) > 0 && !slices.ContainsFunc(b.Tags, func(t string) bool { return slices.Contains(c.Tags, t) }) {
			continue
		}
		if c.Reorderable != nil && b.Reorderable != *c.Reorderable {
			continue
		}
		m := meta.Block(b.ID)
		if c.HasSummary != nil && (m != nil && m.AISummary != "") != *c.HasSummary {
			continue
		}
		if c.HasExtraction != nil && (m != nil && m.ExtractedTo != "") != *c.HasExtraction {
			continue
		}
		if text != "" && !matchesText(b, text) {
			continue
		}
		out = append(out, b)
	}
	return out
}

func matchesText(b models.Block, lowered string) bool {
	if strings.Contains(strings.ToLower(b.Content), lowered) || strings.Contains(strings.ToLower(b.Title), lowered) {
		return true
	}
	return slices.ContainsFunc(b.Tags, func(t string) bool {
		return strings.Contains(strings.ToLower(t), lowered)
	})
}

// Sort returns a sorted copy of blocks. Equal keys keep their relative order
// in both directions.
func Sort(blocks []models.Block, meta *models.SidecarMetadata, field Field, dir Direction) []models.Block {
	out := slices.Clone(blocks)
	key := comparator(meta, field)
	slices.SortStableFunc(out, func(a, b models.Block) int {
		if dir == Desc {
			return key(b, a)
		}
		return key(a, b)
	})
	return out
}

func comparator(meta *models.SidecarMetadata, field Field) func(a, b models.Block) int {
	stamp := func(id string, pick func(*models.BlockMetadata) time.Time) time.Time {
		if m := meta.Block(id); m != nil {
			return pick(m)
		}
		return time.Time{}
	}
	switch field {
	case ByType:
		return func(a, b models.Block) int { return cmp.Compare(a.Type, b.Type) }
	case ByTitle:
		return func(a, b models.Block) int { return cmp.Compare(a.Title, b.Title) }
	case ByCreated:
		created := func(m *models.BlockMetadata) time.Time { return m.CreatedAt }
		return func(a, b models.Block) int { return stamp(a.ID, created).Compare(stamp(b.ID, created)) }
	case ByUpdated:
		updated := func(m *models.BlockMetadata) time.Time { return m.UpdatedAt }
		return func(a, b models.Block) int { return stamp(a.ID, updated).Compare(stamp(b.ID, updated)) }
	case ByLength:
		return func(a, b models.Block) int {
			return cmp.Compare(utf8.RuneCountInString(a.Content), utf8.RuneCountInString(b.Content))
		}
	default:
		return func(a, b models.Block) int { return cmp.Compare(a.LineRange.Start, b.LineRange.Start) }
	}
}

package blocks

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/smartblock/internal/models"
)

// WarningKind classifies non-fatal parse anomalies.
type WarningKind string

const (
	// WarningOrphaned marks a start marker that was never closed.
	WarningOrphaned WarningKind = "orphaned"
	// WarningNested marks a start marker found inside an open block.
	WarningNested WarningKind = "nested"
)

// Warning is a diagnostic produced while parsing. It never aborts a parse.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	BlockID string      `json:"block_id"`
	Line    int         `json:"line"`
	Message string      `json:"message"`
}

// ParseResult is the output of Parse.
type ParseResult struct {
	Blocks   []models.Block
	Warnings []Warning
}

// parserState is either idle (open == nil) or holding one open block.
type parserState struct {
	open     *models.Block
	openLine int
}

func (s *parserState) idle() bool { return s.open == nil }

// Parse scans text for block markers and returns the valid blocks in document
// order. Orphaned and nested markers produce warnings; invalid blocks are
// dropped without a warning.
func (e *Engine) Parse(text string) *ParseResult {
	res := &ParseResult{Blocks: []models.Block{}}
	if text == "" {
		return res
	}
	lines := splitLines(text)

	var st parserState
	for i, line := range lines {
		lineNo := i + 1

		if mk, ok := parseStartMarker(line); ok {
			if !st.idle() {
				w := Warning{
					Kind:    WarningNested,
					BlockID: mk.id,
					Line:    lineNo,
					Message: fmt.Sprintf("nested block %q inside open block %q ignored", mk.id, st.open.ID),
				}
				res.Warnings = append(res.Warnings, w)
				e.logger.Warn("blocks: nested start marker ignored",
					slog.String("block_id", mk.id),
					slog.String("open_block_id", st.open.ID),
					slog.Int("line", lineNo))
				continue
			}
			st.open = e.blockFromMarker(mk)
			st.openLine = lineNo
			continue
		}

		if isEndMarker(line) {
			if st.idle() {
				continue
			}
			b := *st.open
			b.Content = strings.Join(lines[st.openLine:i], "\n")
			b.ContentHash = e.hash(b.Content)
			b.LineRange = models.LineRange{Start: st.openLine, End: lineNo}
			st = parserState{}

			if v := e.Validate(b); !v.IsValid {
				e.logger.Debug("blocks: invalid block dropped",
					slog.String("block_id", b.ID),
					slog.Int("line", b.LineRange.Start),
					slog.String("errors", strings.Join(v.Errors, "; ")))
				continue
			}
			if len(b.Attributes) > 0 {
				e.logger.Debug("blocks: unrecognized attributes kept",
					slog.String("block_id", b.ID),
					slog.String("keys", strings.Join(sortedKeys(b.Attributes), ",")))
			}
			res.Blocks = append(res.Blocks, b)
		}
	}

	if !st.idle() {
		res.Warnings = append(res.Warnings, Warning{
			Kind:    WarningOrphaned,
			BlockID: st.open.ID,
			Line:    st.openLine,
			Message: fmt.Sprintf("block %q has no closing marker", st.open.ID),
		})
		e.logger.Warn("blocks: orphaned block discarded",
			slog.String("block_id", st.open.ID),
			slog.Int("line", st.openLine))
	}
	return res
}

// ParseBlocks is Parse without the diagnostics.
func (e *Engine) ParseBlocks(text string) []models.Block {
	return e.Parse(text).Blocks
}

func (e *Engine) blockFromMarker(mk marker) *models.Block {
	b := &models.Block{
		ID:          mk.id,
		Type:        models.BlockType(mk.typ),
		Title:       mk.title,
		Tags:        mk.tags,
		Reorderable: e.defaultReorderable,
		Attributes:  mk.extra,
	}
	if b.Type == "" {
		b.Type = models.TypeNote
	}
	if b.Tags == nil {
		b.Tags = []string{}
	}
	if mk.reorderable != nil {
		b.Reorderable = *mk.reorderable
	}
	return b
}

func splitLines(text string) []string {
	return strings.Split(text, "\n")
}

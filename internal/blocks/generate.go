package blocks

import (
	"fmt"
	"slices"
	"strings"

	"github.com/starford/smartblock/internal/apperr"
	"github.com/starford/smartblock/internal/models"
)

// Generate writes fresh markers for every block into text and returns the new
// document. Each LineRange must be valid against text as given.
//
// A range whose first and last lines are already start/end markers (as
// returned by Parse) is rewritten in place from the block's fields and
// content. Any other range is treated as plain content and wrapped: the end
// marker goes after End, then the start marker goes before Start.
//
// Blocks are spliced bottom-up. Every splice shifts the lines below it, so
// working from the last block upwards is what keeps the remaining ranges
// pointing at the right lines.
func (e *Engine) Generate(text string, blocks []models.Block) (string, error) {
	lines := splitLines(text)
	ordered, err := descending(lines, blocks)
	if err != nil {
		return "", err
	}
	for _, b := range ordered {
		lines = e.splice(lines, b)
	}
	return strings.Join(lines, "\n"), nil
}

// Reorder moves block segments so that slot i receives blocks[order[i]].
// blocks must carry marked ranges from a Parse of text. Text between blocks
// stays where it is.
func (e *Engine) Reorder(text string, blocks []models.Block, order []int) (string, error) {
	if err := checkPermutation(order, len(blocks)); err != nil {
		return "", err
	}
	lines := splitLines(text)
	if _, err := descending(lines, blocks); err != nil {
		return "", err
	}

	segments := make([][]string, len(blocks))
	for i, b := range blocks {
		if !isMarkedSpan(lines, b.LineRange) {
			return "", rangeError(b, "not a marked block")
		}
		segments[i] = slices.Clone(lines[b.LineRange.Start-1 : b.LineRange.End])
	}

	slots := make([]int, len(blocks))
	for i := range slots {
		slots[i] = i
	}
	slices.SortStableFunc(slots, func(a, b int) int {
		return blocks[b].LineRange.Start - blocks[a].LineRange.Start
	})
	for _, slot := range slots {
		r := blocks[slot].LineRange
		lines = replaceLines(lines, r.Start-1, r.End, segments[order[slot]])
	}
	return strings.Join(lines, "\n"), nil
}

// Remove deletes b from text. With keepContent only the two marker lines go
// and the content stays in the document as plain text.
func (e *Engine) Remove(text string, b models.Block, keepContent bool) (string, error) {
	lines := splitLines(text)
	if _, err := descending(lines, []models.Block{b}); err != nil {
		return "", err
	}
	if !isMarkedSpan(lines, b.LineRange) {
		return "", rangeError(b, "not a marked block")
	}
	s, end := b.LineRange.Start-1, b.LineRange.End-1
	if keepContent {
		lines = replaceLines(lines, end, end+1, nil)
		lines = replaceLines(lines, s, s+1, nil)
	} else {
		lines = replaceLines(lines, s, end+1, nil)
	}
	return strings.Join(lines, "\n"), nil
}

// splice applies a single block to lines.
func (e *Engine) splice(lines []string, b models.Block) []string {
	r := b.LineRange
	if isMarkedSpan(lines, r) {
		seg := make([]string, 0, 2+strings.Count(b.Content, "\n")+1)
		seg = append(seg, e.StartMarker(b))
		seg = append(seg, splitLines(b.Content)...)
		seg = append(seg, EndMarker)
		return replaceLines(lines, r.Start-1, r.End, seg)
	}
	lines = replaceLines(lines, r.End, r.End, []string{EndMarker})
	return replaceLines(lines, r.Start-1, r.Start-1, []string{e.StartMarker(b)})
}

// descending validates ranges against lines and returns the blocks ordered by
// start line, last block first.
func descending(lines []string, blocks []models.Block) ([]models.Block, error) {
	ordered := slices.Clone(blocks)
	slices.SortStableFunc(ordered, func(a, b models.Block) int {
		return b.LineRange.Start - a.LineRange.Start
	})
	for i, b := range ordered {
		r := b.LineRange
		if r.Start < 1 || r.End < r.Start || r.End > len(lines) {
			return nil, rangeError(b, fmt.Sprintf("out of bounds for %d lines", len(lines)))
		}
		if i > 0 && r.End >= ordered[i-1].LineRange.Start {
			return nil, rangeError(b, fmt.Sprintf("overlaps block %q", ordered[i-1].ID))
		}
	}
	return ordered, nil
}

func isMarkedSpan(lines []string, r models.LineRange) bool {
	if r.End <= r.Start {
		return false
	}
	if _, ok := parseStartMarker(lines[r.Start-1]); !ok {
		return false
	}
	return isEndMarker(lines[r.End-1])
}

func replaceLines(lines []string, from, to int, repl []string) []string {
	out := make([]string, 0, len(lines)-(to-from)+len(repl))
	out = append(out, lines[:from]...)
	out = append(out, repl...)
	return append(out, lines[to:]...)
}

func checkPermutation(order []int, n int) error {
	if len(order) != n {
		return fmt.Errorf("blocks: order has %d entries, want %d: %w", len(order), n, apperr.ErrInvalidRange)
	}
	seen := make([]bool, n)
	for _, idx := range order {
		if idx < 0 || idx >= n || seen[idx] {
			return fmt.Errorf("blocks: order %v is not a permutation of 0..%d: %w", order, n-1, apperr.ErrInvalidRange)
		}
		seen[idx] = true
	}
	return nil
}

func rangeError(b models.Block, reason string) error {
	return fmt.Errorf("blocks: block %q range [%d,%d] %s: %w",
		b.ID, b.LineRange.Start, b.LineRange.End, reason, apperr.ErrInvalidRange)
}

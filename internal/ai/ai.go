// Package ai holds the language-model collaborators used for block
// summaries and reorder scoring.
package ai

import (
	"context"
	"strings"

	"github.com/starford/smartblock/internal/models"
)

// Summarizer produces a short summary of a block.
type Summarizer interface {
	Summarize(ctx context.Context, b models.Block) (string, error)
}

// Truncate is the offline Summarizer: the first MaxRunes of the content on
// one line.
type Truncate struct {
	MaxRunes int
}

// Summarize implements Summarizer.
func (t Truncate) Summarize(_ context.Context, b models.Block) (string, error) {
	n := t.MaxRunes
	if n <= 0 {
		n = 200
	}
	flat := strings.Join(strings.Fields(b.Content), " ")
	r := []rune(flat)
	if len(r) <= n {
		return flat, nil
	}
	return strings.TrimSpace(string(r[:n])) + "...", nil
}

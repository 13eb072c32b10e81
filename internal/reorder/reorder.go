// Package reorder proposes a new order for the reorderable blocks of a
// document without ever moving the others.
package reorder

import (
	"context"
	"fmt"

	"github.com/starford/smartblock/internal/apperr"
	"github.com/starford/smartblock/internal/models"
)

// Options are passed through to the scorer.
type Options struct {
	// Strategy is a free-form hint such as "logical" or "chronological".
	Strategy string `json:"strategy,omitempty"`
	// Goal describes the intended reading order in plain words.
	Goal string `json:"goal,omitempty"`
}

// ScoreFunc orders blocks. It must return a permutation of 0..len(blocks)-1
// where result[i] is the index of the block that should come i-th.
type ScoreFunc func(ctx context.Context, blocks []models.Block, opts Options) ([]int, error)

// Identity keeps the current order.
func Identity(_ context.Context, blocks []models.Block, _ Options) ([]int, error) {
	return identity(len(blocks)), nil
}

// Advisor suggests reorderings using a ScoreFunc.
type Advisor struct {
	score ScoreFunc
}

// NewAdvisor returns an Advisor. A nil score falls back to Identity.
func NewAdvisor(score ScoreFunc) *Advisor {
	if score == nil {
		score = Identity
	}
	return &Advisor{score: score}
}

// Suggest returns result where result[i] is the index into blocks of the
// block that should occupy position i. Non-reorderable blocks always map to
// their own position; only the reorderable subset is permuted among the
// slots it already holds.
func (a *Advisor) Suggest(ctx context.Context, blocks []models.Block, opts Options) ([]int, error) {
	var slots []int
	var subset []models.Block
	for i, b := range blocks {
		if b.Reorderable {
			slots = append(slots, i)
			subset = append(subset, b)
		}
	}
	out := identity(len(blocks))
	if len(subset) < 2 {
		return out, nil
	}

	perm, err := a.score(ctx, subset, opts)
	if err != nil {
		return nil, fmt.Errorf("reorder: score: %w", err)
	}
	if err := checkPermutation(perm, len(subset)); err != nil {
		return nil, err
	}
	for k, p := range perm {
		out[slots[k]] = slots[p]
	}
	return out, nil
}

// Apply returns blocks rearranged by order as produced by Suggest.
func Apply(blocks []models.Block, order []int) ([]models.Block, error) {
	if err := checkPermutation(order, len(blocks)); err != nil {
		return nil, err
	}
	out := make([]models.Block, len(blocks))
	for i, idx := range order {
		out[i] = blocks[idx]
	}
	return out, nil
}

func identity(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func checkPermutation(perm []int, n int) error {
	if len(perm) != n {
		return fmt.Errorf("reorder: scorer returned %d positions for %d blocks: %w", len(perm), n, apperr.ErrInvalidRange)
	}
	seen := make([]bool, n)
	for _, p := range perm {
		if p < 0 || p >= n || seen[p] {
			return fmt.Errorf("reorder: %v is not a permutation of 0..%d: %w", perm, n-1, apperr.ErrInvalidRange)
		}
		seen[p] = true
	}
	return nil
}

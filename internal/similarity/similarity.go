// Package similarity scores blocks against each other by word overlap.
package similarity

import (
	"cmp"
	"slices"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/starford/smartblock/internal/models"
)

// Threshold is the minimum score, exclusive, for a candidate to be reported.
const Threshold = 0.3

// MatchContent is the only match type produced today.
const MatchContent = "content"

// Match is one similar block found by FindSimilar.
type Match struct {
	Block     models.Block `json:"block"`
	Score     float64      `json:"score"`
	MatchType string       `json:"match_type"`
}

// Score returns the Jaccard index of the lower-cased whitespace-separated
// word sets of a and b. It is 0 when either side has no words.
func Score(a, b string) float64 {
	wa, wb := words(a), words(b)
	if wa.Cardinality() == 0 || wb.Cardinality() == 0 {
		return 0
	}
	inter := wa.Intersect(wb).Cardinality()
	union := wa.Union(wb).Cardinality()
	return float64(inter) / float64(union)
}

// FindSimilar scores block against every corpus entry with a different id and
// returns those above Threshold, best first. Ties keep corpus order.
func FindSimilar(block models.Block, corpus []models.Block) []Match {
	out := []Match{}
	for _, c := range corpus {
		if c.ID == block.ID {
			continue
		}
		if s := Score(block.Content, c.Content); s > Threshold {
			out = append(out, Match{Block: c, Score: s, MatchType: MatchContent})
		}
	}
	slices.SortStableFunc(out, func(x, y Match) int {
		return cmp.Compare(y.Score, x.Score)
	})
	return out
}

func words(s string) mapset.Set[string] {
	set := mapset.NewThreadUnsafeSet[string]()
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set.Add(w)
	}
	return set
}

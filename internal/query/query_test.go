package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/smartblock/internal/models"
)

func ptr[T any](v T) *T { return &v }

func fixture() ([]models.Block, *models.SidecarMetadata) {
	blocks := []models.Block{
		{ID: "q", Type: models.TypeQuestion, Title: "Why", Tags: []string{"open"}, Content: "Why does it rain?", LineRange: models.LineRange{Start: 10, End: 12}},
		{ID: "n", Type: models.TypeNote, Title: "Weather", Tags: []string{"Meteo"}, Reorderable: true, Content: "Clouds form.", LineRange: models.LineRange{Start: 1, End: 3}},
		{ID: "i", Type: models.TypeInsight, Tags: []string{}, Reorderable: true, Content: "Rain is condensed vapor, eventually.", LineRange: models.LineRange{Start: 5, End: 7}},
		{ID: "x", Type: models.TypeNote, Content: "No position yet"},
	}
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	meta := models.NewSidecarMetadata()
	meta.Blocks["q"] = &models.BlockMetadata{AISummary: "rain question", CreatedAt: t0.Add(2 * time.Hour), UpdatedAt: t0}
	meta.Blocks["n"] = &models.BlockMetadata{ExtractedTo: "extracted/weather.md", CreatedAt: t0, UpdatedAt: t0.Add(time.Hour)}
	return blocks, meta
}

func ids(blocks []models.Block) []string {
	out := make([]string, len(blocks))
	for i, b := range blocks {
		out[i] = b.ID
	}
	return out
}

func TestFilter(t *testing.T) {
	blocks, meta := fixture()
	cases := []struct {
		name string
		c    Criteria
		want []string
	}{
		{"empty matches all", Criteria{}, []string{"q", "n", "i", "x"}},
		{"types", Criteria{Types: []models.BlockType{models.TypeNote}}, []string{"n", "x"}},
		{"tags any-of", Criteria{Tags: []string{"open", "Meteo"}}, []string{"q", "n"}},
		{"reorderable", Criteria{Reorderable: ptr(true)}, []string{"n", "i"}},
		{"has summary", Criteria{HasSummary: ptr(true)}, []string{"q"}},
		{"no summary", Criteria{HasSummary: ptr(false)}, []string{"n", "i", "x"}},
		{"has extraction", Criteria{HasExtraction: ptr(true)}, []string{"n"}},
		{"text in content", Criteria{Text: "RAIN"}, []string{"q", "i"}},
		{"text in title", Criteria{Text: "weather"}, []string{"n"}},
		{"text in tags", Criteria{Text: "meteo"}, []string{"n"}},
		{"conjunction", Criteria{Types: []models.BlockType{models.TypeNote, models.TypeInsight}, Reorderable: ptr(true), Text: "rain"}, []string{"i"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ids(Filter(blocks, meta, tc.c)))
		})
	}
}

func TestFilter_NilSidecar(t *testing.T) {
	blocks, _ := fixture()
	assert.Empty(t, Filter(blocks, nil, Criteria{HasSummary: ptr(true)}))
	assert.Len(t, Filter(blocks, nil, Criteria{HasExtraction: ptr(false)}), 4)
}

func TestSort(t *testing.T) {
	blocks, meta := fixture()
	cases := []struct {
		field Field
		dir   Direction
		want  []string
	}{
		{ByPosition, Asc, []string{"x", "n", "i", "q"}},
		{ByPosition, Desc, []string{"q", "i", "n", "x"}},
		{ByType, Asc, []string{"i", "n", "x", "q"}},
		{ByType, Desc, []string{"q", "n", "x", "i"}},
		{ByTitle, Asc, []string{"i", "x", "n", "q"}},
		{ByCreated, Asc, []string{"i", "x", "n", "q"}},
		{ByUpdated, Desc, []string{"n", "q", "i", "x"}},
		{ByLength, Asc, []string{"n", "x", "q", "i"}},
	}
	for _, tc := range cases {
		t.Run(string(tc.field)+"_"+string(tc.dir), func(t *testing.T) {
			assert.Equal(t, tc.want, ids(Sort(blocks, meta, tc.field, tc.dir)))
		})
	}
	assert.Equal(t, []string{"q", "n", "i", "x"}, ids(blocks), "input must not be reordered")
}

func TestParseFieldAndDirection(t *testing.T) {
	f, err := ParseField("")
	require.NoError(t, err)
	assert.Equal(t, ByPosition, f)
	_, err = ParseField("color")
	assert.Error(t, err)

	d, err := ParseDirection("DESC")
	require.NoError(t, err)
	assert.Equal(t, Desc, d)
	_, err = ParseDirection("sideways")
	assert.Error(t, err)
}

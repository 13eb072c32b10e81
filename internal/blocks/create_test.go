package blocks

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/smartblock/internal/apperr"
	"github.com/starford/smartblock/internal/models"
)

func TestCreate_Defaults(t *testing.T) {
	e := New(WithIDGenerator(func() string { return "gen-1" }))
	b, err := e.Create("Freshly written content", CreateOptions{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if b.ID != "gen-1" || b.Type != models.TypeNote || b.Reorderable {
		t.Errorf("block = %+v", b)
	}
	if b.Tags == nil {
		t.Error("tags should be an empty slice")
	}
	if b.ContentHash != e.Hash("Freshly written content") {
		t.Errorf("hash = %q", b.ContentHash)
	}
	if !b.LineRange.IsZero() {
		t.Errorf("new block should have no line range: %+v", b.LineRange)
	}
}

func TestCreate_GeneratedIDsAreValid(t *testing.T) {
	e := New()
	seen := map[string]bool{}
	for range 50 {
		b, err := e.Create("content that validates", CreateOptions{})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if !blockIDRe.MatchString(b.ID) {
			t.Fatalf("generated id %q fails charset", b.ID)
		}
		if seen[b.ID] {
			t.Fatalf("duplicate generated id %q", b.ID)
		}
		seen[b.ID] = true
	}
}

func TestCreate_InvalidEscalates(t *testing.T) {
	_, err := New().Create("short", CreateOptions{ID: "tiny"})
	if !errors.Is(err, apperr.ErrInvalidBlock) {
		t.Fatalf("err = %v, want ErrInvalidBlock", err)
	}
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.BlockID != "tiny" {
		t.Errorf("err = %#v", err)
	}
}

func TestCreate_Options(t *testing.T) {
	yes := true
	b, err := New().Create("A definition of terms", CreateOptions{
		ID:          "def-1",
		Type:        models.TypeDefinition,
		Title:       "Terms",
		Tags:        []string{" glossary ", "", "glossary"},
		Reorderable: &yes,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if b.Type != models.TypeDefinition || b.Title != "Terms" || !b.Reorderable {
		t.Errorf("block = %+v", b)
	}
	if len(b.Tags) != 2 || b.Tags[0] != "glossary" || b.Tags[1] != "glossary" {
		t.Errorf("tags = %v, want duplicates kept", b.Tags)
	}
}

func TestUpdate_RecomputesHash(t *testing.T) {
	e := New()
	b, err := e.Create("original content", CreateOptions{ID: "u1"})
	if err != nil {
		t.Fatal(err)
	}
	content := "replacement content"
	title := "Retitled"
	updated, err := e.Update(b, Update{Content: &content, Title: &title})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.ContentHash == b.ContentHash || updated.ContentHash != e.Hash(content) {
		t.Errorf("hash not recomputed: %q -> %q", b.ContentHash, updated.ContentHash)
	}
	if updated.Title != "Retitled" || b.Title != "" {
		t.Errorf("update should not mutate the original: %+v / %+v", b, updated)
	}
}

func TestUpdate_InvalidRejected(t *testing.T) {
	e := New()
	b, _ := e.Create("original content", CreateOptions{ID: "u2"})
	bad := models.BlockType("nope")
	if _, err := e.Update(b, Update{Type: &bad}); !errors.Is(err, apperr.ErrInvalidBlock) {
		t.Errorf("err = %v, want ErrInvalidBlock", err)
	}
}

func TestCreate_RejectsTagsThatSplitInMarker(t *testing.T) {
	e := New()
	for _, tag := range []string{"machine learning", "a,b", "tab\there"} {
		_, err := e.Create("some content here", CreateOptions{ID: "b1", Tags: []string{tag, "x"}})
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("tag %q: err = %v, want ValidationError", tag, err)
		}
		if !strings.Contains(strings.Join(verr.Errors, "|"), strconv.Quote(tag)) {
			t.Errorf("tag %q: errors = %v, want the tag named", tag, verr.Errors)
		}
	}
}

func TestCreate_TagsRoundTrip(t *testing.T) {
	e := New()
	b, err := e.Create("some content here", CreateOptions{ID: "b1", Tags: []string{"machine-learning", "ml_2"}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	b.LineRange = models.LineRange{Start: 1, End: 1}
	doc, err := e.Generate(b.Content, []models.Block{b})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	parsed := e.ParseBlocks(doc)
	if len(parsed) != 1 {
		t.Fatalf("parsed %d blocks from:\n%s", len(parsed), doc)
	}
	if diff := cmp.Diff(b.Tags, parsed[0].Tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
	if len(parsed[0].Attributes) != 0 {
		t.Errorf("unexpected attributes %v", parsed[0].Attributes)
	}
}

func TestCreate_RejectsMarkerLinesInContent(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{"end marker", "first line here\n<!-- /block -->\ntail text", `block "b2" content line 2 is an end marker`},
		{"indented end marker", "first line here\n  <!-- /block -->  ", `block "b2" content line 2 is an end marker`},
		{"start marker", "<!-- block:id=inner type=note -->\nfirst line here", `block "b2" content line 1 is a start marker`},
	}
	e := New()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.Create(tc.content, CreateOptions{ID: "b2"})
			if !errors.Is(err, apperr.ErrInvalidBlock) {
				t.Fatalf("err = %v, want ErrInvalidBlock", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("err = %v, want %q", err, tc.want)
			}
		})
	}
}

func TestUpdate_RejectsEndMarkerInContent(t *testing.T) {
	e := New()
	b, err := e.Create("original content", CreateOptions{ID: "u3"})
	if err != nil {
		t.Fatal(err)
	}
	content := "kept text\n<!-- /block -->\nspilled text"
	if _, err := e.Update(b, Update{Content: &content}); !errors.Is(err, apperr.ErrInvalidBlock) {
		t.Errorf("err = %v, want ErrInvalidBlock", err)
	}
}

package blocks

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/smartblock/internal/models"
)

func TestParse_SingleBlock(t *testing.T) {
	e := New()
	res := e.Parse("<!-- block:id=b1 type=note -->\nHello world\n<!-- /block -->")
	if len(res.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %+v", res.Warnings)
	}
	if len(res.Blocks) != 1 {
		t.Fatalf("len(blocks) = %d, want 1", len(res.Blocks))
	}
	b := res.Blocks[0]
	if b.ID != "b1" || b.Type != models.TypeNote || b.Content != "Hello world" {
		t.Errorf("block = %+v", b)
	}
	if b.Tags == nil || len(b.Tags) != 0 {
		t.Errorf("tags = %#v, want empty non-nil slice", b.Tags)
	}
	if b.LineRange != (models.LineRange{Start: 1, End: 3}) {
		t.Errorf("line range = %+v", b.LineRange)
	}
	if b.ContentHash != e.Hash("Hello world") {
		t.Errorf("hash = %q", b.ContentHash)
	}
}

func TestParse_EmptyDocument(t *testing.T) {
	res := New().Parse("")
	if len(res.Blocks) != 0 || len(res.Warnings) != 0 {
		t.Errorf("empty document parsed to %+v", res)
	}
}

func TestParse_OrphanedBlock(t *testing.T) {
	text := strings.Join([]string{
		"<!-- block:id=keep type=note -->",
		"This one is closed.",
		"<!-- /block -->",
		"<!-- block:id=x type=note -->",
		"never closed, runs to the end",
	}, "\n")
	res := New().Parse(text)

	for _, b := range res.Blocks {
		if b.ID == "x" {
			t.Fatal("orphaned block must not be returned")
		}
	}
	if len(res.Blocks) != 1 || res.Blocks[0].ID != "keep" {
		t.Errorf("blocks = %+v", res.Blocks)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("warnings = %+v, want exactly 1", res.Warnings)
	}
	w := res.Warnings[0]
	if w.Kind != WarningOrphaned || w.BlockID != "x" || w.Line != 4 {
		t.Errorf("warning = %+v", w)
	}
}

func TestParse_StrayEndMarkerIgnored(t *testing.T) {
	res := New().Parse("text\n<!-- /block -->\nmore text")
	if len(res.Blocks) != 0 || len(res.Warnings) != 0 {
		t.Errorf("stray end marker produced %+v", res)
	}
}

func TestParse_NestedStartRejected(t *testing.T) {
	text := strings.Join([]string{
		"<!-- block:id=outer type=note -->",
		"outer text before",
		"<!-- block:id=inner type=note -->",
		"inner text",
		"<!-- /block -->",
		"outer text after",
		"<!-- /block -->",
	}, "\n")
	res := New().Parse(text)

	if len(res.Blocks) != 1 {
		t.Fatalf("blocks = %+v, want only outer", res.Blocks)
	}
	outer := res.Blocks[0]
	if outer.ID != "outer" || outer.LineRange.End != 5 {
		t.Errorf("outer = %+v", outer)
	}
	if !strings.Contains(outer.Content, "block:id=inner") {
		t.Errorf("nested marker should stay in content, got %q", outer.Content)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Kind != WarningNested || res.Warnings[0].BlockID != "inner" {
		t.Errorf("warnings = %+v", res.Warnings)
	}
}

func TestParse_DuplicateIDsRetained(t *testing.T) {
	text := "<!-- block:id=dup type=note -->\nfirst copy text\n<!-- /block -->\n" +
		"<!-- block:id=dup type=quote -->\nsecond copy text\n<!-- /block -->"
	blocks := New().ParseBlocks(text)
	if len(blocks) != 2 {
		t.Fatalf("len = %d, want 2", len(blocks))
	}
	if blocks[0].Type != models.TypeNote || blocks[1].Type != models.TypeQuote {
		t.Errorf("types = %s, %s", blocks[0].Type, blocks[1].Type)
	}
}

func TestParse_InvalidBlockDroppedSilently(t *testing.T) {
	text := "<!-- block:id=short type=note -->\ntiny\n<!-- /block -->\n" +
		"<!-- block:id=bad type=bogus -->\nlong enough content\n<!-- /block -->\n" +
		"<!-- block:id=bad!id type=note -->\nlong enough content\n<!-- /block -->"
	res := New().Parse(text)
	if len(res.Blocks) != 0 {
		t.Errorf("blocks = %+v, want none", res.Blocks)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("invalid blocks must not warn: %+v", res.Warnings)
	}
}

func TestParse_Attributes(t *testing.T) {
	text := "<!-- block:title=My%20Title%3A%20part%201 tags=a,b,,c reorderable=true type=argument id=arg_1 color=red -->\n" +
		"An argument worth making.\n" +
		"<!-- /block -->"
	blocks := New().ParseBlocks(text)
	if len(blocks) != 1 {
		t.Fatalf("len = %d", len(blocks))
	}
	got := blocks[0]
	want := models.Block{
		ID:          "arg_1",
		Type:        models.TypeArgument,
		Title:       "My Title: part 1",
		Tags:        []string{"a", "b", "c"},
		Reorderable: true,
		Content:     "An argument worth making.",
		ContentHash: got.ContentHash,
		LineRange:   models.LineRange{Start: 1, End: 3},
		Attributes:  map[string]string{"color": "red"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("block mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_ReorderableValues(t *testing.T) {
	cases := []struct {
		name   string
		attr   string
		def    bool
		expect bool
	}{
		{"literal true", " reorderable=true", false, true},
		{"yes is false", " reorderable=yes", false, false},
		{"TRUE is false", " reorderable=TRUE", false, false},
		{"absent uses default false", "", false, false},
		{"absent uses default true", "", true, true},
		{"explicit false overrides default", " reorderable=false", true, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := New(WithDefaultReorderable(tc.def))
			text := "<!-- block:id=r type=note" + tc.attr + " -->\nsome content here\n<!-- /block -->"
			blocks := e.ParseBlocks(text)
			if len(blocks) != 1 {
				t.Fatalf("len = %d", len(blocks))
			}
			if blocks[0].Reorderable != tc.expect {
				t.Errorf("reorderable = %v, want %v", blocks[0].Reorderable, tc.expect)
			}
		})
	}
}

func TestParse_TypeDefaultsToNote(t *testing.T) {
	blocks := New().ParseBlocks("<!-- block:id=t -->\nuntyped block content\n<!-- /block -->")
	if len(blocks) != 1 || blocks[0].Type != models.TypeNote {
		t.Errorf("blocks = %+v", blocks)
	}
}

func TestParse_MarkersTolerateIndentation(t *testing.T) {
	text := "  <!--   block:id=ind type=note   -->  \nindented markers work\n\t<!-- /block -->\r"
	blocks := New().ParseBlocks(text)
	if len(blocks) != 1 || blocks[0].Content != "indented markers work" {
		t.Errorf("blocks = %+v", blocks)
	}
}

func TestParse_CustomVocabulary(t *testing.T) {
	e := New(WithTypes("claim", "evidence"))
	text := "<!-- block:id=c type=claim -->\nclaims need support\n<!-- /block -->\n" +
		"<!-- block:id=n type=note -->\nnote is not allowed here\n<!-- /block -->"
	blocks := e.ParseBlocks(text)
	if len(blocks) != 1 || blocks[0].ID != "c" {
		t.Errorf("blocks = %+v", blocks)
	}
}

func TestSplitTags_TrimsAndDropsEmpty(t *testing.T) {
	got := splitTags(" a , b,,c ,")
	if diff := cmp.Diff([]string{"a", "b", "c"}, got); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
	if got := splitTags(""); got == nil || len(got) != 0 {
		t.Errorf("empty tags = %#v", got)
	}
}

package document

import (
	"strings"
	"testing"
)

func TestRead_FrontmatterAndBody(t *testing.T) {
	h := Read("notes/hello.md", []byte("---\ntitle: Hello\ntags:\n  - go\n  - blocks\n  - go\n---\n# Heading\nBody text.\n"))
	if h.Title != "Hello" {
		t.Errorf("title = %q", h.Title)
	}
	if len(h.Tags) != 2 || h.Tags[0] != "go" || h.Tags[1] != "blocks" {
		t.Errorf("tags = %v", h.Tags)
	}
	if h.Body != "# Heading\nBody text.\n" {
		t.Errorf("body = %q", h.Body)
	}
}

func TestRead_TitleFallbacks(t *testing.T) {
	if h := Read("a.md", []byte("# Just a heading\ntext\n")); h.Title != "Just a heading" {
		t.Errorf("h1 title = %q", h.Title)
	}
	if h := Read("dir/plain-note.md", []byte("no heading here\n")); h.Title != "plain-note" {
		t.Errorf("stem title = %q", h.Title)
	}
}

func TestSplit_InvalidYAMLIsBody(t *testing.T) {
	in := "---\n: invalid: yaml: {{{\n---\nBody\n"
	fm, body := Split([]byte(in))
	if fm != nil {
		t.Errorf("frontmatter = %v, want nil", fm)
	}
	if body != in {
		t.Errorf("body = %q", body)
	}
}

func TestSplit_Unclosed(t *testing.T) {
	in := "---\ntitle: x\nno closing"
	if fm, body := Split([]byte(in)); fm != nil || body != in {
		t.Errorf("Split = %v, %q", fm, body)
	}
}

func TestCompose_RoundTrip(t *testing.T) {
	out, err := Compose([]Field{
		{Key: "title", Value: "Thesis: part one"},
		{Key: "tags", Value: []string{"a", "b"}},
	}, "Body line")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	s := string(out)
	if !strings.HasPrefix(s, "---\ntitle: ") || !strings.HasSuffix(s, "\n---\n\nBody line\n") {
		t.Errorf("unexpected output:\n%s", s)
	}
	h := Read("x.md", out)
	if strings.Index(s, "title:") > strings.Index(s, "tags:") {
		t.Errorf("fields out of order:\n%s", s)
	}
	if h.Title != "Thesis: part one" || len(h.Tags) != 2 || h.Body != "Body line\n" {
		t.Errorf("reread = %+v", h)
	}
}

func TestStem(t *testing.T) {
	for in, want := range map[string]string{
		"notes/essay.md": "essay",
		"essay":          "essay",
		"a/b/c.txt.md":   "c.txt",
	} {
		if got := Stem(in); got != want {
			t.Errorf("Stem(%q) = %q, want %q", in, got, want)
		}
	}
}

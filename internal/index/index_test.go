package index

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/smartblock/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func block(id string, typ models.BlockType, content string, tags ...string) models.Block {
	if tags == nil {
		tags = []string{}
	}
	return models.Block{ID: id, Type: typ, Tags: tags, Content: content, ContentHash: "h-" + id,
		LineRange: models.LineRange{Start: 1, End: 3}}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	for _, table := range []string{"documents", "blocks"} {
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}
}

func TestUpsertAndChecksums(t *testing.T) {
	db := testDB(t)
	row := DocumentRow{Path: "a.md", Title: "A", Checksum: "abc123", UpdatedAt: time.Now()}
	if err := db.UpsertDocument(row, []models.Block{block("b1", models.TypeNote, "first block body")}); err != nil {
		t.Fatalf("UpsertDocument: %v", err)
	}
	cs, err := db.GetChecksum("a.md")
	if err != nil || cs != "abc123" {
		t.Errorf("GetChecksum = %q, %v", cs, err)
	}
	all, err := db.AllChecksums()
	if err != nil {
		t.Fatalf("AllChecksums: %v", err)
	}
	if len(all) != 1 || all["a.md"] != "abc123" {
		t.Errorf("AllChecksums = %v", all)
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nonexistent.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestUpsertReplacesBlocks(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertDocument(DocumentRow{Path: "d.md", Checksum: "1", UpdatedAt: now},
		[]models.Block{block("old1", models.TypeNote, "old"), block("old2", models.TypeNote, "old")})
	_ = db.UpsertDocument(DocumentRow{Path: "d.md", Checksum: "2", UpdatedAt: now},
		[]models.Block{block("new", models.TypeQuote, "new body", "x", "y")})

	corpus, err := db.Corpus()
	if err != nil {
		t.Fatalf("Corpus: %v", err)
	}
	if len(corpus) != 1 {
		t.Fatalf("corpus = %+v, want 1 block", corpus)
	}
	got := corpus[0]
	if got.Document != "d.md" || got.Block.ID != "new" || got.Block.Type != models.TypeQuote {
		t.Errorf("entry = %+v", got)
	}
	if len(got.Block.Tags) != 2 || got.Block.Tags[1] != "y" {
		t.Errorf("tags = %v", got.Block.Tags)
	}
	if got.Block.LineRange != (models.LineRange{Start: 1, End: 3}) {
		t.Errorf("line range = %+v", got.Block.LineRange)
	}

	docs, _ := db.ListDocuments()
	if len(docs) != 1 || docs[0].BlockCount != 1 {
		t.Errorf("documents = %+v", docs)
	}
}

func TestDeleteDocument(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(DocumentRow{Path: "del.md", Checksum: "x", UpdatedAt: time.Now()},
		[]models.Block{block("gone", models.TypeNote, "doomed content")})
	if err := db.DeleteDocument("del.md"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if cs, _ := db.GetChecksum("del.md"); cs != "" {
		t.Errorf("deleted document still has checksum %q", cs)
	}
	if n, _ := db.CountBlocks(); n != 0 {
		t.Errorf("blocks left: %d", n)
	}
}

func TestFindBlockAcrossDocuments(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertDocument(DocumentRow{Path: "a.md", UpdatedAt: now}, []models.Block{block("shared", models.TypeNote, "in a")})
	_ = db.UpsertDocument(DocumentRow{Path: "b.md", UpdatedAt: now}, []models.Block{block("shared", models.TypeNote, "in b"), block("solo", models.TypeNote, "only b")})

	got, err := db.FindBlock("shared")
	if err != nil {
		t.Fatalf("FindBlock: %v", err)
	}
	if len(got) != 2 || got[0].Document != "a.md" || got[1].Document != "b.md" {
		t.Errorf("FindBlock = %+v", got)
	}
	if n, _ := db.CountBlocks(); n != 3 {
		t.Errorf("CountBlocks = %d", n)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(DocumentRow{Path: "s.md", UpdatedAt: time.Now()},
		[]models.Block{block("hit", models.TypeNote, "uniqueword appears here"), block("miss", models.TypeNote, "nothing to see")})

	results, err := db.Search("uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Document != "s.md" || results[0].BlockID != "hit" {
		t.Errorf("search results = %+v, want 1 hit for s.md#hit", results)
	}
}

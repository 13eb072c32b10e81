package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/smartblock/internal/models"
)

// DocumentRow is a row in the documents table.
type DocumentRow struct {
	Path       string    `json:"path"`
	Title      string    `json:"title"`
	Checksum   string    `json:"checksum"`
	BlockCount int       `json:"block_count"`
	Warnings   int       `json:"warnings"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Entry is an indexed block together with the document holding it.
type Entry struct {
	Document string       `json:"document"`
	Block    models.Block `json:"block"`
}

// SearchResult is one search hit.
type SearchResult struct {
	Document string `json:"document"`
	BlockID  string `json:"block_id"`
	Title    string `json:"title"`
	Snippet  string `json:"snippet"`
}

// UpsertDocument replaces a document row and all of its blocks in one
// transaction.
func (db *DB) UpsertDocument(d DocumentRow, blocks []models.Block) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.Exec(`
		INSERT INTO documents (path, title, checksum, block_count, warnings, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title       = excluded.title,
			checksum    = excluded.checksum,
			block_count = excluded.block_count,
			warnings    = excluded.warnings,
			updated_at  = excluded.updated_at
	`, d.Path, d.Title, d.Checksum, len(blocks), d.Warnings, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert document: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM blocks WHERE doc_path = ?`, d.Path); err != nil {
		return fmt.Errorf("index: clear blocks: %w", err)
	}
	ftsDelete(tx, d.Path)

	if len(blocks) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO blocks (doc_path, position, id, type, title, tags, reorderable,
			                    content, content_hash, line_start, line_end)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare block insert: %w", err)
		}
		defer stmt.Close()
		for i, b := range blocks {
			tags, _ := json.Marshal(b.Tags)
			if _, err := stmt.Exec(d.Path, i, b.ID, string(b.Type), b.Title, string(tags), b.Reorderable,
				b.Content, b.ContentHash, b.LineRange.Start, b.LineRange.End); err != nil {
				return fmt.Errorf("index: insert block %s: %w", b.ID, err)
			}
			if err := ftsUpsert(tx, d.Path, b); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// DeleteDocument removes a document and its blocks.
func (db *DB) DeleteDocument(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	if _, err := tx.Exec(`DELETE FROM blocks WHERE doc_path = ?`, path); err != nil {
		return fmt.Errorf("index: delete blocks: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM documents WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete document: %w", err)
	}
	return tx.Commit()
}

// GetChecksum returns the stored checksum of a document, or "" if it is not indexed.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM documents WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums maps every indexed document path to its checksum.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// ListDocuments returns every indexed document ordered by path.
func (db *DB) ListDocuments() ([]DocumentRow, error) {
	rows, err := db.conn.Query(`
		SELECT path, title, checksum, block_count, warnings, updated_at
		FROM documents ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("index: list documents: %w", err)
	}
	defer rows.Close()
	var out []DocumentRow
	for rows.Next() {
		var d DocumentRow
		if err := rows.Scan(&d.Path, &d.Title, &d.Checksum, &d.BlockCount, &d.Warnings, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

const blockColumns = `doc_path, id, type, title, tags, reorderable, content, content_hash, line_start, line_end`

// Corpus returns every indexed block in document and position order.
func (db *DB) Corpus() ([]Entry, error) {
	return db.queryEntries(`SELECT `+blockColumns+` FROM blocks ORDER BY doc_path, position`)
}

// FindBlock returns every indexed block with id, across documents.
func (db *DB) FindBlock(id string) ([]Entry, error) {
	return db.queryEntries(`SELECT `+blockColumns+` FROM blocks WHERE id = ? ORDER BY doc_path, position`, id)
}

// CountBlocks returns the number of indexed blocks.
func (db *DB) CountBlocks() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM blocks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("index: count blocks: %w", err)
	}
	return n, nil
}

func (db *DB) queryEntries(query string, args ...any) ([]Entry, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("index: query blocks: %w", err)
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var (
			e    Entry
			typ  string
			tags string
		)
		b := &e.Block
		if err := rows.Scan(&e.Document, &b.ID, &typ, &b.Title, &tags, &b.Reorderable,
			&b.Content, &b.ContentHash, &b.LineRange.Start, &b.LineRange.End); err != nil {
			return nil, err
		}
		b.Type = models.BlockType(typ)
		if err := json.Unmarshal([]byte(tags), &b.Tags); err != nil || b.Tags == nil {
			b.Tags = []string{}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

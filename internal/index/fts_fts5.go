//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/starford/smartblock/internal/models"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS blocks_fts USING fts5(
			doc_path UNINDEXED,
			block_id UNINDEXED,
			title,
			content,
			tags,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, docPath string, b models.Block) error {
	_, err := tx.Exec(`INSERT INTO blocks_fts (doc_path, block_id, title, content, tags) VALUES (?, ?, ?, ?, ?)`,
		docPath, b.ID, b.Title, b.Content, strings.Join(b.Tags, " "))
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, docPath string) {
	_, _ = tx.Exec(`DELETE FROM blocks_fts WHERE doc_path = ?`, docPath)
}

// Search performs an FTS5 full-text search over block titles, content and tags.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT doc_path,
		       block_id,
		       title,
		       snippet(blocks_fts, 3, '<b>', '</b>', '...', 32)
		FROM blocks_fts
		WHERE blocks_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Document, &r.BlockID, &r.Title, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

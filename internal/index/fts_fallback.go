//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"

	"github.com/starford/smartblock/internal/models"
)

func initFTS(_ *sql.DB) error {
	// Without FTS5, Search falls back to LIKE over the blocks table.
	return nil
}

func ftsUpsert(_ *sql.Tx, _ string, _ models.Block) error { return nil }

func ftsDelete(_ *sql.Tx, _ string) {}

// Search performs a LIKE-based search (fallback when FTS5 is not compiled in).
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT doc_path, id, title, substr(content, 1, 200)
		FROM blocks
		WHERE title LIKE ? OR content LIKE ? OR tags LIKE ?
		ORDER BY doc_path, position
		LIMIT ?
	`, like, like, like, limit)
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

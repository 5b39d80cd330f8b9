//go:build !sqlite_fts5

package store

import (
	"database/sql"
	"fmt"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not compiled in; search uses a LIKE scan over pages and blocks.
	return nil
}

func ftsUpsert(_ *sql.Tx, _ int64, _, _, _ string) error { return nil }

func ftsDelete(_ *sql.Tx, _ int64) {}

// Search performs a LIKE-based scan over page titles/tags and block
// content (fallback when FTS5 is not compiled in). One result per page.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 50
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT p.id, p.title, p.category,
		       COALESCE((SELECT substr(b.content, 1, 200)
		                 FROM blocks b
		                 WHERE b.page_id = p.id AND b.content LIKE ?
		                 ORDER BY b.order_index LIMIT 1), '')
		FROM pages p
		WHERE p.is_deleted = 0
		  AND (p.title LIKE ? OR p.tags LIKE ?
		       OR EXISTS (SELECT 1 FROM blocks b WHERE b.page_id = p.id AND b.content LIKE ?))
		ORDER BY p.updated_at DESC
		LIMIT ?
	`, like, like, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("store: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.PageID, &r.Title, &r.Category, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

//go:build sqlite_fts5

package store

import (
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS pages_fts USING fts5(
			page_id UNINDEXED,
			title,
			tags,
			body,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, pageID int64, title, tags, body string) error {
	_, _ = tx.Exec(`DELETE FROM pages_fts WHERE page_id = ?`, pageID)
	_, err := tx.Exec(`INSERT INTO pages_fts (page_id, title, tags, body) VALUES (?, ?, ?, ?)`,
		pageID, title, tags, body)
	if err != nil {
		return fmt.Errorf("store: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, pageID int64) {
	_, _ = tx.Exec(`DELETE FROM pages_fts WHERE page_id = ?`, pageID)
}

// Search performs an FTS5 full-text search over titles, tags, and block
// text, returning ranked results with snippets.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.Query(`
		SELECT f.page_id,
		       p.title,
		       p.category,
		       snippet(pages_fts, 3, '<b>', '</b>', '...', 64)
		FROM pages_fts f
		JOIN pages p ON p.id = f.page_id
		WHERE pages_fts MATCH ? AND p.is_deleted = 0
		ORDER BY rank
		LIMIT ?
	`, query, limit)
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

package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/halvard/ansuz/internal/apperr"
	"github.com/halvard/ansuz/internal/block"
)

// GetBlocks returns a page's blocks in order.
func (db *DB) GetBlocks(pageID int64) ([]block.Record, error) {
	rows, err := db.conn.Query(`
		SELECT id, page_id, type, content, order_index
		FROM blocks WHERE page_id = ? ORDER BY order_index ASC
	`, pageID)
	if err != nil {
		return nil, fmt.Errorf("store: get blocks: %w", err)
	}
	defer rows.Close()

	var out []block.Record
	for rows.Next() {
		var r block.Record
		if err := rows.Scan(&r.ID, &r.PageID, &r.Type, &r.Content, &r.OrderIndex); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ReplaceBlocks atomically swaps a page's entire block set: delete all
// prior blocks, insert the given sequence with dense 0..n-1 positions.
// The full-snapshot design makes the operation idempotent under retry.
//
// seq is the save's monotonic sequence token; a replace whose token is
// not greater than the page's last accepted one returns ErrStaleSave, so
// two in-flight saves completing out of send order cannot clobber newer
// content. seq 0 bypasses the guard (direct API replaces without a
// session) and is assigned the next token. Returns the accepted token.
func (db *DB) ReplaceBlocks(pageID int64, blocks []block.Record, seq int64) (int64, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	var current int64
	err = tx.QueryRow(`SELECT blocks_seq FROM pages WHERE id = ?`, pageID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, apperr.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("store: read blocks_seq: %w", err)
	}
	if seq == 0 {
		seq = current + 1
	} else if seq <= current {
		return 0, apperr.ErrStaleSave
	}

	if _, err := tx.Exec(`DELETE FROM blocks WHERE page_id = ?`, pageID); err != nil {
		return 0, fmt.Errorf("store: delete blocks: %w", err)
	}

	if len(blocks) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO blocks (page_id, type, content, order_index) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return 0, fmt.Errorf("store: prepare block insert: %w", err)
		}
		defer stmt.Close()
		for i, b := range blocks {
			if _, err := stmt.Exec(pageID, b.Type, b.Content, i); err != nil {
				return 0, fmt.Errorf("store: insert block: %w", err)
			}
		}
	}

	if _, err := tx.Exec(`
		UPDATE pages SET blocks_seq = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, seq, pageID); err != nil {
		return 0, fmt.Errorf("store: bump blocks_seq: %w", err)
	}

	var (
		title, tags string
		deleted     int
	)
	if err := tx.QueryRow(`SELECT title, tags, is_deleted FROM pages WHERE id = ?`, pageID).Scan(&title, &tags, &deleted); err != nil {
		return 0, fmt.Errorf("store: read page for fts: %w", err)
	}
	if deleted == 0 {
		body := recordsBody(blocks)
		if err := ftsUpsert(tx, pageID, title, tags, body); err != nil {
			return 0, err
		}
	}

	return seq, tx.Commit()
}

// blocksBody reads a page's stored blocks and extracts their searchable
// text for the full-text index.
func blocksBody(tx *sql.Tx, pageID int64) (string, error) {
	rows, err := tx.Query(`SELECT type, content FROM blocks WHERE page_id = ? ORDER BY order_index ASC`, pageID)
	if err != nil {
		return "", fmt.Errorf("store: read blocks for fts: %w", err)
	}
	defer rows.Close()

	var parts []string
	for rows.Next() {
		var typ, content string
		if err := rows.Scan(&typ, &content); err != nil {
			return "", err
		}
		if text := block.PlainText(typ, content); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n"), rows.Err()
}

func recordsBody(blocks []block.Record) string {
	var parts []string
	for _, b := range blocks {
		if text := block.PlainText(b.Type, b.Content); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n")
}

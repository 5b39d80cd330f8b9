package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/halvard/ansuz/internal/apperr"
	"github.com/halvard/ansuz/internal/models"
)

// CreatePage inserts a new page and returns its id.
func (db *DB) CreatePage(title, category string) (int64, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	res, err := tx.Exec(`INSERT INTO pages (title, category) VALUES (?, ?)`, title, category)
	if err != nil {
		return 0, fmt.Errorf("store: create page: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: last insert id: %w", err)
	}
	if err := ftsUpsert(tx, id, title, "", ""); err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

// GetPage returns a page by id, including soft-deleted ones.
func (db *DB) GetPage(id int64) (*models.Page, error) {
	var (
		p       models.Page
		deleted int
	)
	err := db.conn.QueryRow(`
		SELECT id, title, category, deadline, tags, is_deleted, blocks_seq, created_at, updated_at
		FROM pages WHERE id = ?
	`, id).Scan(&p.ID, &p.Title, &p.Category, &p.Deadline, &p.Tags, &deleted, &p.BlocksSeq, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get page: %w", err)
	}
	p.IsDeleted = deleted != 0
	return &p, nil
}

// UpdateMetadata applies the full metadata tuple as one atomic update and
// refreshes updated_at.
func (db *DB) UpdateMetadata(id int64, meta models.Metadata) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.Exec(`
		UPDATE pages
		SET title = ?, category = ?, deadline = ?, tags = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, meta.Title, meta.Category, meta.Deadline, meta.Tags, id)
	if err != nil {
		return fmt.Errorf("store: update metadata: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	body, err := blocksBody(tx, id)
	if err != nil {
		return err
	}
	if err := ftsUpsert(tx, id, meta.Title, meta.Tags, body); err != nil {
		return err
	}
	return tx.Commit()
}

// ListPages returns non-deleted pages, optionally filtered by category
// and/or exact tag, newest-updated first.
func (db *DB) ListPages(category, tag string) ([]models.Page, error) {
	query := `
		SELECT id, title, category, deadline, tags, is_deleted, blocks_seq, created_at, updated_at
		FROM pages WHERE is_deleted = 0`
	var args []any
	if category != "" {
		query += ` AND category = ?`
		args = append(args, category)
	}
	if tag != "" {
		query += ` AND (',' || tags || ',') LIKE ?`
		args = append(args, "%,"+tag+",%")
	}
	query += ` ORDER BY updated_at DESC`
	return db.queryPages(query, args...)
}

// ListTrash returns soft-deleted pages, newest-updated first.
func (db *DB) ListTrash() ([]models.Page, error) {
	return db.queryPages(`
		SELECT id, title, category, deadline, tags, is_deleted, blocks_seq, created_at, updated_at
		FROM pages WHERE is_deleted = 1 ORDER BY updated_at DESC`)
}

func (db *DB) queryPages(query string, args ...any) ([]models.Page, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list pages: %w", err)
	}
	defer rows.Close()

	var out []models.Page
	for rows.Next() {
		var (
			p       models.Page
			deleted int
		)
		if err := rows.Scan(&p.ID, &p.Title, &p.Category, &p.Deadline, &p.Tags, &deleted, &p.BlocksSeq, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.IsDeleted = deleted != 0
		out = append(out, p)
	}
	return out, rows.Err()
}

// SoftDelete moves a page to the trash. Trashed pages drop out of
// listings, title snapshots, and search.
func (db *DB) SoftDelete(id int64) error {
	return db.setDeleted(id, true)
}

// Restore brings a page back from the trash.
func (db *DB) Restore(id int64) error {
	return db.setDeleted(id, false)
}

func (db *DB) setDeleted(id int64, deleted bool) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	flag := 0
	if deleted {
		flag = 1
	}
	res, err := tx.Exec(`UPDATE pages SET is_deleted = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, flag, id)
	if err != nil {
		return fmt.Errorf("store: set deleted: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}

	if deleted {
		ftsDelete(tx, id)
	} else {
		var title, tags string
		if err := tx.QueryRow(`SELECT title, tags FROM pages WHERE id = ?`, id).Scan(&title, &tags); err != nil {
			return fmt.Errorf("store: read restored page: %w", err)
		}
		body, err := blocksBody(tx, id)
		if err != nil {
			return err
		}
		if err := ftsUpsert(tx, id, title, tags, body); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// HardDelete permanently destroys a page; its blocks cascade.
func (db *DB) HardDelete(id int64) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.Exec(`DELETE FROM pages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: hard delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	ftsDelete(tx, id)
	return tx.Commit()
}

// EmptyTrash permanently destroys every trashed page and returns how
// many were removed.
func (db *DB) EmptyTrash() (int64, error) {
	res, err := db.conn.Exec(`DELETE FROM pages WHERE is_deleted = 1`)
	if err != nil {
		return 0, fmt.Errorf("store: empty trash: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// ListTitles returns {id, title} for every non-deleted page: the
// wiki-link resolution snapshot.
func (db *DB) ListTitles() ([]models.PageRef, error) {
	rows, err := db.conn.Query(`SELECT id, title FROM pages WHERE is_deleted = 0 ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: list titles: %w", err)
	}
	defer rows.Close()

	var out []models.PageRef
	for rows.Next() {
		var r models.PageRef
		if err := rows.Scan(&r.ID, &r.Title); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Backlinks returns non-deleted pages whose block content contains
// [[title]], excluding the page itself. A reverse content scan, not a
// maintained index; acceptable at the expected corpus size.
func (db *DB) Backlinks(pageID int64, title string) ([]models.PageRef, error) {
	rows, err := db.conn.Query(`
		SELECT DISTINCT p.id, p.title
		FROM pages p
		JOIN blocks b ON p.id = b.page_id
		WHERE b.content LIKE ? AND p.id != ? AND p.is_deleted = 0
	`, "%[["+title+"]]%", pageID)
	if err != nil {
		return nil, fmt.Errorf("store: backlinks: %w", err)
	}
	defer rows.Close()

	var out []models.PageRef
	for rows.Next() {
		var r models.PageRef
		if err := rows.Scan(&r.ID, &r.Title); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Stats aggregates corpus-wide counts: page/block/link totals, pages per
// PARA category, and tag usage.
func (db *DB) Stats() (*Stats, error) {
	s := &Stats{
		Categories: make(map[string]int, len(models.Categories)),
		TagCounts:  make(map[string]int),
	}

	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM pages WHERE is_deleted = 0`).Scan(&s.TotalPages); err != nil {
		return nil, fmt.Errorf("store: stats pages: %w", err)
	}
	if err := db.conn.QueryRow(`
		SELECT COUNT(*) FROM blocks b JOIN pages p ON b.page_id = p.id WHERE p.is_deleted = 0
	`).Scan(&s.TotalBlocks); err != nil {
		return nil, fmt.Errorf("store: stats blocks: %w", err)
	}
	if err := db.conn.QueryRow(`
		SELECT COUNT(*) FROM blocks b JOIN pages p ON b.page_id = p.id
		WHERE b.content LIKE '%[[%]]%' AND p.is_deleted = 0
	`).Scan(&s.TotalLinks); err != nil {
		return nil, fmt.Errorf("store: stats links: %w", err)
	}

	for _, cat := range models.Categories {
		var n int
		if err := db.conn.QueryRow(`SELECT COUNT(*) FROM pages WHERE category = ? AND is_deleted = 0`, cat).Scan(&n); err != nil {
			return nil, fmt.Errorf("store: stats category: %w", err)
		}
		s.Categories[cat] = n
	}

	rows, err := db.conn.Query(`SELECT tags FROM pages WHERE tags != '' AND is_deleted = 0`)
	if err != nil {
		return nil, fmt.Errorf("store: stats tags: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var tags string
		if err := rows.Scan(&tags); err != nil {
			return nil, err
		}
		for _, t := range models.SplitTags(tags) {
			s.TagCounts[t]++
		}
	}
	return s, rows.Err()
}

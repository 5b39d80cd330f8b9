package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/halvard/ansuz/internal/apperr"
	"github.com/halvard/ansuz/internal/block"
)

// Task is one checkbox block joined with its owning page, for the
// cross-page task view.
type Task struct {
	BlockID      int64  `json:"blockId"`
	PageID       int64  `json:"pageId"`
	PageTitle    string `json:"pageTitle"`
	PageCategory string `json:"pageCategory"`
	PageDeadline string `json:"pageDeadline,omitempty"`
	Checked      bool   `json:"checked"`
	Text         string `json:"text"`
}

// ListTasks returns every checkbox block on non-deleted pages: pages
// newest-updated first, blocks in document order within a page.
func (db *DB) ListTasks() ([]Task, error) {
	rows, err := db.conn.Query(`
		SELECT b.id, p.id, p.title, p.category, p.deadline, b.content
		FROM blocks b JOIN pages p ON b.page_id = p.id
		WHERE b.type = ? AND p.is_deleted = 0
		ORDER BY p.updated_at DESC, p.id DESC, b.order_index ASC
	`, block.TypeCheckbox)
	if err != nil {
		return nil, fmt.Errorf("store: list tasks: %w", err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		var (
			t       Task
			content string
		)
		if err := rows.Scan(&t.BlockID, &t.PageID, &t.PageTitle, &t.PageCategory, &t.PageDeadline, &content); err != nil {
			return nil, err
		}
		c := block.ParseCheckbox(content)
		t.Checked = c.Checked
		t.Text = c.Text
		out = append(out, t)
	}
	return out, rows.Err()
}

// ToggleTask flips a checkbox block's checked state in place and returns
// the updated task. Non-checkbox blocks return ErrConflict. The search
// index needs no refresh: indexed text excludes the checked prefix.
func (db *DB) ToggleTask(blockID int64) (*Task, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var (
		t            Task
		typ, content string
	)
	err = tx.QueryRow(`
		SELECT b.id, b.type, b.content, p.id, p.title, p.category, p.deadline
		FROM blocks b JOIN pages p ON b.page_id = p.id
		WHERE b.id = ?
	`, blockID).Scan(&t.BlockID, &typ, &content, &t.PageID, &t.PageTitle, &t.PageCategory, &t.PageDeadline)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: read task block: %w", err)
	}
	if typ != block.TypeCheckbox {
		return nil, fmt.Errorf("store: block %d is not a checkbox: %w", blockID, apperr.ErrConflict)
	}

	toggled := block.ToggleCheckbox(content)
	if _, err := tx.Exec(`UPDATE blocks SET content = ? WHERE id = ?`, toggled, blockID); err != nil {
		return nil, fmt.Errorf("store: toggle task: %w", err)
	}

	c := block.ParseCheckbox(toggled)
	t.Checked = c.Checked
	t.Text = c.Text
	return &t, tx.Commit()
}

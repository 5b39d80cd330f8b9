// Package store provides the SQLite-backed page store: page metadata,
// ordered block sequences, trash lifecycle, backlinks, search, and stats.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/halvard/ansuz/internal/block"
	"github.com/halvard/ansuz/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS pages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	title      TEXT NOT NULL DEFAULT 'Untitled',
	category   TEXT NOT NULL DEFAULT 'inbox',
	deadline   TEXT NOT NULL DEFAULT '',
	tags       TEXT NOT NULL DEFAULT '',
	is_deleted INTEGER NOT NULL DEFAULT 0,
	blocks_seq INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS blocks (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	page_id     INTEGER NOT NULL,
	type        TEXT NOT NULL,
	content     TEXT NOT NULL DEFAULT '',
	order_index INTEGER NOT NULL,
	FOREIGN KEY(page_id) REFERENCES pages(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_pages_category ON pages(category);
CREATE INDEX IF NOT EXISTS idx_pages_tags ON pages(tags);
CREATE INDEX IF NOT EXISTS idx_pages_updated_at ON pages(updated_at);
CREATE INDEX IF NOT EXISTS idx_blocks_page_id ON blocks(page_id);
`

// DB wraps a sql.DB with page-store operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// SearchResult is one search hit: the owning page plus a content snippet.
type SearchResult struct {
	PageID   int64  `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Snippet  string `json:"snippet"`
}

// Stats aggregates corpus-wide counts for the statistics view.
type Stats struct {
	TotalPages  int            `json:"total_pages"`
	TotalBlocks int            `json:"total_blocks"`
	TotalLinks  int            `json:"total_links"`
	Categories  map[string]int `json:"categories"`
	TagCounts   map[string]int `json:"tag_counts"`
}

// PageStore defines the persistence contract consumed by the page
// service and the autosave scheduler. Consumers should depend on this
// interface rather than the concrete *DB type to facilitate testing.
type PageStore interface {
	CreatePage(title, category string) (int64, error)
	GetPage(id int64) (*models.Page, error)
	UpdateMetadata(id int64, meta models.Metadata) error
	ListPages(category, tag string) ([]models.Page, error)
	ListTrash() ([]models.Page, error)
	SoftDelete(id int64) error
	Restore(id int64) error
	HardDelete(id int64) error
	EmptyTrash() (int64, error)
	ListTitles() ([]models.PageRef, error)
	GetBlocks(pageID int64) ([]block.Record, error)
	ReplaceBlocks(pageID int64, blocks []block.Record, seq int64) (int64, error)
	Backlinks(pageID int64, title string) ([]models.PageRef, error)
	Search(query string, limit int) ([]SearchResult, error)
	Stats() (*Stats, error)
	ListTasks() ([]Task, error)
	ToggleTask(blockID int64) (*Task, error)
	Close() error
}

// Verify *DB satisfies PageStore at compile time.
var _ PageStore = (*DB)(nil)

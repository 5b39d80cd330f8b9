// Package pageservice coordinates page-store operations behind the API,
// edit sessions, and MCP surfaces.
package pageservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/halvard/ansuz/internal/apperr"
	"github.com/halvard/ansuz/internal/block"
	"github.com/halvard/ansuz/internal/models"
	"github.com/halvard/ansuz/internal/store"
	"github.com/halvard/ansuz/internal/wikilink"
)

// DefaultTitle is assigned to pages created without one.
const DefaultTitle = "Untitled"

// minSearchLen is the shortest query the search surface accepts.
const minSearchLen = 2

// PageDetail is the full representation of a page: metadata, ordered
// blocks, and computed backlinks.
type PageDetail struct {
	models.Page
	Blocks    []block.Record   `json:"blocks"`
	Backlinks []models.PageRef `json:"backlinks"`
}

// Service wraps the page store with domain rules: category validation,
// tag canonicalization, wiki-link auto-creation, daily pages.
type Service struct {
	db store.PageStore
}

// NewService creates a new page service.
func NewService(db store.PageStore) *Service {
	return &Service{db: db}
}

// GetPage returns a page enriched with its blocks and backlinks.
func (s *Service) GetPage(_ context.Context, id int64) (*PageDetail, error) {
	p, err := s.db.GetPage(id)
	if err != nil {
		return nil, err
	}
	blocks, err := s.db.GetBlocks(id)
	if err != nil {
		return nil, err
	}
	bl, err := s.db.Backlinks(id, p.Title)
	if err != nil {
		return nil, err
	}
	return &PageDetail{
		Page:      *p,
		Blocks:    nonNilSlice(blocks),
		Backlinks: nonNilSlice(bl),
	}, nil
}

// CreatePage creates a page. Empty title defaults to "Untitled"; empty
// category defaults to inbox.
func (s *Service) CreatePage(ctx context.Context, title, category string) (*PageDetail, error) {
	if title == "" {
		title = DefaultTitle
	}
	if category == "" {
		category = models.CategoryInbox
	}
	if !models.ValidCategory(category) {
		return nil, fmt.Errorf("pageservice: invalid category %q", category)
	}
	id, err := s.db.CreatePage(title, category)
	if err != nil {
		return nil, err
	}
	return s.GetPage(ctx, id)
}

// CreateFromLink creates a page for a dead wiki-link: exact title as
// written, category inbox. Side-effecting, so it only runs on explicit
// user interaction, never during passive rendering.
func (s *Service) CreateFromLink(ctx context.Context, title string) (*PageDetail, error) {
	if title == "" {
		return nil, fmt.Errorf("pageservice: link title is empty")
	}
	return s.CreatePage(ctx, title, models.CategoryInbox)
}

// OpenToday returns the page titled with today's date (YYYY-MM-DD),
// creating it in the inbox when absent.
func (s *Service) OpenToday(ctx context.Context) (*PageDetail, error) {
	today := time.Now().Format("2006-01-02")
	refs, err := s.db.ListTitles()
	if err != nil {
		return nil, err
	}
	for _, r := range refs {
		if r.Title == today {
			return s.GetPage(ctx, r.ID)
		}
	}
	return s.CreatePage(ctx, today, models.CategoryInbox)
}

// UpdateMetadata validates and applies the full metadata tuple. Tags are
// canonicalized; the category must be a PARA category.
func (s *Service) UpdateMetadata(_ context.Context, id int64, meta models.Metadata) error {
	if meta.Title == "" {
		meta.Title = DefaultTitle
	}
	if meta.Category == "" {
		meta.Category = models.CategoryInbox
	}
	if !models.ValidCategory(meta.Category) {
		return fmt.Errorf("pageservice: invalid category %q", meta.Category)
	}
	meta.Tags = models.CanonicalTags(meta.Tags)
	return s.db.UpdateMetadata(id, meta)
}

// ReplaceBlocks swaps a page's entire block set. Order indexes are
// reassigned densely from slice position; unknown block types are kept
// verbatim (readers fall back when rendering).
func (s *Service) ReplaceBlocks(_ context.Context, id int64, blocks []block.Record, seq int64) (int64, error) {
	return s.db.ReplaceBlocks(id, blocks, seq)
}

// ListPages returns non-deleted pages, optionally filtered by category
// and/or tag.
func (s *Service) ListPages(_ context.Context, category, tag string) ([]models.Page, error) {
	if category != "" && !models.ValidCategory(category) {
		return nil, fmt.Errorf("pageservice: invalid category %q", category)
	}
	pages, err := s.db.ListPages(category, tag)
	return nonNilSlice(pages), err
}

// ListTrash returns soft-deleted pages.
func (s *Service) ListTrash(_ context.Context) ([]models.Page, error) {
	pages, err := s.db.ListTrash()
	return nonNilSlice(pages), err
}

// Trash soft-deletes a page.
func (s *Service) Trash(_ context.Context, id int64) error {
	return s.db.SoftDelete(id)
}

// Restore brings a page back from the trash.
func (s *Service) Restore(_ context.Context, id int64) error {
	return s.db.Restore(id)
}

// Destroy permanently deletes a page and its blocks.
func (s *Service) Destroy(_ context.Context, id int64) error {
	return s.db.HardDelete(id)
}

// EmptyTrash permanently deletes every trashed page.
func (s *Service) EmptyTrash(_ context.Context) (int64, error) {
	return s.db.EmptyTrash()
}

// Search runs full-text search. Queries shorter than two characters
// return no results.
func (s *Service) Search(_ context.Context, query string, limit int) ([]store.SearchResult, error) {
	if len(query) < minSearchLen {
		return []store.SearchResult{}, nil
	}
	results, err := s.db.Search(query, limit)
	return nonNilSlice(results), err
}

// Stats aggregates corpus-wide statistics.
func (s *Service) Stats(_ context.Context) (*store.Stats, error) {
	return s.db.Stats()
}

// TaskGroup is one page's checkbox blocks in the cross-page task view.
type TaskGroup struct {
	PageID   int64        `json:"pageId"`
	Title    string       `json:"title"`
	Category string       `json:"category"`
	Deadline string       `json:"deadline,omitempty"`
	Tasks    []store.Task `json:"tasks"`
}

// TaskList is the task view: every checkbox block on non-deleted pages,
// grouped by page, with pending/completed totals.
type TaskList struct {
	Pending   int         `json:"pending"`
	Completed int         `json:"completed"`
	Groups    []TaskGroup `json:"groups"`
}

// Tasks aggregates checkbox blocks across all non-deleted pages.
func (s *Service) Tasks(_ context.Context) (*TaskList, error) {
	tasks, err := s.db.ListTasks()
	if err != nil {
		return nil, err
	}
	list := &TaskList{Groups: []TaskGroup{}}
	for _, t := range tasks {
		if t.Checked {
			list.Completed++
		} else {
			list.Pending++
		}
		// The listing is ordered by page, so consecutive rows share one.
		if n := len(list.Groups); n == 0 || list.Groups[n-1].PageID != t.PageID {
			list.Groups = append(list.Groups, TaskGroup{
				PageID:   t.PageID,
				Title:    t.PageTitle,
				Category: t.PageCategory,
				Deadline: t.PageDeadline,
			})
		}
		g := &list.Groups[len(list.Groups)-1]
		g.Tasks = append(g.Tasks, t)
	}
	return list, nil
}

// ToggleTask flips a checkbox block's checked state and returns the
// updated task.
func (s *Service) ToggleTask(_ context.Context, blockID int64) (*store.Task, error) {
	return s.db.ToggleTask(blockID)
}

// Titles returns the {id, title} listing for non-deleted pages.
func (s *Service) Titles(_ context.Context) ([]models.PageRef, error) {
	refs, err := s.db.ListTitles()
	return nonNilSlice(refs), err
}

// TitleSnapshot builds a wiki-link resolution snapshot from the current
// title listing.
func (s *Service) TitleSnapshot(ctx context.Context) (*wikilink.Snapshot, error) {
	refs, err := s.Titles(ctx)
	if err != nil {
		return nil, err
	}
	return wikilink.NewSnapshot(refs), nil
}

// SaveMetadata implements the autosave fast channel.
func (s *Service) SaveMetadata(ctx context.Context, pageID int64, meta models.Metadata) error {
	return s.UpdateMetadata(ctx, pageID, meta)
}

// SaveBlocks implements the autosave full-replace channel. A stale
// sequence token means a newer snapshot already landed; that save is
// dropped rather than retried.
func (s *Service) SaveBlocks(ctx context.Context, pageID int64, blocks []block.Record, seq int64) error {
	_, err := s.ReplaceBlocks(ctx, pageID, blocks, seq)
	if errors.Is(err, apperr.ErrStaleSave) {
		return nil
	}
	return err
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

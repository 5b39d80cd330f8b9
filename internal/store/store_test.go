package store_test

import (
	"errors"
	"testing"

	"github.com/halvard/ansuz/internal/apperr"
	"github.com/halvard/ansuz/internal/block"
	"github.com/halvard/ansuz/internal/models"
	"github.com/halvard/ansuz/internal/store"
	"github.com/halvard/ansuz/internal/testutil"
)

func TestPageLifecycle(t *testing.T) {
	db := testutil.TestDB(t)

	id, err := db.CreatePage("First", "inbox")
	if err != nil {
		t.Fatal(err)
	}
	p, err := db.GetPage(id)
	if err != nil {
		t.Fatal(err)
	}
	if p.Title != "First" || p.Category != "inbox" || p.IsDeleted || p.BlocksSeq != 0 {
		t.Errorf("page = %+v", p)
	}

	meta := models.Metadata{Title: "Renamed", Category: "projects", Deadline: "2026-09-01", Tags: "go,notes"}
	if err := db.UpdateMetadata(id, meta); err != nil {
		t.Fatal(err)
	}
	p, err = db.GetPage(id)
	if err != nil {
		t.Fatal(err)
	}
	if p.Title != "Renamed" || p.Category != "projects" || p.Deadline != "2026-09-01" || p.Tags != "go,notes" {
		t.Errorf("after update: %+v", p)
	}
}

func TestGetPage_NotFound(t *testing.T) {
	db := testutil.TestDB(t)
	if _, err := db.GetPage(999); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if err := db.UpdateMetadata(999, models.Metadata{Title: "x", Category: "inbox"}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("update err = %v, want ErrNotFound", err)
	}
}

func TestListPages_Filters(t *testing.T) {
	db := testutil.TestDB(t)

	a, _ := db.CreatePage("A", "projects")
	b, _ := db.CreatePage("B", "areas")
	c, _ := db.CreatePage("C", "projects")
	if err := db.UpdateMetadata(c, models.Metadata{Title: "C", Category: "projects", Tags: "go,db"}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpdateMetadata(b, models.Metadata{Title: "B", Category: "areas", Tags: "golang"}); err != nil {
		t.Fatal(err)
	}

	all, err := db.ListPages("", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("all = %d pages", len(all))
	}

	proj, err := db.ListPages("projects", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(proj) != 2 {
		t.Errorf("projects = %d pages", len(proj))
	}

	// Exact tag match: "go" must not match page B's "golang".
	tagged, err := db.ListPages("", "go")
	if err != nil {
		t.Fatal(err)
	}
	if len(tagged) != 1 || tagged[0].ID != c {
		t.Errorf("tag go = %+v", tagged)
	}

	_ = a
}

func TestTrashLifecycle(t *testing.T) {
	db := testutil.TestDB(t)
	id, _ := db.CreatePage("Doomed", "inbox")
	keep, _ := db.CreatePage("Keep", "inbox")

	if err := db.SoftDelete(id); err != nil {
		t.Fatal(err)
	}
	live, _ := db.ListPages("", "")
	if len(live) != 1 || live[0].ID != keep {
		t.Errorf("live pages = %+v", live)
	}
	trash, _ := db.ListTrash()
	if len(trash) != 1 || trash[0].ID != id || !trash[0].IsDeleted {
		t.Errorf("trash = %+v", trash)
	}

	// Trashed pages stay readable by id.
	if _, err := db.GetPage(id); err != nil {
		t.Errorf("trashed page unreadable: %v", err)
	}

	if err := db.Restore(id); err != nil {
		t.Fatal(err)
	}
	live, _ = db.ListPages("", "")
	if len(live) != 2 {
		t.Errorf("after restore: %d pages", len(live))
	}

	if err := db.SoftDelete(id); err != nil {
		t.Fatal(err)
	}
	n, err := db.EmptyTrash()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("emptied = %d, want 1", n)
	}
	if _, err := db.GetPage(id); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("destroyed page still readable: %v", err)
	}
}

func TestHardDelete_CascadesBlocks(t *testing.T) {
	db := testutil.TestDB(t)
	id, _ := db.CreatePage("P", "inbox")
	if _, err := db.ReplaceBlocks(id, []block.Record{{Type: "paragraph", Content: "body"}}, 0); err != nil {
		t.Fatal(err)
	}
	if err := db.HardDelete(id); err != nil {
		t.Fatal(err)
	}
	blocks, err := db.GetBlocks(id)
	if err != nil {
		t.Fatal(err)
	}
	if len(blocks) != 0 {
		t.Errorf("blocks survived hard delete: %+v", blocks)
	}
}

func TestReplaceBlocks_OrderAndDensity(t *testing.T) {
	db := testutil.TestDB(t)
	id, _ := db.CreatePage("P", "inbox")

	in := []block.Record{
		{Type: "heading", Content: "Title", OrderIndex: 9},
		{Type: "paragraph", Content: "one", OrderIndex: 3},
		{Type: "bullet", Content: "two", OrderIndex: 7},
	}
	if _, err := db.ReplaceBlocks(id, in, 0); err != nil {
		t.Fatal(err)
	}
	got, err := db.GetBlocks(id)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d", len(got))
	}
	for i, b := range got {
		if b.OrderIndex != i {
			t.Errorf("order index %d = %d, want slice position", i, b.OrderIndex)
		}
		if b.Type != in[i].Type || b.Content != in[i].Content {
			t.Errorf("pos %d = %+v", i, b)
		}
	}
}

func TestReplaceBlocks_SeqGuard(t *testing.T) {
	db := testutil.TestDB(t)
	id, _ := db.CreatePage("P", "inbox")

	one := []block.Record{{Type: "paragraph", Content: "v1"}}
	seq, err := db.ReplaceBlocks(id, one, 1)
	if err != nil {
		t.Fatal(err)
	}
	if seq != 1 {
		t.Fatalf("seq = %d", seq)
	}

	// A save carrying an older token must not land.
	stale := []block.Record{{Type: "paragraph", Content: "old"}}
	if _, err := db.ReplaceBlocks(id, stale, 1); !errors.Is(err, apperr.ErrStaleSave) {
		t.Fatalf("err = %v, want ErrStaleSave", err)
	}
	got, _ := db.GetBlocks(id)
	if len(got) != 1 || got[0].Content != "v1" {
		t.Errorf("stale save clobbered content: %+v", got)
	}

	// seq 0 bypasses the guard and takes the next token.
	seq, err = db.ReplaceBlocks(id, []block.Record{{Type: "paragraph", Content: "v2"}}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if seq != 2 {
		t.Errorf("bypass seq = %d, want 2", seq)
	}
	p, _ := db.GetPage(id)
	if p.BlocksSeq != 2 {
		t.Errorf("stored blocks_seq = %d", p.BlocksSeq)
	}
}

func TestReplaceBlocks_EmptySetAllowed(t *testing.T) {
	db := testutil.TestDB(t)
	id, _ := db.CreatePage("P", "inbox")
	if _, err := db.ReplaceBlocks(id, []block.Record{{Type: "paragraph", Content: "x"}}, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := db.ReplaceBlocks(id, nil, 0); err != nil {
		t.Fatal(err)
	}
	got, _ := db.GetBlocks(id)
	if len(got) != 0 {
		t.Errorf("blocks = %+v, want none", got)
	}
}

func TestReplaceBlocks_NotFound(t *testing.T) {
	db := testutil.TestDB(t)
	if _, err := db.ReplaceBlocks(42, nil, 0); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestBacklinks(t *testing.T) {
	db := testutil.TestDB(t)
	target, _ := db.CreatePage("Target", "inbox")
	linker, _ := db.CreatePage("Linker", "inbox")
	other, _ := db.CreatePage("Other", "inbox")
	trashed, _ := db.CreatePage("Trashed", "inbox")

	put := func(id int64, content string) {
		t.Helper()
		if _, err := db.ReplaceBlocks(id, []block.Record{{Type: "paragraph", Content: content}}, 0); err != nil {
			t.Fatal(err)
		}
	}
	put(linker, "see [[Target]] for details")
	put(other, "no links here")
	put(trashed, "also [[Target]]")
	put(target, "self mention of [[Target]] does not count")
	if err := db.SoftDelete(trashed); err != nil {
		t.Fatal(err)
	}

	refs, err := db.Backlinks(target, "Target")
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 1 || refs[0].ID != linker {
		t.Errorf("backlinks = %+v, want only the linker page", refs)
	}
}

func TestSearch(t *testing.T) {
	db := testutil.TestDB(t)
	a, _ := db.CreatePage("Gardening Notes", "resources")
	b, _ := db.CreatePage("Unrelated", "inbox")
	if _, err := db.ReplaceBlocks(b, []block.Record{{Type: "paragraph", Content: "tomato gardening tips"}}, 0); err != nil {
		t.Fatal(err)
	}
	gone, _ := db.CreatePage("Gardening Archive", "archives")
	if err := db.SoftDelete(gone); err != nil {
		t.Fatal(err)
	}

	hits, err := db.Search("gardening", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Fatalf("hits = %+v", hits)
	}
	found := map[int64]string{}
	for _, h := range hits {
		found[h.PageID] = h.Snippet
	}
	if _, ok := found[a]; !ok {
		t.Errorf("title match missing: %+v", hits)
	}
	if snip, ok := found[b]; !ok || snip == "" {
		t.Errorf("content match missing or snippet empty: %+v", hits)
	}
}

func TestSearch_Limit(t *testing.T) {
	db := testutil.TestDB(t)
	for i := 0; i < 5; i++ {
		if _, err := db.CreatePage("common title", "inbox"); err != nil {
			t.Fatal(err)
		}
	}
	hits, err := db.Search("common", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 3 {
		t.Errorf("hits = %d, want limit applied", len(hits))
	}
}

func TestListTitles_SkipsTrash(t *testing.T) {
	db := testutil.TestDB(t)
	keep, _ := db.CreatePage("Keep", "inbox")
	gone, _ := db.CreatePage("Gone", "inbox")
	if err := db.SoftDelete(gone); err != nil {
		t.Fatal(err)
	}
	refs, err := db.ListTitles()
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 1 || refs[0].ID != keep || refs[0].Title != "Keep" {
		t.Errorf("titles = %+v", refs)
	}
}

func TestStats(t *testing.T) {
	db := testutil.TestDB(t)
	p1, _ := db.CreatePage("One", "projects")
	p2, _ := db.CreatePage("Two", "projects")
	if err := db.UpdateMetadata(p1, models.Metadata{Title: "One", Category: "projects", Tags: "go,db"}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpdateMetadata(p2, models.Metadata{Title: "Two", Category: "projects", Tags: "go"}); err != nil {
		t.Fatal(err)
	}
	if _, err := db.ReplaceBlocks(p1, []block.Record{
		{Type: "paragraph", Content: "links to [[Two]]"},
		{Type: "paragraph", Content: "plain"},
	}, 0); err != nil {
		t.Fatal(err)
	}
	trashed, _ := db.CreatePage("Trashed", "inbox")
	if err := db.SoftDelete(trashed); err != nil {
		t.Fatal(err)
	}

	s, err := db.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if s.TotalPages != 2 {
		t.Errorf("TotalPages = %d", s.TotalPages)
	}
	if s.TotalBlocks != 2 {
		t.Errorf("TotalBlocks = %d", s.TotalBlocks)
	}
	if s.TotalLinks != 1 {
		t.Errorf("TotalLinks = %d", s.TotalLinks)
	}
	if s.Categories["projects"] != 2 || s.Categories["inbox"] != 0 {
		t.Errorf("Categories = %+v", s.Categories)
	}
	if s.TagCounts["go"] != 2 || s.TagCounts["db"] != 1 {
		t.Errorf("TagCounts = %+v", s.TagCounts)
	}
}

func TestListTasks(t *testing.T) {
	db := testutil.TestDB(t)

	a, _ := db.CreatePage("Plan", "projects")
	b, _ := db.CreatePage("Errands", "areas")
	trashed, _ := db.CreatePage("Old", "inbox")

	if _, err := db.ReplaceBlocks(a, []block.Record{
		{Type: block.TypeParagraph, Content: "notes"},
		{Type: block.TypeCheckbox, Content: "write draft"},
		{Type: block.TypeCheckbox, Content: "[x] outline"},
	}, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := db.ReplaceBlocks(b, []block.Record{
		{Type: block.TypeCheckbox, Content: "buy milk"},
	}, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := db.ReplaceBlocks(trashed, []block.Record{
		{Type: block.TypeCheckbox, Content: "forget me"},
	}, 0); err != nil {
		t.Fatal(err)
	}
	if err := db.SoftDelete(trashed); err != nil {
		t.Fatal(err)
	}

	tasks, err := db.ListTasks()
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 3 {
		t.Fatalf("tasks = %d, want 3 (trashed page excluded)", len(tasks))
	}
	for _, task := range tasks {
		if task.Text == "forget me" {
			t.Errorf("trashed page's task listed")
		}
	}

	byText := make(map[string]store.Task, len(tasks))
	for _, task := range tasks {
		byText[task.Text] = task
	}
	if got := byText["write draft"]; got.Checked || got.PageID != a || got.PageTitle != "Plan" || got.PageCategory != "projects" {
		t.Errorf("write draft = %+v", got)
	}
	if got := byText["outline"]; !got.Checked {
		t.Errorf("outline = %+v, want checked", got)
	}
	if got := byText["buy milk"]; got.PageID != b {
		t.Errorf("buy milk = %+v", got)
	}
}

func TestToggleTask(t *testing.T) {
	db := testutil.TestDB(t)

	id, _ := db.CreatePage("Plan", "projects")
	if _, err := db.ReplaceBlocks(id, []block.Record{
		{Type: block.TypeCheckbox, Content: "ship it"},
		{Type: block.TypeParagraph, Content: "prose"},
	}, 0); err != nil {
		t.Fatal(err)
	}
	blocks, err := db.GetBlocks(id)
	if err != nil {
		t.Fatal(err)
	}

	task, err := db.ToggleTask(blocks[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if !task.Checked || task.Text != "ship it" || task.PageID != id {
		t.Errorf("toggled = %+v", task)
	}

	// Toggling twice restores the original stored content.
	if _, err := db.ToggleTask(blocks[0].ID); err != nil {
		t.Fatal(err)
	}
	blocks, err = db.GetBlocks(id)
	if err != nil {
		t.Fatal(err)
	}
	if blocks[0].Content != "ship it" {
		t.Errorf("content = %q after double toggle", blocks[0].Content)
	}

	if _, err := db.ToggleTask(blocks[1].ID); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("toggle paragraph err = %v, want ErrConflict", err)
	}
	if _, err := db.ToggleTask(9999); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("toggle missing err = %v, want ErrNotFound", err)
	}
}

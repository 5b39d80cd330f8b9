package pageservice_test

import (
	"context"
	"testing"
	"time"

	"github.com/halvard/ansuz/internal/block"
	"github.com/halvard/ansuz/internal/models"
	"github.com/halvard/ansuz/internal/pageservice"
	"github.com/halvard/ansuz/internal/testutil"
)

func newService(t *testing.T) *pageservice.Service {
	t.Helper()
	return pageservice.NewService(testutil.TestDB(t))
}

func TestCreatePage_Defaults(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	d, err := svc.CreatePage(ctx, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if d.Title != "Untitled" || d.Category != models.CategoryInbox {
		t.Errorf("page = %+v", d.Page)
	}
	if d.Blocks == nil || d.Backlinks == nil {
		t.Errorf("detail slices must be non-nil for JSON: %+v", d)
	}
}

func TestCreatePage_InvalidCategory(t *testing.T) {
	svc := newService(t)
	if _, err := svc.CreatePage(context.Background(), "X", "someday"); err == nil {
		t.Errorf("invalid category accepted")
	}
}

func TestCreateFromLink(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	d, err := svc.CreateFromLink(ctx, "Reading List")
	if err != nil {
		t.Fatal(err)
	}
	if d.Title != "Reading List" || d.Category != models.CategoryInbox {
		t.Errorf("page = %+v", d.Page)
	}
	if _, err := svc.CreateFromLink(ctx, ""); err == nil {
		t.Errorf("empty link title accepted")
	}
}

func TestOpenToday_FindOrCreate(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	first, err := svc.OpenToday(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := time.Now().Format("2006-01-02")
	if first.Title != want || first.Category != models.CategoryInbox {
		t.Errorf("daily page = %+v", first.Page)
	}

	second, err := svc.OpenToday(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID {
		t.Errorf("second call created a new page: %d vs %d", second.ID, first.ID)
	}
}

func TestUpdateMetadata_CanonicalizesTags(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	d, err := svc.CreatePage(ctx, "P", "inbox")
	if err != nil {
		t.Fatal(err)
	}
	meta := models.Metadata{Title: "P", Category: "projects", Tags: " go , db,go, "}
	if err := svc.UpdateMetadata(ctx, d.ID, meta); err != nil {
		t.Fatal(err)
	}
	got, err := svc.GetPage(ctx, d.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Tags != "go,db" {
		t.Errorf("tags = %q, want canonical form", got.Tags)
	}
}

func TestUpdateMetadata_EmptyTitleFallsBack(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	d, _ := svc.CreatePage(ctx, "Named", "inbox")

	if err := svc.UpdateMetadata(ctx, d.ID, models.Metadata{Title: "", Category: "inbox"}); err != nil {
		t.Fatal(err)
	}
	got, _ := svc.GetPage(ctx, d.ID)
	if got.Title != "Untitled" {
		t.Errorf("title = %q", got.Title)
	}
}

func TestListPages_InvalidCategory(t *testing.T) {
	svc := newService(t)
	if _, err := svc.ListPages(context.Background(), "nope", ""); err == nil {
		t.Errorf("invalid category filter accepted")
	}
}

func TestSearch_MinLength(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	if _, err := svc.CreatePage(ctx, "golang", "inbox"); err != nil {
		t.Fatal(err)
	}

	hits, err := svc.Search(ctx, "g", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("single-char query returned %d hits", len(hits))
	}

	hits, err = svc.Search(ctx, "go", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Errorf("hits = %+v", hits)
	}
}

func TestGetPage_IncludesBacklinks(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	target, _ := svc.CreatePage(ctx, "Target", "inbox")
	linker, _ := svc.CreatePage(ctx, "Linker", "inbox")
	if _, err := svc.ReplaceBlocks(ctx, linker.ID, []block.Record{
		{Type: "paragraph", Content: "see [[Target]]"},
	}, 0); err != nil {
		t.Fatal(err)
	}

	d, err := svc.GetPage(ctx, target.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Backlinks) != 1 || d.Backlinks[0].ID != linker.ID {
		t.Errorf("backlinks = %+v", d.Backlinks)
	}
}

func TestSaveBlocks_SwallowsStaleSave(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	d, _ := svc.CreatePage(ctx, "P", "inbox")

	if _, err := svc.ReplaceBlocks(ctx, d.ID, []block.Record{{Type: "paragraph", Content: "newer"}}, 5); err != nil {
		t.Fatal(err)
	}
	// An out-of-order save with an older token is dropped silently.
	if err := svc.SaveBlocks(ctx, d.ID, []block.Record{{Type: "paragraph", Content: "older"}}, 3); err != nil {
		t.Fatalf("stale save surfaced: %v", err)
	}
	got, _ := svc.GetPage(ctx, d.ID)
	if len(got.Blocks) != 1 || got.Blocks[0].Content != "newer" {
		t.Errorf("blocks = %+v", got.Blocks)
	}
}

func TestTitleSnapshot(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	d, _ := svc.CreatePage(ctx, "Wiki Page", "inbox")

	snap, err := svc.TitleSnapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	id, ok := snap.Resolve("wiki page")
	if !ok || id != d.ID {
		t.Errorf("Resolve = (%d, %v)", id, ok)
	}
}

func TestTasks_GroupsByPage(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	a, _ := svc.CreatePage(ctx, "Plan", "projects")
	b, _ := svc.CreatePage(ctx, "Errands", "areas")
	if _, err := svc.ReplaceBlocks(ctx, a.ID, []block.Record{
		{Type: block.TypeCheckbox, Content: "write draft"},
		{Type: block.TypeCheckbox, Content: "[x] outline"},
	}, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ReplaceBlocks(ctx, b.ID, []block.Record{
		{Type: block.TypeCheckbox, Content: "buy milk"},
	}, 0); err != nil {
		t.Fatal(err)
	}

	list, err := svc.Tasks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if list.Pending != 2 || list.Completed != 1 {
		t.Errorf("counts = %d pending / %d completed", list.Pending, list.Completed)
	}
	if len(list.Groups) != 2 {
		t.Fatalf("groups = %d, want one per page", len(list.Groups))
	}
	for _, g := range list.Groups {
		switch g.PageID {
		case a.ID:
			if g.Title != "Plan" || len(g.Tasks) != 2 {
				t.Errorf("plan group = %+v", g)
			}
		case b.ID:
			if g.Category != "areas" || len(g.Tasks) != 1 || g.Tasks[0].Text != "buy milk" {
				t.Errorf("errands group = %+v", g)
			}
		default:
			t.Errorf("unexpected group %+v", g)
		}
	}
}

func TestTasks_EmptyCorpus(t *testing.T) {
	svc := newService(t)
	list, err := svc.Tasks(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if list.Pending != 0 || list.Completed != 0 || len(list.Groups) != 0 {
		t.Errorf("list = %+v", list)
	}
	if list.Groups == nil {
		t.Errorf("groups must be non-nil for JSON")
	}
}

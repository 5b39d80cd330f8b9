package docsession_test

import (
	"context"
	"testing"
	"time"

	"github.com/halvard/ansuz/internal/autosave"
	"github.com/halvard/ansuz/internal/block"
	"github.com/halvard/ansuz/internal/docsession"
	"github.com/halvard/ansuz/internal/models"
	"github.com/halvard/ansuz/internal/pageservice"
	"github.com/halvard/ansuz/internal/testutil"
)

func setup(t *testing.T) (*pageservice.Service, *docsession.Manager) {
	t.Helper()
	svc := pageservice.NewService(testutil.TestDB(t))
	m := docsession.NewManager(svc, docsession.Options{
		Autosave: autosave.Options{
			MetaDelay:   20 * time.Millisecond,
			BlocksDelay: 20 * time.Millisecond,
		},
	})
	return svc, m
}

func TestOpen_LoadsPageState(t *testing.T) {
	svc, m := setup(t)
	ctx := context.Background()

	d, err := svc.CreatePage(ctx, "Doc", "projects")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ReplaceBlocks(ctx, d.ID, []block.Record{
		{Type: "heading", Content: "Intro"},
		{Type: "paragraph", Content: "body"},
	}, 0); err != nil {
		t.Fatal(err)
	}

	h, err := m.Open(ctx, d.ID)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close(d.ID)

	v := h.View()
	if v.PageID != d.ID || len(v.Blocks) != 2 {
		t.Fatalf("view = %+v", v)
	}
	if v.Blocks[0].Type != "heading" || v.Blocks[0].Content != "Intro" {
		t.Errorf("first block = %+v", v.Blocks[0])
	}
	if v.SaveStatus != autosave.StatusSaved {
		t.Errorf("initial status = %s", v.SaveStatus)
	}
}

func TestOpen_EmptyPageSeedsParagraph(t *testing.T) {
	svc, m := setup(t)
	ctx := context.Background()
	d, _ := svc.CreatePage(ctx, "Blank", "inbox")

	h, err := m.Open(ctx, d.ID)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close(d.ID)

	v := h.View()
	if len(v.Blocks) != 1 || v.Blocks[0].Type != block.TypeParagraph {
		t.Errorf("blocks = %+v", v.Blocks)
	}
}

func TestOpen_NotFound(t *testing.T) {
	_, m := setup(t)
	if _, err := m.Open(context.Background(), 404); err == nil {
		t.Errorf("missing page opened")
	}
}

func TestOpen_SingletonPerPage(t *testing.T) {
	svc, m := setup(t)
	ctx := context.Background()
	d, _ := svc.CreatePage(ctx, "Doc", "inbox")

	h1, err := m.Open(ctx, d.ID)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close(d.ID)
	h2, err := m.Open(ctx, d.ID)
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Errorf("two handles for one page")
	}
	if got, ok := m.Get(d.ID); !ok || got != h1 {
		t.Errorf("Get = (%p, %v)", got, ok)
	}
}

func TestEditsPersistThroughAutosave(t *testing.T) {
	svc, m := setup(t)
	ctx := context.Background()
	d, _ := svc.CreatePage(ctx, "Doc", "inbox")

	h, err := m.Open(ctx, d.ID)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close(d.ID)

	v := h.View()
	key := v.Blocks[0].ClientKey
	if _, err := h.UpdateContent(key, "hello world"); err != nil {
		t.Fatal(err)
	}
	if _, err := h.InsertAfter(0, block.TypeBullet); err != nil {
		t.Fatal(err)
	}

	flushCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := h.Flush(flushCtx); err != nil {
		t.Fatal(err)
	}

	got, err := svc.GetPage(ctx, d.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Blocks) != 2 {
		t.Fatalf("persisted blocks = %+v", got.Blocks)
	}
	if got.Blocks[0].Content != "hello world" || got.Blocks[1].Type != block.TypeBullet {
		t.Errorf("persisted blocks = %+v", got.Blocks)
	}
	if got.BlocksSeq == 0 {
		t.Errorf("blocks_seq not advanced")
	}
}

func TestSetMetadata_FastChannel(t *testing.T) {
	svc, m := setup(t)
	ctx := context.Background()
	d, _ := svc.CreatePage(ctx, "Doc", "inbox")

	h, err := m.Open(ctx, d.ID)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close(d.ID)

	h.SetMetadata(models.Metadata{Title: "Renamed", Category: "areas", Tags: "infra"})

	flushCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := h.Flush(flushCtx); err != nil {
		t.Fatal(err)
	}
	got, _ := svc.GetPage(ctx, d.ID)
	if got.Title != "Renamed" || got.Category != "areas" || got.Tags != "infra" {
		t.Errorf("persisted = %+v", got.Page)
	}
}

func TestOnBlocksSaved_Callback(t *testing.T) {
	svc := pageservice.NewService(testutil.TestDB(t))
	saved := make(chan int64, 4)
	m := docsession.NewManager(svc, docsession.Options{
		Autosave: autosave.Options{MetaDelay: 20 * time.Millisecond, BlocksDelay: 20 * time.Millisecond},
		OnBlocksSaved: func(pageID int64) {
			saved <- pageID
		},
	})
	ctx := context.Background()
	d, _ := svc.CreatePage(ctx, "Doc", "inbox")

	h, err := m.Open(ctx, d.ID)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close(d.ID)

	key := h.View().Blocks[0].ClientKey
	if _, err := h.UpdateContent(key, "edit"); err != nil {
		t.Fatal(err)
	}

	select {
	case id := <-saved:
		if id != d.ID {
			t.Errorf("callback page = %d, want %d", id, d.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("callback never fired")
	}
}

func TestSlashFlowThroughHandle(t *testing.T) {
	svc, m := setup(t)
	ctx := context.Background()
	d, _ := svc.CreatePage(ctx, "Doc", "inbox")

	h, err := m.Open(ctx, d.ID)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close(d.ID)

	key := h.View().Blocks[0].ClientKey
	h.SetFocus(key)
	v, err := h.UpdateContent(key, "/quo")
	if err != nil {
		t.Fatal(err)
	}
	if v.Slash == nil || v.Slash.Query != "quo" {
		t.Fatalf("slash view = %+v", v.Slash)
	}

	v = h.SlashCommit()
	if v.Slash != nil {
		t.Errorf("menu open after commit")
	}
	if v.Blocks[0].Type != block.TypeQuote {
		t.Errorf("block type = %q, want quote", v.Blocks[0].Type)
	}
}

func TestCloseAll_FlushesPendingEdits(t *testing.T) {
	svc, m := setup(t)
	ctx := context.Background()
	d, _ := svc.CreatePage(ctx, "Doc", "inbox")

	h, err := m.Open(ctx, d.ID)
	if err != nil {
		t.Fatal(err)
	}
	key := h.View().Blocks[0].ClientKey
	if _, err := h.UpdateContent(key, "last words"); err != nil {
		t.Fatal(err)
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	m.CloseAll(shutdownCtx)

	if _, ok := m.Get(d.ID); ok {
		t.Errorf("session survived CloseAll")
	}
	got, _ := svc.GetPage(ctx, d.ID)
	if len(got.Blocks) != 1 || got.Blocks[0].Content != "last words" {
		t.Errorf("pending edit lost: %+v", got.Blocks)
	}
}

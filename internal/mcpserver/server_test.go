package mcpserver

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/halvard/ansuz/internal/block"
	"github.com/halvard/ansuz/internal/pageservice"
	"github.com/halvard/ansuz/internal/testutil"
)

func testServer(t *testing.T) (*Server, *pageservice.Service) {
	t.Helper()
	svc := pageservice.NewService(testutil.TestDB(t))
	_, us := testutil.TestUploads(t)
	return New(svc, us), svc
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so we invoke the
	// handler functions directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "search_pages":
		result, err = srv.searchPages(ctx, req)
	case "read_page":
		result, err = srv.readPage(ctx, req)
	case "create_page":
		result, err = srv.createPage(ctx, req)
	case "get_block_contract":
		result, err = srv.getBlockContract(ctx, req)
	case "list_pages":
		result, err = srv.listPages(ctx, req)
	case "get_backlinks":
		result, err = srv.getBacklinks(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestCreateAndReadPage(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "create_page", map[string]interface{}{
		"title":    "Test Page",
		"category": "projects",
		"blocks":   `[{"type":"heading","content":"Intro"},{"type":"paragraph","content":"Hello"}]`,
	})
	text := resultText(r)
	if r.IsError || !strings.Contains(text, "created: page") {
		t.Fatalf("create result = %q", text)
	}

	r = callTool(t, srv, "read_page", map[string]interface{}{"id": 1})
	text = resultText(r)
	if !strings.Contains(text, "# Test Page") || !strings.Contains(text, "## Intro") || !strings.Contains(text, "Hello") {
		t.Errorf("read result = %q", text)
	}
}

func TestCreatePage_RejectsUnknownBlockType(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "create_page", map[string]interface{}{
		"title":  "Bad",
		"blocks": `[{"type":"widget","content":""}]`,
	})
	if !r.IsError {
		t.Error("expected error for unknown block type")
	}
	if !strings.Contains(resultText(r), "widget") {
		t.Errorf("error text = %q", resultText(r))
	}
}

func TestListPages(t *testing.T) {
	srv, svc := testServer(t)
	ctx := context.Background()
	if _, err := svc.CreatePage(ctx, "A", "projects"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreatePage(ctx, "B", "areas"); err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "list_pages", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, "A") || !strings.Contains(text, "B") {
		t.Errorf("list = %q", text)
	}

	r = callTool(t, srv, "list_pages", map[string]interface{}{"category": "areas"})
	text = resultText(r)
	if strings.Contains(text, "[projects]") || !strings.Contains(text, "[areas]") {
		t.Errorf("filtered list = %q", text)
	}
}

func TestReadPageMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "read_page", map[string]interface{}{"id": 999})
	if !r.IsError {
		t.Error("expected error for missing page")
	}
}

func TestSearchPages(t *testing.T) {
	srv, svc := testServer(t)
	if _, err := svc.CreatePage(context.Background(), "Gardening Notes", "resources"); err != nil {
		t.Fatal(err)
	}
	r := callTool(t, srv, "search_pages", map[string]interface{}{"query": "gardening"})
	if !strings.Contains(resultText(r), "Gardening Notes") {
		t.Errorf("search = %q", resultText(r))
	}
}

func TestGetBacklinks(t *testing.T) {
	srv, svc := testServer(t)
	ctx := context.Background()
	target, _ := svc.CreatePage(ctx, "Target", "inbox")
	linker, _ := svc.CreatePage(ctx, "Linker", "inbox")
	if _, err := svc.ReplaceBlocks(ctx, linker.ID, []block.Record{
		{Type: "paragraph", Content: "see [[Target]]"},
	}, 0); err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "get_backlinks", map[string]interface{}{"id": int(target.ID)})
	if !strings.Contains(resultText(r), "Linker") {
		t.Errorf("backlinks = %q", resultText(r))
	}

	r = callTool(t, srv, "get_backlinks", map[string]interface{}{"id": int(linker.ID)})
	if resultText(r) != "no backlinks found" {
		t.Errorf("backlinks = %q", resultText(r))
	}
}

func TestGetBlockContract(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_block_contract", map[string]interface{}{})
	text := resultText(r)
	for _, typ := range block.Types {
		if !strings.Contains(text, typ) {
			t.Errorf("contract missing block type %q", typ)
		}
	}
}

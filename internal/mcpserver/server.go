// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Ansuz tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/halvard/ansuz/internal/block"
	"github.com/halvard/ansuz/internal/pageservice"
	"github.com/halvard/ansuz/internal/uploads"
)

// Server wraps the MCP server with Ansuz tools.
type Server struct {
	mcp     *server.MCPServer
	svc     *pageservice.Service
	uploads *uploads.Store
}

// New creates a new MCP server with all Ansuz tools registered.
func New(svc *pageservice.Service, uploadStore *uploads.Store) *Server {
	s := &Server{svc: svc, uploads: uploadStore}

	s.mcp = server.NewMCPServer(
		"Ansuz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_pages",
		mcp.WithDescription("Full-text search through page titles, tags, and block content."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchPages)

	s.mcp.AddTool(mcp.NewTool("read_page",
		mcp.WithDescription("Read a page: metadata, ordered blocks rendered as Markdown, and backlinks."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Page ID")),
	), s.readPage)

	s.mcp.AddTool(mcp.NewTool("create_page",
		mcp.WithDescription("Create a new page with metadata and typed blocks. "+
			"Blocks MUST follow the canonical block format (JSON array of {type, content}). "+
			"Read the contract first via the get_block_contract tool or the "+
			"ansuz://block-format resource."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Page title")),
		mcp.WithString("category", mcp.Description("Category: projects, areas, resources, archives, inbox (default inbox)")),
		mcp.WithString("blocks", mcp.Description("JSON array of {type, content} blocks following the contract")),
	), s.createPage)

	s.mcp.AddTool(mcp.NewTool("get_block_contract",
		mcp.WithDescription("Returns the canonical Ansuz page/block format contract. "+
			"Call this before creating pages to ensure correct structure."),
	), s.getBlockContract)

	s.mcp.AddTool(mcp.NewTool("list_pages",
		mcp.WithDescription("List pages, optionally filtered by category and/or tag."),
		mcp.WithString("category", mcp.Description("Optional category filter")),
		mcp.WithString("tag", mcp.Description("Optional tag filter")),
	), s.listPages)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all pages whose blocks wiki-link to the specified page."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Page ID to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("upload_asset",
		mcp.WithDescription("Download a file from a URL (or decode a base64 data: URI) and "+
			"store it as an uploaded asset. Returns a markdownImage field ready to use in "+
			"an image block."),
		mcp.WithString("url", mcp.Required(), mcp.Description("HTTP/HTTPS URL or data: URI of the file")),
		mcp.WithString("filename", mcp.Description("Optional filename override")),
	), s.uploadAsset)

	// Resource: block format contract.
	s.mcp.AddResource(
		mcp.NewResource("ansuz://block-format", "Page Format Contract",
			mcp.WithResourceDescription("Canonical page/block format that all created pages must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readBlockFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	detail, err := s.svc.GetPage(ctx, int64(id))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: page %d", id)), nil
	}
	return mcp.NewToolResultText(renderPage(detail)), nil
}

func (s *Server) createPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	category := req.GetString("category", "")

	var blocks []block.Record
	if raw := req.GetString("blocks", ""); raw != "" {
		var dtos []struct {
			Type    string `json:"type"`
			Content string `json:"content"`
		}
		if err := json.Unmarshal([]byte(raw), &dtos); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid blocks JSON: %v", err)), nil
		}
		for i, d := range dtos {
			if !block.ValidType(d.Type) {
				return mcp.NewToolResultError(fmt.Sprintf("unknown block type %q (see get_block_contract)", d.Type)), nil
			}
			blocks = append(blocks, block.Record{Type: d.Type, Content: d.Content, OrderIndex: i})
		}
	}

	detail, err := s.svc.CreatePage(ctx, title, category)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(blocks) > 0 {
		if _, err := s.svc.ReplaceBlocks(ctx, detail.ID, blocks, 0); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("page created (id %d) but blocks failed: %v", detail.ID, err)), nil
		}
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: page %d (%s)", detail.ID, detail.Title)), nil
}

func (s *Server) listPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	category := req.GetString("category", "")
	tag := req.GetString("tag", "")

	pages, err := s.svc.ListPages(ctx, category, tag)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var lines []string
	for _, p := range pages {
		lines = append(lines, fmt.Sprintf("%d\t%s\t[%s]", p.ID, p.Title, p.Category))
	}
	if len(lines) == 0 {
		return mcp.NewToolResultText("no pages found"), nil
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getBlockContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(BlockFormatContract), nil
}

func (s *Server) readBlockFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "ansuz://block-format",
			MIMEType: "text/markdown",
			Text:     BlockFormatContract,
		},
	}, nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	detail, err := s.svc.GetPage(ctx, int64(id))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: page %d", id)), nil
	}
	if len(detail.Backlinks) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	var lines []string
	for _, ref := range detail.Backlinks {
		lines = append(lines, fmt.Sprintf("%d\t%s", ref.ID, ref.Title))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

package mcpserver

import (
	"fmt"
	"strings"

	"github.com/halvard/ansuz/internal/block"
	"github.com/halvard/ansuz/internal/pageservice"
)

// renderPage formats a page as Markdown for MCP consumers: a metadata
// header, the blocks top to bottom, and the backlink list.
func renderPage(detail *pageservice.PageDetail) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", detail.Title)
	fmt.Fprintf(&sb, "- id: %d\n", detail.ID)
	fmt.Fprintf(&sb, "- category: %s\n", detail.Category)
	if detail.Deadline != "" {
		fmt.Fprintf(&sb, "- deadline: %s\n", detail.Deadline)
	}
	if detail.Tags != "" {
		fmt.Fprintf(&sb, "- tags: %s\n", detail.Tags)
	}
	sb.WriteString("\n")

	for _, b := range detail.Blocks {
		sb.WriteString(renderBlock(b))
		sb.WriteString("\n")
	}

	if len(detail.Backlinks) > 0 {
		sb.WriteString("\n## Backlinks\n\n")
		for _, ref := range detail.Backlinks {
			fmt.Fprintf(&sb, "- %s (page %d)\n", ref.Title, ref.ID)
		}
	}
	return sb.String()
}

func renderBlock(b block.Record) string {
	switch b.Type {
	case block.TypeHeading:
		return "## " + b.Content + "\n"
	case block.TypeBullet:
		return "- " + b.Content + "\n"
	case block.TypeCheckbox:
		c := block.ParseCheckbox(b.Content)
		mark := " "
		if c.Checked {
			mark = "x"
		}
		return fmt.Sprintf("- [%s] %s\n", mark, c.Text)
	case block.TypeQuote:
		return "> " + b.Content + "\n"
	case block.TypeCode:
		c := block.DecodeCode(b.Content)
		return fmt.Sprintf("```%s\n%s\n```\n", c.Language, c.Code)
	case block.TypeTable:
		return renderTable(block.DecodeTable(b.Content))
	case block.TypeImage:
		img := block.DecodeImage(b.Content)
		return fmt.Sprintf("![image](%s)\n", img.URL)
	case block.TypeLinkPreview:
		if bm := block.DecodeBookmark(b.Content); bm != nil {
			return fmt.Sprintf("[%s](%s)\n", bm.Title, bm.URL)
		}
		return ""
	case block.TypeDivider:
		return "---\n"
	default:
		// Unknown types survive round trips; render the raw content.
		return b.Content + "\n"
	}
}

func renderTable(t block.Table) string {
	var sb strings.Builder
	for i, row := range t {
		sb.WriteString("| " + strings.Join(row, " | ") + " |\n")
		if i == 0 {
			sb.WriteString("|" + strings.Repeat(" --- |", len(row)) + "\n")
		}
	}
	return sb.String()
}

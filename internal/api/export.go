package api

import (
	"archive/zip"
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/halvard/ansuz/internal/block"
	"github.com/halvard/ansuz/internal/pageservice"
	"github.com/halvard/ansuz/internal/uploads"
)

// ExportHandler produces a zip backup of the whole knowledge base: one
// Markdown file per non-deleted page plus the uploaded assets.
type ExportHandler struct {
	svc     *pageservice.Service
	uploads *uploads.Store
}

// NewExportHandler creates a new ExportHandler.
func NewExportHandler(svc *pageservice.Service, us *uploads.Store) *ExportHandler {
	return &ExportHandler{svc: svc, uploads: us}
}

// Export handles GET /api/export.
//
//	@Summary		Download a zip backup of all pages and assets
//	@Tags			export
//	@Produce		application/zip
//	@Success		200	{file}	binary
//	@Security		BearerAuth
//	@Router			/export [get]
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	pages, err := h.svc.ListPages(r.Context(), "", "")
	if err != nil {
		slog.Error("export: list pages failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	// Built in memory so a mid-archive failure can still return a clean
	// error response instead of a truncated download.
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	fail := func(msg string, err error) {
		slog.Error(msg, slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}

	for _, p := range pages {
		detail, err := h.svc.GetPage(r.Context(), p.ID)
		if err != nil {
			fail("export: load page failed", err)
			return
		}
		name := strings.ReplaceAll(detail.Title, "/", "-") + ".md"
		f, err := zw.Create(name)
		if err != nil {
			fail("export: add page entry failed", err)
			return
		}
		if _, err := f.Write([]byte(exportMarkdown(detail))); err != nil {
			fail("export: write page entry failed", err)
			return
		}
	}

	if err := h.addAssets(zw); err != nil {
		fail("export: add assets failed", err)
		return
	}
	if err := zw.Close(); err != nil {
		fail("export: finalize archive failed", err)
		return
	}

	filename := fmt.Sprintf("ansuz-export-%s.zip", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// addAssets copies every stored upload into the archive under assets/.
func (h *ExportHandler) addAssets(zw *zip.Writer) error {
	assets, err := h.uploads.List()
	if err != nil {
		return err
	}
	for _, a := range assets {
		path, err := h.uploads.SafePath(a.Name)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		f, err := zw.Create("assets/" + a.Name)
		if err != nil {
			return err
		}
		if _, err := f.Write(data); err != nil {
			return err
		}
	}
	return nil
}

// exportMarkdown renders one page for backup: a metadata header, a rule,
// then the blocks. Flatter than the page view on purpose; a backup reads
// fine in any Markdown viewer.
func exportMarkdown(d *pageservice.PageDetail) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", d.Title)
	fmt.Fprintf(&sb, "Category: %s\n", d.Category)
	if d.Tags != "" {
		fmt.Fprintf(&sb, "Tags: %s\n", d.Tags)
	}
	if d.Deadline != "" {
		fmt.Fprintf(&sb, "Deadline: %s\n", d.Deadline)
	}
	sb.WriteString("\n---\n\n")

	for _, b := range d.Blocks {
		switch b.Type {
		case block.TypeHeading:
			fmt.Fprintf(&sb, "## %s\n\n", b.Content)
		case block.TypeBullet:
			fmt.Fprintf(&sb, "* %s\n", b.Content)
		case block.TypeCheckbox:
			c := block.ParseCheckbox(b.Content)
			mark := " "
			if c.Checked {
				mark = "x"
			}
			fmt.Fprintf(&sb, "- [%s] %s\n", mark, c.Text)
		case block.TypeQuote:
			fmt.Fprintf(&sb, "> %s\n\n", b.Content)
		case block.TypeCode:
			c := block.DecodeCode(b.Content)
			fmt.Fprintf(&sb, "```%s\n%s\n```\n\n", c.Language, c.Code)
		case block.TypeImage:
			fmt.Fprintf(&sb, "![image](%s)\n\n", block.DecodeImage(b.Content).URL)
		case block.TypeLinkPreview:
			if bm := block.DecodeBookmark(b.Content); bm != nil {
				fmt.Fprintf(&sb, "[%s](%s)\n\n", bm.Title, bm.URL)
			}
		case block.TypeDivider:
			sb.WriteString("---\n\n")
		default:
			fmt.Fprintf(&sb, "%s\n\n", b.Content)
		}
	}
	return sb.String()
}

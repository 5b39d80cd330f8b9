package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/halvard/ansuz/internal/apperr"
	"github.com/halvard/ansuz/internal/bookmeta"
	"github.com/halvard/ansuz/internal/markup"
	"github.com/halvard/ansuz/internal/pageservice"
	"github.com/halvard/ansuz/internal/sse"
)

// Handler holds API route handlers.
type Handler struct {
	svc     *pageservice.Service
	fetcher *bookmeta.Fetcher
	broker  *sse.Broker // nil when SSE is disabled
}

// NewHandler creates a new Handler.
func NewHandler(svc *pageservice.Service, fetcher *bookmeta.Fetcher, broker *sse.Broker) *Handler {
	return &Handler{svc: svc, fetcher: fetcher, broker: broker}
}

// pageID extracts the numeric page id from the URL.
func pageID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func (h *Handler) publish(kind string, id int64) {
	if h.broker != nil {
		h.broker.PublishPageEvent(kind, id)
	}
}

// ListPages handles GET /api/pages.
//
//	@Summary		List pages with optional category and tag filters
//	@Tags			pages
//	@Produce		json
//	@Param			category	query		string	false	"Filter by category"	Enums(projects, areas, resources, archives, inbox)
//	@Param			tag			query		string	false	"Filter by tag"
//	@Success		200			{object}	PageListResponse
//	@Security		BearerAuth
//	@Router			/pages [get]
func (h *Handler) ListPages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pages, err := h.svc.ListPages(r.Context(), q.Get("category"), q.Get("tag"))
	if err != nil {
		slog.Error("list pages failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, PageListResponse{Pages: pages, Total: len(pages)})
}

// GetPage handles GET /api/pages/{id}.
//
//	@Summary		Get a page with its blocks and backlinks
//	@Tags			pages
//	@Produce		json
//	@Param			id	path		int	true	"Page ID"
//	@Success		200	{object}	PageDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages/{id} [get]
func (h *Handler) GetPage(w http.ResponseWriter, r *http.Request) {
	id, ok := pageID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid page id"))
		return
	}
	detail, err := h.svc.GetPage(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get page failed", slog.Int64("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// CreatePage handles POST /api/pages.
//
//	@Summary		Create a page
//	@Tags			pages
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreatePageRequest	true	"Page to create"
//	@Success		201		{object}	PageDetail
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages [post]
func (h *Handler) CreatePage(w http.ResponseWriter, r *http.Request) {
	var req CreatePageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	detail, err := h.svc.CreatePage(r.Context(), req.Title, req.Category)
	if err != nil {
		slog.Error("create page failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	h.publish(sse.PageCreated, detail.ID)
	writeJSON(w, http.StatusCreated, detail)
}

// CreateFromLink handles POST /api/pages/from-link.
//
//	@Summary		Create a page for a dead wiki-link
//	@Tags			pages
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateFromLinkRequest	true	"Link title"
//	@Success		201		{object}	PageDetail
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages/from-link [post]
func (h *Handler) CreateFromLink(w http.ResponseWriter, r *http.Request) {
	var req CreateFromLinkRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	detail, err := h.svc.CreateFromLink(r.Context(), req.Title)
	if err != nil {
		slog.Error("create from link failed", slog.String("title", req.Title), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	h.publish(sse.PageCreated, detail.ID)
	writeJSON(w, http.StatusCreated, detail)
}

// OpenToday handles POST /api/pages/today.
//
//	@Summary		Open today's daily page, creating it when absent
//	@Tags			pages
//	@Produce		json
//	@Success		200	{object}	PageDetail
//	@Security		BearerAuth
//	@Router			/pages/today [post]
func (h *Handler) OpenToday(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.OpenToday(r.Context())
	if err != nil {
		slog.Error("open today failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// UpdateMetadata handles PUT /api/pages/{id}/metadata.
//
//	@Summary		Update a page's metadata tuple
//	@Tags			pages
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int				true	"Page ID"
//	@Param			body	body		MetadataRequest	true	"Metadata"
//	@Success		200		{object}	PageDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages/{id}/metadata [put]
func (h *Handler) UpdateMetadata(w http.ResponseWriter, r *http.Request) {
	id, ok := pageID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid page id"))
		return
	}
	var req MetadataRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if err := h.svc.UpdateMetadata(r.Context(), id, req.Metadata()); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("update metadata failed", slog.Int64("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	detail, err := h.svc.GetPage(r.Context(), id)
	if err != nil {
		slog.Error("reload page failed", slog.Int64("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	h.publish(sse.PageUpdated, id)
	writeJSON(w, http.StatusOK, detail)
}

// ReplaceBlocks handles PUT /api/pages/{id}/blocks.
//
//	@Summary		Replace a page's entire block set
//	@Tags			pages
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int					true	"Page ID"
//	@Param			body	body		ReplaceBlocksRequest	true	"Blocks"
//	@Success		200		{object}	ReplaceBlocksResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages/{id}/blocks [put]
func (h *Handler) ReplaceBlocks(w http.ResponseWriter, r *http.Request) {
	id, ok := pageID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid page id"))
		return
	}
	var req ReplaceBlocksRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	seq, err := h.svc.ReplaceBlocks(r.Context(), id, req.Records(id), req.Seq)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		case errors.Is(err, apperr.ErrStaleSave):
			writeJSON(w, http.StatusConflict, errorBody("stale sequence token"))
		default:
			slog.Error("replace blocks failed", slog.Int64("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	h.publish(sse.BlocksSaved, id)
	writeJSON(w, http.StatusOK, ReplaceBlocksResponse{Seq: seq})
}

// TrashPage handles DELETE /api/pages/{id}.
//
//	@Summary		Move a page to the trash
//	@Tags			trash
//	@Param			id	path	int	true	"Page ID"
//	@Success		204	"Page trashed"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages/{id} [delete]
func (h *Handler) TrashPage(w http.ResponseWriter, r *http.Request) {
	id, ok := pageID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid page id"))
		return
	}
	if err := h.svc.Trash(r.Context(), id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("trash page failed", slog.Int64("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	h.publish(sse.PageTrashed, id)
	w.WriteHeader(http.StatusNoContent)
}

// RestorePage handles POST /api/pages/{id}/restore.
//
//	@Summary		Restore a page from the trash
//	@Tags			trash
//	@Param			id	path	int	true	"Page ID"
//	@Success		204	"Page restored"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages/{id}/restore [post]
func (h *Handler) RestorePage(w http.ResponseWriter, r *http.Request) {
	id, ok := pageID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid page id"))
		return
	}
	if err := h.svc.Restore(r.Context(), id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("restore page failed", slog.Int64("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	h.publish(sse.PageRestored, id)
	w.WriteHeader(http.StatusNoContent)
}

// ListTrash handles GET /api/trash.
//
//	@Summary		List trashed pages
//	@Tags			trash
//	@Produce		json
//	@Success		200	{object}	PageListResponse
//	@Security		BearerAuth
//	@Router			/trash [get]
func (h *Handler) ListTrash(w http.ResponseWriter, r *http.Request) {
	pages, err := h.svc.ListTrash(r.Context())
	if err != nil {
		slog.Error("list trash failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, PageListResponse{Pages: pages, Total: len(pages)})
}

// DestroyPage handles DELETE /api/trash/{id}.
//
//	@Summary		Permanently delete a trashed page
//	@Tags			trash
//	@Param			id	path	int	true	"Page ID"
//	@Success		204	"Page deleted"
//	@Security		BearerAuth
//	@Router			/trash/{id} [delete]
func (h *Handler) DestroyPage(w http.ResponseWriter, r *http.Request) {
	id, ok := pageID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid page id"))
		return
	}
	if err := h.svc.Destroy(r.Context(), id); err != nil {
		slog.Error("destroy page failed", slog.Int64("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	h.publish(sse.PageDeleted, id)
	w.WriteHeader(http.StatusNoContent)
}

// EmptyTrash handles DELETE /api/trash.
//
//	@Summary		Permanently delete every trashed page
//	@Tags			trash
//	@Produce		json
//	@Success		200	{object}	map[string]int64
//	@Security		BearerAuth
//	@Router			/trash [delete]
func (h *Handler) EmptyTrash(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.EmptyTrash(r.Context())
	if err != nil {
		slog.Error("empty trash failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across pages
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	map[string]any
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
	})
}

// Stats handles GET /api/stats.
//
//	@Summary		Knowledge-base statistics
//	@Tags			stats
//	@Produce		json
//	@Success		200	{object}	store.Stats
//	@Security		BearerAuth
//	@Router			/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		slog.Error("stats failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Titles handles GET /api/titles.
//
//	@Summary		List {id, title} pairs for wiki-link resolution
//	@Tags			pages
//	@Produce		json
//	@Success		200	{object}	map[string]any
//	@Security		BearerAuth
//	@Router			/titles [get]
func (h *Handler) Titles(w http.ResponseWriter, r *http.Request) {
	refs, err := h.svc.Titles(r.Context())
	if err != nil {
		slog.Error("titles failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"titles": refs,
	})
}

// Tasks handles GET /api/tasks.
//
//	@Summary		Aggregate checkbox blocks across all pages
//	@Tags			tasks
//	@Produce		json
//	@Success		200	{object}	pageservice.TaskList
//	@Security		BearerAuth
//	@Router			/tasks [get]
func (h *Handler) Tasks(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Tasks(r.Context())
	if err != nil {
		slog.Error("list tasks failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// ToggleTask handles POST /api/tasks/{id}/toggle. The id is the checkbox
// block's id, not a page id.
//
//	@Summary		Toggle a checkbox block's checked state
//	@Tags			tasks
//	@Produce		json
//	@Param			id	path		int	true	"Block ID"
//	@Success		200	{object}	store.Task
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tasks/{id}/toggle [post]
func (h *Handler) ToggleTask(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid block id"))
		return
	}
	task, err := h.svc.ToggleTask(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		case errors.Is(err, apperr.ErrConflict):
			writeJSON(w, http.StatusBadRequest, errorBody("block is not a checkbox"))
		default:
			slog.Error("toggle task failed", slog.Int64("block_id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	h.publish(sse.PageUpdated, task.PageID)
	writeJSON(w, http.StatusOK, task)
}

// Render handles POST /api/markup/render.
//
//	@Summary		Render a text fragment to sanitized spans
//	@Tags			markup
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RenderRequest	true	"Text to render"
//	@Success		200		{object}	map[string]any
//	@Security		BearerAuth
//	@Router			/markup/render [post]
func (h *Handler) Render(w http.ResponseWriter, r *http.Request) {
	var req RenderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	snap, err := h.svc.TitleSnapshot(r.Context())
	if err != nil {
		slog.Error("title snapshot failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"spans": markup.Render(req.Text, snap),
	})
}

// BookmarkMeta handles POST /api/bookmarks/metadata.
//
//	@Summary		Fetch bookmark metadata for a URL
//	@Tags			bookmarks
//	@Accept			json
//	@Produce		json
//	@Param			body	body		BookmarkMetaRequest	true	"Target URL"
//	@Success		200		{object}	bookmeta.Meta
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/bookmarks/metadata [post]
func (h *Handler) BookmarkMeta(w http.ResponseWriter, r *http.Request) {
	var req BookmarkMetaRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, h.fetcher.Fetch(r.Context(), req.URL))
}

package api

import (
	"errors"
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/halvard/ansuz/internal/apperr"
	"github.com/halvard/ansuz/internal/docsession"
)

// Session operation names accepted by ApplyOp.
const (
	opInsert      = "insert"
	opDelete      = "delete"
	opBackspace   = "backspace"
	opReorder     = "reorder"
	opRetype      = "retype"
	opUpdate      = "update"
	opFocus       = "focus"
	opSlashMove   = "slash_move"
	opSlashCommit = "slash_commit"
	opSlashCancel = "slash_cancel"
)

// SessionOpRequest is one editing operation against an open session.
// Fields beyond Op are read per operation: insert uses AfterIndex and
// Type; reorder uses From and To; retype uses ClientKey and Type;
// update uses ClientKey and Content; slash_move uses Dir.
type SessionOpRequest struct {
	Op         string `json:"op" example:"insert" validate:"required"`
	AfterIndex int    `json:"afterIndex" example:"0"`
	From       int    `json:"from" example:"0"`
	To         int    `json:"to" example:"1"`
	ClientKey  string `json:"clientKey"`
	Type       string `json:"type" example:"heading"`
	Content    string `json:"content"`
	Dir        string `json:"dir" example:"down"`
}

// Validate implements request validation.
func (r SessionOpRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Op, validation.Required, validation.In(
			opInsert, opDelete, opBackspace, opReorder, opRetype,
			opUpdate, opFocus, opSlashMove, opSlashCommit, opSlashCancel,
		)),
		validation.Field(&r.Dir, validation.In("up", "down")),
	)
}

// SessionHandler holds editing-session route handlers.
type SessionHandler struct {
	sessions *docsession.Manager
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions *docsession.Manager) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Open handles POST /api/pages/{id}/session.
//
//	@Summary		Open (or rejoin) a page's editing session
//	@Tags			session
//	@Produce		json
//	@Param			id	path		int	true	"Page ID"
//	@Success		200	{object}	docsession.View
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages/{id}/session [post]
func (h *SessionHandler) Open(w http.ResponseWriter, r *http.Request) {
	id, ok := pageID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid page id"))
		return
	}
	handle, err := h.sessions.Open(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("open session failed", slog.Int64("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, handle.View())
}

// Get handles GET /api/pages/{id}/session.
//
//	@Summary		Current state of an open editing session
//	@Tags			session
//	@Produce		json
//	@Param			id	path		int	true	"Page ID"
//	@Success		200	{object}	docsession.View
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages/{id}/session [get]
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	handle, ok := h.open(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, handle.View())
}

// Close handles DELETE /api/pages/{id}/session. Scheduling stops; an
// in-flight save finishes on its own.
//
//	@Summary		Close a page's editing session
//	@Tags			session
//	@Param			id	path	int	true	"Page ID"
//	@Success		204	"Session closed"
//	@Security		BearerAuth
//	@Router			/pages/{id}/session [delete]
func (h *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	id, ok := pageID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid page id"))
		return
	}
	h.sessions.Close(id)
	w.WriteHeader(http.StatusNoContent)
}

// ApplyOp handles POST /api/pages/{id}/session/op.
//
//	@Summary		Apply one editing operation to an open session
//	@Tags			session
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int					true	"Page ID"
//	@Param			body	body		SessionOpRequest	true	"Operation"
//	@Success		200		{object}	docsession.View
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages/{id}/session/op [post]
func (h *SessionHandler) ApplyOp(w http.ResponseWriter, r *http.Request) {
	handle, ok := h.open(w, r)
	if !ok {
		return
	}
	var req SessionOpRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	var (
		view docsession.View
		err  error
	)
	switch req.Op {
	case opInsert:
		view, err = handle.InsertAfter(req.AfterIndex, req.Type)
	case opDelete:
		view = handle.Delete(req.ClientKey)
	case opBackspace:
		view = handle.Backspace(req.ClientKey)
	case opReorder:
		view, err = handle.Reorder(req.From, req.To)
	case opRetype:
		view, err = handle.Retype(req.ClientKey, req.Type)
	case opUpdate:
		view, err = handle.UpdateContent(req.ClientKey, req.Content)
	case opFocus:
		view = handle.SetFocus(req.ClientKey)
	case opSlashMove:
		view = handle.SlashMove(req.Dir)
	case opSlashCommit:
		view = handle.SlashCommit()
	case opSlashCancel:
		view = handle.SlashCancel()
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// UpdateMetadata handles PUT /api/pages/{id}/session/metadata: a
// metadata edit routed through the session's fast autosave channel.
//
//	@Summary		Edit metadata inside an open session
//	@Tags			session
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int				true	"Page ID"
//	@Param			body	body		MetadataRequest	true	"Metadata"
//	@Success		200		{object}	docsession.View
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages/{id}/session/metadata [put]
func (h *SessionHandler) UpdateMetadata(w http.ResponseWriter, r *http.Request) {
	handle, ok := h.open(w, r)
	if !ok {
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
	handle.SetMetadata(req.Metadata())
	writeJSON(w, http.StatusOK, handle.View())
}

// Flush handles POST /api/pages/{id}/session/flush: force pending
// saves through and wait for them.
//
//	@Summary		Flush an open session's pending saves
//	@Tags			session
//	@Produce		json
//	@Param			id	path		int	true	"Page ID"
//	@Success		200	{object}	map[string]string
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages/{id}/session/flush [post]
func (h *SessionHandler) Flush(w http.ResponseWriter, r *http.Request) {
	handle, ok := h.open(w, r)
	if !ok {
		return
	}
	if err := handle.Flush(r.Context()); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("flush timed out"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(handle.Status())})
}

// open resolves the {id} session, writing the error response itself
// when the id is bad or no session is open.
func (h *SessionHandler) open(w http.ResponseWriter, r *http.Request) (*docsession.Handle, bool) {
	id, ok := pageID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid page id"))
		return nil, false
	}
	handle, ok := h.sessions.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("no open session"))
		return nil, false
	}
	return handle, true
}

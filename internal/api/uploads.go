package api

import (
	"io"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/halvard/ansuz/internal/uploads"
)

const maxUploadBytes = 50 << 20 // 50 MB

// UploadHandler serves and accepts uploaded assets.
type UploadHandler struct {
	store *uploads.Store
}

// NewUploadHandler creates a handler over the uploads store.
func NewUploadHandler(store *uploads.Store) *UploadHandler {
	return &UploadHandler{store: store}
}

// ServeFile handles GET /uploads/{filename}.
func (h *UploadHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	abs, err := h.store.SafePath(filename)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, statErr := os.Stat(abs); os.IsNotExist(statErr) {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, abs)
}

// Upload handles POST /api/uploads (multipart/form-data, field "file").
//
//	@Summary		Upload an asset
//	@Tags			uploads
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"File to upload"
//	@Success		201		{object}	UploadResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/uploads [post]
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	written, err := h.store.Save(header.Filename, io.Reader(file))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	writeJSON(w, http.StatusCreated, UploadResponse{
		Filename: header.Filename,
		Size:     written,
		URL:      "/uploads/" + header.Filename,
	})
}

// List handles GET /api/uploads.
//
//	@Summary		List uploaded assets
//	@Tags			uploads
//	@Produce		json
//	@Success		200	{object}	map[string]any
//	@Security		BearerAuth
//	@Router			/uploads [get]
func (h *UploadHandler) List(w http.ResponseWriter, r *http.Request) {
	assets, err := h.store.List()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if assets == nil {
		assets = []uploads.Asset{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"assets": assets,
	})
}

// Delete handles DELETE /api/uploads/{filename}.
//
//	@Summary		Delete an uploaded asset
//	@Tags			uploads
//	@Param			filename	path	string	true	"Asset filename"
//	@Success		204			"Asset deleted"
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/uploads/{filename} [delete]
func (h *UploadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	if err := h.store.Delete(filename); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

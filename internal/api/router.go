package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/halvard/ansuz/internal/bookmeta"
	"github.com/halvard/ansuz/internal/docsession"
	"github.com/halvard/ansuz/internal/pageservice"
	"github.com/halvard/ansuz/internal/sse"
	"github.com/halvard/ansuz/internal/uploads"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// broker, if non-nil, serves SSE at GET /events inside the auth group
// and receives page events from the mutating handlers.
func NewRouter(svc *pageservice.Service, sessions *docsession.Manager, uploadStore *uploads.Store, broker *sse.Broker, authEnabled bool, token string) chi.Router {
	h := NewHandler(svc, bookmeta.NewFetcher(), broker)
	sh := NewSessionHandler(sessions)
	uh := NewUploadHandler(uploadStore)
	eh := NewExportHandler(svc, uploadStore)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Pages CRUD.
	r.Get("/pages", h.ListPages)
	r.Post("/pages", h.CreatePage)
	r.Post("/pages/from-link", h.CreateFromLink)
	r.Post("/pages/today", h.OpenToday)
	r.Get("/pages/{id}", h.GetPage)
	r.Put("/pages/{id}/metadata", h.UpdateMetadata)
	r.Put("/pages/{id}/blocks", h.ReplaceBlocks)
	r.Delete("/pages/{id}", h.TrashPage)

	// Editing sessions.
	r.Post("/pages/{id}/session", sh.Open)
	r.Get("/pages/{id}/session", sh.Get)
	r.Delete("/pages/{id}/session", sh.Close)
	r.Post("/pages/{id}/session/op", sh.ApplyOp)
	r.Put("/pages/{id}/session/metadata", sh.UpdateMetadata)
	r.Post("/pages/{id}/session/flush", sh.Flush)

	// Trash.
	r.Get("/trash", h.ListTrash)
	r.Delete("/trash", h.EmptyTrash)
	r.Post("/pages/{id}/restore", h.RestorePage)
	r.Delete("/trash/{id}", h.DestroyPage)

	// Search, stats, wiki-link titles.
	r.Get("/search", h.Search)
	r.Get("/stats", h.Stats)
	r.Get("/titles", h.Titles)

	// Cross-page task view and zip backup.
	r.Get("/tasks", h.Tasks)
	r.Post("/tasks/{id}/toggle", h.ToggleTask)
	r.Get("/export", eh.Export)

	// Markup preview and bookmark metadata.
	r.Post("/markup/render", h.Render)
	r.Post("/bookmarks/metadata", h.BookmarkMeta)

	// Uploads (auth-protected; files are served outside /api).
	r.Post("/uploads", uh.Upload)
	r.Get("/uploads", uh.List)
	r.Delete("/uploads/{filename}", uh.Delete)

	// SSE endpoint (protected by same auth middleware).
	if broker != nil {
		r.Get("/events", broker.ServeHTTP)
	}

	return r
}

// NewFileRouter serves uploaded assets outside the /api prefix.
func NewFileRouter(uploadStore *uploads.Store) chi.Router {
	uh := NewUploadHandler(uploadStore)
	r := chi.NewRouter()
	r.Get("/uploads/{filename}", uh.ServeFile)
	return r
}

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/smartblock/internal/blockservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *blockservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Documents.
	r.Get("/documents", h.ListDocuments)
	r.Get("/document", h.GetDocument)

	// Blocks CRUD.
	r.Route("/blocks", func(r chi.Router) {
		r.Get("/", h.ListBlocks)
		r.Post("/", h.CreateBlock)
		r.Get("/{id}", h.GetBlock)
		r.Put("/{id}", h.UpdateBlock)
		r.Delete("/{id}", h.DeleteBlock)
		r.Post("/{id}/extract", h.ExtractBlock)
		r.Get("/{id}/similar", h.SimilarBlocks)
		r.Post("/{id}/summarize", h.SummarizeBlock)
	})
	r.Post("/validate", h.ValidateBlock)

	// Reordering.
	r.Get("/reorder", h.SuggestReorder)
	r.Post("/reorder", h.ApplyReorder)

	// Jobs.
	r.Get("/jobs", h.ListJobs)
	r.Post("/jobs", h.ProcessBlocks)
	r.Get("/jobs/{id}", h.GetJob)

	// Sidecar.
	r.Get("/sidecar", h.GetSidecar)
	r.Post("/sidecar/prune", h.PruneSidecar)

	// Search.
	r.Get("/search", h.Search)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}

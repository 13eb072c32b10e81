package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/smartblock/internal/extract"
	"github.com/starford/smartblock/internal/jobs"
	"github.com/starford/smartblock/internal/reorder"
)

// ExtractBlock handles POST /api/blocks/{id}/extract?doc=.
//
//	@Summary		Extract a block into a standalone note
//	@Tags			blocks
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Block id"
//	@Param			doc		query		string			true	"Document path"
//	@Param			body	body		extract.Options	false	"Extraction options"
//	@Success		201		{object}	blockservice.ExtractResult
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/blocks/{id}/extract [post]
func (h *Handler) ExtractBlock(w http.ResponseWriter, r *http.Request) {
	doc, ok := docParam(w, r)
	if !ok {
		return
	}
	var opts extract.Options
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &opts); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
			return
		}
	}
	res, err := h.svc.ExtractBlock(r.Context(), doc, chi.URLParam(r, "id"), opts)
	if err != nil {
		writeError(w, "extract block", err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// SimilarBlocks handles GET /api/blocks/{id}/similar?doc=.
//
//	@Summary		Find blocks with similar content across the vault
//	@Tags			blocks
//	@Produce		json
//	@Param			id		path		string	true	"Block id"
//	@Param			doc		query		string	true	"Document path"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SimilarResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/blocks/{id}/similar [get]
func (h *Handler) SimilarBlocks(w http.ResponseWriter, r *http.Request) {
	doc, ok := docParam(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	matches, err := h.svc.FindSimilar(r.Context(), doc, chi.URLParam(r, "id"), limit)
	if err != nil {
		writeError(w, "find similar", err)
		return
	}
	writeJSON(w, http.StatusOK, SimilarResponse{Matches: matches})
}

// SummarizeBlock handles POST /api/blocks/{id}/summarize?doc=.
//
//	@Summary		Summarize a block and store the summary in the sidecar
//	@Tags			blocks
//	@Produce		json
//	@Param			id	path		string	true	"Block id"
//	@Param			doc	query		string	true	"Document path"
//	@Success		200	{object}	SummaryResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/blocks/{id}/summarize [post]
func (h *Handler) SummarizeBlock(w http.ResponseWriter, r *http.Request) {
	doc, ok := docParam(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	summary, err := h.svc.Summarize(r.Context(), doc, id)
	if err != nil {
		writeError(w, "summarize block", err)
		return
	}
	writeJSON(w, http.StatusOK, SummaryResponse{BlockID: id, Summary: summary})
}

// SuggestReorder handles GET /api/reorder?doc=.
//
//	@Summary		Suggest a new order for the reorderable blocks
//	@Tags			reorder
//	@Produce		json
//	@Param			doc			query		string	true	"Document path"
//	@Param			strategy	query		string	false	"Ordering strategy hint"
//	@Param			goal		query		string	false	"Intended reading order"
//	@Success		200			{object}	blockservice.ReorderSuggestion
//	@Security		BearerAuth
//	@Router			/reorder [get]
func (h *Handler) SuggestReorder(w http.ResponseWriter, r *http.Request) {
	doc, ok := docParam(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	sug, err := h.svc.SuggestReorder(r.Context(), doc, reorder.Options{
		Strategy: q.Get("strategy"),
		Goal:     q.Get("goal"),
	})
	if err != nil {
		writeError(w, "suggest reorder", err)
		return
	}
	writeJSON(w, http.StatusOK, sug)
}

// ApplyReorder handles POST /api/reorder.
//
//	@Summary		Rewrite a document with a new block order
//	@Tags			reorder
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ApplyReorderRequest	true	"Document and order"
//	@Success		200		{object}	BlockListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/reorder [post]
func (h *Handler) ApplyReorder(w http.ResponseWriter, r *http.Request) {
	var req ApplyReorderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	bs, err := h.svc.ApplyReorder(r.Context(), req.Document, req.Order)
	if err != nil {
		writeError(w, "apply reorder", err)
		return
	}
	writeJSON(w, http.StatusOK, BlockListResponse{Document: req.Document, Blocks: bs, Total: len(bs)})
}

// ProcessBlocks handles POST /api/jobs.
//
//	@Summary		Run a batch of per-block jobs
//	@Tags			jobs
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ProcessRequest	true	"Batch to run"
//	@Success		200		{object}	JobsResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/jobs [post]
func (h *Handler) ProcessBlocks(w http.ResponseWriter, r *http.Request) {
	var req ProcessRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	t, _ := jobs.ParseType(req.Type)
	out, err := h.svc.ProcessBlocks(r.Context(), req.Document, req.BlockIDs, t)
	if err != nil {
		writeError(w, "process blocks", err)
		return
	}
	writeJSON(w, http.StatusOK, JobsResponse{Jobs: out})
}

// ListJobs handles GET /api/jobs.
//
//	@Summary		List retained jobs
//	@Tags			jobs
//	@Produce		json
//	@Success		200	{object}	JobsResponse
//	@Security		BearerAuth
//	@Router			/jobs [get]
func (h *Handler) ListJobs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, JobsResponse{Jobs: h.svc.Jobs()})
}

// GetJob handles GET /api/jobs/{id}.
//
//	@Summary		Get one job
//	@Tags			jobs
//	@Produce		json
//	@Param			id	path		string	true	"Job id"
//	@Success		200	{object}	jobs.Job
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/jobs/{id} [get]
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	j, ok := h.svc.Job(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, j)
}

// GetSidecar handles GET /api/sidecar?doc=.
//
//	@Summary		Get a document's sidecar metadata
//	@Tags			sidecar
//	@Produce		json
//	@Param			doc	query		string	true	"Document path"
//	@Success		200	{object}	models.SidecarMetadata
//	@Security		BearerAuth
//	@Router			/sidecar [get]
func (h *Handler) GetSidecar(w http.ResponseWriter, r *http.Request) {
	doc, ok := docParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Sidecar(r.Context(), doc))
}

// PruneSidecar handles POST /api/sidecar/prune?doc=.
//
//	@Summary		Drop sidecar entries for blocks no longer in the document
//	@Tags			sidecar
//	@Produce		json
//	@Param			doc	query		string	true	"Document path"
//	@Success		200	{object}	PruneResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sidecar/prune [post]
func (h *Handler) PruneSidecar(w http.ResponseWriter, r *http.Request) {
	doc, ok := docParam(w, r)
	if !ok {
		return
	}
	removed, err := h.svc.PruneSidecar(r.Context(), doc)
	if err != nil {
		writeError(w, "prune sidecar", err)
		return
	}
	writeJSON(w, http.StatusOK, PruneResponse{Removed: removed})
}

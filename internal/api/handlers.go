package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/smartblock/internal/blockservice"
	"github.com/starford/smartblock/internal/models"
	"github.com/starford/smartblock/internal/query"
)

// Handler holds API route handlers.
type Handler struct {
	svc *blockservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *blockservice.Service) *Handler {
	return &Handler{svc: svc}
}

// docParam returns the required ?doc= document path, writing a 400 when absent.
func docParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	doc := strings.TrimPrefix(r.URL.Query().Get("doc"), "/")
	if doc == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'doc' is required"))
		return "", false
	}
	return doc, true
}

// ifMatch strips ETag quotes from the If-Match header.
func ifMatch(r *http.Request) string {
	return strings.Trim(r.Header.Get("If-Match"), `"`)
}

func optionalBool(s string) (*bool, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// listOptions reads filter and sort parameters from the query string.
func listOptions(q map[string][]string) (blockservice.ListOptions, error) {
	get := func(k string) string {
		if v := q[k]; len(v) > 0 {
			return v[0]
		}
		return ""
	}
	var opts blockservice.ListOptions
	for _, raw := range q["type"] {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				opts.Criteria.Types = append(opts.Criteria.Types, models.BlockType(t))
			}
		}
	}
	for _, raw := range q["tag"] {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				opts.Criteria.Tags = append(opts.Criteria.Tags, t)
			}
		}
	}
	opts.Criteria.Text = get("q")

	var err error
	if opts.Criteria.Reorderable, err = optionalBool(get("reorderable")); err != nil {
		return opts, err
	}
	if opts.Criteria.HasSummary, err = optionalBool(get("has_summary")); err != nil {
		return opts, err
	}
	if opts.Criteria.HasExtraction, err = optionalBool(get("has_extraction")); err != nil {
		return opts, err
	}
	if opts.SortBy, err = query.ParseField(get("sort")); err != nil {
		return opts, err
	}
	if opts.Direction, err = query.ParseDirection(get("order")); err != nil {
		return opts, err
	}
	return opts, nil
}

// ListDocuments handles GET /api/documents.
//
//	@Summary		List indexed documents
//	@Tags			documents
//	@Produce		json
//	@Success		200	{object}	DocumentListResponse
//	@Security		BearerAuth
//	@Router			/documents [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.svc.ListDocuments(r.Context())
	if err != nil {
		writeError(w, "list documents", err)
		return
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: docs})
}

// GetDocument handles GET /api/document?doc=.
//
//	@Summary		Parse a document into blocks and warnings
//	@Tags			documents
//	@Produce		json
//	@Param			doc	query		string	true	"Document path"
//	@Success		200	{object}	models.DocumentBlocks
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/document [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := docParam(w, r)
	if !ok {
		return
	}
	res, err := h.svc.Document(r.Context(), doc)
	if err != nil {
		writeError(w, "get document", err)
		return
	}
	w.Header().Set("ETag", `"`+res.Checksum+`"`)
	writeJSON(w, http.StatusOK, res)
}

// ListBlocks handles GET /api/blocks?doc=.
//
//	@Summary		List blocks of a document with filtering and sorting
//	@Tags			blocks
//	@Produce		json
//	@Param			doc				query		string	true	"Document path"
//	@Param			type			query		string	false	"Comma-separated block types"
//	@Param			tag				query		string	false	"Comma-separated tags (any of)"
//	@Param			reorderable		query		bool	false	"Reorderable flag"
//	@Param			has_summary		query		bool	false	"Has an AI summary"
//	@Param			has_extraction	query		bool	false	"Has been extracted"
//	@Param			q				query		string	false	"Text search"
//	@Param			sort			query		string	false	"Sort field"	Enums(position, type, title, created, updated, length)
//	@Param			order			query		string	false	"Direction"	Enums(asc, desc)
//	@Success		200				{object}	BlockListResponse
//	@Failure		400				{object}	errResponse
//	@Security		BearerAuth
//	@Router			/blocks [get]
func (h *Handler) ListBlocks(w http.ResponseWriter, r *http.Request) {
	doc, ok := docParam(w, r)
	if !ok {
		return
	}
	opts, err := listOptions(r.URL.Query())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	bs, err := h.svc.ListBlocks(r.Context(), doc, opts)
	if err != nil {
		writeError(w, "list blocks", err)
		return
	}
	writeJSON(w, http.StatusOK, BlockListResponse{Document: doc, Blocks: bs, Total: len(bs)})
}

// GetBlock handles GET /api/blocks/{id}?doc=.
//
//	@Summary		Get one block with its sidecar metadata
//	@Tags			blocks
//	@Produce		json
//	@Param			id	path		string	true	"Block id"
//	@Param			doc	query		string	true	"Document path"
//	@Success		200	{object}	blockservice.BlockDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/blocks/{id} [get]
func (h *Handler) GetBlock(w http.ResponseWriter, r *http.Request) {
	doc, ok := docParam(w, r)
	if !ok {
		return
	}
	b, err := h.svc.GetBlock(r.Context(), doc, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get block", err)
		return
	}
	w.Header().Set("ETag", `"`+b.Block.ContentHash+`"`)
	writeJSON(w, http.StatusOK, b)
}

// CreateBlock handles POST /api/blocks.
//
//	@Summary		Append a new block to a document
//	@Tags			blocks
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateBlockRequest	true	"Block to create"
//	@Success		201		{object}	blockservice.BlockDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/blocks [post]
func (h *Handler) CreateBlock(w http.ResponseWriter, r *http.Request) {
	var req CreateBlockRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	b, err := h.svc.CreateBlock(r.Context(), strings.TrimPrefix(req.Document, "/"), req.input())
	if err != nil {
		writeError(w, "create block", err)
		return
	}
	w.Header().Set("ETag", `"`+b.Block.ContentHash+`"`)
	writeJSON(w, http.StatusCreated, b)
}

// UpdateBlock handles PUT /api/blocks/{id}?doc=.
//
//	@Summary		Update a block with optimistic concurrency
//	@Tags			blocks
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string				true	"Block id"
//	@Param			doc			query		string				true	"Document path"
//	@Param			If-Match	header		string				false	"Current content hash"
//	@Param			body		body		UpdateBlockRequest	true	"Fields to change"
//	@Success		200			{object}	blockservice.BlockDetail
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Failure		422			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/blocks/{id} [put]
func (h *Handler) UpdateBlock(w http.ResponseWriter, r *http.Request) {
	doc, ok := docParam(w, r)
	if !ok {
		return
	}
	var req UpdateBlockRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	b, err := h.svc.UpdateBlock(r.Context(), doc, chi.URLParam(r, "id"), req, ifMatch(r))
	if err != nil {
		writeError(w, "update block", err)
		return
	}
	w.Header().Set("ETag", `"`+b.Block.ContentHash+`"`)
	writeJSON(w, http.StatusOK, b)
}

// DeleteBlock handles DELETE /api/blocks/{id}?doc=.
//
//	@Summary		Delete a block
//	@Tags			blocks
//	@Param			id				path	string	true	"Block id"
//	@Param			doc				query	string	true	"Document path"
//	@Param			keep_content	query	bool	false	"Remove only the markers"
//	@Success		204				"Block deleted"
//	@Failure		404				{object}	errResponse
//	@Security		BearerAuth
//	@Router			/blocks/{id} [delete]
func (h *Handler) DeleteBlock(w http.ResponseWriter, r *http.Request) {
	doc, ok := docParam(w, r)
	if !ok {
		return
	}
	keep, _ := strconv.ParseBool(r.URL.Query().Get("keep_content"))
	if err := h.svc.DeleteBlock(r.Context(), doc, chi.URLParam(r, "id"), keep); err != nil {
		writeError(w, "delete block", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ValidateBlock handles POST /api/validate.
//
//	@Summary		Validate a block without writing it
//	@Tags			blocks
//	@Accept			json
//	@Produce		json
//	@Param			body	body		models.Block	true	"Block to validate"
//	@Success		200		{object}	blocks.ValidationResult
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/validate [post]
func (h *Handler) ValidateBlock(w http.ResponseWriter, r *http.Request) {
	var b models.Block
	if !decodeJSON(w, r, &b) {
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Engine().Validate(b))
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across blocks
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
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
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

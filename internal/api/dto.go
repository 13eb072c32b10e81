package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/smartblock/internal/blocks"
	"github.com/starford/smartblock/internal/blockservice"
	"github.com/starford/smartblock/internal/index"
	"github.com/starford/smartblock/internal/jobs"
	"github.com/starford/smartblock/internal/models"
)

// CreateBlockRequest is the request body for appending a block to a document.
type CreateBlockRequest struct {
	Document       string           `json:"document" example:"notes/reading.md" validate:"required"`
	Content        string           `json:"content" example:"Spaced repetition beats rereading." validate:"required"`
	ID             string           `json:"id,omitempty" example:"insight-1"`
	Type           models.BlockType `json:"type,omitempty" example:"insight"`
	Title          string           `json:"title,omitempty" example:"Retention"`
	Tags           []string         `json:"tags,omitempty" example:"learning,memory"`
	Reorderable    *bool            `json:"reorderable,omitempty"`
	CreateDocument bool             `json:"create_document,omitempty"`
}

// Validate checks the required fields.
func (r CreateBlockRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Document, validation.Required),
		validation.Field(&r.Content, validation.Required),
	)
}

func (r CreateBlockRequest) input() blockservice.CreateInput {
	return blockservice.CreateInput{
		Content: r.Content,
		CreateOptions: blocks.CreateOptions{
			ID:          r.ID,
			Type:        r.Type,
			Title:       r.Title,
			Tags:        r.Tags,
			Reorderable: r.Reorderable,
		},
		CreateDocument: r.CreateDocument,
	}
}

// UpdateBlockRequest lists the fields to change. Omitted fields are kept.
type UpdateBlockRequest = blocks.Update

// ApplyReorderRequest is the request body for rewriting block order.
type ApplyReorderRequest struct {
	Document string `json:"document" example:"notes/reading.md" validate:"required"`
	Order    []int  `json:"order" example:"2,0,1" validate:"required"`
}

// Validate checks the required fields.
func (r ApplyReorderRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Document, validation.Required),
		validation.Field(&r.Order, validation.Required),
	)
}

// ProcessRequest submits a batch of jobs. Empty BlockIDs means every block.
type ProcessRequest struct {
	Document string   `json:"document" example:"notes/reading.md" validate:"required"`
	BlockIDs []string `json:"block_ids,omitempty"`
	Type     string   `json:"type" example:"summarize" validate:"required"`
}

// Validate checks the required fields and the job type.
func (r ProcessRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Document, validation.Required),
		validation.Field(&r.Type, validation.Required, validation.In(
			string(jobs.Summarize), string(jobs.Embed), string(jobs.Reorder), string(jobs.Extract))),
	)
}

// BlockListResponse wraps a filtered block listing.
type BlockListResponse struct {
	Document string         `json:"document" validate:"required"`
	Blocks   []models.Block `json:"blocks" validate:"required"`
	Total    int            `json:"total" example:"3" validate:"required"`
}

// DocumentListResponse wraps indexed documents.
type DocumentListResponse struct {
	Documents []index.DocumentRow `json:"documents" validate:"required"`
}

// SimilarResponse wraps similarity matches.
type SimilarResponse struct {
	Matches []blockservice.SimilarMatch `json:"matches" validate:"required"`
}

// SummaryResponse carries a generated summary.
type SummaryResponse struct {
	BlockID string `json:"block_id" validate:"required"`
	Summary string `json:"summary" validate:"required"`
}

// JobsResponse wraps job listings.
type JobsResponse struct {
	Jobs []jobs.Job `json:"jobs" validate:"required"`
}

// PruneResponse lists the sidecar entries removed by a prune.
type PruneResponse struct {
	Removed []string `json:"removed" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

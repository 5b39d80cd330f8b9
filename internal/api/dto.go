package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/halvard/ansuz/internal/block"
	"github.com/halvard/ansuz/internal/models"
	"github.com/halvard/ansuz/internal/pageservice"
)

// categoryRule validates membership in the fixed category set.
func categoryRule() validation.Rule {
	vals := make([]interface{}, len(models.Categories))
	for i, c := range models.Categories {
		vals[i] = c
	}
	return validation.In(vals...)
}

// blockTypeRule validates membership in the fixed block-type set.
func blockTypeRule() validation.Rule {
	vals := make([]interface{}, len(block.Types))
	for i, t := range block.Types {
		vals[i] = t
	}
	return validation.In(vals...)
}

// CreatePageRequest is the request body for creating a page. Both
// fields are optional; empty values take the documented defaults.
type CreatePageRequest struct {
	Title    string `json:"title" example:"Project plan"`
	Category string `json:"category" example:"projects"`
}

// Validate implements request validation.
func (r CreatePageRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Category, categoryRule()),
	)
}

// CreateFromLinkRequest creates a page for a dead wiki-link.
type CreateFromLinkRequest struct {
	Title string `json:"title" example:"World" validate:"required"`
}

// Validate implements request validation.
func (r CreateFromLinkRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required),
	)
}

// MetadataRequest is the full metadata tuple for a direct update.
type MetadataRequest struct {
	Title    string `json:"title" example:"Project plan"`
	Category string `json:"category" example:"projects"`
	Deadline string `json:"deadline" example:"2025-06-30"`
	Tags     string `json:"tags" example:"go,planning"`
}

// Validate implements request validation.
func (r MetadataRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Category, categoryRule()),
		validation.Field(&r.Deadline, validation.Date("2006-01-02")),
	)
}

// Metadata converts the request to the domain tuple.
func (r MetadataRequest) Metadata() models.Metadata {
	return models.Metadata{
		Title:    r.Title,
		Category: r.Category,
		Deadline: r.Deadline,
		Tags:     r.Tags,
	}
}

// BlockDTO is one block in a full-replace request.
type BlockDTO struct {
	Type    string `json:"type" example:"paragraph" validate:"required"`
	Content string `json:"content" example:"Hello **world**"`
}

// Validate implements request validation.
func (b BlockDTO) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.Type, validation.Required, blockTypeRule()),
	)
}

// ReplaceBlocksRequest swaps a page's entire block set. Seq 0 means
// "no sequence token": the store assigns the next one.
type ReplaceBlocksRequest struct {
	Blocks []BlockDTO `json:"blocks" validate:"required"`
	Seq    int64      `json:"seq" example:"0"`
}

// Validate implements request validation.
func (r ReplaceBlocksRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Blocks, validation.NotNil),
		validation.Field(&r.Seq, validation.Min(0)),
	)
}

// Records converts the request to store records for the given page.
func (r ReplaceBlocksRequest) Records(pageID int64) []block.Record {
	out := make([]block.Record, len(r.Blocks))
	for i, b := range r.Blocks {
		out[i] = block.Record{
			PageID:     pageID,
			Type:       b.Type,
			Content:    b.Content,
			OrderIndex: i,
		}
	}
	return out
}

// RenderRequest asks for inline markup rendering of a text fragment.
type RenderRequest struct {
	Text string `json:"text" example:"Hello **world** and [[Other Page]]"`
}

// BookmarkMetaRequest asks for bookmark metadata for a URL.
type BookmarkMetaRequest struct {
	URL string `json:"url" example:"https://example.com" validate:"required"`
}

// Validate implements request validation.
func (r BookmarkMetaRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.URL, validation.Required),
	)
}

// PageDetail is the full page response type (aliased from the domain layer).
type PageDetail = pageservice.PageDetail

// PageListResponse wraps page listings.
type PageListResponse struct {
	Pages []models.Page `json:"pages" validate:"required"`
	Total int           `json:"total" example:"42" validate:"required"`
}

// ReplaceBlocksResponse reports the accepted sequence token.
type ReplaceBlocksResponse struct {
	Seq int64 `json:"seq" example:"7" validate:"required"`
}

// UploadResponse is returned after a successful asset upload.
type UploadResponse struct {
	Filename string `json:"filename" example:"image.png" validate:"required"`
	Size     int64  `json:"size" example:"12345" validate:"required"`
	URL      string `json:"url" example:"/uploads/image.png" validate:"required"`
}

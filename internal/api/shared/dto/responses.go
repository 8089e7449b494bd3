package dto

import (
	"encoding/json"
	"time"

	"github.com/feral-file/ff-history/internal/history"
	"github.com/feral-file/ff-history/internal/model"
)

// CategoryResponse represents a category
type CategoryResponse struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DocumentResponse represents the live state of a document
type DocumentResponse struct {
	ID         uint64            `json:"id"`
	Title      string            `json:"title"`
	Body       string            `json:"body"`
	Attributes json.RawMessage   `json:"attributes,omitempty"`
	CategoryID *uint64           `json:"category_id,omitempty"`
	Category   *CategoryResponse `json:"category,omitempty"`
	Version    int64             `json:"version"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// DeleteDocumentResponse reports the version a document was deleted at
type DeleteDocumentResponse struct {
	ID      uint64 `json:"id"`
	Version int64  `json:"version"`
}

// HistoryRecordResponse represents one recorded version. History is read-only.
type HistoryRecordResponse struct {
	Version   int64          `json:"version"`
	ChangedAt time.Time      `json:"changed_at"`
	Message   string         `json:"message,omitempty"`
	Values    map[string]any `json:"values"`
}

// HistoryListResponse lists the recorded versions of a document, oldest first
type HistoryListResponse struct {
	DocumentID     uint64                  `json:"document_id"`
	CurrentVersion int64                   `json:"current_version,omitempty"`
	Items          []HistoryRecordResponse `json:"items"`
}

// DiffResponse compares two versions of a document
type DiffResponse struct {
	DocumentID uint64                `json:"document_id"`
	From       int64                 `json:"from"`
	To         int64                 `json:"to"`
	Changes    []history.FieldChange `json:"changes"`
	Unified    string                `json:"unified,omitempty"`
}

// HealthResponse reports service health
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// NewCategoryResponse maps a category
func NewCategoryResponse(c *model.Category) *CategoryResponse {
	if c == nil {
		return nil
	}
	return &CategoryResponse{
		ID:        c.ID,
		Name:      c.Name,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// NewDocumentResponse maps a document
func NewDocumentResponse(d *model.Document) *DocumentResponse {
	resp := &DocumentResponse{
		ID:         d.ID,
		Title:      d.Title,
		Body:       d.Body,
		CategoryID: d.CategoryID,
		Category:   NewCategoryResponse(d.Category),
		Version:    d.CurrentVersion(),
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
	if len(d.Attributes) > 0 {
		resp.Attributes = json.RawMessage(d.Attributes)
	}
	return resp
}

// NewHistoryRecordResponse maps a history record
func NewHistoryRecordResponse(r history.Record) HistoryRecordResponse {
	values := make(map[string]any, len(r.Values))
	for k, v := range r.Values {
		// Drivers may return JSON and text columns as bytes
		if b, ok := v.([]byte); ok {
			if json.Valid(b) {
				v = json.RawMessage(b)
			} else {
				v = string(b)
			}
		}
		values[k] = v
	}
	return HistoryRecordResponse{
		Version:   r.Version,
		ChangedAt: r.ChangedAt,
		Message:   r.Message,
		Values:    values,
	}
}

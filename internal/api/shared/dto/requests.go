package dto

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CategoryRequest creates or renames a category
type CategoryRequest struct {
	Name string `json:"name"`
}

// Validate validates the request
func (r *CategoryRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if len(r.Name) > 128 {
		return fmt.Errorf("name must be at most 128 characters")
	}
	return nil
}

// CreateDocumentRequest creates a document. Creation carries no version message.
type CreateDocumentRequest struct {
	Title      string          `json:"title"`
	Body       string          `json:"body"`
	Attributes json.RawMessage `json:"attributes,omitempty"`
	CategoryID *uint64         `json:"category_id,omitempty"`
}

// Validate validates the request
func (r *CreateDocumentRequest) Validate() error {
	if err := validateTitle(r.Title); err != nil {
		return err
	}
	return validateAttributes(r.Attributes)
}

// UpdateDocumentRequest edits a document. Only the fields present are changed.
// Category names an existing category or one to create with the edit.
type UpdateDocumentRequest struct {
	Title      *string         `json:"title,omitempty"`
	Body       *string         `json:"body,omitempty"`
	Attributes json.RawMessage `json:"attributes,omitempty"`
	CategoryID *uint64         `json:"category_id,omitempty"`
	Category   *string         `json:"category,omitempty"`
	Message    string          `json:"message,omitempty"`
}

// Validate validates the request
func (r *UpdateDocumentRequest) Validate() error {
	if r.Title != nil {
		if err := validateTitle(*r.Title); err != nil {
			return err
		}
	}
	if r.CategoryID != nil && r.Category != nil {
		return fmt.Errorf("category_id and category are mutually exclusive")
	}
	if r.Category != nil && strings.TrimSpace(*r.Category) == "" {
		return fmt.Errorf("category must not be empty")
	}
	return validateAttributes(r.Attributes)
}

// DeleteDocumentRequest deletes a document with an optional version message
type DeleteDocumentRequest struct {
	Message string `json:"message,omitempty"`
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("title is required")
	}
	if len(title) > 255 {
		return fmt.Errorf("title must be at most 255 characters")
	}
	return nil
}

func validateAttributes(raw json.RawMessage) error {
	if len(raw) == 0 {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return fmt.Errorf("attributes must be a JSON object")
	}
	return nil
}

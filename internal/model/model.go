// Package model holds the gorm models served by historyd.
package model

import (
	"time"

	"gorm.io/datatypes"

	"github.com/feral-file/ff-history/internal/history"
)

// Category groups documents. Categories are not versioned.
type Category struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:128;not null;uniqueIndex" json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Document is a versioned, editable record.
type Document struct {
	ID         uint64         `gorm:"primaryKey" json:"id"`
	Title      string         `gorm:"size:255;not null" json:"title"`
	Body       string         `gorm:"type:text" json:"body"`
	Attributes datatypes.JSON `json:"attributes,omitempty"`
	CategoryID *uint64        `gorm:"index" json:"categoryId,omitempty"`
	Category   *Category      `json:"category,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
	history.Versioned
}

// All lists every model, in migration order.
func All() []any {
	return []any{&Category{}, &Document{}}
}

// Register makes the versioned models known to reg. Documents collect version
// messages and do not record their updated_at stamp; opts add to that.
func Register(reg *history.Registry, opts ...history.Option) error {
	base := []history.Option{
		history.WithVersionMessage(),
		history.WithExcludedColumns("updated_at"),
	}
	_, err := reg.MakeVersioned(&Document{}, append(base, opts...)...)
	return err
}

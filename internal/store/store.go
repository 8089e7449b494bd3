package store

import (
	"context"

	"github.com/feral-file/ff-history/internal/history"
	"github.com/feral-file/ff-history/internal/uow"
)

// Store defines the interface for database operations
type Store interface {
	// Migrate auto-migrates the live models and creates every registered history table
	Migrate(ctx context.Context, models ...any) error
	// NewSession opens a unit of work that records history
	NewSession(opts ...uow.Option) *uow.Session
	// ListHistory returns the history of the row with the given key, oldest first
	ListHistory(ctx context.Context, model any, key ...any) ([]history.Record, error)
	// GetHistoryVersion returns one recorded version of the row with the given key
	GetHistoryVersion(ctx context.Context, model any, version int64, key ...any) (*history.Record, error)
	// Ping checks the database connection
	Ping(ctx context.Context) error
}

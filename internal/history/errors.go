package history

import (
	"fmt"

	"github.com/feral-file/ff-history/internal/domain"
)

// SchemaDerivationError reports a model whose history table cannot be derived.
type SchemaDerivationError struct {
	Model  string
	Reason string
	Err    error
}

func (e *SchemaDerivationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("history: cannot derive history table for %s: %s: %v", e.Model, e.Reason, e.Err)
	}
	return fmt.Sprintf("history: cannot derive history table for %s: %s", e.Model, e.Reason)
}

func (e *SchemaDerivationError) Unwrap() error { return e.Err }

func (e *SchemaDerivationError) Is(target error) bool { return target == domain.ErrSchemaDerivation }

// AlreadyVersionedError reports a second registration of the same model type.
type AlreadyVersionedError struct {
	Model string
}

func (e *AlreadyVersionedError) Error() string {
	return fmt.Sprintf("history: %s is already versioned", e.Model)
}

func (e *AlreadyVersionedError) Is(target error) bool { return target == domain.ErrAlreadyVersioned }

// VersioningError aborts a flush whose history rows could not be built.
type VersioningError struct {
	Table  string
	Key    string
	Reason string
	Err    error
}

func (e *VersioningError) Error() string {
	msg := fmt.Sprintf("history: cannot version %s[%s]: %s", e.Table, e.Key, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *VersioningError) Unwrap() error { return e.Err }

func (e *VersioningError) Is(target error) bool { return target == domain.ErrVersioning }

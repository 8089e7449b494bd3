package domain

import "errors"

var (
	// ErrSchemaDerivation is returned when a history table cannot be derived from a model
	ErrSchemaDerivation = errors.New("schema derivation failed")

	// ErrAlreadyVersioned is returned when a model type is registered for versioning twice
	ErrAlreadyVersioned = errors.New("model is already versioned")

	// ErrVersioning is returned when a flush aborts because a revision could not be recorded
	ErrVersioning = errors.New("versioning failed")

	// ErrNotVersioned is returned when a history operation targets an unregistered model
	ErrNotVersioned = errors.New("model is not versioned")

	// ErrVersionMessageUnsupported is returned when a message is set on a model registered without messages
	ErrVersionMessageUnsupported = errors.New("model does not collect version messages")

	// ErrSessionClosed is returned when a closed session is used
	ErrSessionClosed = errors.New("session is closed")

	// ErrNotManaged is returned when an object is not attached to the session
	ErrNotManaged = errors.New("object is not managed by the session")

	// ErrMissingPrimaryKey is returned when a persistent object has a zero primary key
	ErrMissingPrimaryKey = errors.New("missing primary key")

	// ErrRecordNotFound is returned when a record or history version does not exist
	ErrRecordNotFound = errors.New("record not found")
)

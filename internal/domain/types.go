package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Operation is the kind of change a revision records
type Operation string

const (
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// Valid reports whether the operation is known
func (o Operation) Valid() bool {
	return o == OperationUpdate || o == OperationDelete
}

// Revision describes one history row written by a committed flush.
// ID and Digest are assigned when the revision is journaled.
type Revision struct {
	ID           string            `json:"id"`
	Table        string            `json:"table"`
	HistoryTable string            `json:"historyTable"`
	Operation    Operation         `json:"operation"`
	Key          datatypes.JSONMap `json:"key"`
	Version      int64             `json:"version"`
	ChangedAt    time.Time         `json:"changedAt"`
	Message      string            `json:"message,omitempty"`
	Snapshot     datatypes.JSONMap `json:"snapshot"`
	Digest       string            `json:"digest,omitempty"`
	SessionID    string            `json:"sessionId,omitempty"`
}

// Subject returns the journal subject for the revision
func (r Revision) Subject() string {
	return RevisionSubject(r.Table, r.Operation)
}

// KeyString renders the entity key as a stable string, columns in name order
func (r Revision) KeyString() string {
	cols := make([]string, 0, len(r.Key))
	for col := range r.Key {
		cols = append(cols, col)
	}
	slices.Sort(cols)

	parts := make([]string, 0, len(cols))
	for _, col := range cols {
		parts = append(parts, fmt.Sprintf("%s=%v", col, r.Key[col]))
	}
	return strings.Join(parts, ",")
}

// RevisionSubject builds the journal subject for a table and operation
func RevisionSubject(table string, op Operation) string {
	return fmt.Sprintf("%s.%s.%s", REVISION_SUBJECT_PREFIX, table, op)
}

// Package history keeps an append-only log of every change made to tracked
// gorm models. A model opts in by embedding Versioned and registering with
// MakeVersioned; a session opts in with VersionSession. From then on each
// flush that changes a tracked row first copies the row's previous state into
// a parallel "<table>_history" table and bumps the live version.
package history

const (
	// ColumnVersion is the live version counter and the history row version.
	ColumnVersion = "version"
	// ColumnChangedAt is the flush time a history row was written at.
	ColumnChangedAt = "changed_at"
	// ColumnVersionMessage holds the changelog message of a history row.
	ColumnVersionMessage = "version_message"

	// DefaultSuffix is appended to the live table name.
	DefaultSuffix = "_history"

	// tagKey marks versioning bookkeeping fields: `history:"meta"`.
	tagKey  = "history"
	tagMeta = "meta"
)

// reserved names may not be used by copied columns.
var reserved = map[string]bool{
	ColumnVersion:        true,
	ColumnChangedAt:      true,
	ColumnVersionMessage: true,
}

// Versioned is embedded in models that keep history. Version starts at 1 and
// grows by one on every committed change to a business column.
type Versioned struct {
	Version int64 `gorm:"column:version;not null;default:1" history:"meta" json:"version"`
}

// CurrentVersion returns the live version counter.
func (v *Versioned) CurrentVersion() int64 {
	return v.Version
}

func (v *Versioned) versioned() *Versioned { return v }

// Tracked is implemented by every model embedding Versioned.
type Tracked interface {
	CurrentVersion() int64
	versioned() *Versioned
}

package history

import (
	"reflect"
	"time"

	"gorm.io/gorm/schema"
)

// MirrorOptions configures Mirror.
type MirrorOptions struct {
	// IsInternal selects source columns that are not copied.
	// Defaults to IsVersioningColumn.
	IsInternal func(Column) bool
	// IncludeMessage appends the version_message column.
	IncludeMessage bool
	// OnParentDelete defaults to ForeignKeyOrphan.
	OnParentDelete ForeignKeyAction
	// Suffix defaults to DefaultSuffix.
	Suffix string
}

// IsVersioningColumn reports whether c is versioning bookkeeping.
func IsVersioningColumn(c Column) bool {
	return c.Meta
}

// Mirror derives the history table of src. Key columns become plain parts of
// a composite key with version; copied columns lose uniqueness and defaults
// because history repeats values.
func Mirror(src Table, opts MirrorOptions) (*Table, error) {
	isInternal := opts.IsInternal
	if isInternal == nil {
		isInternal = IsVersioningColumn
	}
	suffix := opts.Suffix
	if suffix == "" {
		suffix = DefaultSuffix
	}
	onDelete := opts.OnParentDelete
	if onDelete == "" {
		onDelete = ForeignKeyOrphan
	}

	keys := src.PrimaryKey()
	if len(keys) == 0 {
		return nil, &SchemaDerivationError{Model: src.Name, Reason: "table has no primary key"}
	}

	out := &Table{Name: src.Name + suffix}
	var counter bool
	for _, c := range src.Columns {
		if isInternal(c) {
			if c.PrimaryKey {
				return nil, &SchemaDerivationError{Model: src.Name, Reason: "primary key " + c.Name + " cannot be internal"}
			}
			if c.Name == ColumnVersion {
				counter = true
			}
			continue
		}
		if reserved[c.Name] {
			return nil, &SchemaDerivationError{Model: src.Name, Reason: "column " + c.Name + " collides with a history column"}
		}

		col := c
		col.Unique = false
		col.HasDefault = false
		col.AutoIncrement = false
		col.Role = RoleData
		if col.PrimaryKey {
			col.Role = RoleKey
			col.NotNull = true
		}
		out.Columns = append(out.Columns, col)
	}
	if !counter {
		return nil, &SchemaDerivationError{Model: src.Name, Reason: "no internal version column; embed history.Versioned"}
	}

	out.Columns = append(out.Columns,
		Column{
			Name:       ColumnVersion,
			DataType:   schema.Int,
			GoType:     reflect.TypeOf(int64(0)),
			Size:       64,
			PrimaryKey: true,
			NotNull:    true,
			Role:       RoleVersion,
		},
		Column{
			Name:     ColumnChangedAt,
			DataType: schema.Time,
			GoType:   reflect.TypeOf(time.Time{}),
			NotNull:  true,
			Role:     RoleChangedAt,
		},
	)
	if opts.IncludeMessage {
		out.Columns = append(out.Columns, Column{
			Name:     ColumnVersionMessage,
			DataType: schema.String,
			GoType:   reflect.TypeOf(""),
			Role:     RoleMessage,
		})
	}

	out.ForeignKeys = []ForeignKey{{
		Columns:    keys,
		RefTable:   src.Name,
		RefColumns: keys,
		OnDelete:   onDelete,
	}}
	return out, nil
}

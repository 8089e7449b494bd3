package history

import (
	"reflect"

	"gorm.io/gorm/schema"
)

// Role tells what a history column holds.
type Role int

const (
	RoleData Role = iota
	RoleKey
	RoleVersion
	RoleChangedAt
	RoleMessage
)

// Column is the structural description of one table column.
type Column struct {
	Name          string
	DataType      schema.DataType
	GoType        reflect.Type
	Size          int
	Precision     int
	Scale         int
	PrimaryKey    bool
	AutoIncrement bool
	NotNull       bool
	Unique        bool
	HasDefault    bool
	// Meta marks versioning bookkeeping columns.
	Meta bool
	Role Role
}

// ForeignKeyAction decides what happens to history rows when the live row is deleted.
type ForeignKeyAction string

const (
	// ForeignKeyOrphan keeps a logical reference only; history outlives the row.
	ForeignKeyOrphan ForeignKeyAction = "orphan"
	// ForeignKeyCascade adds a database constraint with ON DELETE CASCADE.
	ForeignKeyCascade ForeignKeyAction = "cascade"
)

// ForeignKey references the live table from the history table.
type ForeignKey struct {
	Columns    []string
	RefTable   string
	RefColumns []string
	OnDelete   ForeignKeyAction
}

// Enforced reports whether the key is backed by a database constraint.
func (fk ForeignKey) Enforced() bool {
	return fk.OnDelete == ForeignKeyCascade
}

// Table is the structural description of a table.
type Table struct {
	Name        string
	Columns     []Column
	ForeignKeys []ForeignKey
}

// Column looks a column up by name.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnNames lists column names in table order.
func (t *Table) ColumnNames() []string {
	names := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		names = append(names, c.Name)
	}
	return names
}

// PrimaryKey lists the primary key column names in table order.
func (t *Table) PrimaryKey() []string {
	var names []string
	for _, c := range t.Columns {
		if c.PrimaryKey {
			names = append(names, c.Name)
		}
	}
	return names
}

// TableFromSchema describes the table of a parsed gorm model. Fields tagged
// `history:"meta"` are flagged Meta.
func TableFromSchema(sch *schema.Schema) Table {
	t := Table{Name: sch.Table}
	for _, name := range sch.DBNames {
		f := sch.FieldsByDBName[name]
		t.Columns = append(t.Columns, Column{
			Name:          f.DBName,
			DataType:      f.DataType,
			GoType:        f.FieldType,
			Size:          f.Size,
			Precision:     f.Precision,
			Scale:         f.Scale,
			PrimaryKey:    f.PrimaryKey,
			AutoIncrement: f.AutoIncrement,
			NotNull:       f.NotNull,
			Unique:        f.Unique,
			HasDefault:    f.HasDefaultValue,
			Meta:          f.Tag.Get(tagKey) == tagMeta,
		})
	}
	return t
}

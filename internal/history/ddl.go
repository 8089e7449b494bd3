package history

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// CreateTableSQL renders the DDL of t for the dialect db is connected with.
func CreateTableSQL(db *gorm.DB, t *Table) ([]string, error) {
	if len(t.Columns) == 0 {
		return nil, fmt.Errorf("table %s has no columns", t.Name)
	}
	stmt := &gorm.Statement{DB: db}
	migrator := db.Migrator()

	defs := make([]string, 0, len(t.Columns)+1+len(t.ForeignKeys))
	for _, c := range t.Columns {
		expr := migrator.FullDataTypeOf(fieldOf(c))
		if strings.TrimSpace(expr.SQL) == "" {
			return nil, fmt.Errorf("no %s data type for column %s.%s", db.Dialector.Name(), t.Name, c.Name)
		}
		defs = append(defs, stmt.Quote(c.Name)+" "+expr.SQL)
	}
	defs = append(defs, "PRIMARY KEY ("+quoteAll(stmt, t.PrimaryKey())+")")

	for _, fk := range t.ForeignKeys {
		if !fk.Enforced() {
			continue
		}
		defs = append(defs, fmt.Sprintf("CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s) ON DELETE CASCADE",
			stmt.Quote("fk_"+t.Name+"_"+fk.RefTable),
			quoteAll(stmt, fk.Columns),
			stmt.Quote(fk.RefTable),
			quoteAll(stmt, fk.RefColumns),
		))
	}

	stmts := []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", stmt.Quote(t.Name), strings.Join(defs, ", ")),
	}
	for _, fk := range t.ForeignKeys {
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
			stmt.Quote("idx_"+t.Name+"_"+strings.Join(fk.Columns, "_")),
			stmt.Quote(t.Name),
			quoteAll(stmt, fk.Columns),
		))
	}
	return stmts, nil
}

// CreateTable runs the DDL of t.
func CreateTable(ctx context.Context, db *gorm.DB, t *Table) error {
	stmts, err := CreateTableSQL(db, t)
	if err != nil {
		return err
	}
	for _, sql := range stmts {
		if err := db.WithContext(ctx).Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create %s: %w", t.Name, err)
		}
	}
	return nil
}

func quoteAll(stmt *gorm.Statement, names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = stmt.Quote(n)
	}
	return strings.Join(quoted, ", ")
}

// fieldOf builds the minimal gorm field the dialect needs to pick a type.
func fieldOf(c Column) *schema.Field {
	goType := c.GoType
	if goType == nil {
		goType = reflect.TypeOf("")
	}
	indirect := goType
	for indirect.Kind() == reflect.Ptr {
		indirect = indirect.Elem()
	}
	return &schema.Field{
		Name:              c.Name,
		DBName:            c.Name,
		DataType:          c.DataType,
		GORMDataType:      c.DataType,
		Size:              c.Size,
		Precision:         c.Precision,
		Scale:             c.Scale,
		PrimaryKey:        c.PrimaryKey,
		NotNull:           c.NotNull,
		FieldType:         goType,
		IndirectFieldType: indirect,
		TagSettings:       map[string]string{},
	}
}

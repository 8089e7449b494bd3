package uow

import (
	"bytes"
	"context"
	"database/sql/driver"
	"fmt"
	"reflect"
	"time"

	"gorm.io/gorm/schema"
)

// snapshot maps column names to detached copies of the column values.
type snapshot map[string]any

// takeSnapshot reads every column field of rv.
func takeSnapshot(ctx context.Context, sch *schema.Schema, rv reflect.Value) snapshot {
	snap := make(snapshot, len(sch.DBNames))
	for _, name := range sch.DBNames {
		field := sch.FieldsByDBName[name]
		v, _ := field.ValueOf(ctx, rv)
		snap[name] = detach(v)
	}
	return snap
}

// restore writes snap back onto rv.
func (snap snapshot) restore(ctx context.Context, sch *schema.Schema, rv reflect.Value) error {
	for name, v := range snap {
		field, ok := sch.FieldsByDBName[name]
		if !ok {
			continue
		}
		if err := assign(ctx, field, rv, detach(v)); err != nil {
			return err
		}
	}
	return nil
}

func (snap snapshot) clone() snapshot {
	out := make(snapshot, len(snap))
	for k, v := range snap {
		out[k] = detach(v)
	}
	return out
}

// detach copies values that share memory with the object they were read from.
func detach(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr:
		if rv.IsNil() {
			return v
		}
		cp := reflect.New(rv.Elem().Type())
		cp.Elem().Set(reflect.ValueOf(detach(rv.Elem().Interface())))
		return cp.Interface()
	case reflect.Slice:
		if rv.IsNil() {
			return v
		}
		cp := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		reflect.Copy(cp, rv)
		return cp.Interface()
	case reflect.Map:
		if rv.IsNil() {
			return v
		}
		cp := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			cp.SetMapIndex(iter.Key(), iter.Value())
		}
		return cp.Interface()
	}
	return v
}

// Indirect dereferences pointer values, returning nil for nil pointers.
func Indirect(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	return rv.Interface()
}

// Equal compares two column values the way the database would see them.
func Equal(a, b any) bool {
	a, b = Indirect(a), Indirect(b)
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}

	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if isBytes(ra) && isBytes(rb) {
		return bytes.Equal(ra.Bytes(), rb.Bytes())
	}

	if va, ok := a.(driver.Valuer); ok {
		if vb, ok := b.(driver.Valuer); ok {
			xa, errA := va.Value()
			xb, errB := vb.Value()
			if errA == nil && errB == nil {
				return reflect.DeepEqual(Indirect(xa), Indirect(xb)) || equalBytesOrTime(xa, xb)
			}
		}
	}
	return reflect.DeepEqual(a, b)
}

func equalBytesOrTime(a, b any) bool {
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.IsValid() && rb.IsValid() && isBytes(ra) && isBytes(rb) {
		return bytes.Equal(ra.Bytes(), rb.Bytes())
	}
	return false
}

func isBytes(rv reflect.Value) bool {
	return rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8
}

// assign sets a column field, converting v to the field type when needed.
func assign(ctx context.Context, field *schema.Field, rv reflect.Value, v any) error {
	target := field.ReflectValueOf(ctx, rv)
	if v == nil {
		target.Set(reflect.Zero(target.Type()))
		return nil
	}
	val := reflect.ValueOf(v)
	switch {
	case val.Type().AssignableTo(target.Type()):
		target.Set(val)
	case convertible(val.Type(), target.Type()):
		target.Set(val.Convert(target.Type()))
	case target.Kind() == reflect.Ptr && convertible(val.Type(), target.Type().Elem()):
		ptr := reflect.New(target.Type().Elem())
		ptr.Elem().Set(val.Convert(target.Type().Elem()))
		target.Set(ptr)
	default:
		if err := field.Set(ctx, rv, v); err != nil {
			return fmt.Errorf("failed to set %s: %w", field.DBName, err)
		}
	}
	return nil
}

// convertible rejects conversions that change meaning, such as int to string.
func convertible(from, to reflect.Type) bool {
	if !from.ConvertibleTo(to) {
		return false
	}
	if from.Kind() == to.Kind() {
		return true
	}
	return isNumber(from.Kind()) && isNumber(to.Kind())
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

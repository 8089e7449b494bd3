package history

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/feral-file/ff-history/internal/uow"
)

// Record is one history row read back from the database.
type Record struct {
	Version   int64          `json:"version"`
	ChangedAt time.Time      `json:"changedAt"`
	Message   string         `json:"message,omitempty"`
	Values    map[string]any `json:"values"`

	ht *HistoryType
}

// Type returns the history type the record belongs to.
func (r Record) Type() *HistoryType { return r.ht }

// RecordFromRow converts a raw history row.
func (h *HistoryType) RecordFromRow(row map[string]any) (Record, error) {
	version, err := toInt64(row[ColumnVersion])
	if err != nil {
		return Record{}, fmt.Errorf("%s: %w", h.Name(), err)
	}
	at, err := changedAt(row[ColumnChangedAt])
	if err != nil {
		return Record{}, fmt.Errorf("%s: %w", h.Name(), err)
	}

	rec := Record{Version: version, ChangedAt: at, Values: make(map[string]any, len(h.data)), ht: h}
	switch msg := uow.Indirect(row[ColumnVersionMessage]).(type) {
	case string:
		rec.Message = msg
	case []byte:
		rec.Message = string(msg)
	}
	for _, col := range h.data {
		rec.Values[col] = row[col]
	}
	return rec, nil
}

// Decode fills dst, a pointer to the registered model, with the recorded
// values and the recorded version.
func (r Record) Decode(dst any) error {
	if r.ht == nil {
		return fmt.Errorf("record has no history type")
	}
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Type() != r.ht.Model {
		return fmt.Errorf("cannot decode %s record into %T", r.ht.Model, dst)
	}
	ctx := context.Background()
	sch := r.ht.Source
	for col, v := range r.Values {
		field, ok := sch.FieldsByDBName[col]
		if !ok {
			continue
		}
		if err := field.Set(ctx, rv.Elem(), v); err != nil {
			return fmt.Errorf("failed to decode %s: %w", col, err)
		}
	}
	if field, ok := sch.FieldsByDBName[ColumnVersion]; ok {
		if err := field.Set(ctx, rv.Elem(), r.Version); err != nil {
			return fmt.Errorf("failed to decode %s: %w", ColumnVersion, err)
		}
	}
	return nil
}

// Current returns the live state of obj, a pointer to the registered model,
// as a record. ChangedAt is zero and Message empty.
func (h *HistoryType) Current(obj any) (Record, error) {
	rv := reflect.ValueOf(obj)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Type() != h.Model {
		return Record{}, fmt.Errorf("%T is not a %s", obj, h.Model)
	}
	ctx := context.Background()
	rec := Record{Values: make(map[string]any, len(h.data)), ht: h}
	for _, col := range h.data {
		v, _ := h.Source.FieldsByDBName[col].ValueOf(ctx, rv.Elem())
		rec.Values[col] = uow.Indirect(v)
	}
	if t, ok := obj.(Tracked); ok {
		rec.Version = t.versioned().Version
	}
	return rec, nil
}

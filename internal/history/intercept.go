package history

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/feral-file/ff-history/internal/domain"
	"github.com/feral-file/ff-history/internal/logger"
	"github.com/feral-file/ff-history/internal/uow"
)

// messageNote is the session note key of pending version messages.
const messageNote = "history.version_message"

// beforeFlush records one history row per changed or deleted tracked object.
// The version column belongs to the hook: new rows start at 1 and caller
// writes to it on existing rows are reverted.
func (r *Registry) beforeFlush(ctx context.Context, f *uow.Flush) error {
	for _, inst := range f.New() {
		if _, ok := r.lookup(reflect.TypeOf(inst.Object()).Elem()); !ok {
			continue
		}
		if err := inst.Set(ColumnVersion, int64(1)); err != nil {
			return &VersioningError{Table: inst.Table(), Reason: "cannot seed version", Err: err}
		}
	}

	for _, inst := range f.Dirty() {
		ht, ok := r.lookup(reflect.TypeOf(inst.Object()).Elem())
		if !ok {
			continue
		}
		version, err := toInt64(inst.Previous()[ColumnVersion])
		if err != nil {
			return &VersioningError{Table: inst.Table(), Key: keyString(inst), Reason: "cannot read previous version", Err: err}
		}
		if err := inst.Set(ColumnVersion, version); err != nil {
			return &VersioningError{Table: inst.Table(), Key: keyString(inst), Reason: "cannot restore version", Err: err}
		}
		if !touchesData(ht, inst.Changes()) {
			continue
		}
		version, err = r.record(ctx, f, inst, ht, domain.OperationUpdate)
		if err != nil {
			return err
		}
		if err := inst.Set(ColumnVersion, version+1); err != nil {
			return &VersioningError{Table: inst.Table(), Key: keyString(inst), Reason: "cannot bump version", Err: err}
		}
	}

	for _, inst := range f.Deleted() {
		ht, ok := r.lookup(reflect.TypeOf(inst.Object()).Elem())
		if !ok {
			continue
		}
		switch ht.DeletePolicy {
		case DeleteNever:
			continue
		case DeleteWithMessage:
			if msg, _ := inst.Note(messageNote); msg == nil || msg == "" {
				continue
			}
		}
		if _, err := r.record(ctx, f, inst, ht, domain.OperationDelete); err != nil {
			return err
		}
	}
	return nil
}

// touchesData reports whether any change hits a recorded column.
func touchesData(ht *HistoryType, changes []uow.Change) bool {
	for _, c := range changes {
		if ht.Tracks(c.Column) {
			return true
		}
	}
	return false
}

// record queues the history row of inst's previous state and returns the
// version that row carries.
func (r *Registry) record(ctx context.Context, f *uow.Flush, inst *uow.Instance, ht *HistoryType, op domain.Operation) (int64, error) {
	prev := inst.Previous()
	key := keyString(inst)

	version, err := toInt64(prev[ColumnVersion])
	if err != nil {
		return 0, &VersioningError{Table: inst.Table(), Key: key, Reason: "cannot read previous version", Err: err}
	}
	if version < 1 {
		return 0, &VersioningError{Table: inst.Table(), Key: key, Reason: fmt.Sprintf("invalid previous version %d", version)}
	}

	row := make(map[string]any, len(ht.data)+3)
	for _, col := range ht.data {
		v, ok := prev[col]
		if !ok {
			return 0, &VersioningError{Table: inst.Table(), Key: key, Reason: "no previous value for " + col}
		}
		row[col] = uow.Indirect(v)
	}
	row[ColumnVersion] = version
	row[ColumnChangedAt] = f.Time()

	var message string
	if ht.IncludeMessage {
		if v, ok := inst.TakeNote(messageNote); ok {
			message, _ = v.(string)
		}
		if message != "" {
			row[ColumnVersionMessage] = message
		} else {
			row[ColumnVersionMessage] = nil
		}
	}

	snapshot, err := jsonMap(row)
	if err != nil {
		return 0, &VersioningError{Table: inst.Table(), Key: key, Reason: "cannot snapshot row", Err: err}
	}
	keys := make(datatypes.JSONMap, len(ht.keys))
	for _, col := range ht.keys {
		keys[col] = snapshot[col]
	}

	f.AddRow(ht.Name(), row)
	f.Emit(domain.Revision{
		Table:        inst.Table(),
		HistoryTable: ht.Name(),
		Operation:    op,
		Key:          keys,
		Version:      version,
		ChangedAt:    f.Time(),
		Message:      message,
		Snapshot:     snapshot,
		SessionID:    f.Session().ID(),
	})

	logger.DebugCtx(ctx, "Recorded revision",
		zap.String("table", ht.Name()),
		zap.String("key", key),
		zap.Int64("version", version),
		zap.String("operation", string(op)))
	return version, nil
}

// jsonMap converts a row to its JSON form, the shape journal consumers see.
func jsonMap(row map[string]any) (datatypes.JSONMap, error) {
	b, err := json.Marshal(row)
	if err != nil {
		return nil, err
	}
	var out datatypes.JSONMap
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func keyString(inst *uow.Instance) string {
	pk := inst.PrimaryKey()
	parts := make([]string, 0, len(pk))
	for _, f := range inst.Schema().PrimaryFields {
		parts = append(parts, fmt.Sprint(pk[f.DBName]))
	}
	return strings.Join(parts, ",")
}

func toInt64(v any) (int64, error) {
	switch n := uow.Indirect(v).(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case uint:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		return int64(n), nil
	case nil:
		return 0, fmt.Errorf("version is null")
	default:
		return 0, fmt.Errorf("version has type %T", v)
	}
}

// changedAt normalises timestamps read back from different drivers.
func changedAt(v any) (time.Time, error) {
	switch t := uow.Indirect(v).(type) {
	case time.Time:
		return t, nil
	case string:
		return parseTime(t)
	case []byte:
		return parseTime(string(t))
	}
	return time.Time{}, fmt.Errorf("changed_at has type %T", v)
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05.999999999"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse time %q", s)
}

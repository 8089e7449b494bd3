package uow

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"gorm.io/gorm/schema"

	"github.com/feral-file/ff-history/internal/domain"
)

// State is the lifecycle state of an object inside a session.
type State int

const (
	// StatePending objects are inserted by the next flush.
	StatePending State = iota
	// StatePersistent objects have a row in the database.
	StatePersistent
	// StateDeleted objects are deleted by the next flush, or were deleted by
	// a flush of the current transaction.
	StateDeleted
	// StateDetached objects are no longer tracked.
	StateDetached
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StatePersistent:
		return "persistent"
	case StateDeleted:
		return "deleted"
	default:
		return "detached"
	}
}

// Change is one column whose value will be written by the next flush.
type Change struct {
	Column string
	Old    any
	New    any
	// Pending is set for foreign keys that point at an object the flush has
	// yet to insert, so New is unknown.
	Pending bool
}

// Instance is the session's record of one managed object.
type Instance struct {
	sess   *Session
	obj    any
	rv     reflect.Value
	schema *schema.Schema
	state  State

	// flushed is the state last written to (or read from) the database,
	// committed the state as of the last commit.
	flushed   snapshot
	committed snapshot

	// insertedInTx marks objects inserted since the last commit.
	insertedInTx  bool
	flushedDelete bool

	notes map[string]any
	taken map[string]any
}

// Object returns the managed pointer.
func (i *Instance) Object() any { return i.obj }

// Schema returns the parsed gorm schema of the object.
func (i *Instance) Schema() *schema.Schema { return i.schema }

// State returns the lifecycle state.
func (i *Instance) State() State { return i.state }

// Table returns the table the object is stored in.
func (i *Instance) Table() string { return i.schema.Table }

// Value returns the current in-memory value of column.
func (i *Instance) Value(column string) (any, error) {
	field, ok := i.schema.FieldsByDBName[column]
	if !ok {
		return nil, fmt.Errorf("%s has no column %q", i.schema.Name, column)
	}
	v, _ := field.ValueOf(i.sess.ctx(), i.rv)
	return v, nil
}

// Set assigns column on the managed object.
func (i *Instance) Set(column string, v any) error {
	field, ok := i.schema.FieldsByDBName[column]
	if !ok {
		return fmt.Errorf("%s has no column %q", i.schema.Name, column)
	}
	return assign(i.sess.ctx(), field, i.rv, v)
}

// Previous returns a copy of the state last written to the database.
// It is empty for pending objects.
func (i *Instance) Previous() map[string]any {
	return i.flushed.clone()
}

// PrimaryKey returns the primary key values by column name.
func (i *Instance) PrimaryKey() map[string]any {
	out := make(map[string]any, len(i.schema.PrimaryFields))
	for _, field := range i.schema.PrimaryFields {
		v, _ := field.ValueOf(i.sess.ctx(), i.rv)
		out[field.DBName] = Indirect(v)
	}
	return out
}

// Changes lists the columns that differ from the last flushed state, plus the
// foreign keys that belongs-to assignments will rewrite. Columns are returned
// in schema order.
func (i *Instance) Changes() []Change {
	if i.state != StatePersistent {
		return nil
	}
	ctx := i.sess.ctx()
	rewrites := i.sess.foreignKeyRewrites(i)

	var out []Change
	for _, name := range i.schema.DBNames {
		old := i.flushed[name]
		if fk, ok := rewrites[name]; ok {
			if fk.Pending || !Equal(old, fk.New) {
				fk.Old = old
				out = append(out, fk)
			}
			continue
		}
		cur, _ := i.schema.FieldsByDBName[name].ValueOf(ctx, i.rv)
		if !Equal(old, cur) {
			out = append(out, Change{Column: name, Old: old, New: detach(cur)})
		}
	}
	return out
}

// identity returns the identity map key, or "" when the primary key is unset.
func (i *Instance) identity() string {
	return identityOf(i.sess.ctx(), i.schema, i.rv)
}

func identityOf(ctx context.Context, sch *schema.Schema, rv reflect.Value) string {
	if len(sch.PrimaryFields) == 0 {
		return ""
	}
	parts := make([]string, 0, len(sch.PrimaryFields))
	for _, field := range sch.PrimaryFields {
		v, zero := field.ValueOf(ctx, rv)
		if zero {
			return ""
		}
		parts = append(parts, fmt.Sprint(Indirect(v)))
	}
	return sch.Table + ":" + strings.Join(parts, ",")
}

func identityFor(sch *schema.Schema, keys ...any) string {
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprint(Indirect(k)))
	}
	return sch.Table + ":" + strings.Join(parts, ",")
}

// SetNote attaches a value to obj's pending-change record. Flush hooks read
// or take notes; whatever is left is discarded by the next flush.
func (s *Session) SetNote(obj any, key string, v any) error {
	inst, err := s.instanceOf(obj)
	if err != nil {
		return err
	}
	if inst.notes == nil {
		inst.notes = make(map[string]any)
	}
	inst.notes[key] = v
	return nil
}

// Note returns the note called key without consuming it.
func (s *Session) Note(obj any, key string) (any, bool) {
	inst, err := s.instanceOf(obj)
	if err != nil {
		return nil, false
	}
	v, ok := inst.notes[key]
	return v, ok
}

// ClearNote drops the note called key.
func (s *Session) ClearNote(obj any, key string) {
	if inst, err := s.instanceOf(obj); err == nil {
		delete(inst.notes, key)
	}
}

// Note returns the note called key without consuming it.
func (i *Instance) Note(key string) (any, bool) {
	v, ok := i.notes[key]
	return v, ok
}

// TakeNote consumes the note called key. A rollback puts it back.
func (i *Instance) TakeNote(key string) (any, bool) {
	v, ok := i.notes[key]
	if !ok {
		return nil, false
	}
	delete(i.notes, key)
	if i.taken == nil {
		i.taken = make(map[string]any)
	}
	if _, seen := i.taken[key]; !seen {
		i.taken[key] = v
	}
	return v, true
}

func (s *Session) instanceOf(obj any) (*Instance, error) {
	if s.closed {
		return nil, domain.ErrSessionClosed
	}
	if !isPointer(obj) {
		return nil, domain.ErrNotManaged
	}
	inst, ok := s.byPtr[obj]
	if !ok {
		return nil, domain.ErrNotManaged
	}
	return inst, nil
}

package uow

import "time"

// Row is a raw row queued for insertion by a flush hook.
type Row struct {
	Table  string
	Values map[string]any
}

// Flush is the set of changes a flush is about to write. Hooks may modify the
// listed objects, queue rows and emit events; all of it lands in the same
// transaction.
type Flush struct {
	sess    *Session
	time    time.Time
	news    []*Instance
	dirty   []*Instance
	deleted []*Instance
	rows    []Row
	events  []any
}

// Session returns the flushing session.
func (f *Flush) Session() *Session { return f.sess }

// Time is the flush timestamp, taken from the session clock.
func (f *Flush) Time() time.Time { return f.time }

// New lists objects to be inserted.
func (f *Flush) New() []*Instance { return f.news }

// Dirty lists persistent objects with at least one changed column.
func (f *Flush) Dirty() []*Instance { return f.dirty }

// Deleted lists objects to be deleted.
func (f *Flush) Deleted() []*Instance { return f.deleted }

// AddRow queues a row insert. Queued rows are written after updates and
// before deletes.
func (f *Flush) AddRow(table string, values map[string]any) {
	f.rows = append(f.rows, Row{Table: table, Values: values})
}

// Rows returns the rows queued so far.
func (f *Flush) Rows() []Row { return f.rows }

// Emit queues an event for the after-commit hooks. Events are dropped when
// the transaction rolls back.
func (f *Flush) Emit(event any) {
	f.events = append(f.events, event)
}

func (f *Flush) empty() bool {
	return len(f.news) == 0 && len(f.dirty) == 0 && len(f.deleted) == 0
}

// Commit describes a committed transaction.
type Commit struct {
	SessionID string
	Time      time.Time
	Events    []any
}

// Package uow is a small unit of work over gorm. A Session tracks the objects
// it loaded or was given, detects what changed, and writes everything in one
// transaction when flushed. Hooks registered on the session observe each flush
// before its SQL runs and each commit after it lands.
package uow

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/dbresolver"

	"github.com/feral-file/ff-history/internal/adapter"
	"github.com/feral-file/ff-history/internal/domain"
	"github.com/feral-file/ff-history/internal/logger"
)

// Session is a unit of work. It is not safe for concurrent use; open one per
// request or goroutine.
type Session struct {
	id    string
	db    *gorm.DB
	tx    *gorm.DB
	clock adapter.Clock
	base  context.Context

	order   []*Instance
	byPtr   map[any]*Instance
	byKey   map[string]*Instance
	removed []*Instance

	beforeFlush hookList[BeforeFlushFunc]
	afterCommit hookList[AfterCommitFunc]

	events   []any
	flushing bool
	closed   bool
}

// Option configures a Session.
type Option func(*Session)

// WithClock sets the clock used to stamp flushes.
func WithClock(clock adapter.Clock) Option {
	return func(s *Session) { s.clock = clock }
}

// WithID overrides the generated session ID.
func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

// New opens a session on db. No connection is held until the first flush or read.
func New(db *gorm.DB, opts ...Option) *Session {
	s := &Session{
		id:    uuid.NewString(),
		db:    db,
		clock: adapter.NewClock(),
		base:  context.Background(),
		byPtr: make(map[any]*Instance),
		byKey: make(map[string]*Instance),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Clock returns the clock the session stamps flushes with.
func (s *Session) Clock() adapter.Clock { return s.clock }

func (s *Session) ctx() context.Context { return s.base }

// conn returns the transaction when one is open, so reads see pending writes.
// Otherwise reads are pinned to the primary.
func (s *Session) conn(ctx context.Context) *gorm.DB {
	if s.tx != nil {
		return s.tx.WithContext(ctx)
	}
	return s.db.Clauses(dbresolver.Write).WithContext(ctx)
}

func (s *Session) begin(ctx context.Context) error {
	if s.tx != nil {
		return nil
	}
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	s.tx = tx
	return nil
}

// isPointer guards identity map lookups, which need a comparable key.
func isPointer(obj any) bool {
	return obj != nil && reflect.TypeOf(obj).Kind() == reflect.Ptr
}

func (s *Session) parse(obj any) (reflect.Value, *Instance, error) {
	rv := reflect.ValueOf(obj)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return reflect.Value{}, nil, fmt.Errorf("expected a pointer to a struct, got %T", obj)
	}
	stmt := &gorm.Statement{DB: s.db}
	if err := stmt.Parse(obj); err != nil {
		return reflect.Value{}, nil, fmt.Errorf("failed to parse %T: %w", obj, err)
	}
	if len(stmt.Schema.PrimaryFields) == 0 {
		return reflect.Value{}, nil, fmt.Errorf("%s: %w", stmt.Schema.Name, domain.ErrMissingPrimaryKey)
	}
	inst := &Instance{sess: s, obj: obj, rv: rv.Elem(), schema: stmt.Schema}
	return rv, inst, nil
}

// Add schedules obj for insertion by the next flush. Adding an object the
// session already tracks is a no-op.
func (s *Session) Add(obj any) error {
	if s.closed {
		return domain.ErrSessionClosed
	}
	if !isPointer(obj) {
		return fmt.Errorf("expected a pointer to a struct, got %T", obj)
	}
	if inst, ok := s.byPtr[obj]; ok {
		if inst.state == StateDeleted && !inst.flushedDelete {
			// Undo a delete that was never flushed.
			inst.state = StatePersistent
		}
		return nil
	}
	_, inst, err := s.parse(obj)
	if err != nil {
		return err
	}
	if key := inst.identity(); key != "" {
		if _, ok := s.byKey[key]; ok {
			return fmt.Errorf("another object with key %s is already in the session", key)
		}
	}
	inst.state = StatePending
	s.track(inst)
	return nil
}

// Delete schedules a persistent object for deletion. Deleting a pending
// object just forgets it.
func (s *Session) Delete(obj any) error {
	inst, err := s.instanceOf(obj)
	if err != nil {
		return err
	}
	switch inst.state {
	case StatePending:
		s.forget(inst)
	case StatePersistent:
		inst.state = StateDeleted
	}
	return nil
}

// Attach tracks an object that already has a database row, using its current
// values as the loaded state.
func (s *Session) Attach(obj any) error {
	if s.closed {
		return domain.ErrSessionClosed
	}
	if !isPointer(obj) {
		return fmt.Errorf("expected a pointer to a struct, got %T", obj)
	}
	if _, ok := s.byPtr[obj]; ok {
		return nil
	}
	_, inst, err := s.parse(obj)
	if err != nil {
		return err
	}
	key := inst.identity()
	if key == "" {
		return fmt.Errorf("%s: %w", inst.schema.Name, domain.ErrMissingPrimaryKey)
	}
	if _, ok := s.byKey[key]; ok {
		return fmt.Errorf("another object with key %s is already in the session", key)
	}
	s.loaded(inst)
	return nil
}

// State reports the lifecycle state of obj.
func (s *Session) State(obj any) State {
	if !isPointer(obj) {
		return StateDetached
	}
	if inst, ok := s.byPtr[obj]; ok {
		return inst.state
	}
	return StateDetached
}

// Managed reports whether obj is tracked by the session.
func (s *Session) Managed(obj any) bool {
	if !isPointer(obj) {
		return false
	}
	_, ok := s.byPtr[obj]
	return ok
}

// Instance returns the session record for obj.
func (s *Session) Instance(obj any) (*Instance, error) {
	return s.instanceOf(obj)
}

func (s *Session) track(inst *Instance) {
	s.order = append(s.order, inst)
	s.byPtr[inst.obj] = inst
	if key := inst.identity(); key != "" && inst.state != StatePending {
		s.byKey[key] = inst
	}
}

func (s *Session) forget(inst *Instance) {
	inst.state = StateDetached
	delete(s.byPtr, inst.obj)
	if key := inst.identity(); key != "" && s.byKey[key] == inst {
		delete(s.byKey, key)
	}
	for i, other := range s.order {
		if other == inst {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// loaded registers inst as persistent with its current values as baseline.
func (s *Session) loaded(inst *Instance) {
	inst.state = StatePersistent
	inst.flushed = takeSnapshot(s.ctx(), inst.schema, inst.rv)
	inst.committed = inst.flushed.clone()
	s.track(inst)
}

// Flush writes pending changes inside the session transaction, opening it if
// needed. Before-flush hooks run first. Any error rolls the transaction back.
func (s *Session) Flush(ctx context.Context) error {
	if s.closed {
		return domain.ErrSessionClosed
	}
	if s.flushing {
		return errors.New("flush called from a flush hook")
	}
	s.flushing = true
	defer func() { s.flushing = false }()

	if err := s.cascade(); err != nil {
		return s.abort(ctx, err)
	}

	f := s.collect()
	if f.empty() {
		s.expireNotes()
		return nil
	}

	for _, h := range s.beforeFlush.snapshot() {
		if err := h.fn(ctx, f); err != nil {
			return s.abort(ctx, fmt.Errorf("before-flush hook %s: %w", h.name, err))
		}
	}

	if err := s.begin(ctx); err != nil {
		return s.abort(ctx, err)
	}
	if err := s.write(ctx, f); err != nil {
		return s.abort(ctx, err)
	}
	s.settle(f)
	s.expireNotes()
	return nil
}

// expireNotes consumes the notes no hook took, so they cannot reach a later
// flush. A rollback puts them back like any taken note.
func (s *Session) expireNotes() {
	for _, inst := range s.order {
		for key := range inst.notes {
			inst.TakeNote(key)
		}
	}
}

// Commit flushes and commits the transaction, then runs after-commit hooks.
func (s *Session) Commit(ctx context.Context) error {
	if err := s.Flush(ctx); err != nil {
		return err
	}
	if s.tx != nil {
		if err := s.tx.Commit().Error; err != nil {
			return s.abort(ctx, fmt.Errorf("failed to commit: %w", err))
		}
		s.tx = nil
	}

	for _, inst := range s.order {
		inst.committed = inst.flushed.clone()
		inst.insertedInTx = false
		inst.notes = nil
		inst.taken = nil
	}
	for _, inst := range s.removed {
		inst.state = StateDetached
	}
	s.removed = nil

	events := s.events
	s.events = nil
	c := &Commit{SessionID: s.id, Events: events, Time: s.clock.Now()}
	for _, h := range s.afterCommit.snapshot() {
		h.fn(ctx, c)
	}
	return nil
}

// Rollback discards the transaction and restores every tracked object to its
// state as of the last commit.
func (s *Session) Rollback() error {
	if s.closed {
		return domain.ErrSessionClosed
	}
	var err error
	if s.tx != nil {
		err = s.tx.Rollback().Error
		s.tx = nil
	}

	for _, inst := range s.removed {
		inst.state = StatePersistent
		inst.flushedDelete = false
		s.track(inst)
	}
	s.removed = nil

	for _, inst := range append([]*Instance(nil), s.order...) {
		if inst.insertedInTx || inst.state == StatePending {
			s.forget(inst)
			continue
		}
		if inst.state == StateDeleted {
			inst.state = StatePersistent
		}
		if rerr := inst.committed.restore(s.ctx(), inst.schema, inst.rv); rerr != nil && err == nil {
			err = rerr
		}
		inst.flushed = inst.committed.clone()
		for k, v := range inst.taken {
			if _, ok := inst.notes[k]; !ok {
				if inst.notes == nil {
					inst.notes = make(map[string]any)
				}
				inst.notes[k] = v
			}
		}
		inst.taken = nil
	}
	s.events = nil
	return err
}

// Close rolls back any open transaction and stops tracking every object.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	var err error
	if s.tx != nil {
		err = s.tx.Rollback().Error
		s.tx = nil
	}
	for _, inst := range s.order {
		inst.state = StateDetached
	}
	s.order = nil
	s.byPtr = nil
	s.byKey = nil
	s.removed = nil
	s.events = nil
	s.closed = true
	return err
}

func (s *Session) abort(ctx context.Context, cause error) error {
	logger.ErrorCtx(ctx, cause, zap.String("session", s.id))
	if err := s.Rollback(); err != nil {
		logger.WarnCtx(ctx, "rollback after failed flush", zap.String("session", s.id), zap.Error(err))
	}
	return cause
}

// write emits the flush's SQL: inserts (related objects first), updates,
// queued rows, then deletes.
func (s *Session) write(ctx context.Context, f *Flush) error {
	tx := s.tx.WithContext(ctx)

	for _, inst := range s.insertOrder(f.news) {
		if err := s.syncForeignKeys(inst); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(inst.obj).Error; err != nil {
			return fmt.Errorf("failed to insert %s: %w", inst.schema.Name, err)
		}
	}

	for _, inst := range f.dirty {
		if err := s.syncForeignKeys(inst); err != nil {
			return err
		}
		changes := inst.Changes()
		if len(changes) == 0 {
			continue
		}
		columns := make([]string, 0, len(changes))
		for _, c := range changes {
			columns = append(columns, c.Column)
		}
		res := tx.Model(inst.obj).Select(columns).Omit(clause.Associations).Updates(inst.obj)
		if res.Error != nil {
			return fmt.Errorf("failed to update %s: %w", inst.schema.Name, res.Error)
		}
	}

	for _, row := range f.rows {
		values := make(map[string]any, len(row.Values))
		for k, v := range row.Values {
			values[k] = Indirect(v)
		}
		if err := tx.Table(row.Table).Create(values).Error; err != nil {
			return fmt.Errorf("failed to insert into %s: %w", row.Table, err)
		}
	}

	for _, inst := range f.deleted {
		if err := tx.Omit(clause.Associations).Delete(inst.obj).Error; err != nil {
			return fmt.Errorf("failed to delete %s: %w", inst.schema.Name, err)
		}
	}
	return nil
}

// settle records the flushed state once the SQL succeeded.
func (s *Session) settle(f *Flush) {
	for _, inst := range f.news {
		inst.state = StatePersistent
		inst.insertedInTx = true
		if key := inst.identity(); key != "" {
			s.byKey[key] = inst
		}
		inst.flushed = takeSnapshot(s.ctx(), inst.schema, inst.rv)
	}
	for _, inst := range f.dirty {
		inst.flushed = takeSnapshot(s.ctx(), inst.schema, inst.rv)
	}
	for _, inst := range f.deleted {
		s.forget(inst)
		if inst.insertedInTx {
			continue
		}
		inst.state = StateDeleted
		inst.flushedDelete = true
		s.removed = append(s.removed, inst)
	}
	s.events = append(s.events, f.events...)
}

func (s *Session) collect() *Flush {
	f := &Flush{sess: s, time: s.clock.Now()}
	for _, inst := range s.order {
		switch inst.state {
		case StatePending:
			f.news = append(f.news, inst)
		case StatePersistent:
			if len(inst.Changes()) > 0 {
				f.dirty = append(f.dirty, inst)
			}
		case StateDeleted:
			if !inst.flushedDelete {
				f.deleted = append(f.deleted, inst)
			}
		}
	}
	return f
}

// Get loads the object of type T with primary key id. An object already in
// the identity map is returned without a query.
func Get[T any](ctx context.Context, s *Session, id any) (*T, error) {
	if s.closed {
		return nil, domain.ErrSessionClosed
	}
	obj := new(T)
	_, inst, err := s.parse(obj)
	if err != nil {
		return nil, err
	}
	if cached, ok := s.byKey[identityFor(inst.schema, id)]; ok {
		if cached.state == StateDeleted {
			return nil, domain.ErrRecordNotFound
		}
		if typed, ok := cached.obj.(*T); ok {
			return typed, nil
		}
	}

	err = s.conn(ctx).Omit(clause.Associations).First(obj, clause.Eq{Column: clause.PrimaryColumn, Value: id}).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", inst.schema.Name, err)
	}
	s.loaded(inst)
	return obj, nil
}

// Find loads every object of type T matching the gorm conditions. Rows whose
// key is already tracked resolve to the tracked object.
func Find[T any](ctx context.Context, s *Session, query any, args ...any) ([]*T, error) {
	if s.closed {
		return nil, domain.ErrSessionClosed
	}
	var rows []*T
	db := s.conn(ctx).Omit(clause.Associations)
	if query != nil {
		db = db.Where(query, args...)
	}
	if err := db.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find: %w", err)
	}

	out := make([]*T, 0, len(rows))
	for _, obj := range rows {
		_, inst, err := s.parse(obj)
		if err != nil {
			return nil, err
		}
		if cached, ok := s.byKey[inst.identity()]; ok {
			if cached.state == StateDeleted {
				continue
			}
			if typed, ok := cached.obj.(*T); ok {
				out = append(out, typed)
				continue
			}
		}
		s.loaded(inst)
		out = append(out, obj)
	}
	return out, nil
}

package uow_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/feral-file/ff-history/internal/dbtest"
	"github.com/feral-file/ff-history/internal/domain"
	"github.com/feral-file/ff-history/internal/logger"
	"github.com/feral-file/ff-history/internal/mocks"
	"github.com/feral-file/ff-history/internal/uow"
)

func TestMain(m *testing.M) {
	err := logger.Initialize(logger.Config{
		Debug: false,
	})
	if err != nil {
		panic(err)
	}

	code := m.Run()
	os.Exit(code)
}

type Owner struct {
	ID   uint64 `gorm:"primaryKey"`
	Name string
}

type Widget struct {
	ID      uint64 `gorm:"primaryKey"`
	Name    string
	Size    *int
	Tags    []byte
	OwnerID *uint64
	Owner   *Owner
}

type ledgerRow struct {
	ID     uint64 `gorm:"primaryKey"`
	Entry  string
	Widget uint64
}

func (ledgerRow) TableName() string { return "ledger" }

func setupDB(t *testing.T) *gorm.DB {
	return dbtest.MemoryDB(t, &Owner{}, &Widget{}, &ledgerRow{})
}

func intPtr(v int) *int { return &v }

func countRows(t *testing.T, db *gorm.DB, table string) int64 {
	var n int64
	require.NoError(t, db.Table(table).Count(&n).Error)
	return n
}

func TestSession_AddCommit(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	s := uow.New(db)
	defer s.Close()

	w := &Widget{Name: "bolt", Size: intPtr(3)}
	require.NoError(t, s.Add(w))
	assert.Equal(t, uow.StatePending, s.State(w))

	require.NoError(t, s.Commit(ctx))
	assert.Equal(t, uow.StatePersistent, s.State(w))
	assert.NotZero(t, w.ID)

	var stored Widget
	require.NoError(t, db.First(&stored, w.ID).Error)
	assert.Equal(t, "bolt", stored.Name)
	assert.Equal(t, 3, *stored.Size)
}

func TestSession_GetUsesIdentityMap(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	require.NoError(t, db.Create(&Widget{ID: 7, Name: "nut"}).Error)

	s := uow.New(db)
	defer s.Close()

	a, err := uow.Get[Widget](ctx, s, 7)
	require.NoError(t, err)
	b, err := uow.Get[Widget](ctx, s, uint64(7))
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, uow.StatePersistent, s.State(a))

	_, err = uow.Get[Widget](ctx, s, 99)
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func TestSession_FindResolvesTrackedObjects(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	require.NoError(t, db.Create(&Widget{ID: 1, Name: "a"}).Error)
	require.NoError(t, db.Create(&Widget{ID: 2, Name: "b"}).Error)

	s := uow.New(db)
	defer s.Close()

	first, err := uow.Get[Widget](ctx, s, 1)
	require.NoError(t, err)

	all, err := uow.Find[Widget](ctx, s, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Same(t, first, all[0])

	named, err := uow.Find[Widget](ctx, s, "name = ?", "b")
	require.NoError(t, err)
	require.Len(t, named, 1)
	assert.Same(t, all[1], named[0])
}

func TestInstance_Changes(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	require.NoError(t, db.Create(&Widget{ID: 1, Name: "a", Size: intPtr(1), Tags: []byte("x")}).Error)

	s := uow.New(db)
	defer s.Close()

	w, err := uow.Get[Widget](ctx, s, 1)
	require.NoError(t, err)
	inst, err := s.Instance(w)
	require.NoError(t, err)
	assert.Empty(t, inst.Changes())

	// Same values through new memory are not changes
	w.Size = intPtr(1)
	w.Tags = []byte("x")
	assert.Empty(t, inst.Changes())

	*w.Size = 2
	w.Tags[0] = 'y'
	changes := inst.Changes()
	require.Len(t, changes, 2)
	assert.Equal(t, "size", changes[0].Column)
	assert.Equal(t, 1, *changes[0].Old.(*int))
	assert.Equal(t, 2, *changes[0].New.(*int))
	assert.Equal(t, "tags", changes[1].Column)
}

func TestSession_FlushWritesOnlyChangedColumns(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	require.NoError(t, db.Create(&Widget{ID: 1, Name: "a", Size: intPtr(1)}).Error)

	s := uow.New(db)
	defer s.Close()

	w, err := uow.Get[Widget](ctx, s, 1)
	require.NoError(t, err)
	w.Name = "renamed"
	require.NoError(t, s.Commit(ctx))

	var stored Widget
	require.NoError(t, db.First(&stored, 1).Error)
	assert.Equal(t, "renamed", stored.Name)
	assert.Equal(t, 1, *stored.Size)

	inst, err := s.Instance(w)
	require.NoError(t, err)
	assert.Empty(t, inst.Changes())
}

func TestSession_RollbackRestoresCommittedState(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	require.NoError(t, db.Create(&Widget{ID: 1, Name: "a"}).Error)

	s := uow.New(db)
	defer s.Close()

	w, err := uow.Get[Widget](ctx, s, 1)
	require.NoError(t, err)
	w.Name = "b"
	require.NoError(t, s.Flush(ctx))

	added := &Widget{Name: "new"}
	require.NoError(t, s.Add(added))
	require.NoError(t, s.Flush(ctx))

	require.NoError(t, s.Rollback())
	assert.Equal(t, "a", w.Name)
	assert.Equal(t, uow.StatePersistent, s.State(w))
	assert.Equal(t, uow.StateDetached, s.State(added))

	assert.Equal(t, int64(1), countRows(t, db, "widgets"))
	var stored Widget
	require.NoError(t, db.First(&stored, 1).Error)
	assert.Equal(t, "a", stored.Name)
}

func TestSession_Delete(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	require.NoError(t, db.Create(&Widget{ID: 1, Name: "a"}).Error)

	t.Run("commit", func(t *testing.T) {
		s := uow.New(db)
		defer s.Close()

		w, err := uow.Get[Widget](ctx, s, 1)
		require.NoError(t, err)
		require.NoError(t, s.Delete(w))
		assert.Equal(t, uow.StateDeleted, s.State(w))

		require.NoError(t, s.Flush(ctx))
		require.NoError(t, s.Rollback())
		assert.Equal(t, uow.StatePersistent, s.State(w))
		assert.Equal(t, int64(1), countRows(t, db, "widgets"))

		require.NoError(t, s.Delete(w))
		require.NoError(t, s.Commit(ctx))
		assert.Equal(t, uow.StateDetached, s.State(w))
		assert.Equal(t, int64(0), countRows(t, db, "widgets"))
	})

	t.Run("pending", func(t *testing.T) {
		s := uow.New(db)
		defer s.Close()

		w := &Widget{Name: "never"}
		require.NoError(t, s.Add(w))
		require.NoError(t, s.Delete(w))
		assert.False(t, s.Managed(w))
		require.NoError(t, s.Commit(ctx))
		assert.Equal(t, int64(0), countRows(t, db, "widgets"))
	})
}

func TestSession_Hooks(t *testing.T) {
	s := uow.New(nil)
	defer s.Close()

	noop := func(context.Context, *uow.Flush) error { return nil }
	assert.False(t, s.HasBeforeFlush("h"))
	assert.True(t, s.OnBeforeFlush("h", noop))
	assert.False(t, s.OnBeforeFlush("h", noop))
	assert.True(t, s.HasBeforeFlush("h"))
	assert.True(t, s.RemoveBeforeFlush("h"))
	assert.False(t, s.RemoveBeforeFlush("h"))
	assert.False(t, s.HasBeforeFlush("h"))

	other := uow.New(nil)
	defer other.Close()
	s.OnAfterCommit("a", func(context.Context, *uow.Commit) {})
	assert.True(t, s.HasAfterCommit("a"))
	assert.False(t, other.HasAfterCommit("a"))
	assert.True(t, s.RemoveAfterCommit("a"))
}

func TestSession_BeforeFlushHook(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := mocks.NewMockClock(ctrl)
	clock.EXPECT().Now().Return(now).AnyTimes()

	s := uow.New(db, uow.WithClock(clock), uow.WithID("session-1"))
	defer s.Close()

	var seen []string
	s.OnBeforeFlush("ledger", func(_ context.Context, f *uow.Flush) error {
		assert.Equal(t, now, f.Time())
		for _, inst := range f.New() {
			seen = append(seen, "new:"+inst.Table())
		}
		for _, inst := range f.Dirty() {
			seen = append(seen, "dirty:"+inst.Table())
			prev := inst.Previous()
			f.AddRow("ledger", map[string]any{"entry": prev["name"], "widget": prev["id"]})
			f.Emit(prev["name"])
		}
		return nil
	})

	var commits []*uow.Commit
	s.OnAfterCommit("collect", func(_ context.Context, c *uow.Commit) {
		commits = append(commits, c)
	})

	w := &Widget{Name: "first"}
	require.NoError(t, s.Add(w))
	require.NoError(t, s.Commit(ctx))

	w.Name = "second"
	require.NoError(t, s.Commit(ctx))

	// Nothing changed: the hook is not called
	require.NoError(t, s.Commit(ctx))

	assert.Equal(t, []string{"new:widgets", "dirty:widgets"}, seen)
	require.Len(t, commits, 3)
	assert.Empty(t, commits[0].Events)
	assert.Equal(t, []any{"first"}, commits[1].Events)
	assert.Equal(t, "session-1", commits[1].SessionID)

	var rows []ledgerRow
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "first", rows[0].Entry)
	assert.Equal(t, w.ID, rows[0].Widget)
}

func TestSession_FailingHookAbortsFlush(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	require.NoError(t, db.Create(&Widget{ID: 1, Name: "a"}).Error)

	s := uow.New(db)
	defer s.Close()

	boom := errors.New("boom")
	s.OnBeforeFlush("queue", func(_ context.Context, f *uow.Flush) error {
		f.AddRow("ledger", map[string]any{"entry": "x", "widget": 1})
		return nil
	})
	s.OnBeforeFlush("fail", func(context.Context, *uow.Flush) error { return boom })

	var committed bool
	s.OnAfterCommit("c", func(context.Context, *uow.Commit) { committed = true })

	w, err := uow.Get[Widget](ctx, s, 1)
	require.NoError(t, err)
	w.Name = "b"

	err = s.Commit(ctx)
	assert.ErrorIs(t, err, boom)
	assert.False(t, committed)
	assert.Equal(t, "a", w.Name)
	assert.Equal(t, int64(0), countRows(t, db, "ledger"))

	var stored Widget
	require.NoError(t, db.First(&stored, 1).Error)
	assert.Equal(t, "a", stored.Name)
}

func TestSession_Notes(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	require.NoError(t, db.Create(&Widget{ID: 1, Name: "a"}).Error)

	s := uow.New(db)
	defer s.Close()

	assert.ErrorIs(t, s.SetNote(&Widget{}, "k", "v"), domain.ErrNotManaged)

	w, err := uow.Get[Widget](ctx, s, 1)
	require.NoError(t, err)
	require.NoError(t, s.SetNote(w, "k", "v"))

	s.OnBeforeFlush("take", func(_ context.Context, f *uow.Flush) error {
		for _, inst := range f.Dirty() {
			v, ok := inst.TakeNote("k")
			assert.True(t, ok)
			assert.Equal(t, "v", v)
		}
		return nil
	})

	w.Name = "b"
	require.NoError(t, s.Flush(ctx))
	_, ok := s.Note(w, "k")
	assert.False(t, ok)

	require.NoError(t, s.Rollback())
	v, ok := s.Note(w, "k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	w.Name = "c"
	require.NoError(t, s.Commit(ctx))
	_, ok = s.Note(w, "k")
	assert.False(t, ok)

	// Untaken notes do not outlive the transaction
	require.NoError(t, s.SetNote(w, "k", "stale"))
	require.NoError(t, s.Commit(ctx))
	_, ok = s.Note(w, "k")
	assert.False(t, ok)

	// A flush that leaves the note untaken still ends it
	require.NoError(t, s.SetNote(w, "k", "once"))
	require.NoError(t, s.Flush(ctx))
	_, ok = s.Note(w, "k")
	assert.False(t, ok)
	require.NoError(t, s.Rollback())
	v, ok = s.Note(w, "k")
	assert.True(t, ok)
	assert.Equal(t, "once", v)

	require.NoError(t, s.SetNote(w, "k", "again"))
	s.ClearNote(w, "k")
	_, ok = s.Note(w, "k")
	assert.False(t, ok)
}

func TestSession_BelongsToCascade(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	require.NoError(t, db.Create(&Widget{ID: 1, Name: "a"}).Error)

	s := uow.New(db)
	defer s.Close()

	w, err := uow.Get[Widget](ctx, s, 1)
	require.NoError(t, err)
	inst, err := s.Instance(w)
	require.NoError(t, err)

	w.Owner = &Owner{Name: "alice"}
	s.OnBeforeFlush("inspect", func(_ context.Context, f *uow.Flush) error {
		require.Len(t, f.New(), 1)
		require.Len(t, f.Dirty(), 1)
		changes := f.Dirty()[0].Changes()
		require.Len(t, changes, 1)
		assert.Equal(t, "owner_id", changes[0].Column)
		assert.True(t, changes[0].Pending)
		return nil
	})
	require.NoError(t, s.Commit(ctx))
	s.RemoveBeforeFlush("inspect")

	require.NotNil(t, w.OwnerID)
	assert.Equal(t, w.Owner.ID, *w.OwnerID)
	assert.Empty(t, inst.Changes())

	// Editing the related object leaves the widget clean
	w.Owner.Name = "bob"
	assert.Empty(t, inst.Changes())
	require.NoError(t, s.Commit(ctx))

	var owner Owner
	require.NoError(t, db.First(&owner, *w.OwnerID).Error)
	assert.Equal(t, "bob", owner.Name)

	// Pointing at another saved owner rewrites the key
	other := &Owner{ID: 50, Name: "carol"}
	require.NoError(t, db.Create(other).Error)
	w.Owner = other
	changes := inst.Changes()
	require.Len(t, changes, 1)
	assert.Equal(t, uint64(50), uow.Indirect(changes[0].New))
	require.NoError(t, s.Commit(ctx))

	var stored Widget
	require.NoError(t, db.First(&stored, 1).Error)
	require.NotNil(t, stored.OwnerID)
	assert.Equal(t, uint64(50), *stored.OwnerID)
}

func TestSession_Closed(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	s := uow.New(db)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Add(&Widget{}), domain.ErrSessionClosed)
	assert.ErrorIs(t, s.Flush(ctx), domain.ErrSessionClosed)
	assert.ErrorIs(t, s.Commit(ctx), domain.ErrSessionClosed)
	_, err := uow.Get[Widget](ctx, s, 1)
	assert.ErrorIs(t, err, domain.ErrSessionClosed)
}

func TestSession_AddRejectsNonPointers(t *testing.T) {
	s := uow.New(dbtest.MemoryDB(t))
	defer s.Close()

	assert.Error(t, s.Add(Widget{}))
	assert.Error(t, s.Add((*Widget)(nil)))
}

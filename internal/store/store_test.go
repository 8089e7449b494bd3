package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/feral-file/ff-history/internal/domain"
	"github.com/feral-file/ff-history/internal/history"
	"github.com/feral-file/ff-history/internal/model"
	"github.com/feral-file/ff-history/internal/uow"
)

// =============================================================================
// Test Data Builders
// =============================================================================

// buildTestDocument creates a document and commits it through a versioned session
func buildTestDocument(t *testing.T, store Store, title string) *model.Document {
	ctx := context.Background()
	sess := store.NewSession()
	defer func() { _ = sess.Close() }()

	doc := &model.Document{
		Title:      title,
		Body:       "body of " + title,
		Attributes: datatypes.JSON(`{"lang":"en"}`),
	}
	require.NoError(t, sess.Add(doc))
	require.NoError(t, sess.Commit(ctx))
	require.NotZero(t, doc.ID)
	require.Equal(t, int64(1), doc.CurrentVersion())
	return doc
}

// editDocument loads the document in a new session, applies edit and commits with msg
func editDocument(t *testing.T, store Store, id uint64, msg string, edit func(*model.Document)) *model.Document {
	ctx := context.Background()
	sess := store.NewSession()
	defer func() { _ = sess.Close() }()

	doc, err := uow.Get[model.Document](ctx, sess, id)
	require.NoError(t, err)
	edit(doc)
	if msg != "" {
		require.NoError(t, setVersionMessage(store, sess, doc, msg))
	}
	require.NoError(t, sess.Commit(ctx))
	return doc
}

// setVersionMessage sets msg through the registry store versions sessions with
func setVersionMessage(store Store, sess *uow.Session, obj any, msg string) error {
	return store.(*gormStore).registry.SetVersionMessage(sess, obj, msg)
}

// =============================================================================
// Tests
// =============================================================================

func testMigrate(t *testing.T, store Store) {
	ctx := context.Background()

	require.NoError(t, store.Ping(ctx))

	// Migrating twice is a no-op
	require.NoError(t, store.Migrate(ctx, model.All()...))

	records, err := store.ListHistory(ctx, &model.Document{}, uint64(1))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func testListHistory(t *testing.T, store Store) {
	ctx := context.Background()
	doc := buildTestDocument(t, store, "draft")

	editDocument(t, store, doc.ID, "retitle", func(d *model.Document) { d.Title = "first" })
	editDocument(t, store, doc.ID, "", func(d *model.Document) { d.Body = "rewritten" })
	final := editDocument(t, store, doc.ID, "publish", func(d *model.Document) { d.Title = "final" })
	assert.Equal(t, int64(4), final.CurrentVersion())

	records, err := store.ListHistory(ctx, &model.Document{}, doc.ID)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, int64(1), records[0].Version)
	assert.Equal(t, "draft", records[0].Values["title"])
	assert.Equal(t, "retitle", records[0].Message)

	assert.Equal(t, int64(2), records[1].Version)
	assert.Equal(t, "first", records[1].Values["title"])
	assert.Equal(t, "body of draft", records[1].Values["body"])
	assert.Empty(t, records[1].Message)

	assert.Equal(t, int64(3), records[2].Version)
	assert.Equal(t, "rewritten", records[2].Values["body"])
	assert.Equal(t, "publish", records[2].Message)

	for _, rec := range records {
		assert.False(t, rec.ChangedAt.IsZero())
		_, ok := rec.Values["updated_at"]
		assert.False(t, ok, "updated_at is not recorded")
	}

	var old model.Document
	require.NoError(t, records[0].Decode(&old))
	assert.Equal(t, doc.ID, old.ID)
	assert.Equal(t, "draft", old.Title)
	assert.Equal(t, int64(1), old.CurrentVersion())
}

func testGetHistoryVersion(t *testing.T, store Store) {
	ctx := context.Background()
	doc := buildTestDocument(t, store, "v1")
	editDocument(t, store, doc.ID, "second", func(d *model.Document) { d.Title = "v2" })

	rec, err := store.GetHistoryVersion(ctx, &model.Document{}, 1, doc.ID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, int64(1), rec.Version)
	assert.Equal(t, "v1", rec.Values["title"])
	assert.Equal(t, "second", rec.Message)

	// The current version lives in the live table only
	_, err = store.GetHistoryVersion(ctx, &model.Document{}, 2, doc.ID)
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)

	_, err = store.GetHistoryVersion(ctx, &model.Document{}, 1, doc.ID+100)
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func testExcludedColumnsOnly(t *testing.T, store Store) {
	ctx := context.Background()
	doc := buildTestDocument(t, store, "stamped")

	sess := store.NewSession()
	defer func() { _ = sess.Close() }()
	loaded, err := uow.Get[model.Document](ctx, sess, doc.ID)
	require.NoError(t, err)
	loaded.UpdatedAt = loaded.UpdatedAt.Add(1)
	require.NoError(t, sess.Commit(ctx))
	assert.Equal(t, int64(1), loaded.CurrentVersion())

	records, err := store.ListHistory(ctx, &model.Document{}, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func testDeleteRecordsHistory(t *testing.T, store Store) {
	ctx := context.Background()
	doc := buildTestDocument(t, store, "doomed")

	sess := store.NewSession()
	defer func() { _ = sess.Close() }()
	loaded, err := uow.Get[model.Document](ctx, sess, doc.ID)
	require.NoError(t, err)
	require.NoError(t, setVersionMessage(store, sess, loaded, "remove"))
	require.NoError(t, sess.Delete(loaded))
	require.NoError(t, sess.Commit(ctx))

	records, err := store.ListHistory(ctx, &model.Document{}, doc.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "doomed", records[0].Values["title"])
	assert.Equal(t, "remove", records[0].Message)
}

func testCategoryChange(t *testing.T, store Store) {
	ctx := context.Background()
	doc := buildTestDocument(t, store, "filed")

	sess := store.NewSession()
	defer func() { _ = sess.Close() }()
	loaded, err := uow.Get[model.Document](ctx, sess, doc.ID)
	require.NoError(t, err)
	loaded.Category = &model.Category{Name: "reports"}
	require.NoError(t, sess.Commit(ctx))
	require.NotNil(t, loaded.CategoryID)

	records, err := store.ListHistory(ctx, &model.Document{}, doc.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Nil(t, records[0].Values["category_id"])
	assert.Equal(t, int64(2), loaded.CurrentVersion())
}

func testErrors(t *testing.T, store Store) {
	ctx := context.Background()

	_, err := store.ListHistory(ctx, &model.Category{}, uint64(1))
	assert.ErrorIs(t, err, domain.ErrNotVersioned)

	_, err = store.GetHistoryVersion(ctx, &model.Category{}, 1, uint64(1))
	assert.ErrorIs(t, err, domain.ErrNotVersioned)

	_, err = store.ListHistory(ctx, &model.Document{})
	assert.Error(t, err)

	_, err = store.ListHistory(ctx, &model.Document{}, uint64(1), uint64(2))
	assert.Error(t, err)
}

func testSessionIsVersioned(t *testing.T, store Store) {
	sess := store.NewSession(uow.WithID("fixed"))
	defer func() { _ = sess.Close() }()

	assert.Equal(t, "fixed", sess.ID())
	assert.True(t, history.IsVersioned(sess))
}

func RunStoreTests(t *testing.T, initDB func(t *testing.T) Store, cleanupDB func(t *testing.T)) {
	tests := []struct {
		name string
		fn   func(*testing.T, Store)
	}{
		{"Migrate", testMigrate},
		{"ListHistory", testListHistory},
		{"GetHistoryVersion", testGetHistoryVersion},
		{"ExcludedColumnsOnly", testExcludedColumnsOnly},
		{"DeleteRecordsHistory", testDeleteRecordsHistory},
		{"CategoryChange", testCategoryChange},
		{"Errors", testErrors},
		{"SessionIsVersioned", testSessionIsVersioned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := initDB(t)
			defer cleanupDB(t)
			tt.fn(t, store)
		})
	}
}

package executor

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/datatypes"

	"github.com/feral-file/ff-history/internal/api/shared/dto"
	apierrors "github.com/feral-file/ff-history/internal/api/shared/errors"
	"github.com/feral-file/ff-history/internal/domain"
	"github.com/feral-file/ff-history/internal/history"
	"github.com/feral-file/ff-history/internal/model"
	"github.com/feral-file/ff-history/internal/store"
	"github.com/feral-file/ff-history/internal/uow"
)

// Executor is the interface for the API executor
//
//go:generate mockgen -source=executor.go -destination=../../../mocks/api_executor.go -package=mocks -mock_names=Executor=MockAPIExecutor
type Executor interface {
	// Health pings the database
	Health(ctx context.Context) (*dto.HealthResponse, error)

	// CreateCategory creates a category
	CreateCategory(ctx context.Context, req dto.CategoryRequest) (*dto.CategoryResponse, error)

	// UpdateCategory renames a category. Categories are not versioned.
	UpdateCategory(ctx context.Context, id uint64, req dto.CategoryRequest) (*dto.CategoryResponse, error)

	// CreateDocument creates a document at version 1. Creation is not recorded in history.
	CreateDocument(ctx context.Context, req dto.CreateDocumentRequest) (*dto.DocumentResponse, error)

	// GetDocument retrieves the live state of a document
	GetDocument(ctx context.Context, id uint64) (*dto.DocumentResponse, error)

	// UpdateDocument edits a document, recording the previous state with the request message
	UpdateDocument(ctx context.Context, id uint64, req dto.UpdateDocumentRequest) (*dto.DocumentResponse, error)

	// DeleteDocument deletes a document, recording its final state with the request message
	DeleteDocument(ctx context.Context, id uint64, req dto.DeleteDocumentRequest) (*dto.DeleteDocumentResponse, error)

	// ListDocumentHistory lists the recorded versions of a document, oldest first
	ListDocumentHistory(ctx context.Context, id uint64) (*dto.HistoryListResponse, error)

	// GetDocumentVersion retrieves one recorded version of a document
	GetDocumentVersion(ctx context.Context, id uint64, version int64) (*dto.HistoryRecordResponse, error)

	// DiffDocumentVersions compares two versions of a document. Either may be the live version.
	DiffDocumentVersions(ctx context.Context, id uint64, from, to int64) (*dto.DiffResponse, error)
}

// SessionHook is applied to every session the executor opens
type SessionHook func(*uow.Session)

type executor struct {
	store    store.Store
	registry *history.Registry
	hooks    []SessionHook
}

// NewExecutor creates an executor. registry must be the one the store versions sessions with.
func NewExecutor(store store.Store, registry *history.Registry, hooks ...SessionHook) Executor {
	return &executor{store: store, registry: registry, hooks: hooks}
}

func (e *executor) newSession() *uow.Session {
	sess := e.store.NewSession()
	for _, hook := range e.hooks {
		hook(sess)
	}
	return sess
}

func closeSession(sess *uow.Session) {
	_ = sess.Close()
}

func (e *executor) Health(ctx context.Context) (*dto.HealthResponse, error) {
	if err := e.store.Ping(ctx); err != nil {
		return &dto.HealthResponse{Status: "unhealthy", Database: "unreachable"}, apierrors.NewDatabaseError("Database is unreachable", err.Error())
	}
	return &dto.HealthResponse{Status: "ok", Database: "ok"}, nil
}

func (e *executor) CreateCategory(ctx context.Context, req dto.CategoryRequest) (*dto.CategoryResponse, error) {
	sess := e.newSession()
	defer closeSession(sess)

	existing, err := uow.Find[model.Category](ctx, sess, "name = ?", req.Name)
	if err != nil {
		return nil, apierrors.FromError(err, "Failed to look up category")
	}
	if len(existing) > 0 {
		return nil, apierrors.NewConflictError(fmt.Sprintf("Category %q already exists", req.Name))
	}

	category := &model.Category{Name: req.Name}
	if err := sess.Add(category); err != nil {
		return nil, apierrors.NewInternalError("Failed to create category", err.Error())
	}
	if err := sess.Commit(ctx); err != nil {
		return nil, apierrors.FromError(err, "Failed to create category")
	}
	return dto.NewCategoryResponse(category), nil
}

func (e *executor) UpdateCategory(ctx context.Context, id uint64, req dto.CategoryRequest) (*dto.CategoryResponse, error) {
	sess := e.newSession()
	defer closeSession(sess)

	category, err := uow.Get[model.Category](ctx, sess, id)
	if err != nil {
		return nil, apierrors.FromError(err, "Category not found")
	}
	category.Name = req.Name
	if err := sess.Commit(ctx); err != nil {
		return nil, apierrors.FromError(err, "Failed to update category")
	}
	return dto.NewCategoryResponse(category), nil
}

func (e *executor) CreateDocument(ctx context.Context, req dto.CreateDocumentRequest) (*dto.DocumentResponse, error) {
	sess := e.newSession()
	defer closeSession(sess)

	doc := &model.Document{
		Title: req.Title,
		Body:  req.Body,
	}
	if len(req.Attributes) > 0 {
		doc.Attributes = datatypes.JSON(req.Attributes)
	}
	if req.CategoryID != nil {
		category, err := uow.Get[model.Category](ctx, sess, *req.CategoryID)
		if err != nil {
			return nil, apierrors.FromError(err, "Category not found")
		}
		doc.Category = category
	}

	if err := sess.Add(doc); err != nil {
		return nil, apierrors.NewInternalError("Failed to create document", err.Error())
	}
	if err := sess.Commit(ctx); err != nil {
		return nil, apierrors.FromError(err, "Failed to create document")
	}
	return dto.NewDocumentResponse(doc), nil
}

func (e *executor) GetDocument(ctx context.Context, id uint64) (*dto.DocumentResponse, error) {
	sess := e.newSession()
	defer closeSession(sess)

	doc, err := e.loadDocument(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	return dto.NewDocumentResponse(doc), nil
}

// loadDocument loads the document with its category
func (e *executor) loadDocument(ctx context.Context, sess *uow.Session, id uint64) (*model.Document, error) {
	doc, err := uow.Get[model.Document](ctx, sess, id)
	if err != nil {
		return nil, apierrors.FromError(err, "Document not found")
	}
	if doc.CategoryID != nil {
		category, err := uow.Get[model.Category](ctx, sess, *doc.CategoryID)
		if err != nil {
			return nil, apierrors.FromError(err, "Failed to load category")
		}
		doc.Category = category
	}
	return doc, nil
}

func (e *executor) UpdateDocument(ctx context.Context, id uint64, req dto.UpdateDocumentRequest) (*dto.DocumentResponse, error) {
	sess := e.newSession()
	defer closeSession(sess)

	doc, err := e.loadDocument(ctx, sess, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		doc.Title = *req.Title
	}
	if req.Body != nil {
		doc.Body = *req.Body
	}
	if len(req.Attributes) > 0 {
		doc.Attributes = datatypes.JSON(req.Attributes)
	}
	switch {
	case req.CategoryID != nil:
		category, err := uow.Get[model.Category](ctx, sess, *req.CategoryID)
		if err != nil {
			return nil, apierrors.FromError(err, "Category not found")
		}
		doc.Category = category
	case req.Category != nil:
		found, err := uow.Find[model.Category](ctx, sess, "name = ?", *req.Category)
		if err != nil {
			return nil, apierrors.FromError(err, "Failed to look up category")
		}
		if len(found) > 0 {
			doc.Category = found[0]
		} else {
			doc.Category = &model.Category{Name: *req.Category}
		}
	}

	if req.Message != "" {
		if err := e.registry.SetVersionMessage(sess, doc, req.Message); err != nil {
			return nil, apierrors.FromError(err, "Failed to set version message")
		}
	}
	if err := sess.Commit(ctx); err != nil {
		return nil, apierrors.FromError(err, "Failed to save document")
	}
	return dto.NewDocumentResponse(doc), nil
}

func (e *executor) DeleteDocument(ctx context.Context, id uint64, req dto.DeleteDocumentRequest) (*dto.DeleteDocumentResponse, error) {
	sess := e.newSession()
	defer closeSession(sess)

	doc, err := uow.Get[model.Document](ctx, sess, id)
	if err != nil {
		return nil, apierrors.FromError(err, "Document not found")
	}
	if req.Message != "" {
		if err := e.registry.SetVersionMessage(sess, doc, req.Message); err != nil {
			return nil, apierrors.FromError(err, "Failed to set version message")
		}
	}
	if err := sess.Delete(doc); err != nil {
		return nil, apierrors.NewInternalError("Failed to delete document", err.Error())
	}
	if err := sess.Commit(ctx); err != nil {
		return nil, apierrors.FromError(err, "Failed to delete document")
	}
	return &dto.DeleteDocumentResponse{ID: id, Version: doc.CurrentVersion()}, nil
}

// currentDocument returns the live document, nil when it no longer exists
func (e *executor) currentDocument(ctx context.Context, id uint64) (*model.Document, error) {
	sess := e.newSession()
	defer closeSession(sess)

	doc, err := uow.Get[model.Document](ctx, sess, id)
	if errors.Is(err, domain.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apierrors.FromError(err, "Failed to load document")
	}
	return doc, nil
}

func (e *executor) ListDocumentHistory(ctx context.Context, id uint64) (*dto.HistoryListResponse, error) {
	records, err := e.store.ListHistory(ctx, &model.Document{}, id)
	if err != nil {
		return nil, apierrors.FromError(err, "Failed to list history")
	}
	doc, err := e.currentDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil && len(records) == 0 {
		return nil, apierrors.NewNotFoundError("Document not found")
	}

	resp := &dto.HistoryListResponse{
		DocumentID: id,
		Items:      make([]dto.HistoryRecordResponse, 0, len(records)),
	}
	if doc != nil {
		resp.CurrentVersion = doc.CurrentVersion()
	}
	for _, rec := range records {
		resp.Items = append(resp.Items, dto.NewHistoryRecordResponse(rec))
	}
	return resp, nil
}

func (e *executor) GetDocumentVersion(ctx context.Context, id uint64, version int64) (*dto.HistoryRecordResponse, error) {
	rec, err := e.store.GetHistoryVersion(ctx, &model.Document{}, version, id)
	if err != nil {
		return nil, apierrors.FromError(err, "Version not found")
	}
	resp := dto.NewHistoryRecordResponse(*rec)
	return &resp, nil
}

// resolveVersion returns the recorded version, or the live state when version is current
func (e *executor) resolveVersion(ctx context.Context, ht *history.HistoryType, doc *model.Document, id uint64, version int64) (history.Record, error) {
	if doc != nil && doc.CurrentVersion() == version {
		rec, err := ht.Current(doc)
		if err != nil {
			return history.Record{}, apierrors.NewInternalError("Failed to read document", err.Error())
		}
		return rec, nil
	}
	rec, err := e.store.GetHistoryVersion(ctx, &model.Document{}, version, id)
	if err != nil {
		return history.Record{}, apierrors.FromError(err, fmt.Sprintf("Version %d not found", version))
	}
	return *rec, nil
}

func (e *executor) DiffDocumentVersions(ctx context.Context, id uint64, from, to int64) (*dto.DiffResponse, error) {
	if from < 1 || to < 1 || from >= to {
		return nil, apierrors.NewValidationError("from and to must be positive with from < to")
	}
	ht, ok := e.registry.GetHistoryType(&model.Document{})
	if !ok {
		return nil, apierrors.NewInternalError("Documents are not versioned")
	}
	doc, err := e.currentDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	fromRec, err := e.resolveVersion(ctx, ht, doc, id, from)
	if err != nil {
		return nil, err
	}
	toRec, err := e.resolveVersion(ctx, ht, doc, id, to)
	if err != nil {
		return nil, err
	}

	unified, err := history.UnifiedDiff(fromRec, toRec)
	if err != nil {
		return nil, apierrors.NewInternalError("Failed to render diff", err.Error())
	}
	changes := history.DiffRecords(fromRec, toRec)
	if changes == nil {
		changes = []history.FieldChange{}
	}
	return &dto.DiffResponse{
		DocumentID: id,
		From:       from,
		To:         to,
		Changes:    changes,
		Unified:    unified,
	}, nil
}

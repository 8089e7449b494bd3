package rest_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-history/internal/api/rest"
	"github.com/feral-file/ff-history/internal/api/shared/dto"
	apierrors "github.com/feral-file/ff-history/internal/api/shared/errors"
	"github.com/feral-file/ff-history/internal/history"
	"github.com/feral-file/ff-history/internal/mocks"
)

type errorBody struct {
	Error apierrors.APIError `json:"error"`
}

func setupRouter(t *testing.T) (*gin.Engine, *mocks.MockAPIExecutor) {
	gin.SetMode(gin.TestMode)
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	exec := mocks.NewMockAPIExecutor(ctrl)
	router := gin.New()
	rest.SetupRoutes(router, rest.NewHandler(exec))
	return router, exec
}

func do(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		data, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(data))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) apierrors.APIError {
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error
}

func TestHealthCheck(t *testing.T) {
	router, exec := setupRouter(t)

	exec.EXPECT().Health(gomock.Any()).Return(&dto.HealthResponse{Status: "ok", Database: "ok"}, nil)
	w := do(router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	exec.EXPECT().Health(gomock.Any()).Return(&dto.HealthResponse{Status: "unhealthy"}, apierrors.NewDatabaseError("down"))
	w = do(router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCreateDocument(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		router, exec := setupRouter(t)
		exec.EXPECT().
			CreateDocument(gomock.Any(), dto.CreateDocumentRequest{Title: "Hello", Body: "world"}).
			Return(&dto.DocumentResponse{ID: 1, Title: "Hello", Version: 1}, nil)

		w := do(router, http.MethodPost, "/api/v1/documents", map[string]any{"title": "Hello", "body": "world"})
		require.Equal(t, http.StatusCreated, w.Code)

		var resp dto.DocumentResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, int64(1), resp.Version)
	})

	t.Run("missing title", func(t *testing.T) {
		router, _ := setupRouter(t)
		w := do(router, http.MethodPost, "/api/v1/documents", map[string]any{"body": "world"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, apierrors.ErrCodeValidationFailed, decodeError(t, w).Code)
	})

	t.Run("attributes must be an object", func(t *testing.T) {
		router, _ := setupRouter(t)
		w := do(router, http.MethodPost, "/api/v1/documents", map[string]any{"title": "x", "attributes": []int{1}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		router, _ := setupRouter(t)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", bytes.NewBufferString("{"))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, apierrors.ErrCodeBadRequest, decodeError(t, w).Code)
	})
}

func TestUpdateDocument(t *testing.T) {
	t.Run("passes message through", func(t *testing.T) {
		router, exec := setupRouter(t)
		title := "Edited"
		exec.EXPECT().
			UpdateDocument(gomock.Any(), uint64(7), dto.UpdateDocumentRequest{Title: &title, Message: "fix title"}).
			Return(&dto.DocumentResponse{ID: 7, Title: title, Version: 2}, nil)

		w := do(router, http.MethodPut, "/api/v1/documents/7", map[string]any{"title": "Edited", "message": "fix title"})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		router, _ := setupRouter(t)
		w := do(router, http.MethodPut, "/api/v1/documents/abc", map[string]any{"title": "x"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("category and category_id are exclusive", func(t *testing.T) {
		router, _ := setupRouter(t)
		w := do(router, http.MethodPut, "/api/v1/documents/1", map[string]any{"category": "a", "category_id": 2})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("not found", func(t *testing.T) {
		router, exec := setupRouter(t)
		exec.EXPECT().UpdateDocument(gomock.Any(), uint64(9), gomock.Any()).
			Return(nil, apierrors.NewNotFoundError("Document not found"))

		w := do(router, http.MethodPut, "/api/v1/documents/9", map[string]any{"body": "x"})
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Document not found", decodeError(t, w).Message)
	})

	t.Run("versioning failure", func(t *testing.T) {
		router, exec := setupRouter(t)
		exec.EXPECT().UpdateDocument(gomock.Any(), uint64(3), gomock.Any()).
			Return(nil, apierrors.NewDatabaseError("Failed to save document"))

		w := do(router, http.MethodPut, "/api/v1/documents/3", map[string]any{"body": "x"})
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("unexpected error", func(t *testing.T) {
		router, exec := setupRouter(t)
		exec.EXPECT().UpdateDocument(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("boom"))

		w := do(router, http.MethodPut, "/api/v1/documents/3", map[string]any{"body": "x"})
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, apierrors.ErrCodeInternalError, decodeError(t, w).Code)
	})
}

func TestDeleteDocument(t *testing.T) {
	router, exec := setupRouter(t)

	exec.EXPECT().DeleteDocument(gomock.Any(), uint64(5), dto.DeleteDocumentRequest{Message: "obsolete"}).
		Return(&dto.DeleteDocumentResponse{ID: 5, Version: 3}, nil)
	w := do(router, http.MethodDelete, "/api/v1/documents/5", map[string]any{"message": "obsolete"})
	assert.Equal(t, http.StatusOK, w.Code)

	exec.EXPECT().DeleteDocument(gomock.Any(), uint64(6), dto.DeleteDocumentRequest{}).
		Return(&dto.DeleteDocumentResponse{ID: 6, Version: 1}, nil)
	w = do(router, http.MethodDelete, "/api/v1/documents/6", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHistoryEndpoints(t *testing.T) {
	router, exec := setupRouter(t)

	exec.EXPECT().ListDocumentHistory(gomock.Any(), uint64(1)).Return(&dto.HistoryListResponse{
		DocumentID:     1,
		CurrentVersion: 2,
		Items:          []dto.HistoryRecordResponse{{Version: 1, Message: "first edit"}},
	}, nil)
	w := do(router, http.MethodGet, "/api/v1/documents/1/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list dto.HistoryListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, "first edit", list.Items[0].Message)

	exec.EXPECT().GetDocumentVersion(gomock.Any(), uint64(1), int64(1)).Return(&dto.HistoryRecordResponse{Version: 1}, nil)
	w = do(router, http.MethodGet, "/api/v1/documents/1/history/1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(router, http.MethodGet, "/api/v1/documents/1/history/0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	exec.EXPECT().DiffDocumentVersions(gomock.Any(), uint64(1), int64(1), int64(2)).Return(&dto.DiffResponse{
		DocumentID: 1,
		From:       1,
		To:         2,
		Changes:    []history.FieldChange{{Column: "title", From: "a", To: "b"}},
	}, nil)
	w = do(router, http.MethodGet, "/api/v1/documents/1/history/diff?from=1&to=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var diff dto.DiffResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &diff))
	require.Len(t, diff.Changes, 1)
	assert.Equal(t, "title", diff.Changes[0].Column)

	w = do(router, http.MethodGet, "/api/v1/documents/1/history/diff?from=2&to=1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodGet, "/api/v1/documents/1/history/diff?from=1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHistoryIsReadOnly(t *testing.T) {
	router, _ := setupRouter(t)

	w := do(router, http.MethodPut, "/api/v1/documents/1/history/1", map[string]any{"title": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(router, http.MethodDelete, "/api/v1/documents/1/history/1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCategories(t *testing.T) {
	router, exec := setupRouter(t)

	exec.EXPECT().CreateCategory(gomock.Any(), dto.CategoryRequest{Name: "reports"}).
		Return(&dto.CategoryResponse{ID: 1, Name: "reports"}, nil)
	w := do(router, http.MethodPost, "/api/v1/categories", map[string]any{"name": "reports"})
	assert.Equal(t, http.StatusCreated, w.Code)

	exec.EXPECT().CreateCategory(gomock.Any(), gomock.Any()).
		Return(nil, apierrors.NewConflictError("exists"))
	w = do(router, http.MethodPost, "/api/v1/categories", map[string]any{"name": "reports"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(router, http.MethodPost, "/api/v1/categories", map[string]any{"name": " "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	exec.EXPECT().UpdateCategory(gomock.Any(), uint64(1), dto.CategoryRequest{Name: "memos"}).
		Return(&dto.CategoryResponse{ID: 1, Name: "memos"}, nil)
	w = do(router, http.MethodPut, "/api/v1/categories/1", map[string]any{"name": "memos"})
	assert.Equal(t, http.StatusOK, w.Code)
}

package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/feral-file/ff-history/internal/api/shared/dto"
	"github.com/feral-file/ff-history/internal/api/shared/executor"
)

// Handler defines the interface for REST API handlers
// This interface allows for easy mocking and testing
//
//go:generate mockgen -source=handler.go -destination=../../mocks/api_handler.go -package=mocks -mock_names=Handler=MockAPIHandler
type Handler interface {
	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)

	// CreateCategory creates a category
	// POST /api/v1/categories
	CreateCategory(c *gin.Context)

	// UpdateCategory renames a category
	// PUT /api/v1/categories/:id
	UpdateCategory(c *gin.Context)

	// CreateDocument creates a document. Creation takes no version message.
	// POST /api/v1/documents
	CreateDocument(c *gin.Context)

	// GetDocument retrieves the live state of a document
	// GET /api/v1/documents/:id
	GetDocument(c *gin.Context)

	// UpdateDocument edits a document; the body may carry a version message
	// PUT /api/v1/documents/:id
	UpdateDocument(c *gin.Context)

	// DeleteDocument deletes a document; the body may carry a version message
	// DELETE /api/v1/documents/:id
	DeleteDocument(c *gin.Context)

	// ListDocumentHistory lists the recorded versions of a document
	// GET /api/v1/documents/:id/history
	ListDocumentHistory(c *gin.Context)

	// GetDocumentVersion retrieves one recorded version of a document
	// GET /api/v1/documents/:id/history/:version
	GetDocumentVersion(c *gin.Context)

	// DiffDocumentVersions compares two versions of a document
	// GET /api/v1/documents/:id/history/diff?from=<version>&to=<version>
	DiffDocumentVersions(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	executor executor.Executor
}

// NewHandler creates a new REST API handler using the shared executor
func NewHandler(exec executor.Executor) Handler {
	return &handler{executor: exec}
}

func (h *handler) HealthCheck(c *gin.Context) {
	resp, err := h.executor.Health(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) CreateCategory(c *gin.Context) {
	var req dto.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	resp, err := h.executor.CreateCategory(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, zap.String("name", req.Name))
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *handler) UpdateCategory(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	var req dto.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	resp, err := h.executor.UpdateCategory(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err, zap.Uint64("category_id", id))
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) CreateDocument(c *gin.Context) {
	var req dto.CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	resp, err := h.executor.CreateDocument(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *handler) GetDocument(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	resp, err := h.executor.GetDocument(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, zap.Uint64("document_id", id))
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) UpdateDocument(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	var req dto.UpdateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	resp, err := h.executor.UpdateDocument(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err, zap.Uint64("document_id", id))
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) DeleteDocument(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	var req dto.DeleteDocumentRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, "Invalid request body", err.Error())
			return
		}
	}

	resp, err := h.executor.DeleteDocument(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err, zap.Uint64("document_id", id))
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) ListDocumentHistory(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	resp, err := h.executor.ListDocumentHistory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, zap.Uint64("document_id", id))
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) GetDocumentVersion(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	version, err := parseVersion(c.Param("version"), "version")
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	resp, err := h.executor.GetDocumentVersion(c.Request.Context(), id, version)
	if err != nil {
		respondError(c, err, zap.Uint64("document_id", id), zap.Int64("version", version))
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) DiffDocumentVersions(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	query, err := ParseDiffQuery(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}
	if err := query.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	resp, err := h.executor.DiffDocumentVersions(c.Request.Context(), id, query.From, query.To)
	if err != nil {
		respondError(c, err, zap.Uint64("document_id", id))
		return
	}
	c.JSON(http.StatusOK, resp)
}

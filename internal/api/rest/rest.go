package rest

import (
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler) {
	// Health check endpoint (no version prefix)
	router.GET("/health", handler.HealthCheck)

	v1 := router.Group("/api/v1")
	{
		// Category endpoints
		v1.POST("/categories", handler.CreateCategory)
		v1.PUT("/categories/:id", handler.UpdateCategory)

		// Document endpoints
		v1.POST("/documents", handler.CreateDocument)
		v1.GET("/documents/:id", handler.GetDocument)
		v1.PUT("/documents/:id", handler.UpdateDocument)
		v1.DELETE("/documents/:id", handler.DeleteDocument)

		// Document history endpoints (read-only)
		v1.GET("/documents/:id/history", handler.ListDocumentHistory)
		v1.GET("/documents/:id/history/diff", handler.DiffDocumentVersions)
		v1.GET("/documents/:id/history/:version", handler.GetDocumentVersion)
	}
}

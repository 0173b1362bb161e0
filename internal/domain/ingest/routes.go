package ingest

import "github.com/gin-gonic/gin"

// RegisterRoutes wires the upload endpoints. Both paths serve the same
// handler; /bulk_upload is kept for existing clients. protected guards
// the NAS ingestion trigger.
func RegisterRoutes(r *gin.Engine, protected *gin.RouterGroup, h *Handler) {
	r.POST("/upload", h.Upload)
	r.POST("/bulk_upload", h.Upload)
	protected.POST("/nas_ingest", h.NASIngest)
}

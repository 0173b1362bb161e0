package editentry

import "github.com/gin-gonic/gin"

func RegisterRoutes(r *gin.Engine, h *Handler) {
	r.GET("/edit_entry", h.Edit)
	r.POST("/edit_entry", h.Edit)
}

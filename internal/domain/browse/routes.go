package browse

import "github.com/gin-gonic/gin"

func RegisterRoutes(r *gin.Engine, h *Handler) {
	r.GET("/browse", h.List)
	r.GET("/dbinfo", h.DBInfo)
}

package auth

import "github.com/gin-gonic/gin"

func RegisterRoutes(r *gin.Engine, h *Handler) {
	r.POST("/login", h.Login)
	r.GET("/logout", h.Logout)
}

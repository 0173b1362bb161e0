// Package auth gates the operator-only endpoints behind a shared upload
// password and a signed login cookie.
package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"flightreview/internal/pkg/response"
	"flightreview/internal/pkg/session"
)

const sessionTTL = 24 * time.Hour

type Handler struct {
	passwordHash []byte
	sessions     *session.Service
	cookieName   string
}

func NewHandler(passwordHash string, sessions *session.Service, cookieName string) *Handler {
	return &Handler{
		passwordHash: []byte(passwordHash),
		sessions:     sessions,
		cookieName:   cookieName,
	}
}

// Login handles POST /login with a password form field.
func (h *Handler) Login(c *gin.Context) {
	if len(h.passwordHash) == 0 {
		response.Error(c, http.StatusNotFound, "DISABLED", "login is not configured")
		return
	}
	password := c.PostForm("password")
	if err := bcrypt.CompareHashAndPassword(h.passwordHash, []byte(password)); err != nil {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "incorrect password")
		return
	}
	token, err := h.sessions.Issue()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "SESSION_ERROR", "could not create session")
		return
	}
	c.SetCookie(h.cookieName, token, int(sessionTTL.Seconds()), "/", "", false, true)
	c.Redirect(http.StatusFound, "/upload")
}

// Logout clears the login cookie.
func (h *Handler) Logout(c *gin.Context) {
	c.SetCookie(h.cookieName, "", -1, "/", "", false, true)
	c.Redirect(http.StatusFound, "/login")
}

// RequireLogin rejects requests without a valid login cookie.
func (h *Handler) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(h.cookieName)
		if err != nil || h.sessions.Validate(token) != nil {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "login required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// Package editentry implements the token-authenticated edit/delete path
// for admitted logs. The revocation token disclosed at upload time is the
// only credential.
package editentry

import (
	"crypto/subtle"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"flightreview/internal/domain/logrecord"
	"flightreview/internal/pkg/response"
	"flightreview/internal/storage"
)

type Handler struct {
	repo  logrecord.Repository
	store *storage.Store
}

func NewHandler(repo logrecord.Repository, store *storage.Store) *Handler {
	return &Handler{repo: repo, store: store}
}

// Edit handles /edit_entry?action=delete&log=<id>&token=<token>: removes
// the database row and the persisted file.
func (h *Handler) Edit(c *gin.Context) {
	action := c.Query("action")
	logID := c.Query("log")
	token := c.Query("token")
	if action != "delete" || logID == "" || token == "" {
		response.ErrorWithDetails(c, http.StatusBadRequest, "BAD_REQUEST",
			"action, log and token are required", gin.H{"supported_actions": []string{"delete"}})
		return
	}

	rec, err := h.repo.GetLog(c.Request.Context(), logID)
	if err != nil {
		if errors.Is(err, logrecord.ErrLogNotFound) {
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "log not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "DB_ERROR", "failed to load log")
		return
	}
	if subtle.ConstantTimeCompare([]byte(rec.Token), []byte(token)) != 1 {
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "invalid token")
		return
	}

	if err := h.repo.DeleteLog(c.Request.Context(), logID); err != nil {
		response.Error(c, http.StatusInternalServerError, "DB_ERROR", "failed to delete log")
		return
	}
	if err := h.store.Remove(logID); err != nil {
		// Row is gone; an orphaned file is only worth a log line.
		log.Printf("editentry: could not remove file for log %s: %v", logID, err)
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": logID})
}

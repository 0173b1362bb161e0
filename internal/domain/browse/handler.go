// Package browse serves JSON listings of the public log database for the
// browse page and for tooling that polls /dbinfo.
package browse

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"flightreview/internal/domain/logrecord"
	"flightreview/internal/pkg/response"
)

const defaultPageSize = 100

type Handler struct {
	repo logrecord.Repository
}

func NewHandler(repo logrecord.Repository) *Handler {
	return &Handler{repo: repo}
}

type logEntry struct {
	ID               string    `json:"id"`
	Description      string    `json:"description"`
	OriginalFilename string    `json:"original_filename"`
	Date             time.Time `json:"date"`
	Source           string    `json:"source"`
	Rating           string    `json:"rating"`
	WindSpeed        int       `json:"wind_speed"`
	PlotURL          string    `json:"plot_url"`
}

// List handles GET /browse: a page of public logs, newest first.
func (h *Handler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 1000 {
		limit = defaultPageSize
	}

	recs, err := h.repo.ListPublicLogs(c.Request.Context(), limit, offset)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "DB_ERROR", "failed to list logs")
		return
	}
	response.Success(c, http.StatusOK, toEntries(recs))
}

// DBInfo handles GET /dbinfo: every public log, plus totals.
func (h *Handler) DBInfo(c *gin.Context) {
	recs, err := h.repo.ListPublicLogs(c.Request.Context(), 0, 0)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "DB_ERROR", "failed to read log database")
		return
	}
	total, err := h.repo.CountLogs(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "DB_ERROR", "failed to read log database")
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"total_logs":  total,
		"public_logs": toEntries(recs),
	})
}

func toEntries(recs []*logrecord.LogRecord) []logEntry {
	entries := make([]logEntry, 0, len(recs))
	for _, r := range recs {
		entries = append(entries, logEntry{
			ID:               r.ID,
			Description:      r.Description,
			OriginalFilename: r.OriginalFilename,
			Date:             r.Date,
			Source:           r.Source,
			Rating:           r.Rating,
			WindSpeed:        r.WindSpeed,
			PlotURL:          "/plot_app?log=" + r.ID,
		})
	}
	return entries
}

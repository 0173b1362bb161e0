package ingest

import (
	"context"
	"errors"
	"io"
	"log"
	"mime"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"flightreview/internal/config"
	"flightreview/internal/domain/logrecord"
	"flightreview/internal/multipart"
)

const bodyChunkSize = 64 << 10

// Handler serves the streaming upload endpoints. The request body is fed
// chunk by chunk into a multipart streamer, so a multi-hundred-megabyte
// log never sits in memory as a whole.
type Handler struct {
	pipeline *Pipeline
	cfg      *config.Config

	// spillDir receives part spill files; it lives inside the managed
	// storage dir so the final relocation is a same-filesystem rename.
	spillDir string
}

func NewHandler(pipeline *Pipeline, cfg *config.Config, spillDir string) *Handler {
	return &Handler{pipeline: pipeline, cfg: cfg, spillDir: spillDir}
}

// Upload handles POST /upload and POST /bulk_upload.
func (h *Handler) Upload(c *gin.Context) {
	_, params, err := mime.ParseMediaType(c.GetHeader("Content-Type"))
	boundary := params["boundary"]
	if err != nil || boundary == "" {
		c.String(http.StatusBadRequest, "expected a multipart/form-data body")
		return
	}

	maxSize := h.cfg.MaxUploadSize
	// A client declaring its payload size up front may raise the accepted
	// body size for this one request.
	if es, err := strconv.ParseInt(c.Query("expected_size"), 10, 64); err == nil && es > 0 {
		maxSize = es
	}

	streamer, err := multipart.NewStreamer(boundary, maxSize, h.cfg.PartSpillLimit, h.spillDir)
	if err != nil {
		c.String(http.StatusBadRequest, "invalid multipart boundary")
		return
	}
	// Buffers are released on every exit path, including panics caught by
	// the recovery middleware further up the chain.
	defer streamer.ReleaseParts()

	if !h.receiveBody(c, streamer) {
		return
	}

	meta := MetaFromForm(streamer.FormValue)
	filePart := streamer.PartByName("filearg")
	if filePart == nil {
		c.String(http.StatusBadRequest, "no file was uploaded")
		return
	}

	prefix, err := filePart.Peek(SniffLen)
	if err != nil {
		c.String(http.StatusBadRequest, RejectUnknown(filePart.Filename()).Error())
		return
	}

	switch Sniff(prefix) {
	case KindNativeLog:
		h.admitSingle(c, filePart, meta)
	case KindArchive:
		h.admitArchive(c, filePart, meta)
	default:
		c.String(http.StatusBadRequest, RejectUnknown(filePart.Filename()).Error())
	}
}

// receiveBody pumps the request body into the streamer. Returns false if
// the response has already been written.
func (h *Handler) receiveBody(c *gin.Context, streamer *multipart.Streamer) bool {
	buf := make([]byte, bodyChunkSize)
	for {
		n, err := c.Request.Body.Read(buf)
		if n > 0 {
			if derr := streamer.DataReceived(buf[:n]); derr != nil {
				h.rejectStream(c, derr)
				return false
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			// Client went away mid-body; the response likely never
			// arrives, but the status keeps the access log honest.
			log.Printf("ingest: upload body aborted after %d bytes: %v", streamer.Received(), err)
			c.String(http.StatusBadRequest, "upload was interrupted")
			return false
		}
	}
	if err := streamer.DataComplete(); err != nil {
		h.rejectStream(c, err)
		return false
	}
	return true
}

func (h *Handler) rejectStream(c *gin.Context, err error) {
	switch {
	case errors.Is(err, multipart.ErrPayloadTooLarge):
		c.String(http.StatusRequestEntityTooLarge, "uploaded file is too large")
	case errors.Is(err, multipart.ErrIncompleteBody),
		errors.Is(err, multipart.ErrMalformedMultipart):
		c.String(http.StatusBadRequest, "malformed upload body")
	default:
		log.Printf("ingest: stream assembly failed: %v", err)
		c.String(http.StatusInternalServerError, "upload failed")
	}
}

func (h *Handler) admitSingle(c *gin.Context, file UploadedFile, meta UploadMeta) {
	id, err := h.pipeline.AdmitSingle(c.Request.Context(), file, meta)
	if err != nil {
		h.rejectAdmission(c, err)
		return
	}

	log.Println(h.cfg.PlotURL(id))
	// The automated uploader only checks the status code; everyone else
	// gets sent to the plotting page.
	if meta.Source == logrecord.SourceQGroundControl {
		c.String(http.StatusOK, h.cfg.PlotURL(id))
		return
	}
	c.Redirect(http.StatusFound, "/plot_app?log="+id)
}

func (h *Handler) admitArchive(c *gin.Context, filePart *multipart.Part, meta UploadMeta) {
	ra, size, err := filePart.Open()
	if err != nil {
		log.Printf("ingest: cannot open archive part: %v", err)
		c.String(http.StatusInternalServerError, "upload failed")
		return
	}
	ids, err := h.pipeline.AdmitArchive(c.Request.Context(), ra, size, meta)
	if err != nil {
		// Entries admitted before the failure stay committed; say so.
		if len(ids) > 0 {
			log.Printf("ingest: archive aborted after %d admitted entries: %v", len(ids), err)
		}
		h.rejectAdmission(c, err)
		return
	}
	for _, id := range ids {
		log.Println(h.cfg.PlotURL(id))
	}
	c.Redirect(http.StatusFound, "/browse")
}

func (h *Handler) rejectAdmission(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrCorruptLog),
		errors.Is(err, ErrInvalidFormat),
		errors.Is(err, ErrLegacyFormat):
		c.String(http.StatusBadRequest, err.Error())
	default:
		log.Printf("ingest: admission failed: %v", err)
		c.String(http.StatusInternalServerError, "the upload could not be processed")
	}
}

// NASIngest handles POST /nas_ingest: it kicks off a background admission
// run over the configured NAS directory and returns immediately.
func (h *Handler) NASIngest(c *gin.Context) {
	dir := h.cfg.NASIngestDir
	if dir == "" {
		c.String(http.StatusNotFound, "NAS ingestion is not configured")
		return
	}
	go func() {
		// Detached from the request context: the run outlives the 202.
		res, err := h.pipeline.AdmitDirectory(context.Background(), dir, DefaultMeta(), false)
		if err != nil {
			log.Printf("ingest: NAS ingestion failed: %v", err)
			return
		}
		log.Printf("ingest: NAS ingestion done: %d admitted, %d skipped, %d failed",
			len(res.Admitted), res.Skipped, res.Failed)
	}()
	c.String(http.StatusAccepted, "NAS ingestion started")
}

package resumes

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-processor/internal/extract"
	"resume-processor/internal/shared/server/respond"
)

const maxUploadBytes = 5 << 20

// Handler wires HTTP handlers to the resume service.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches resume routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/resumes/upload", h.upload)
	rg.GET("/resumes", h.list)
	rg.GET("/resumes/:id", h.get)
	rg.POST("/resumes/:id/process", h.process)
	rg.DELETE("/resumes/:id", h.remove)
}

func (h *Handler) upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "multipart field 'file' is required", nil)
		return
	}
	defer file.Close()

	if header.Size > maxUploadBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "validation_error", "file exceeds the 5 MiB limit", nil)
		return
	}

	payload, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to read upload", nil)
		return
	}
	if len(payload) > maxUploadBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "validation_error", "file exceeds the 5 MiB limit", nil)
		return
	}
	if len(payload) == 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is empty", nil)
		return
	}

	mimeType := header.Header.Get("Content-Type")
	raw, err := h.Svc.Upload(c.Request.Context(), header.Filename, mimeType, payload)
	if err != nil {
		switch {
		case errors.Is(err, extract.ErrUnsupportedType):
			respond.Error(c, http.StatusUnsupportedMediaType, "validation_error", "only PDF, DOCX and plain text documents are supported", nil)
		case errors.Is(err, ErrEmptyDocument):
			respond.Error(c, http.StatusUnprocessableEntity, "validation_error", "document contains no extractable text", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to store upload", nil)
		}
		return
	}

	c.Set("resumeId", raw.ID)
	respond.Created(c, gin.H{
		"id":         raw.ID,
		"filename":   raw.Filename,
		"status":     raw.Status,
		"uploadedAt": raw.UploadedAt,
	})
}

func (h *Handler) list(c *gin.Context) {
	statusFilter := strings.TrimSpace(c.Query("status"))
	limit := 50
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			respond.Error(c, http.StatusBadRequest, "validation_error", "limit must be a non-negative integer", nil)
			return
		}
		limit = parsed
	}

	items, err := h.Svc.List(c.Request.Context(), statusFilter, limit)
	if err != nil {
		if statusFilter != "" && !ValidStatus(statusFilter) {
			respond.Error(c, http.StatusBadRequest, "validation_error", "unknown status filter", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list resumes", nil)
		return
	}

	resp := make([]gin.H, 0, len(items))
	for _, r := range items {
		item := gin.H{
			"id":         r.ID,
			"filename":   r.Filename,
			"status":     r.Status,
			"uploadedAt": r.UploadedAt,
		}
		if r.Status == StatusFailed && r.Error != "" {
			item["error"] = r.Error
		}
		resp = append(resp, item)
	}
	respond.OK(c, resp)
}

func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")
	c.Set("resumeId", id)

	raw, processed, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "resume not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch resume", nil)
		return
	}

	resp := gin.H{
		"id":         raw.ID,
		"filename":   raw.Filename,
		"status":     raw.Status,
		"uploadedAt": raw.UploadedAt,
	}
	if raw.Status == StatusFailed && raw.Error != "" {
		resp["error"] = raw.Error
	}
	if processed != nil {
		resp["data"] = processed.Data
	}
	respond.OK(c, resp)
}

func (h *Handler) process(c *gin.Context) {
	id := c.Param("id")
	c.Set("resumeId", id)

	raw, err := h.Svc.RequestProcessing(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "resume not found", nil)
		case errors.Is(err, ErrProcessingInFlight):
			respond.Error(c, http.StatusConflict, "conflict", "resume is already processing", nil)
		case errors.Is(err, ErrAlreadyCompleted):
			respond.Error(c, http.StatusConflict, "conflict", "resume is already completed", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to start processing", nil)
		}
		return
	}

	respond.Accepted(c, gin.H{
		"id":     raw.ID,
		"status": raw.Status,
	})
}

func (h *Handler) remove(c *gin.Context) {
	id := c.Param("id")
	c.Set("resumeId", id)

	if err := h.Svc.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "resume not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to delete resume", nil)
		return
	}
	c.Status(http.StatusNoContent)
}

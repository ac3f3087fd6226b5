package http

import (
	"errors"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/framecast-server/internal/archive"
	"github.com/vovakirdan/framecast-server/internal/chat"
)

// ArchiveHandlers serves the read-only archive.
type ArchiveHandlers struct {
	archiver archive.Archiver
	log      *zerolog.Logger
}

// NewArchiveHandlers creates a new archive handlers instance.
func NewArchiveHandlers(archiver archive.Archiver, logger *zerolog.Logger) *ArchiveHandlers {
	return &ArchiveHandlers{archiver: archiver, log: logger}
}

// ArchivedResponse represents an archived item in API responses.
type ArchivedResponse struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	Size      int    `json:"size"`
	CreatedAt string `json:"created_at"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// List returns archived items, newest first.
// GET /archive
func (h *ArchiveHandlers) List(c *gin.Context) {
	items, err := h.archiver.List(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list archive")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	resp := make([]ArchivedResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, ArchivedResponse{
			Name:      item.Name,
			URL:       item.URL,
			Size:      item.Size,
			CreatedAt: item.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, resp)
}

// Get serves the bytes of one archived item.
// GET /archive/:name
func (h *ArchiveHandlers) Get(c *gin.Context) {
	name := c.Param("name")
	mime, ok := chat.MimeType(strings.TrimPrefix(path.Ext(name), "."))
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
		return
	}

	body, err := h.archiver.Get(c.Request.Context(), name)
	if errors.Is(err, archive.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("name", name).Msg("failed to read archived item")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.Data(http.StatusOK, mime, body)
}

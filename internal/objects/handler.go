// Package objects serves file uploads and public downloads.
package objects

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/evently-demo/backend/internal/client"
	"github.com/evently-demo/backend/internal/middleware"
	"github.com/evently-demo/backend/internal/models"
	"github.com/evently-demo/backend/pkg/response"
	"github.com/evently-demo/backend/pkg/storage"
)

// Handler handles /storage/v1.
type Handler struct {
	storage *client.Storage
	logger  *zap.Logger
}

// NewHandler creates an object handler.
func NewHandler(s *client.Storage, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{storage: s, logger: logger}
}

// Register mounts the routes on g. Uploads require a session token.
func (h *Handler) Register(g *gin.RouterGroup, requireSession gin.HandlerFunc) {
	g.GET("/object/public/:bucket/*path", h.Download)
	g.POST("/object/:bucket/*path", requireSession, h.Upload)
	g.POST("/avatar", requireSession, h.UploadAvatar)
}

// Upload handles POST /storage/v1/object/:bucket/*path with the raw file as
// body.
func (h *Handler) Upload(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("path"), "/")
	if key == "" {
		response.BadRequest(c, "object path required")
		return
	}
	body, ok := h.readBody(c)
	if !ok {
		return
	}
	url, err := h.storage.From(c.Param("bucket")).Upload(c.Request.Context(), key, c.ContentType(), body)
	if err != nil {
		h.logger.Error("upload failed", zap.String("bucket", c.Param("bucket")), zap.String("key", key), zap.Error(err))
		response.Internal(c, "upload failed")
		return
	}
	response.Created(c, gin.H{"path": key, "url": url})
}

// UploadAvatar handles POST /storage/v1/avatar: stores the signed-in user's
// avatar and updates their profile.
func (h *Handler) UploadAvatar(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)
	body, ok := h.readBody(c)
	if !ok {
		return
	}
	url, err := h.storage.UploadAvatar(c.Request.Context(), userID, c.ContentType(), body)
	if err != nil {
		status := http.StatusInternalServerError
		switch err.Code {
		case models.CodeInvalidInput:
			status = http.StatusBadRequest
		case models.CodeNotFound:
			status = http.StatusNotFound
		}
		response.Fail(c, status, err.Code, err.Message)
		return
	}
	response.OK(c, gin.H{"avatar_url": url})
}

// Download handles GET /storage/v1/object/public/:bucket/*path.
func (h *Handler) Download(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("path"), "/")
	body, contentType, err := h.storage.Objects().Get(c.Request.Context(), c.Param("bucket"), key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			response.NotFound(c, "object not found")
			return
		}
		h.logger.Error("download failed", zap.String("key", key), zap.Error(err))
		response.Internal(c, "download failed")
		return
	}
	defer body.Close()
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, -1, contentType, body, nil)
}

func (h *Handler) readBody(c *gin.Context) (io.Reader, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, storage.MaxAvatarSize))
	if err != nil {
		response.Fail(c, http.StatusRequestEntityTooLarge, "", "file too large")
		return nil, false
	}
	if len(data) == 0 {
		response.BadRequest(c, "empty body")
		return nil, false
	}
	return bytes.NewReader(data), true
}

package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BlobStore stores uploaded files.
type BlobStore interface {
	Put(ctx context.Context, filename, contentType string, body io.Reader) (string, error)
}

// UploadHandler accepts admin file uploads.
type UploadHandler struct {
	Store    BlobStore
	MaxBytes int64
	Logger   *zap.Logger
}

// NewUploadHandler constructs an UploadHandler.
func NewUploadHandler(store BlobStore, maxBytes int64, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{Store: store, MaxBytes: maxBytes, Logger: logger}
}

// Upload stores the multipart "file" field and returns its public URL.
func (h *UploadHandler) Upload(c *gin.Context) {
	if h.MaxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxBytes)
	}
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file_too_large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "multipart field \"file\" is required."})
		return
	}

	file, err := header.Open()
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	url, err := h.Store.Put(c.Request.Context(), header.Filename, contentType, file)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url})
}

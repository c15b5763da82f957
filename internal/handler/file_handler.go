package handler

import (
	"io"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/placement-engine/pkg/errors"
	"github.com/noah-isme/placement-engine/pkg/response"
)

type signedOpener interface {
	OpenSigned(token string) (*os.File, string, error)
}

// FileHandler serves objects behind signed download URLs.
type FileHandler struct {
	store signedOpener
}

// NewFileHandler constructs the handler.
func NewFileHandler(store signedOpener) *FileHandler {
	return &FileHandler{store: store}
}

// Download godoc
// @Summary Download a stored object
// @Tags Files
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /files/{token} [get]
func (h *FileHandler) Download(c *gin.Context) {
	file, contentType, err := h.store.OpenSigned(c.Param("token"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "file not found or link expired"))
		return
	}
	defer file.Close()

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Cache-Control", "private, max-age=300")
	c.Status(http.StatusOK)
	c.Header("Content-Type", contentType)
	if _, err := io.Copy(c.Writer, file); err != nil {
		_ = c.Error(err)
	}
}

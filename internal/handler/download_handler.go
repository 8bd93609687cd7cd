package handler

import (
	"mime"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/quotecraft/machine-quote-api/internal/service"
	"github.com/quotecraft/machine-quote-api/pkg/response"
)

// DownloadHandler serves stored exports through signed tokens. Routes using it
// are unauthenticated; the token itself carries the authorization.
type DownloadHandler struct {
	exports *service.ExportService
}

// NewDownloadHandler creates a new handler.
func NewDownloadHandler(exports *service.ExportService) *DownloadHandler {
	return &DownloadHandler{exports: exports}
}

// Download godoc
// @Summary Download an exported document
// @Description Resolves a signed token to the stored file
// @Tags Quotations
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /downloads/{token} [get]
func (h *DownloadHandler) Download(c *gin.Context) {
	filename, data, err := h.exports.Download(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}

	contentType := mime.TypeByExtension(filepath.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, data)
}

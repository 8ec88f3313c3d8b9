package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

var allowedUploadExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".pdf":  true,
}

var errNoUpload = errors.New("no file uploaded")

// saveUpload stores the multipart file in field and returns its URL.
// errNoUpload is returned when the field is absent or the body is not multipart.
func (h *Handler) saveUpload(c *gin.Context, field string) (string, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return "", errNoUpload
	}
	if err != nil {
		return "", err
	}
	if h.MaxUploadBytes > 0 && fh.Size > h.MaxUploadBytes {
		return "", fmt.Errorf("%s exceeds %d bytes", field, h.MaxUploadBytes)
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowedUploadExt[ext] {
		return "", fmt.Errorf("%s: unsupported file type %q", field, ext)
	}

	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	return h.Documents.Save(c.Request.Context(), fh.Filename, f)
}

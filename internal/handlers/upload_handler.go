package handlers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/shoplane/storefront-api/internal/apperr"
	"github.com/shoplane/storefront-api/internal/respond"
)

// UploadImage is the handler for POST /products/upload (admin only).
// Saves the file under the upload dir with a uuid filename and returns the
// public URL for use as a product imageUrl.
func (h *Handlers) UploadImage(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, apperr.New(apperr.ValidationFailed, "No file uploaded"))
		return
	}

	if err := os.MkdirAll(h.Cfg.UploadDir, 0755); err != nil {
		respond.Error(c, err)
		return
	}

	filename := uuid.New().String() + filepath.Ext(file.Filename)
	if err := c.SaveUploadedFile(file, filepath.Join(h.Cfg.UploadDir, filename)); err != nil {
		respond.Error(c, err)
		return
	}

	respond.JSON(c, http.StatusCreated, "File uploaded", gin.H{
		"url": fmt.Sprintf("%s/uploads/%s", h.Cfg.BaseURL, filename),
	})
}

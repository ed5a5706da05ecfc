package api

import (
	"bytes"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yourorg/popularity-vision/internal/keywords"
	"github.com/yourorg/popularity-vision/internal/storage"
)

// UploadHandler replaces the keyword list that ingestion runs search for.
type UploadHandler struct {
	store storage.ObjectStore
	uri   string // destination the ingest command reads from
}

func NewUploadHandler(store storage.ObjectStore, uri string) *UploadHandler {
	return &UploadHandler{store: store, uri: uri}
}

func (h *UploadHandler) UploadKeywords(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File upload error: " + err.Error()})
		return
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".csv", ".tsv", ".txt", ".xlsx":
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type"})
		return
	}

	body, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file read error: " + err.Error()})
		return
	}

	// Parse before storing so a broken list never replaces a working one.
	terms, err := keywords.Parse(header.Filename, bytes.NewReader(body))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file parsing error: " + err.Error()})
		return
	}
	if len(terms) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no keywords found in file"})
		return
	}

	location, err := h.store.Put(c.Request.Context(), h.uri, bytes.NewReader(body))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage error: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"keywords": len(terms),
		"location": location,
	})
}

package http

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"betting-assessment-service/internal/domain"
	"betting-assessment-service/internal/upload"
	"github.com/gin-gonic/gin"
)

func (h *Handler) Template(c *gin.Context) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", upload.TemplateFilename))
	c.Data(http.StatusOK, "text/csv", upload.Template())
}

func (h *Handler) PreviewCSV(c *gin.Context) {
	data, _, ok := h.readUpload(c, h.limits.MaxFileBytes)
	if !ok {
		return
	}
	preview, err := upload.ParseCSV(bytes.NewReader(data))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"totalRows":       preview.TotalRows,
		"validQuestions":  preview.ValidQuestions,
		"errors":          preview.Errors,
		"parsedQuestions": preview.ParsedQuestions,
	})
}

func (h *Handler) UploadZip(c *gin.Context) {
	data, filename, ok := h.readUpload(c, h.limits.MaxZipBytes)
	if !ok {
		return
	}
	name := c.PostForm("name")
	if name == "" {
		name = strings.TrimSuffix(filename, path.Ext(filename))
	}
	res, err := h.importer.ImportZip(c.Request.Context(), name, data)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// readUpload reads the multipart "file" field, rejecting files over limit.
func (h *Handler) readUpload(c *gin.Context, limit int64) ([]byte, string, bool) {
	header, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "no file uploaded")
		return nil, "", false
	}
	if limit > 0 && header.Size > limit {
		h.fail(c, fmt.Errorf("%w: file exceeds %d bytes", domain.ErrInvalidUpload, limit))
		return nil, "", false
	}
	f, err := header.Open()
	if err != nil {
		h.fail(c, fmt.Errorf("open upload: %w", err))
		return nil, "", false
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		h.fail(c, fmt.Errorf("read upload: %w", err))
		return nil, "", false
	}
	return data, header.Filename, true
}

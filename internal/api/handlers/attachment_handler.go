package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Marga-Ghale/ora-tasks-api/internal/api/middleware"
	"github.com/Marga-Ghale/ora-tasks-api/internal/logger"
	"github.com/Marga-Ghale/ora-tasks-api/internal/models"
	"github.com/Marga-Ghale/ora-tasks-api/internal/service"
)

// ============================================
// Attachment Handler
// ============================================

// multipartOverhead leaves room for boundaries and headers on top of the file.
const multipartOverhead = 1 << 20

type AttachmentHandler struct {
	attachmentService service.AttachmentService
}

// Upload accepts a multipart form with the file under "file".
func (h *AttachmentHandler) Upload(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	if limit := h.attachmentService.MaxBytes(); limit > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartOverhead)
	}

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, service.ErrFileTooLarge)
			return
		}
		respondBadRequest(c, fmt.Errorf("file is required: %w", err))
		return
	}

	file, err := header.Open()
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	defer file.Close()

	attachment, err := h.attachmentService.Upload(c.Request.Context(), c.Param("id"), userID, &service.UploadFile{
		Filename: header.Filename,
		Content:  file,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusCreated, toAttachmentResponse(attachment))
}

func (h *AttachmentHandler) ListByTask(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	attachments, err := h.attachmentService.List(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]models.AttachmentResponse, len(attachments))
	for i, a := range attachments {
		response[i] = toAttachmentResponse(a)
	}
	respond(c, http.StatusOK, response)
}

// Download streams the stored file with its original name.
func (h *AttachmentHandler) Download(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	attachment, content, err := h.attachmentService.Open(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	defer content.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", attachment.Filename))
	c.Header("Content-Length", strconv.FormatInt(attachment.FileSize, 10))
	c.Header("X-Content-Type-Options", "nosniff")
	c.Status(http.StatusOK)
	c.Writer.Header().Set("Content-Type", attachment.MimeType)
	if _, err := io.Copy(c.Writer, content); err != nil {
		logger.Warn().Err(err).Str("attachment_id", attachment.ID).Msg("attachment download interrupted")
	}
}

func (h *AttachmentHandler) Delete(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	if err := h.attachmentService.Delete(c.Request.Context(), c.Param("id"), userID); err != nil {
		respondError(c, err)
		return
	}

	respondMessage(c, "Attachment deleted")
}

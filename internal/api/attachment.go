package api

import (
	"fmt"
	"path/filepath"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/chitter-chat/chitter-server/internal/chitter"
	"github.com/chitter-chat/chitter-server/internal/httputil"
	"github.com/chitter-chat/chitter-server/internal/media"
)

// AttachmentHandler serves file upload endpoints. It is bound to *media.LocalStorage rather than the
// media.StorageProvider interface because chitter.Attachment.Path is an on-disk path the storage backends unlink
// directly with os.Remove, not an opaque storage key.
type AttachmentHandler struct {
	service      chitter.Service
	storage      *media.LocalStorage
	maxSizeBytes int64
	log          zerolog.Logger
}

// NewAttachmentHandler creates a new attachment handler.
func NewAttachmentHandler(service chitter.Service, storage *media.LocalStorage, maxSizeBytes int64, logger zerolog.Logger) *AttachmentHandler {
	return &AttachmentHandler{service: service, storage: storage, maxSizeBytes: maxSizeBytes, log: logger}
}

// Upload handles POST /api/v1/attachments (multipart form, field "file").
func (h *AttachmentHandler) Upload(c fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return httputil.FailValidation(c, []string{"file field is required"})
	}
	if fh.Size > h.maxSizeBytes {
		return httputil.FailValidation(c, []string{fmt.Sprintf("file exceeds the maximum of %d bytes", h.maxSizeBytes)})
	}

	contentType := fh.Header.Get("Content-Type")
	if !media.IsAllowedContentType(contentType) {
		return httputil.Fail(c, chitter.InvalidFileType)
	}

	f, err := fh.Open()
	if err != nil {
		h.log.Error().Err(err).Msg("failed to open uploaded file")
		return httputil.FailUnknown(c)
	}
	defer func() { _ = f.Close() }()

	var width, height *int
	if media.IsImageContentType(contentType) {
		if w, ht, err := media.Dimensions(f); err == nil {
			width, height = &w, &ht
		}
		if seeker, ok := f.(interface {
			Seek(int64, int) (int64, error)
		}); ok {
			if _, err := seeker.Seek(0, 0); err != nil {
				h.log.Error().Err(err).Msg("failed to rewind uploaded file")
				return httputil.FailUnknown(c)
			}
		}
	}

	ext := media.ExtensionFromFilename(fh.Filename)
	key := fmt.Sprintf("%s%s", uuid.New().String(), ext)

	if err := h.storage.Put(c.Context(), key, f); err != nil {
		h.log.Error().Err(err).Msg("failed to write uploaded file")
		return httputil.FailUnknown(c)
	}

	attachment, err := h.service.UploadAttachment(c.Context(), bearerToken(c), chitter.UploadAttachmentParams{
		Type:     chitter.AttachmentType(media.AttachmentKind(contentType)),
		FileName: filepath.Base(fh.Filename),
		Path:     h.storage.FilePath(key),
		Width:    width,
		Height:   height,
	})
	if err != nil {
		_ = h.storage.Delete(c.Context(), key)
		return httputil.FailErr(c, err)
	}
	return httputil.SuccessStatus(c, fiber.StatusCreated, attachment)
}

// Remove handles DELETE /api/v1/attachments/:attachmentID.
func (h *AttachmentHandler) Remove(c fiber.Ctx) error {
	attachmentID, ok := pathUUID(c, "attachmentID")
	if !ok {
		return nil
	}

	if err := h.service.RemoveAttachment(c.Context(), bearerToken(c), attachmentID); err != nil {
		return httputil.FailErr(c, err)
	}
	return httputil.Success(c, nil)
}

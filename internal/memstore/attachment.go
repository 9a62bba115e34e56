package memstore

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/chitter-chat/chitter-server/internal/chitter"
)

// UploadAttachment records an already-written file as an Attachment owned by the resolved user.
func (cm *ChitterMem) UploadAttachment(_ context.Context, token string, params chitter.UploadAttachmentParams) (*chitter.Attachment, error) {
	rs, user, err := cm.resolveUser(token)
	if err != nil {
		return nil, err
	}

	attachment := &chitter.Attachment{
		ID:        uuid.New(),
		Type:      params.Type,
		UserID:    user.ID,
		FileName:  params.FileName,
		Path:      params.Path,
		Width:     params.Width,
		Height:    params.Height,
		CreatedAt: time.Now().UTC(),
	}

	rs.mu.Lock()
	rs.attachments[attachment.ID] = attachment
	rs.mu.Unlock()

	a := *attachment
	return &a, nil
}

// RemoveAttachment deletes the attachment's record and unlinks its backing file. A file that is already missing
// from disk is not treated as an error.
func (cm *ChitterMem) RemoveAttachment(_ context.Context, token string, attachmentID uuid.UUID) error {
	rs, user, err := cm.resolveUser(token)
	if err != nil {
		return err
	}

	rs.mu.Lock()
	attachment, ok := rs.attachments[attachmentID]
	if !ok || attachment.UserID != user.ID {
		rs.mu.Unlock()
		return chitter.Fail(chitter.AttachmentNotFound)
	}
	delete(rs.attachments, attachmentID)
	path := attachment.Path
	rs.mu.Unlock()

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		cm.log.Warn().Err(err).Str("path", path).Msg("failed to unlink attachment file")
	}
	return nil
}

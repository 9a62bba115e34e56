package sqlstore

import (
	"context"
	"errors"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/chitter-chat/chitter-server/internal/chitter"
)

const attachmentColumns = `id, type, user_id, file_name, path, width, height, created_at`

func scanAttachment(row pgx.Row) (*chitter.Attachment, error) {
	var a chitter.Attachment
	if err := row.Scan(&a.ID, &a.Type, &a.UserID, &a.FileName, &a.Path, &a.Width, &a.Height, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func (d *PostgresChitterDatabase) getOwnedAttachment(ctx context.Context, id, ownerID uuid.UUID) (*chitter.Attachment, error) {
	row := d.pool.QueryRow(ctx, `SELECT `+attachmentColumns+` FROM attachments WHERE id = $1 AND user_id = $2`, id, ownerID)
	return scanAttachment(row)
}

// UploadAttachment records an already-written file as an Attachment owned by the resolved user.
func (d *PostgresChitterDatabase) UploadAttachment(ctx context.Context, token string, params chitter.UploadAttachmentParams) (*chitter.Attachment, error) {
	user, err := d.resolveUser(ctx, token)
	if err != nil {
		return nil, err
	}

	row := d.pool.QueryRow(ctx,
		`INSERT INTO attachments (type, user_id, file_name, path, width, height) VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+attachmentColumns,
		params.Type, user.ID, params.FileName, params.Path, params.Width, params.Height,
	)
	attachment, err := scanAttachment(row)
	if err != nil {
		return nil, chitter.Fail(chitter.CouldNotUploadAttachment)
	}
	return attachment, nil
}

// RemoveAttachment deletes the attachment's database record and unlinks its backing file. A file that is already
// missing from disk is not treated as an error.
func (d *PostgresChitterDatabase) RemoveAttachment(ctx context.Context, token string, attachmentID uuid.UUID) error {
	user, err := d.resolveUser(ctx, token)
	if err != nil {
		return err
	}

	attachment, err := d.getOwnedAttachment(ctx, attachmentID, user.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return chitter.Fail(chitter.AttachmentNotFound)
		}
		return chitter.Fail(chitter.UnknownServerError)
	}

	tag, err := d.pool.Exec(ctx, `DELETE FROM attachments WHERE id = $1`, attachmentID)
	if err != nil || tag.RowsAffected() == 0 {
		return chitter.Fail(chitter.CouldNotRemoveAttachment)
	}

	if err := os.Remove(attachment.Path); err != nil && !os.IsNotExist(err) {
		d.log.Warn().Err(err).Str("path", attachment.Path).Msg("failed to unlink attachment file")
	}
	return nil
}

package repository

import (
	"context"

	"github.com/chamado-hq/helpdesk-service/internal/domain"
)

// AttachmentRepository persists attachment metadata. Bytes live in the
// object store; only the opaque storage key is recorded here.
type AttachmentRepository interface {
	Create(ctx context.Context, attachment *domain.Attachment) error
	GetByID(ctx context.Context, id int64) (*domain.Attachment, error)
	ListByMessage(ctx context.Context, messageID int64) ([]domain.Attachment, error)
	// ListInitialByTicket returns attachments uploaded at ticket-opening
	// time, before any message existed.
	ListInitialByTicket(ctx context.Context, ticketID int64) ([]domain.Attachment, error)
}

type attachmentRepository struct {
	db DB
}

// NewAttachmentRepository constructs repository.
func NewAttachmentRepository(db DB) AttachmentRepository {
	return &attachmentRepository{db: db}
}

const attachmentColumns = `id, ticket_id, message_id, file_name, mime_type, size_bytes, storage_key, created_at`

func (r *attachmentRepository) Create(ctx context.Context, attachment *domain.Attachment) error {
	const query = `
        INSERT INTO attachments (ticket_id, message_id, file_name, mime_type, size_bytes, storage_key, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id`
	return r.db.QueryRow(ctx, query,
		attachment.TicketID,
		attachment.MessageID,
		attachment.FileName,
		attachment.MimeType,
		attachment.SizeBytes,
		attachment.StorageKey,
		attachment.CreatedAt,
	).Scan(&attachment.ID)
}

func (r *attachmentRepository) GetByID(ctx context.Context, id int64) (*domain.Attachment, error) {
	query := `SELECT ` + attachmentColumns + ` FROM attachments WHERE id=$1`
	var attachment domain.Attachment
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&attachment.ID,
		&attachment.TicketID,
		&attachment.MessageID,
		&attachment.FileName,
		&attachment.MimeType,
		&attachment.SizeBytes,
		&attachment.StorageKey,
		&attachment.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &attachment, nil
}

func (r *attachmentRepository) ListByMessage(ctx context.Context, messageID int64) ([]domain.Attachment, error) {
	query := `SELECT ` + attachmentColumns + ` FROM attachments WHERE message_id=$1 ORDER BY created_at ASC, id ASC`
	return r.list(ctx, query, messageID)
}

func (r *attachmentRepository) ListInitialByTicket(ctx context.Context, ticketID int64) ([]domain.Attachment, error) {
	query := `SELECT ` + attachmentColumns + ` FROM attachments WHERE ticket_id=$1 AND message_id IS NULL ORDER BY created_at ASC, id ASC`
	return r.list(ctx, query, ticketID)
}

func (r *attachmentRepository) list(ctx context.Context, query string, arg any) ([]domain.Attachment, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Attachment
	for rows.Next() {
		var attachment domain.Attachment
		if err := rows.Scan(
			&attachment.ID,
			&attachment.TicketID,
			&attachment.MessageID,
			&attachment.FileName,
			&attachment.MimeType,
			&attachment.SizeBytes,
			&attachment.StorageKey,
			&attachment.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, attachment)
	}
	return result, rows.Err()
}

package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/chamado-hq/helpdesk-service/internal/domain"
	"github.com/chamado-hq/helpdesk-service/internal/repository"
	"github.com/chamado-hq/helpdesk-service/internal/storage"
	apperrors "github.com/chamado-hq/helpdesk-service/pkg/util/errorutil"
)

// Ledger owns the read side of the message thread and the attachment path.
// Message rows themselves are appended by the lifecycle engine inside its
// transaction; attachment uploads deliberately happen outside any database
// transaction so an object-store failure cannot corrupt ticket state.
type Ledger struct {
	store        repository.Store
	objects      storage.ObjectStore
	logger       *zap.Logger
	maxSizeBytes int64
	now          func() time.Time
}

// Dependencies bundles collaborators for the ledger.
type Dependencies struct {
	Store        repository.Store
	Objects      storage.ObjectStore
	Logger       *zap.Logger
	MaxSizeBytes int64
	Clock        func() time.Time
}

// NewLedger constructs the ledger.
func NewLedger(deps Dependencies) *Ledger {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		store:        deps.Store,
		objects:      deps.Objects,
		logger:       logger,
		maxSizeBytes: deps.MaxSizeBytes,
		now:          clock,
	}
}

// AttachInput describes an attachment upload. A nil MessageID marks an
// "initial" attachment uploaded at ticket-opening time.
type AttachInput struct {
	TicketID    int64
	MessageID   *int64
	FileName    string
	ContentType string
	Data        []byte
}

// Attach validates the ticket/message pair, uploads the bytes and records
// the attachment row. A failed upload leaves no row behind; a failed row
// write after a successful upload attempts to delete the object and logs
// the orphan when that also fails.
func (l *Ledger) Attach(ctx context.Context, input AttachInput) (*domain.Attachment, error) {
	if strings.TrimSpace(input.FileName) == "" {
		return nil, apperrors.NewValidationError("file name required", nil)
	}
	if len(input.Data) == 0 {
		return nil, apperrors.NewValidationError("empty attachment", nil)
	}
	if l.maxSizeBytes > 0 && int64(len(input.Data)) > l.maxSizeBytes {
		return nil, apperrors.NewValidationError("attachment too large", map[string]any{
			"max_size_bytes": l.maxSizeBytes,
		})
	}

	if _, err := l.store.Tickets().GetByID(ctx, input.TicketID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": input.TicketID})
		}
		return nil, apperrors.NewPersistenceError(err)
	}
	if input.MessageID != nil {
		msg, err := l.store.Messages().GetByID(ctx, *input.MessageID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("message", map[string]any{"message_id": *input.MessageID})
			}
			return nil, apperrors.NewPersistenceError(err)
		}
		if msg.TicketID != input.TicketID {
			return nil, apperrors.NewConsistencyViolation("message belongs to a different ticket", map[string]any{
				"ticket_id":         input.TicketID,
				"message_id":        *input.MessageID,
				"message_ticket_id": msg.TicketID,
			})
		}
	}

	key, err := l.objects.Upload(ctx, input.Data, input.ContentType)
	if err != nil {
		return nil, apperrors.NewDomainError("STORAGE_UPLOAD_FAILED", "attachment upload failed", 502, nil)
	}

	attachment := &domain.Attachment{
		TicketID:   input.TicketID,
		MessageID:  input.MessageID,
		FileName:   strings.TrimSpace(input.FileName),
		MimeType:   input.ContentType,
		SizeBytes:  int64(len(input.Data)),
		StorageKey: key,
		CreatedAt:  l.now(),
	}
	if err := l.store.Attachments().Create(ctx, attachment); err != nil {
		if delErr := l.objects.Delete(ctx, key); delErr != nil {
			l.logger.Warn("orphaned attachment object",
				zap.String("storage_key", key),
				zap.Int64("ticket_id", input.TicketID),
				zap.Error(delErr))
		}
		return nil, apperrors.NewPersistenceError(err)
	}
	return attachment, nil
}

// Messages returns the ticket thread ascending by send time, each message
// with its attachments resolved.
func (l *Ledger) Messages(ctx context.Context, ticketID int64) ([]domain.Message, error) {
	if _, err := l.store.Tickets().GetByID(ctx, ticketID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.NewPersistenceError(err)
	}
	msgs, err := l.store.Messages().ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	for i := range msgs {
		attachments, err := l.store.Attachments().ListByMessage(ctx, msgs[i].ID)
		if err != nil {
			return nil, apperrors.NewPersistenceError(err)
		}
		msgs[i].Attachments = attachments
	}
	return msgs, nil
}

// InitialAttachments returns attachments uploaded at ticket-opening time.
func (l *Ledger) InitialAttachments(ctx context.Context, ticketID int64) ([]domain.Attachment, error) {
	attachments, err := l.store.Attachments().ListInitialByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	return attachments, nil
}

// SignAttachmentURL returns a temporary download URL for an attachment.
func (l *Ledger) SignAttachmentURL(ctx context.Context, attachmentID int64, ttl time.Duration) (string, error) {
	attachment, err := l.store.Attachments().GetByID(ctx, attachmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.NewNotFound("attachment", map[string]any{"attachment_id": attachmentID})
		}
		return "", apperrors.NewPersistenceError(err)
	}
	url, err := l.objects.SignURL(attachment.StorageKey, ttl)
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}
	return url, nil
}

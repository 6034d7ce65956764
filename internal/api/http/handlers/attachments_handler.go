package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/chamado-hq/helpdesk-service/internal/auth"
	"github.com/chamado-hq/helpdesk-service/internal/config"
	"github.com/chamado-hq/helpdesk-service/internal/ledger"
	"github.com/chamado-hq/helpdesk-service/internal/storage"
	apperrors "github.com/chamado-hq/helpdesk-service/pkg/util/errorutil"
)

// AttachmentsHandler manages attachment upload and download.
type AttachmentsHandler struct {
	ledger  *ledger.Ledger
	objects storage.ObjectStore
	signer  *storage.URLSigner
	cfg     config.AttachmentConfig
}

// NewAttachmentsHandler constructs handler.
func NewAttachmentsHandler(ld *ledger.Ledger, objects storage.ObjectStore, signer *storage.URLSigner, cfg config.AttachmentConfig) *AttachmentsHandler {
	return &AttachmentsHandler{ledger: ld, objects: objects, signer: signer, cfg: cfg}
}

// Upload POST /tickets/:id/attachments. Multipart form with a "file" part
// and an optional "message_id" field; without it the attachment is an
// initial one, uploaded at ticket-opening time.
func (h *AttachmentsHandler) Upload(c *fiber.Ctx) error {
	if _, ok := auth.PrincipalFromContext(c); !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticketID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var messageID *int64
	if raw := c.FormValue("message_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return apperrors.NewValidationError("invalid message_id", nil)
		}
		messageID = &id
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return apperrors.NewValidationError("file part required", nil)
	}
	if h.cfg.MaxSizeBytes > 0 && fileHeader.Size > h.cfg.MaxSizeBytes {
		return apperrors.NewValidationError("attachment too large", map[string]any{
			"max_size_bytes": h.cfg.MaxSizeBytes,
		})
	}
	file, err := fileHeader.Open()
	if err != nil {
		return apperrors.NewValidationError("unreadable file part", nil)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return apperrors.NewValidationError("unreadable file part", nil)
	}

	attachment, err := h.ledger.Attach(c.UserContext(), ledger.AttachInput{
		TicketID:    ticketID,
		MessageID:   messageID,
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": fiber.Map{
		"id":         attachment.ID,
		"ticket_id":  attachment.TicketID,
		"message_id": attachment.MessageID,
		"file_name":  attachment.FileName,
		"size_bytes": attachment.SizeBytes,
	}})
}

// SignURL GET /attachments/:id/url returns a temporary download URL.
func (h *AttachmentsHandler) SignURL(c *fiber.Ctx) error {
	if _, ok := auth.PrincipalFromContext(c); !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	attachmentID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	url, err := h.ledger.SignAttachmentURL(c.UserContext(), attachmentID, h.cfg.SignedURLTTL())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"url": url}})
}

// Download GET /attachments/blob/:key serves the bytes for a signed URL.
// Authentication is the signature itself; no bearer token is required.
func (h *AttachmentsHandler) Download(c *fiber.Ctx) error {
	key := c.Params("key")
	if key == "" {
		return apperrors.NewValidationError("storage key required", nil)
	}
	if !h.signer.Verify(key, c.Query("expires"), c.Query("signature")) {
		return apperrors.NewForbidden("invalid or expired signature")
	}
	data, contentType, err := h.objects.Fetch(c.UserContext(), key)
	if err != nil {
		return apperrors.NewNotFound("attachment object", map[string]any{"storage_key": key})
	}
	if contentType != "" {
		c.Set(fiber.HeaderContentType, contentType)
	}
	return c.Send(data)
}

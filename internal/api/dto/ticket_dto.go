package dto

import (
	"time"

	"github.com/chamado-hq/helpdesk-service/internal/domain"
)

// OpenTicketRequest payload.
type OpenTicketRequest struct {
	DepartmentID int64                 `json:"department_id"`
	TopicID      int64                 `json:"topic_id"`
	Priority     domain.TicketPriority `json:"priority"`
	Summary      string                `json:"summary"`
	Description  string                `json:"description"`
}

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	AssigneeID int64 `json:"assignee_id"`
}

// PostMessageRequest payload.
type PostMessageRequest struct {
	Body string `json:"body"`
}

// TicketResponse is the full ticket representation.
type TicketResponse struct {
	ID           int64                 `json:"id"`
	Number       string                `json:"number"`
	OpenedBy     int64                 `json:"opened_by"`
	DepartmentID int64                 `json:"department_id"`
	TopicID      int64                 `json:"topic_id"`
	Summary      string                `json:"summary"`
	Description  string                `json:"description"`
	Status       domain.TicketStatus   `json:"status"`
	Priority     domain.TicketPriority `json:"priority"`
	OpenedAt     time.Time             `json:"opened_at"`
	AssignedTo   *int64                `json:"assigned_to,omitempty"`
	AssignedAt   *time.Time            `json:"assigned_at,omitempty"`
	ClosedBy     *int64                `json:"closed_by,omitempty"`
	ClosedAt     *time.Time            `json:"closed_at,omitempty"`
}

// HistoryEntryResponse is one audit trail record.
type HistoryEntryResponse struct {
	ID         int64                `json:"id"`
	ActorID    int64                `json:"actor_id"`
	Action     string               `json:"action"`
	PrevStatus *domain.TicketStatus `json:"prev_status,omitempty"`
	NewStatus  *domain.TicketStatus `json:"new_status,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
}

// MessageResponse represents a thread message.
type MessageResponse struct {
	ID          int64                `json:"id"`
	AuthorID    int64                `json:"author_id"`
	Body        string               `json:"body"`
	SentAt      time.Time            `json:"sent_at"`
	Attachments []AttachmentResponse `json:"attachments"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID        int64  `json:"id"`
	MessageID *int64 `json:"message_id,omitempty"`
	FileName  string `json:"file_name"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
}

// FromTicket maps a domain ticket.
func FromTicket(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:           t.ID,
		Number:       t.Number,
		OpenedBy:     t.OpenedBy,
		DepartmentID: t.DepartmentID,
		TopicID:      t.TopicID,
		Summary:      t.Summary,
		Description:  t.Description,
		Status:       t.Status,
		Priority:     t.Priority,
		OpenedAt:     t.OpenedAt,
		AssignedTo:   t.AssignedTo,
		AssignedAt:   t.AssignedAt,
		ClosedBy:     t.ClosedBy,
		ClosedAt:     t.ClosedAt,
	}
}

// FromHistoryEntry maps an audit record.
func FromHistoryEntry(entry domain.HistoryEntry) HistoryEntryResponse {
	return HistoryEntryResponse{
		ID:         entry.ID,
		ActorID:    entry.ActorID,
		Action:     entry.Action,
		PrevStatus: entry.PrevStatus,
		NewStatus:  entry.NewStatus,
		CreatedAt:  entry.CreatedAt,
	}
}

// FromMessage maps a thread message with attachments.
func FromMessage(msg domain.Message) MessageResponse {
	attachments := make([]AttachmentResponse, 0, len(msg.Attachments))
	for _, att := range msg.Attachments {
		attachments = append(attachments, FromAttachment(att))
	}
	return MessageResponse{
		ID:          msg.ID,
		AuthorID:    msg.AuthorID,
		Body:        msg.Body,
		SentAt:      msg.SentAt,
		Attachments: attachments,
	}
}

// FromAttachment maps attachment metadata.
func FromAttachment(att domain.Attachment) AttachmentResponse {
	return AttachmentResponse{
		ID:        att.ID,
		MessageID: att.MessageID,
		FileName:  att.FileName,
		MimeType:  att.MimeType,
		SizeBytes: att.SizeBytes,
	}
}

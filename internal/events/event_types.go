package events

import (
	"time"

	"github.com/chamado-hq/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketOpened        EventType = "ticket_opened"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketClosed        EventType = "ticket_closed"
	EventTicketReopened      EventType = "ticket_reopened"
	EventTicketMessagePosted EventType = "ticket_message_posted"
)

// Event represents a domain event emitted after a lifecycle operation
// commits. Events are fire and forget; they are not part of the
// transaction.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  int64     `json:"ticket_id"`
	ActorID   int64     `json:"actor_id"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// TicketOpenedPayload payload.
type TicketOpenedPayload struct {
	Number       string                `json:"number"`
	DepartmentID int64                 `json:"department_id"`
	Priority     domain.TicketPriority `json:"priority"`
	Summary      string                `json:"summary"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssigneeID int64               `json:"assignee_id"`
	PrevStatus domain.TicketStatus `json:"prev_status"`
}

// TicketClosedPayload payload.
type TicketClosedPayload struct {
	PrevStatus domain.TicketStatus `json:"prev_status"`
	ClosedAt   time.Time           `json:"closed_at"`
}

// TicketReopenedPayload payload.
type TicketReopenedPayload struct {
	TriggeredByMessage int64 `json:"triggered_by_message"`
}

// TicketMessagePostedPayload payload.
type TicketMessagePostedPayload struct {
	MessageID   int64  `json:"message_id"`
	BodyPreview string `json:"body_preview"`
}

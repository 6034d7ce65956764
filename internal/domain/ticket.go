package domain

import (
	"fmt"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// Valid reports whether the status is a member of the closed enum.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusClosed:
		return true
	}
	return false
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// Ticket is the aggregate for support requests ("chamados"). Status,
// assignment and close metadata are owned by the lifecycle engine; nothing
// else mutates them.
type Ticket struct {
	ID           int64
	Number       string
	OpenedBy     int64
	DepartmentID int64
	TopicID      int64
	Summary      string
	Description  string
	Status       TicketStatus
	Priority     TicketPriority
	OpenedAt     time.Time
	AssignedTo   *int64
	AssignedAt   *time.Time
	ClosedBy     *int64
	ClosedAt     *time.Time
}

// CheckInvariants verifies status/field consistency. Exactly one of the
// per-status rule sets must hold at any time.
func (t *Ticket) CheckInvariants() error {
	switch t.Status {
	case TicketStatusOpen:
		if t.AssignedTo != nil {
			return fmt.Errorf("ticket %d: open ticket has assignee", t.ID)
		}
		if t.ClosedAt != nil || t.ClosedBy != nil {
			return fmt.Errorf("ticket %d: open ticket carries close metadata", t.ID)
		}
	case TicketStatusInProgress:
		if t.AssignedTo == nil || t.AssignedAt == nil {
			return fmt.Errorf("ticket %d: in-progress ticket lacks assignment", t.ID)
		}
		if t.ClosedAt != nil {
			return fmt.Errorf("ticket %d: in-progress ticket carries closed_at", t.ID)
		}
	case TicketStatusClosed:
		if t.ClosedAt == nil || t.ClosedBy == nil {
			return fmt.Errorf("ticket %d: closed ticket lacks close metadata", t.ID)
		}
	default:
		return fmt.Errorf("ticket %d: unknown status %q", t.ID, t.Status)
	}
	if t.OpenedAt.IsZero() {
		return fmt.Errorf("ticket %d: opened_at not set", t.ID)
	}
	if t.Number == "" {
		return fmt.Errorf("ticket %d: number not set", t.ID)
	}
	return nil
}

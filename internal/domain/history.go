package domain

import "time"

// HistoryEntry is an immutable audit trail record. PrevStatus is nil for the
// creation event; status-neutral entries (message posted) carry the same
// value in PrevStatus and NewStatus.
type HistoryEntry struct {
	ID         int64
	TicketID   int64
	ActorID    int64
	Action     string
	PrevStatus *TicketStatus
	NewStatus  *TicketStatus
	CreatedAt  time.Time
}

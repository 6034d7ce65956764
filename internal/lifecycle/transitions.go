package lifecycle

import (
	"time"

	"github.com/chamado-hq/helpdesk-service/internal/domain"
)

// transitionKind tags one step of a lifecycle operation. PostMessage on a
// closed ticket expands into the sequence [transitionReopen,
// transitionMessagePosted]; every other operation is a single step.
type transitionKind int

const (
	transitionOpen transitionKind = iota
	transitionAssign
	transitionClose
	transitionReopen
	transitionMessagePosted
)

// allowedFrom lists the source statuses each transition accepts. Open has
// no source status and is absent on purpose.
var allowedFrom = map[transitionKind][]domain.TicketStatus{
	transitionAssign:        {domain.TicketStatusOpen, domain.TicketStatusInProgress},
	transitionClose:         {domain.TicketStatusOpen, domain.TicketStatusInProgress},
	transitionReopen:        {domain.TicketStatusClosed},
	transitionMessagePosted: {domain.TicketStatusOpen, domain.TicketStatusInProgress},
}

func canApply(kind transitionKind, from domain.TicketStatus) bool {
	for _, candidate := range allowedFrom[kind] {
		if candidate == from {
			return true
		}
	}
	return false
}

// transition is one applied step, ready to be recorded as a history entry.
// Status-neutral steps (message posted) carry the same status in prev and
// next; the creation step has prev == nil.
type transition struct {
	kind   transitionKind
	action string
	prev   *domain.TicketStatus
	next   *domain.TicketStatus
}

func (t transition) historyEntry(ticketID, actorID int64, at time.Time) *domain.HistoryEntry {
	return &domain.HistoryEntry{
		TicketID:   ticketID,
		ActorID:    actorID,
		Action:     t.action,
		PrevStatus: t.prev,
		NewStatus:  t.next,
		CreatedAt:  at,
	}
}

func statusPtr(s domain.TicketStatus) *domain.TicketStatus {
	return &s
}

package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/chamado-hq/helpdesk-service/internal/domain"
	"github.com/chamado-hq/helpdesk-service/internal/events"
	"github.com/chamado-hq/helpdesk-service/internal/repository"
	apperrors "github.com/chamado-hq/helpdesk-service/pkg/util/errorutil"
)

// Engine is the single authoritative entry point for every status-changing
// operation on a ticket. Each operation runs in one transaction covering the
// ticket read (row-locked), the ticket write and the history write, so
// concurrent callers racing on the same ticket serialize instead of both
// succeeding.
type Engine struct {
	store      repository.Store
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// Dependencies bundles collaborators for the engine.
type Dependencies struct {
	Store      repository.Store
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Clock      func() time.Time
}

// NewEngine constructs the engine.
func NewEngine(deps Dependencies) *Engine {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        clock,
	}
}

// OpenInput describes ticket creation payload.
type OpenInput struct {
	ActorID      int64
	DepartmentID int64
	TopicID      int64
	Priority     domain.TicketPriority
	Summary      string
	Description  string
}

// Open creates a new ticket in status OPEN and records the creation history
// entry. There is no prior state, so the operation only fails on bad input
// or storage errors.
func (e *Engine) Open(ctx context.Context, input OpenInput) (*domain.Ticket, error) {
	summary := strings.TrimSpace(input.Summary)
	description := strings.TrimSpace(input.Description)
	if summary == "" {
		return nil, apperrors.NewValidationError("summary required", nil)
	}
	if description == "" {
		return nil, apperrors.NewValidationError("description required", nil)
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}

	now := e.now()
	ticket := &domain.Ticket{
		Number:       generateTicketNumber(),
		OpenedBy:     input.ActorID,
		DepartmentID: input.DepartmentID,
		TopicID:      input.TopicID,
		Summary:      summary,
		Description:  description,
		Status:       domain.TicketStatusOpen,
		Priority:     priority,
		OpenedAt:     now,
	}

	step := transition{
		kind:   transitionOpen,
		action: "Ticket opened",
		next:   statusPtr(domain.TicketStatusOpen),
	}

	err := e.store.WithinTx(ctx, func(tx repository.Tx) error {
		if err := tx.Tickets().Create(ctx, ticket); err != nil {
			return err
		}
		return tx.History().Create(ctx, step.historyEntry(ticket.ID, input.ActorID, now))
	})
	if err != nil {
		return nil, persistenceErr(err)
	}

	e.publish(ctx, events.Event{
		Type:     events.EventTicketOpened,
		TicketID: ticket.ID,
		ActorID:  input.ActorID,
		Payload: events.TicketOpenedPayload{
			Number:       ticket.Number,
			DepartmentID: ticket.DepartmentID,
			Priority:     ticket.Priority,
			Summary:      ticket.Summary,
		},
	})
	return ticket, nil
}

// Assign sets the responsible user and moves the ticket to IN_PROGRESS.
// Reassigning an IN_PROGRESS ticket is legal and always restamps
// assigned_at; assigning a closed ticket is rejected.
func (e *Engine) Assign(ctx context.Context, ticketID, actorID, assigneeID int64) (*domain.Ticket, error) {
	var ticket *domain.Ticket
	now := e.now()
	var prev domain.TicketStatus

	err := e.store.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		ticket, err = lockTicket(ctx, tx, ticketID)
		if err != nil {
			return err
		}
		prev = ticket.Status
		if !canApply(transitionAssign, prev) {
			return apperrors.NewAlreadyClosed(*ticket.ClosedAt, *ticket.ClosedBy)
		}

		ticket.Status = domain.TicketStatusInProgress
		ticket.AssignedTo = &assigneeID
		ticket.AssignedAt = &now
		if err := tx.Tickets().Update(ctx, ticket); err != nil {
			return err
		}

		step := transition{
			kind:   transitionAssign,
			action: fmt.Sprintf("Ticket assigned to user %d", assigneeID),
			prev:   statusPtr(prev),
			next:   statusPtr(domain.TicketStatusInProgress),
		}
		return tx.History().Create(ctx, step.historyEntry(ticket.ID, actorID, now))
	})
	if err != nil {
		return nil, persistenceErr(err)
	}

	e.publish(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		ActorID:  actorID,
		Payload: events.TicketAssignedPayload{
			AssigneeID: assigneeID,
			PrevStatus: prev,
		},
	})
	return ticket, nil
}

// Close moves the ticket to CLOSED. Closing an already-closed ticket is
// rejected with the existing close metadata so callers can tell the actor
// it was a no-op rather than silently succeeding.
func (e *Engine) Close(ctx context.Context, ticketID, actorID int64) (*domain.Ticket, error) {
	var ticket *domain.Ticket
	now := e.now()
	var prev domain.TicketStatus

	err := e.store.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		ticket, err = lockTicket(ctx, tx, ticketID)
		if err != nil {
			return err
		}
		prev = ticket.Status
		if !canApply(transitionClose, prev) {
			return apperrors.NewAlreadyClosed(*ticket.ClosedAt, *ticket.ClosedBy)
		}

		ticket.Status = domain.TicketStatusClosed
		ticket.ClosedAt = &now
		ticket.ClosedBy = &actorID
		if err := tx.Tickets().Update(ctx, ticket); err != nil {
			return err
		}

		step := transition{
			kind:   transitionClose,
			action: "Ticket closed",
			prev:   statusPtr(prev),
			next:   statusPtr(domain.TicketStatusClosed),
		}
		return tx.History().Create(ctx, step.historyEntry(ticket.ID, actorID, now))
	})
	if err != nil {
		return nil, persistenceErr(err)
	}

	e.publish(ctx, events.Event{
		Type:     events.EventTicketClosed,
		TicketID: ticket.ID,
		ActorID:  actorID,
		Payload: events.TicketClosedPayload{
			PrevStatus: prev,
			ClosedAt:   now,
		},
	})
	return ticket, nil
}

// PostMessage appends a message to the ticket thread. Posting on a closed
// ticket first reopens it: close metadata is cleared and a reopen history
// entry is written before the message and its own history entry. Both steps
// share one transaction. Callers are expected to have confirmed the reopen
// with the actor; the engine performs it unconditionally.
func (e *Engine) PostMessage(ctx context.Context, ticketID, actorID int64, body string) (*domain.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("message body required", nil)
	}

	now := e.now()
	var msg *domain.Message
	reopened := false

	err := e.store.WithinTx(ctx, func(tx repository.Tx) error {
		ticket, err := lockTicket(ctx, tx, ticketID)
		if err != nil {
			return err
		}

		var steps []transition
		if ticket.Status == domain.TicketStatusClosed {
			steps = append(steps, transition{
				kind:   transitionReopen,
				action: "Ticket reopened",
				prev:   statusPtr(domain.TicketStatusClosed),
				next:   statusPtr(domain.TicketStatusOpen),
			})
		}
		steps = append(steps, transition{
			kind:   transitionMessagePosted,
			action: "Message sent",
		})

		for _, step := range steps {
			switch step.kind {
			case transitionReopen:
				reopened = true
				ticket.Status = domain.TicketStatusOpen
				ticket.ClosedAt = nil
				ticket.ClosedBy = nil
				// OPEN implies unassigned; the next assign restamps anyway
				ticket.AssignedTo = nil
				ticket.AssignedAt = nil
				if err := tx.Tickets().Update(ctx, ticket); err != nil {
					return err
				}
			case transitionMessagePosted:
				if !canApply(transitionMessagePosted, ticket.Status) {
					return fmt.Errorf("message posted in status %q", ticket.Status)
				}
				msg = &domain.Message{
					TicketID: ticket.ID,
					AuthorID: actorID,
					Body:     body,
					SentAt:   now,
				}
				if err := tx.Messages().Create(ctx, msg); err != nil {
					return err
				}
				// status-neutral entry: same status on both sides
				step.prev = statusPtr(ticket.Status)
				step.next = statusPtr(ticket.Status)
			}
			if err := tx.History().Create(ctx, step.historyEntry(ticket.ID, actorID, now)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, persistenceErr(err)
	}

	if reopened {
		e.publish(ctx, events.Event{
			Type:     events.EventTicketReopened,
			TicketID: ticketID,
			ActorID:  actorID,
			Payload:  events.TicketReopenedPayload{TriggeredByMessage: msg.ID},
		})
	}
	e.publish(ctx, events.Event{
		Type:     events.EventTicketMessagePosted,
		TicketID: ticketID,
		ActorID:  actorID,
		Payload: events.TicketMessagePostedPayload{
			MessageID:   msg.ID,
			BodyPreview: bodyPreview(body, 120),
		},
	})
	return msg, nil
}

// Get fetches a ticket.
func (e *Engine) Get(ctx context.Context, ticketID int64) (*domain.Ticket, error) {
	ticket, err := e.store.Tickets().GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, persistenceErr(err)
	}
	return ticket, nil
}

// List returns tickets matching the filter. Plain read path, no locking.
func (e *Engine) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	tickets, err := e.store.Tickets().ListWithFilter(ctx, filter)
	if err != nil {
		return nil, persistenceErr(err)
	}
	return tickets, nil
}

// History returns the audit trail ascending by timestamp.
func (e *Engine) History(ctx context.Context, ticketID int64) ([]domain.HistoryEntry, error) {
	if _, err := e.Get(ctx, ticketID); err != nil {
		return nil, err
	}
	entries, err := e.store.History().ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, persistenceErr(err)
	}
	return entries, nil
}

func lockTicket(ctx context.Context, tx repository.Tx, ticketID int64) (*domain.Ticket, error) {
	ticket, err := tx.Tickets().GetByIDForUpdate(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, err
	}
	return ticket, nil
}

// persistenceErr wraps storage failures; domain errors pass through so
// NotFound and AlreadyClosed keep their identity across the tx boundary.
func persistenceErr(err error) error {
	if err == nil {
		return nil
	}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return apperrors.NewPersistenceError(err)
}

func (e *Engine) publish(ctx context.Context, event events.Event) {
	if e.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = e.now()
	}
	_ = e.dispatcher.Publish(ctx, event)
}

func generateTicketNumber() string {
	return "CHM-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func bodyPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}

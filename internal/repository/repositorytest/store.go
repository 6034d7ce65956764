// Package repositorytest provides an in-memory repository.Store for tests.
// WithinTx snapshots state and restores it when the callback fails, so
// rollback behavior can be asserted without a database.
package repositorytest

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/chamado-hq/helpdesk-service/internal/domain"
	"github.com/chamado-hq/helpdesk-service/internal/repository"
)

// MemStore is an in-memory repository.Store.
type MemStore struct {
	mu sync.Mutex

	tickets     map[int64]*domain.Ticket
	history     []domain.HistoryEntry
	messages    map[int64]*domain.Message
	attachments map[int64]*domain.Attachment

	nextTicketID     int64
	nextHistoryID    int64
	nextMessageID    int64
	nextAttachmentID int64

	// Fault injection. Each Fail* makes the corresponding Create return
	// ErrInjected.
	FailTicketCreate     bool
	FailTicketUpdate     bool
	FailHistoryCreate    bool
	FailMessageCreate    bool
	FailAttachmentCreate bool
}

// ErrInjected is returned by operations with fault injection enabled.
var ErrInjected = errors.New("injected storage failure")

// NewMemStore builds an empty store.
func NewMemStore() *MemStore {
	return &MemStore{
		tickets:     make(map[int64]*domain.Ticket),
		messages:    make(map[int64]*domain.Message),
		attachments: make(map[int64]*domain.Attachment),
	}
}

type snapshot struct {
	tickets     map[int64]*domain.Ticket
	history     []domain.HistoryEntry
	messages    map[int64]*domain.Message
	attachments map[int64]*domain.Attachment

	nextTicketID     int64
	nextHistoryID    int64
	nextMessageID    int64
	nextAttachmentID int64
}

func (s *MemStore) snapshot() snapshot {
	snap := snapshot{
		tickets:          make(map[int64]*domain.Ticket, len(s.tickets)),
		history:          append([]domain.HistoryEntry{}, s.history...),
		messages:         make(map[int64]*domain.Message, len(s.messages)),
		attachments:      make(map[int64]*domain.Attachment, len(s.attachments)),
		nextTicketID:     s.nextTicketID,
		nextHistoryID:    s.nextHistoryID,
		nextMessageID:    s.nextMessageID,
		nextAttachmentID: s.nextAttachmentID,
	}
	for id, t := range s.tickets {
		snap.tickets[id] = cloneTicket(t)
	}
	for id, m := range s.messages {
		clone := *m
		snap.messages[id] = &clone
	}
	for id, a := range s.attachments {
		clone := *a
		snap.attachments[id] = &clone
	}
	return snap
}

func (s *MemStore) restore(snap snapshot) {
	s.tickets = snap.tickets
	s.history = snap.history
	s.messages = snap.messages
	s.attachments = snap.attachments
	s.nextTicketID = snap.nextTicketID
	s.nextHistoryID = snap.nextHistoryID
	s.nextMessageID = snap.nextMessageID
	s.nextAttachmentID = snap.nextAttachmentID
}

// WithinTx implements repository.Store with rollback-on-error semantics.
func (s *MemStore) WithinTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	s.mu.Lock()
	snap := s.snapshot()
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.restore(snap)
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *MemStore) Tickets() repository.TicketRepository         { return (*memTickets)(s) }
func (s *MemStore) History() repository.HistoryRepository        { return (*memHistory)(s) }
func (s *MemStore) Messages() repository.MessageRepository       { return (*memMessages)(s) }
func (s *MemStore) Attachments() repository.AttachmentRepository { return (*memAttachments)(s) }

func cloneTicket(t *domain.Ticket) *domain.Ticket {
	clone := *t
	clone.AssignedTo = cloneInt64(t.AssignedTo)
	clone.AssignedAt = nil
	if t.AssignedAt != nil {
		at := *t.AssignedAt
		clone.AssignedAt = &at
	}
	clone.ClosedBy = cloneInt64(t.ClosedBy)
	clone.ClosedAt = nil
	if t.ClosedAt != nil {
		at := *t.ClosedAt
		clone.ClosedAt = &at
	}
	return &clone
}

func cloneInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	clone := *v
	return &clone
}

type memTickets MemStore

func (m *memTickets) Create(ctx context.Context, ticket *domain.Ticket) error {
	s := (*MemStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailTicketCreate {
		return ErrInjected
	}
	s.nextTicketID++
	ticket.ID = s.nextTicketID
	s.tickets[ticket.ID] = cloneTicket(ticket)
	return nil
}

func (m *memTickets) Update(ctx context.Context, ticket *domain.Ticket) error {
	s := (*MemStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailTicketUpdate {
		return ErrInjected
	}
	if _, ok := s.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	s.tickets[ticket.ID] = cloneTicket(ticket)
	return nil
}

func (m *memTickets) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	s := (*MemStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket, ok := s.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return cloneTicket(ticket), nil
}

func (m *memTickets) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Ticket, error) {
	return m.GetByID(ctx, id)
}

func (m *memTickets) GetByNumber(ctx context.Context, number string) (*domain.Ticket, error) {
	s := (*MemStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ticket := range s.tickets {
		if ticket.Number == number {
			return cloneTicket(ticket), nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memTickets) ListWithFilter(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	s := (*MemStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range s.tickets {
		if filter.OpenedBy != nil && ticket.OpenedBy != *filter.OpenedBy {
			continue
		}
		if filter.AssignedTo != nil && (ticket.AssignedTo == nil || *ticket.AssignedTo != *filter.AssignedTo) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
			continue
		}
		result = append(result, *cloneTicket(ticket))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].OpenedAt.After(result[j].OpenedAt)
	})
	return result, nil
}

func containsStatus(statuses []domain.TicketStatus, status domain.TicketStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

type memHistory MemStore

func (m *memHistory) Create(ctx context.Context, entry *domain.HistoryEntry) error {
	s := (*MemStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailHistoryCreate {
		return ErrInjected
	}
	s.nextHistoryID++
	entry.ID = s.nextHistoryID
	s.history = append(s.history, *entry)
	return nil
}

func (m *memHistory) ListByTicket(ctx context.Context, ticketID int64) ([]domain.HistoryEntry, error) {
	s := (*MemStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []domain.HistoryEntry
	for _, entry := range s.history {
		if entry.TicketID == ticketID {
			result = append(result, entry)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (m *memHistory) CountByTicket(ctx context.Context, ticketID int64) (int, error) {
	entries, _ := m.ListByTicket(ctx, ticketID)
	return len(entries), nil
}

type memMessages MemStore

func (m *memMessages) Create(ctx context.Context, msg *domain.Message) error {
	s := (*MemStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailMessageCreate {
		return ErrInjected
	}
	s.nextMessageID++
	msg.ID = s.nextMessageID
	clone := *msg
	s.messages[msg.ID] = &clone
	return nil
}

func (m *memMessages) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	s := (*MemStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.messages[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *msg
	return &clone, nil
}

func (m *memMessages) ListByTicket(ctx context.Context, ticketID int64) ([]domain.Message, error) {
	s := (*MemStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []domain.Message
	for _, msg := range s.messages {
		if msg.TicketID == ticketID {
			result = append(result, *msg)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].SentAt.Equal(result[j].SentAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].SentAt.Before(result[j].SentAt)
	})
	return result, nil
}

type memAttachments MemStore

func (m *memAttachments) Create(ctx context.Context, attachment *domain.Attachment) error {
	s := (*MemStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAttachmentCreate {
		return ErrInjected
	}
	s.nextAttachmentID++
	attachment.ID = s.nextAttachmentID
	clone := *attachment
	s.attachments[attachment.ID] = &clone
	return nil
}

func (m *memAttachments) GetByID(ctx context.Context, id int64) (*domain.Attachment, error) {
	s := (*MemStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	attachment, ok := s.attachments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *attachment
	return &clone, nil
}

func (m *memAttachments) ListByMessage(ctx context.Context, messageID int64) ([]domain.Attachment, error) {
	s := (*MemStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []domain.Attachment
	for _, attachment := range s.attachments {
		if attachment.MessageID != nil && *attachment.MessageID == messageID {
			result = append(result, *attachment)
		}
	}
	sortAttachments(result)
	return result, nil
}

func (m *memAttachments) ListInitialByTicket(ctx context.Context, ticketID int64) ([]domain.Attachment, error) {
	s := (*MemStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []domain.Attachment
	for _, attachment := range s.attachments {
		if attachment.TicketID == ticketID && attachment.MessageID == nil {
			result = append(result, *attachment)
		}
	}
	sortAttachments(result)
	return result, nil
}

func sortAttachments(attachments []domain.Attachment) {
	sort.Slice(attachments, func(i, j int) bool {
		if attachments[i].CreatedAt.Equal(attachments[j].CreatedAt) {
			return attachments[i].ID < attachments[j].ID
		}
		return attachments[i].CreatedAt.Before(attachments[j].CreatedAt)
	})
}

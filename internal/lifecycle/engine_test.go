package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/chamado-hq/helpdesk-service/internal/domain"
	"github.com/chamado-hq/helpdesk-service/internal/repository/repositorytest"
	apperrors "github.com/chamado-hq/helpdesk-service/pkg/util/errorutil"
)

type fixture struct {
	store  *repositorytest.MemStore
	engine *Engine
	clock  *fakeClock
}

type fakeClock struct {
	current time.Time
}

func (c *fakeClock) now() time.Time {
	return c.current
}

func (c *fakeClock) advance(d time.Duration) {
	c.current = c.current.Add(d)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repositorytest.NewMemStore()
	clock := &fakeClock{current: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
	engine := NewEngine(Dependencies{
		Store: store,
		Clock: clock.now,
	})
	return &fixture{store: store, engine: engine, clock: clock}
}

func (f *fixture) openTicket(t *testing.T) *domain.Ticket {
	t.Helper()
	ticket, err := f.engine.Open(context.Background(), OpenInput{
		ActorID:      7,
		DepartmentID: 1,
		TopicID:      2,
		Summary:      "Printer down",
		Description:  "Third floor printer does not respond",
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return ticket
}

func (f *fixture) historyFor(t *testing.T, ticketID int64) []domain.HistoryEntry {
	t.Helper()
	entries, err := f.engine.History(context.Background(), ticketID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	return entries
}

func (f *fixture) mustGet(t *testing.T, ticketID int64) *domain.Ticket {
	t.Helper()
	ticket, err := f.engine.Get(context.Background(), ticketID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if err := ticket.CheckInvariants(); err != nil {
		t.Fatalf("invariants violated: %v", err)
	}
	return ticket
}

func TestOpen(t *testing.T) {
	f := newFixture(t)
	ticket := f.openTicket(t)

	if ticket.Status != domain.TicketStatusOpen {
		t.Fatalf("status = %s, want OPEN", ticket.Status)
	}
	if ticket.Number == "" {
		t.Fatal("ticket number not generated")
	}
	if ticket.OpenedBy != 7 {
		t.Fatalf("opened_by = %d, want 7", ticket.OpenedBy)
	}
	if !ticket.OpenedAt.Equal(f.clock.current) {
		t.Fatalf("opened_at = %v, want %v", ticket.OpenedAt, f.clock.current)
	}
	if ticket.Priority != domain.TicketPriorityMedium {
		t.Fatalf("priority = %s, want default MEDIUM", ticket.Priority)
	}
	f.mustGet(t, ticket.ID)

	entries := f.historyFor(t, ticket.ID)
	if len(entries) != 1 {
		t.Fatalf("history entries = %d, want 1", len(entries))
	}
	if entries[0].Action != "Ticket opened" {
		t.Fatalf("action = %q", entries[0].Action)
	}
	if entries[0].PrevStatus != nil {
		t.Fatal("creation entry must have no previous status")
	}
	if entries[0].NewStatus == nil || *entries[0].NewStatus != domain.TicketStatusOpen {
		t.Fatal("creation entry must carry new status OPEN")
	}
}

func TestOpenValidation(t *testing.T) {
	f := newFixture(t)
	cases := []struct {
		name    string
		summary string
		desc    string
	}{
		{"empty summary", "  ", "something broke"},
		{"empty description", "printer", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.engine.Open(context.Background(), OpenInput{
				ActorID:     7,
				Summary:     tc.summary,
				Description: tc.desc,
			})
			if !apperrors.IsCode(err, "VALIDATION_FAILED") {
				t.Fatalf("err = %v, want VALIDATION_FAILED", err)
			}
		})
	}
}

func TestAssign(t *testing.T) {
	f := newFixture(t)
	ticket := f.openTicket(t)
	f.clock.advance(time.Minute)

	assigned, err := f.engine.Assign(context.Background(), ticket.ID, 99, 42)
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if assigned.Status != domain.TicketStatusInProgress {
		t.Fatalf("status = %s, want IN_PROGRESS", assigned.Status)
	}
	if assigned.AssignedTo == nil || *assigned.AssignedTo != 42 {
		t.Fatal("assignee not set")
	}
	firstAssignedAt := *assigned.AssignedAt
	f.mustGet(t, ticket.ID)

	// reassignment keeps IN_PROGRESS but always restamps assigned_at
	f.clock.advance(time.Minute)
	reassigned, err := f.engine.Assign(context.Background(), ticket.ID, 99, 43)
	if err != nil {
		t.Fatalf("reassign: %v", err)
	}
	if reassigned.Status != domain.TicketStatusInProgress {
		t.Fatalf("status = %s, want IN_PROGRESS", reassigned.Status)
	}
	if *reassigned.AssignedTo != 43 {
		t.Fatalf("assignee = %d, want 43", *reassigned.AssignedTo)
	}
	if !reassigned.AssignedAt.After(firstAssignedAt) {
		t.Fatal("assigned_at not restamped on reassignment")
	}

	entries := f.historyFor(t, ticket.ID)
	if len(entries) != 3 {
		t.Fatalf("history entries = %d, want 3", len(entries))
	}
	if *entries[1].PrevStatus != domain.TicketStatusOpen || *entries[1].NewStatus != domain.TicketStatusInProgress {
		t.Fatal("first assign entry must record OPEN -> IN_PROGRESS")
	}
	if *entries[2].PrevStatus != domain.TicketStatusInProgress || *entries[2].NewStatus != domain.TicketStatusInProgress {
		t.Fatal("reassign entry must record IN_PROGRESS -> IN_PROGRESS")
	}
}

func TestAssignMissingTicket(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Assign(context.Background(), 12345, 99, 42)
	if !apperrors.IsCode(err, "NOT_FOUND") {
		t.Fatalf("err = %v, want NOT_FOUND", err)
	}
}

func TestAssignClosedTicketRejected(t *testing.T) {
	f := newFixture(t)
	ticket := f.openTicket(t)
	if _, err := f.engine.Close(context.Background(), ticket.ID, 99); err != nil {
		t.Fatalf("Close: %v", err)
	}
	_, err := f.engine.Assign(context.Background(), ticket.ID, 99, 42)
	if !apperrors.IsCode(err, "ALREADY_CLOSED") {
		t.Fatalf("err = %v, want ALREADY_CLOSED", err)
	}
}

func TestCloseAndDoubleClose(t *testing.T) {
	f := newFixture(t)
	ticket := f.openTicket(t)
	f.clock.advance(time.Minute)

	closed, err := f.engine.Close(context.Background(), ticket.ID, 99)
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if closed.Status != domain.TicketStatusClosed {
		t.Fatalf("status = %s, want CLOSED", closed.Status)
	}
	if closed.ClosedAt == nil || closed.ClosedBy == nil || *closed.ClosedBy != 99 {
		t.Fatal("close metadata not stamped")
	}
	f.mustGet(t, ticket.ID)

	before := len(f.historyFor(t, ticket.ID))

	_, err = f.engine.Close(context.Background(), ticket.ID, 99)
	if !apperrors.IsCode(err, "ALREADY_CLOSED") {
		t.Fatalf("second close err = %v, want ALREADY_CLOSED", err)
	}
	domainErr := apperrors.ToDomainError(err)
	if domainErr.Details["closed_by"] != int64(99) {
		t.Fatalf("rejection must carry closed_by, got %v", domainErr.Details["closed_by"])
	}

	if after := len(f.historyFor(t, ticket.ID)); after != before {
		t.Fatalf("history entries = %d after rejected close, want %d", after, before)
	}
}

func TestPostMessage(t *testing.T) {
	f := newFixture(t)
	ticket := f.openTicket(t)
	f.clock.advance(time.Minute)

	msg, err := f.engine.PostMessage(context.Background(), ticket.ID, 7, "any update on this?")
	if err != nil {
		t.Fatalf("PostMessage: %v", err)
	}
	if msg.TicketID != ticket.ID || msg.AuthorID != 7 {
		t.Fatal("message fields wrong")
	}

	// message on a non-closed ticket leaves status unchanged
	current := f.mustGet(t, ticket.ID)
	if current.Status != domain.TicketStatusOpen {
		t.Fatalf("status = %s, want OPEN", current.Status)
	}

	entries := f.historyFor(t, ticket.ID)
	if len(entries) != 2 {
		t.Fatalf("history entries = %d, want 2", len(entries))
	}
	last := entries[1]
	if last.Action != "Message sent" {
		t.Fatalf("action = %q", last.Action)
	}
	if last.PrevStatus == nil || last.NewStatus == nil || *last.PrevStatus != *last.NewStatus {
		t.Fatal("message entry must be status-neutral")
	}
}

func TestPostMessageEmptyBody(t *testing.T) {
	f := newFixture(t)
	ticket := f.openTicket(t)
	_, err := f.engine.PostMessage(context.Background(), ticket.ID, 7, "   ")
	if !apperrors.IsCode(err, "VALIDATION_FAILED") {
		t.Fatalf("err = %v, want VALIDATION_FAILED", err)
	}
}

func TestPostMessageReopensClosedTicket(t *testing.T) {
	f := newFixture(t)
	ticket := f.openTicket(t)
	if _, err := f.engine.Close(context.Background(), ticket.ID, 99); err != nil {
		t.Fatalf("Close: %v", err)
	}
	before := len(f.historyFor(t, ticket.ID))
	f.clock.advance(time.Minute)

	if _, err := f.engine.PostMessage(context.Background(), ticket.ID, 7, "still broken"); err != nil {
		t.Fatalf("PostMessage: %v", err)
	}

	reopened := f.mustGet(t, ticket.ID)
	if reopened.Status != domain.TicketStatusOpen {
		t.Fatalf("status = %s, want OPEN after reopen", reopened.Status)
	}
	if reopened.ClosedAt != nil || reopened.ClosedBy != nil {
		t.Fatal("close metadata not cleared on reopen")
	}

	entries := f.historyFor(t, ticket.ID)
	if len(entries) != before+2 {
		t.Fatalf("history entries = %d, want %d (reopen + message)", len(entries), before+2)
	}
	reopenEntry := entries[len(entries)-2]
	if reopenEntry.Action != "Ticket reopened" {
		t.Fatalf("action = %q, want reopen before message", reopenEntry.Action)
	}
	if *reopenEntry.PrevStatus != domain.TicketStatusClosed || *reopenEntry.NewStatus != domain.TicketStatusOpen {
		t.Fatal("reopen entry must record CLOSED -> OPEN")
	}
	msgEntry := entries[len(entries)-1]
	if *msgEntry.PrevStatus != domain.TicketStatusOpen || *msgEntry.NewStatus != domain.TicketStatusOpen {
		t.Fatal("message entry must carry the post-reopen status on both sides")
	}
}

func TestPostMessageMissingTicket(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.PostMessage(context.Background(), 404, 7, "hello?")
	if !apperrors.IsCode(err, "NOT_FOUND") {
		t.Fatalf("err = %v, want NOT_FOUND", err)
	}
}

func TestHistoryWriteFailureRollsBackTicket(t *testing.T) {
	f := newFixture(t)
	ticket := f.openTicket(t)
	f.store.FailHistoryCreate = true

	_, err := f.engine.Close(context.Background(), ticket.ID, 99)
	if !apperrors.IsCode(err, "PERSISTENCE_FAILURE") {
		t.Fatalf("err = %v, want PERSISTENCE_FAILURE", err)
	}

	f.store.FailHistoryCreate = false
	current := f.mustGet(t, ticket.ID)
	if current.Status != domain.TicketStatusOpen {
		t.Fatalf("status = %s, ticket mutation must roll back with failed history write", current.Status)
	}
	if len(f.historyFor(t, ticket.ID)) != 1 {
		t.Fatal("no extra history entry may survive the rollback")
	}
}

func TestScenarioPrinterDown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ticket := f.openTicket(t)
	if ticket.Status != domain.TicketStatusOpen || len(f.historyFor(t, ticket.ID)) != 1 {
		t.Fatal("after open: want OPEN and 1 history entry")
	}

	f.clock.advance(time.Minute)
	assigned, err := f.engine.Assign(ctx, ticket.ID, 1, 5)
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if assigned.Status != domain.TicketStatusInProgress || *assigned.AssignedTo != 5 {
		t.Fatal("after assign: want IN_PROGRESS assigned to 5")
	}
	if len(f.historyFor(t, ticket.ID)) != 2 {
		t.Fatal("after assign: want 2 history entries")
	}

	f.clock.advance(time.Minute)
	closed, err := f.engine.Close(ctx, ticket.ID, 5)
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if closed.Status != domain.TicketStatusClosed || closed.ClosedAt == nil {
		t.Fatal("after close: want CLOSED with closed_at")
	}
	if len(f.historyFor(t, ticket.ID)) != 3 {
		t.Fatal("after close: want 3 history entries")
	}

	if _, err := f.engine.Close(ctx, ticket.ID, 5); !apperrors.IsCode(err, "ALREADY_CLOSED") {
		t.Fatalf("repeat close err = %v, want ALREADY_CLOSED", err)
	}
	if len(f.historyFor(t, ticket.ID)) != 3 {
		t.Fatal("rejected close must not add history")
	}

	f.clock.advance(time.Minute)
	if _, err := f.engine.PostMessage(ctx, ticket.ID, 7, "it broke again"); err != nil {
		t.Fatalf("PostMessage: %v", err)
	}
	final := f.mustGet(t, ticket.ID)
	if final.Status != domain.TicketStatusOpen || final.ClosedAt != nil {
		t.Fatal("after message: want OPEN with cleared closed_at")
	}
	if final.AssignedTo != nil {
		t.Fatal("after reopen: assignment must be cleared")
	}
	if len(f.historyFor(t, ticket.ID)) != 5 {
		t.Fatalf("after message: want 5 history entries, got %d", len(f.historyFor(t, ticket.ID)))
	}
}

func TestRoundTripHistoryOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ticket := f.openTicket(t)
	ops := []func() error{
		func() error { _, err := f.engine.Assign(ctx, ticket.ID, 1, 5); return err },
		func() error { _, err := f.engine.Close(ctx, ticket.ID, 5); return err },
		func() error { _, err := f.engine.PostMessage(ctx, ticket.ID, 7, "reopening"); return err },
		func() error { _, err := f.engine.Close(ctx, ticket.ID, 5); return err },
	}
	for i, op := range ops {
		f.clock.advance(time.Minute)
		if err := op(); err != nil {
			t.Fatalf("op %d: %v", i, err)
		}
	}

	entries := f.historyFor(t, ticket.ID)
	wantActions := []string{"Ticket opened", "Ticket assigned to user 5", "Ticket closed", "Ticket reopened", "Message sent", "Ticket closed"}
	if len(entries) != len(wantActions) {
		t.Fatalf("history entries = %d, want %d", len(entries), len(wantActions))
	}
	for i, entry := range entries {
		if entry.Action != wantActions[i] {
			t.Fatalf("entry %d action = %q, want %q", i, entry.Action, wantActions[i])
		}
		if i > 0 && entry.CreatedAt.Before(entries[i-1].CreatedAt) {
			t.Fatalf("entry %d timestamp decreases", i)
		}
	}

	final := f.mustGet(t, ticket.ID)
	if final.Status != domain.TicketStatusClosed {
		t.Fatalf("final status = %s, want CLOSED", final.Status)
	}
}

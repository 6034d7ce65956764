package domain

import (
	"testing"
	"time"
)

func TestTicketStatusValid(t *testing.T) {
	for _, status := range []TicketStatus{TicketStatusOpen, TicketStatusInProgress, TicketStatusClosed} {
		if !status.Valid() {
			t.Fatalf("%s must be valid", status)
		}
	}
	if TicketStatus("ARCHIVED").Valid() {
		t.Fatal("unknown status must be invalid")
	}
}

func TestCheckInvariants(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	actor := int64(5)

	base := Ticket{
		ID:       1,
		Number:   "CHM-AB12CD34",
		OpenedBy: 7,
		Summary:  "printer down",
		Status:   TicketStatusOpen,
		OpenedAt: now,
	}

	cases := []struct {
		name    string
		mutate  func(*Ticket)
		wantErr bool
	}{
		{"open clean", func(t *Ticket) {}, false},
		{"open with assignee", func(t *Ticket) {
			t.AssignedTo = &actor
		}, true},
		{"open with close metadata", func(t *Ticket) {
			t.ClosedAt = &now
		}, true},
		{"in progress assigned", func(t *Ticket) {
			t.Status = TicketStatusInProgress
			t.AssignedTo = &actor
			t.AssignedAt = &now
		}, false},
		{"in progress without assignee", func(t *Ticket) {
			t.Status = TicketStatusInProgress
		}, true},
		{"in progress with closed_at", func(t *Ticket) {
			t.Status = TicketStatusInProgress
			t.AssignedTo = &actor
			t.AssignedAt = &now
			t.ClosedAt = &now
		}, true},
		{"closed stamped", func(t *Ticket) {
			t.Status = TicketStatusClosed
			t.ClosedAt = &now
			t.ClosedBy = &actor
		}, false},
		{"closed without closed_by", func(t *Ticket) {
			t.Status = TicketStatusClosed
			t.ClosedAt = &now
		}, true},
		{"unknown status", func(t *Ticket) {
			t.Status = "ARCHIVED"
		}, true},
		{"missing opened_at", func(t *Ticket) {
			t.OpenedAt = time.Time{}
		}, true},
		{"missing number", func(t *Ticket) {
			t.Number = ""
		}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ticket := base
			tc.mutate(&ticket)
			err := ticket.CheckInvariants()
			if tc.wantErr && err == nil {
				t.Fatal("want invariant violation")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected violation: %v", err)
			}
		})
	}
}

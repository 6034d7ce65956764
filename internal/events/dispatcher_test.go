package events

import (
	"context"
	"errors"
	"testing"
)

func TestDispatcherDeliversToSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()

	var got []string
	d.Subscribe(EventTicketOpened, func(ctx context.Context, e Event) error {
		got = append(got, "first")
		return nil
	})
	d.Subscribe(EventTicketOpened, func(ctx context.Context, e Event) error {
		got = append(got, "second")
		return nil
	})
	d.Subscribe(EventTicketClosed, func(ctx context.Context, e Event) error {
		got = append(got, "wrong type")
		return nil
	})

	if err := d.Publish(context.Background(), Event{Type: EventTicketOpened, TicketID: 1}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Fatalf("handlers invoked = %v", got)
	}
}

func TestDispatcherHandlerErrorDoesNotStopDelivery(t *testing.T) {
	d := NewInMemoryDispatcher()

	delivered := false
	d.Subscribe(EventTicketClosed, func(ctx context.Context, e Event) error {
		return errors.New("handler failure")
	})
	d.Subscribe(EventTicketClosed, func(ctx context.Context, e Event) error {
		delivered = true
		return nil
	})

	if err := d.Publish(context.Background(), Event{Type: EventTicketClosed, TicketID: 1}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !delivered {
		t.Fatal("later handler must run after an earlier handler fails")
	}
}

func TestDispatcherNoSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()
	if err := d.Publish(context.Background(), Event{Type: EventTicketReopened, TicketID: 1}); err != nil {
		t.Fatalf("Publish with no subscribers: %v", err)
	}
}

package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/chamado-hq/helpdesk-service/internal/domain"
	"github.com/chamado-hq/helpdesk-service/internal/lifecycle"
	"github.com/chamado-hq/helpdesk-service/internal/repository/repositorytest"
	apperrors "github.com/chamado-hq/helpdesk-service/pkg/util/errorutil"
)

type fakeObjectStore struct {
	objects map[string][]byte
	nextKey int

	failUpload bool
	failDelete bool
	deletes    []string
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: map[string][]byte{}}
}

func (f *fakeObjectStore) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	if f.failUpload {
		return "", errors.New("object store down")
	}
	f.nextKey++
	key := fmt.Sprintf("obj-%d", f.nextKey)
	f.objects[key] = append([]byte{}, data...)
	return key, nil
}

func (f *fakeObjectStore) Fetch(ctx context.Context, key string) ([]byte, string, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, "", errors.New("no such object")
	}
	return data, "application/octet-stream", nil
}

func (f *fakeObjectStore) Delete(ctx context.Context, key string) error {
	f.deletes = append(f.deletes, key)
	if f.failDelete {
		return errors.New("delete failed")
	}
	delete(f.objects, key)
	return nil
}

func (f *fakeObjectStore) SignURL(key string, ttl time.Duration) (string, error) {
	return "/attachments/blob/" + key + "?expires=0&signature=test", nil
}

type ledgerFixture struct {
	store   *repositorytest.MemStore
	objects *fakeObjectStore
	engine  *lifecycle.Engine
	ledger  *Ledger
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	store := repositorytest.NewMemStore()
	objects := newFakeObjectStore()
	engine := lifecycle.NewEngine(lifecycle.Dependencies{Store: store})
	led := NewLedger(Dependencies{
		Store:        store,
		Objects:      objects,
		MaxSizeBytes: 64,
	})
	return &ledgerFixture{store: store, objects: objects, engine: engine, ledger: led}
}

func (f *ledgerFixture) openTicket(t *testing.T) *domain.Ticket {
	t.Helper()
	ticket, err := f.engine.Open(context.Background(), lifecycle.OpenInput{
		ActorID:     7,
		Summary:     "broken monitor",
		Description: "screen flickers",
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return ticket
}

func TestAttach(t *testing.T) {
	f := newLedgerFixture(t)
	ticket := f.openTicket(t)

	attachment, err := f.ledger.Attach(context.Background(), AttachInput{
		TicketID:    ticket.ID,
		FileName:    "photo.png",
		ContentType: "image/png",
		Data:        []byte("pixels"),
	})
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if attachment.ID == 0 || attachment.StorageKey == "" {
		t.Fatal("attachment row incomplete")
	}
	if attachment.MessageID != nil {
		t.Fatal("attachment without message must be initial")
	}
	if _, ok := f.objects.objects[attachment.StorageKey]; !ok {
		t.Fatal("object bytes not stored")
	}

	initial, err := f.ledger.InitialAttachments(context.Background(), ticket.ID)
	if err != nil {
		t.Fatalf("InitialAttachments: %v", err)
	}
	if len(initial) != 1 || initial[0].ID != attachment.ID {
		t.Fatal("initial attachment not listed")
	}
}

func TestAttachValidation(t *testing.T) {
	f := newLedgerFixture(t)
	ticket := f.openTicket(t)
	cases := []struct {
		name  string
		input AttachInput
	}{
		{"empty file name", AttachInput{TicketID: ticket.ID, FileName: " ", Data: []byte("x")}},
		{"empty data", AttachInput{TicketID: ticket.ID, FileName: "a.txt"}},
		{"too large", AttachInput{TicketID: ticket.ID, FileName: "a.txt", Data: make([]byte, 65)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.ledger.Attach(context.Background(), tc.input)
			if !apperrors.IsCode(err, "VALIDATION_FAILED") {
				t.Fatalf("err = %v, want VALIDATION_FAILED", err)
			}
		})
	}
}

func TestAttachMissingTicket(t *testing.T) {
	f := newLedgerFixture(t)
	_, err := f.ledger.Attach(context.Background(), AttachInput{
		TicketID: 404,
		FileName: "a.txt",
		Data:     []byte("x"),
	})
	if !apperrors.IsCode(err, "NOT_FOUND") {
		t.Fatalf("err = %v, want NOT_FOUND", err)
	}
}

func TestAttachForeignMessageRejected(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	first := f.openTicket(t)
	second := f.openTicket(t)
	msg, err := f.engine.PostMessage(ctx, second.ID, 7, "on the other ticket")
	if err != nil {
		t.Fatalf("PostMessage: %v", err)
	}

	_, err = f.ledger.Attach(ctx, AttachInput{
		TicketID:  first.ID,
		MessageID: &msg.ID,
		FileName:  "a.txt",
		Data:      []byte("x"),
	})
	if !apperrors.IsCode(err, "CONSISTENCY_VIOLATION") {
		t.Fatalf("err = %v, want CONSISTENCY_VIOLATION", err)
	}
}

func TestAttachUploadFailureLeavesNoRow(t *testing.T) {
	f := newLedgerFixture(t)
	ticket := f.openTicket(t)
	f.objects.failUpload = true

	_, err := f.ledger.Attach(context.Background(), AttachInput{
		TicketID: ticket.ID,
		FileName: "a.txt",
		Data:     []byte("x"),
	})
	if !apperrors.IsCode(err, "STORAGE_UPLOAD_FAILED") {
		t.Fatalf("err = %v, want STORAGE_UPLOAD_FAILED", err)
	}

	initial, err := f.ledger.InitialAttachments(context.Background(), ticket.ID)
	if err != nil {
		t.Fatalf("InitialAttachments: %v", err)
	}
	if len(initial) != 0 {
		t.Fatal("failed upload must not leave an attachment row")
	}
}

func TestAttachRowFailureDeletesObject(t *testing.T) {
	f := newLedgerFixture(t)
	ticket := f.openTicket(t)
	f.store.FailAttachmentCreate = true

	_, err := f.ledger.Attach(context.Background(), AttachInput{
		TicketID: ticket.ID,
		FileName: "a.txt",
		Data:     []byte("x"),
	})
	if !apperrors.IsCode(err, "PERSISTENCE_FAILURE") {
		t.Fatalf("err = %v, want PERSISTENCE_FAILURE", err)
	}
	if len(f.objects.deletes) != 1 {
		t.Fatalf("deletes = %d, want 1 cleanup attempt for the uploaded object", len(f.objects.deletes))
	}
	if len(f.objects.objects) != 0 {
		t.Fatal("uploaded object must be cleaned up when the row write fails")
	}
}

func TestAttachRowFailureOrphanSurvivesFailedDelete(t *testing.T) {
	f := newLedgerFixture(t)
	ticket := f.openTicket(t)
	f.store.FailAttachmentCreate = true
	f.objects.failDelete = true

	_, err := f.ledger.Attach(context.Background(), AttachInput{
		TicketID: ticket.ID,
		FileName: "a.txt",
		Data:     []byte("x"),
	})
	if !apperrors.IsCode(err, "PERSISTENCE_FAILURE") {
		t.Fatalf("err = %v, want PERSISTENCE_FAILURE", err)
	}
	// cleanup was attempted even though it failed
	if len(f.objects.deletes) != 1 {
		t.Fatalf("deletes = %d, want 1", len(f.objects.deletes))
	}
}

func TestMessagesWithAttachments(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	ticket := f.openTicket(t)

	first, err := f.engine.PostMessage(ctx, ticket.ID, 7, "see screenshot")
	if err != nil {
		t.Fatalf("PostMessage: %v", err)
	}
	if _, err := f.engine.PostMessage(ctx, ticket.ID, 5, "looking into it"); err != nil {
		t.Fatalf("PostMessage: %v", err)
	}
	attachment, err := f.ledger.Attach(ctx, AttachInput{
		TicketID:  ticket.ID,
		MessageID: &first.ID,
		FileName:  "screen.png",
		Data:      []byte("img"),
	})
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}

	msgs, err := f.ledger.Messages(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want 2", len(msgs))
	}
	if msgs[0].ID != first.ID {
		t.Fatal("messages not in send order")
	}
	if len(msgs[0].Attachments) != 1 || msgs[0].Attachments[0].ID != attachment.ID {
		t.Fatal("first message must carry its attachment")
	}
	if len(msgs[1].Attachments) != 0 {
		t.Fatal("second message must have no attachments")
	}
}

func TestSignAttachmentURL(t *testing.T) {
	f := newLedgerFixture(t)
	ticket := f.openTicket(t)
	attachment, err := f.ledger.Attach(context.Background(), AttachInput{
		TicketID: ticket.ID,
		FileName: "a.txt",
		Data:     []byte("x"),
	})
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}

	url, err := f.ledger.SignAttachmentURL(context.Background(), attachment.ID, time.Minute)
	if err != nil {
		t.Fatalf("SignAttachmentURL: %v", err)
	}
	if url == "" {
		t.Fatal("empty signed url")
	}

	if _, err := f.ledger.SignAttachmentURL(context.Background(), 404, time.Minute); !apperrors.IsCode(err, "NOT_FOUND") {
		t.Fatalf("err = %v, want NOT_FOUND", err)
	}
}

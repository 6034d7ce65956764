package domain

import "time"

// Message captures one entry in a ticket's conversation thread.
type Message struct {
	ID          int64
	TicketID    int64
	AuthorID    int64
	Body        string
	SentAt      time.Time
	Attachments []Attachment
}

// Attachment stores metadata for an uploaded file. MessageID is nil for
// "initial" attachments uploaded at ticket-opening time, before any message
// exists. The bytes live in the object store under StorageKey.
type Attachment struct {
	ID         int64
	TicketID   int64
	MessageID  *int64
	FileName   string
	MimeType   string
	SizeBytes  int64
	StorageKey string
	CreatedAt  time.Time
}

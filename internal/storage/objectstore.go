package storage

import (
	"context"
	"time"
)

// ObjectStore is the binary-file storage collaborator. Ticket state never
// depends on it transactionally: uploads and deletes happen outside the
// database transaction and only the opaque key is persisted.
type ObjectStore interface {
	Upload(ctx context.Context, data []byte, contentType string) (string, error)
	Fetch(ctx context.Context, key string) (data []byte, contentType string, err error)
	Delete(ctx context.Context, key string) error
	SignURL(key string, ttl time.Duration) (string, error)
}

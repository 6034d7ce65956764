package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const objectKeyPrefix = "attachment:"

// RedisObjectStore keeps attachment bytes in Redis hashes. Suits the
// bounded upload sizes this service accepts; swap the interface
// implementation for a real object store without touching callers.
type RedisObjectStore struct {
	client *redis.Client
	signer *URLSigner
}

// NewRedisObjectStore constructs the store.
func NewRedisObjectStore(client *redis.Client, signer *URLSigner) *RedisObjectStore {
	return &RedisObjectStore{client: client, signer: signer}
}

// Upload stores the bytes under a fresh opaque key.
func (s *RedisObjectStore) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	key := uuid.NewString()
	err := s.client.HSet(ctx, objectKeyPrefix+key,
		"data", data,
		"content_type", contentType,
	).Err()
	if err != nil {
		return "", fmt.Errorf("upload object: %w", err)
	}
	return key, nil
}

// Fetch returns the stored bytes and content type.
func (s *RedisObjectStore) Fetch(ctx context.Context, key string) ([]byte, string, error) {
	values, err := s.client.HGetAll(ctx, objectKeyPrefix+key).Result()
	if err != nil {
		return nil, "", fmt.Errorf("fetch object: %w", err)
	}
	data, ok := values["data"]
	if !ok {
		return nil, "", fmt.Errorf("object %s not found", key)
	}
	return []byte(data), values["content_type"], nil
}

// Delete removes the stored object.
func (s *RedisObjectStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, objectKeyPrefix+key).Err()
}

// SignURL produces a temporary download URL for the object.
func (s *RedisObjectStore) SignURL(key string, ttl time.Duration) (string, error) {
	if s.signer == nil {
		return "", fmt.Errorf("no url signer configured")
	}
	return s.signer.Sign(key, ttl), nil
}

package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// URLSigner issues and verifies expiring download URLs for stored objects.
type URLSigner struct {
	secret  []byte
	baseURL string
}

// NewURLSigner constructs a signer. baseURL is the public prefix of the
// download endpoint, e.g. "/attachments/blob".
func NewURLSigner(secret, baseURL string) *URLSigner {
	return &URLSigner{secret: []byte(secret), baseURL: baseURL}
}

// Sign produces a temporary URL for the given storage key.
func (s *URLSigner) Sign(key string, ttl time.Duration) string {
	expires := time.Now().Add(ttl).Unix()
	return fmt.Sprintf("%s/%s?expires=%d&signature=%s", s.baseURL, key, expires, s.signature(key, expires))
}

// Verify checks the signature and expiry for a download request.
func (s *URLSigner) Verify(key, expiresStr, signature string) bool {
	expires, err := strconv.ParseInt(expiresStr, 10, 64)
	if err != nil {
		return false
	}
	if time.Now().Unix() > expires {
		return false
	}
	expected := s.signature(key, expires)
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (s *URLSigner) signature(key string, expires int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s:%d", key, expires)
	return hex.EncodeToString(mac.Sum(nil))
}

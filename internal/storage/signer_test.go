package storage

import (
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"
)

func parseSignedURL(t *testing.T, signed string) (key, expires, signature string) {
	t.Helper()
	parsed, err := url.Parse(signed)
	if err != nil {
		t.Fatalf("parse signed url: %v", err)
	}
	key = strings.TrimPrefix(parsed.Path, "/attachments/blob/")
	return key, parsed.Query().Get("expires"), parsed.Query().Get("signature")
}

func TestURLSignerRoundTrip(t *testing.T) {
	signer := NewURLSigner("test-secret", "/attachments/blob")
	signed := signer.Sign("obj-1", time.Minute)

	key, expires, signature := parseSignedURL(t, signed)
	if key != "obj-1" {
		t.Fatalf("key = %q", key)
	}
	if !signer.Verify(key, expires, signature) {
		t.Fatal("freshly signed url must verify")
	}
}

func TestURLSignerExpired(t *testing.T) {
	signer := NewURLSigner("test-secret", "/attachments/blob")
	expired := fmt.Sprintf("%d", time.Now().Add(-time.Minute).Unix())
	if signer.Verify("obj-1", expired, "whatever") {
		t.Fatal("expired url must not verify")
	}
}

func TestURLSignerTampered(t *testing.T) {
	signer := NewURLSigner("test-secret", "/attachments/blob")
	signed := signer.Sign("obj-1", time.Minute)
	_, expires, signature := parseSignedURL(t, signed)

	if signer.Verify("obj-2", expires, signature) {
		t.Fatal("signature must not transfer to another key")
	}

	other := NewURLSigner("other-secret", "/attachments/blob")
	if other.Verify("obj-1", expires, signature) {
		t.Fatal("signature must not verify under another secret")
	}

	if signer.Verify("obj-1", "not-a-number", signature) {
		t.Fatal("malformed expiry must not verify")
	}
}

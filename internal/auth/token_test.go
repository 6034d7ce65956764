package auth

import (
	"testing"

	"github.com/chamado-hq/helpdesk-service/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("unit-test-secret", 60)

	token, expiresAt, err := tm.GenerateToken(42, domain.RoleAdmin)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if expiresAt.IsZero() {
		t.Fatal("expiry not set")
	}

	claims, err := tm.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	actorID, err := claims.ActorID()
	if err != nil {
		t.Fatalf("ActorID: %v", err)
	}
	if actorID != 42 {
		t.Fatalf("actor id = %d, want 42", actorID)
	}
	if claims.Role != domain.RoleAdmin {
		t.Fatalf("role = %s, want ADMIN", claims.Role)
	}
}

func TestTokenWrongSecret(t *testing.T) {
	tm := NewTokenManager("unit-test-secret", 60)
	token, _, err := tm.GenerateToken(42, domain.RoleUser)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	other := NewTokenManager("different-secret", 60)
	if _, err := other.ParseToken(token); err == nil {
		t.Fatal("token signed with another secret must not parse")
	}
}

func TestTokenGarbage(t *testing.T) {
	tm := NewTokenManager("unit-test-secret", 60)
	if _, err := tm.ParseToken("not.a.token"); err == nil {
		t.Fatal("garbage token must not parse")
	}
}

package tokens_test

import (
	"errors"
	"testing"
	"time"

	"git.sr.ht/~jakintosh/craftcart-admin/pkg/tokens"
)

func TestIssuer_RoundTrip(t *testing.T) {
	t.Parallel()
	issuer := tokens.NewIssuer([]byte("test-signing-key"), "craftcart.test")

	cred, exp, err := issuer.Issue("alice", "admin", time.Hour)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	// server side verification recovers subject and role
	verified, err := issuer.Verify(cred)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if verified.Subject != "alice" {
		t.Errorf("Subject = %s, want alice", verified.Subject)
	}
	if verified.Role != "admin" {
		t.Errorf("Role = %s, want admin", verified.Role)
	}

	// client side decoding sees the same expiry in whole seconds
	claims, err := tokens.Decode(cred)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if claims.Expiration != exp.Unix() {
		t.Errorf("Expiration = %d, want %d", claims.Expiration, exp.Unix())
	}
}

func TestIssuer_VerifyRejects(t *testing.T) {
	t.Parallel()
	issuer := tokens.NewIssuer([]byte("test-signing-key"), "craftcart.test")
	other := tokens.NewIssuer([]byte("another-key"), "craftcart.test")
	foreign := tokens.NewIssuer([]byte("test-signing-key"), "elsewhere.test")

	expired, _, err := issuer.Issue("alice", "admin", -time.Minute)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	wrongKey, _, err := other.Issue("alice", "admin", time.Hour)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	wrongIssuer, _, err := foreign.Issue("alice", "admin", time.Hour)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	tests := []struct {
		name       string
		credential string
	}{
		{"expired", expired},
		{"wrong key", wrongKey},
		{"wrong issuer", wrongIssuer},
		{"garbage", "not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := issuer.Verify(tt.credential); !errors.Is(err, tokens.ErrTokenInvalid) {
				t.Errorf("expected ErrTokenInvalid, got %v", err)
			}
		})
	}
}

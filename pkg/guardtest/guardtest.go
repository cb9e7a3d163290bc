// Package guardtest provides helpers for testing code built on the session
// guard: credential minting, a [session.Store] contract suite, and an in
// process fake of the Craft-Cart backend.
package guardtest

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"git.sr.ht/~jakintosh/craftcart-admin/pkg/session"
)

// Credential builds an unsigned three segment credential whose payload is
// {"exp":exp,"role":role}. The header and signature are placeholders.
func Credential(exp int64, role string) string {
	return RawCredential(map[string]any{"exp": exp, "role": role})
}

// RawCredential builds an unsigned credential around an arbitrary payload.
func RawCredential(payload any) string {
	data, err := json.Marshal(payload)
	if err != nil {
		panic("guardtest: payload must marshal: " + err.Error())
	}
	return "hdr." + base64.RawURLEncoding.EncodeToString(data) + ".sig"
}

// ValidAdmin returns a credential for role "admin" that expires after lifetime.
func ValidAdmin(lifetime time.Duration) string {
	return Credential(time.Now().Add(lifetime).Unix(), "admin")
}

// Seed stores credential and a fixed test user in store.
func Seed(store session.Store, credential string) *session.User {
	user := &session.User{
		ID:    "u-1",
		Name:  "Test Admin",
		Email: "admin@craftcart.test",
		Role:  "admin",
	}
	if err := store.Save(credential, user); err != nil {
		panic("guardtest: seed store: " + err.Error())
	}
	return user
}

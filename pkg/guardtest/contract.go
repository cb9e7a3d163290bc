package guardtest

import (
	"errors"
	"testing"

	"git.sr.ht/~jakintosh/craftcart-admin/pkg/session"
)

// RunStoreContract checks the behaviour every [session.Store] must share.
// newStore must return an empty store.
func RunStoreContract(t *testing.T, newStore func(t *testing.T) session.Store) {
	t.Helper()

	t.Run("empty store loads absent", func(t *testing.T) {
		store := newStore(t)
		credential, user := store.Load()
		if credential != "" || user != nil {
			t.Errorf("Load = (%q, %+v), want absent", credential, user)
		}
	})

	t.Run("save then load", func(t *testing.T) {
		store := newStore(t)
		want := &session.User{ID: "u-1", Name: "Ada", Extra: map[string]any{"phone": "555"}}
		if err := store.Save("a.b.c", want); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		credential, user := store.Load()
		if credential != "a.b.c" {
			t.Errorf("credential = %q, want a.b.c", credential)
		}
		if user == nil || user.ID != "u-1" || user.Name != "Ada" || user.Extra["phone"] != "555" {
			t.Errorf("user = %+v", user)
		}
	})

	t.Run("save overwrites both", func(t *testing.T) {
		store := newStore(t)
		if err := store.Save("first.a.b", &session.User{Name: "first"}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if err := store.Save("second.a.b", &session.User{Name: "second"}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		credential, user := store.Load()
		if credential != "second.a.b" || user == nil || user.Name != "second" {
			t.Errorf("Load = (%q, %+v), want second", credential, user)
		}
	})

	t.Run("save without user drops the old record", func(t *testing.T) {
		store := newStore(t)
		if err := store.Save("first.a.b", &session.User{Name: "first"}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if err := store.Save("second.a.b", nil); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		credential, user := store.Load()
		if credential != "second.a.b" || user != nil {
			t.Errorf("Load = (%q, %+v), want (second.a.b, nil)", credential, user)
		}
	})

	t.Run("empty credential is rejected", func(t *testing.T) {
		store := newStore(t)
		if err := store.Save("", &session.User{}); !errors.Is(err, session.ErrEmptyCredential) {
			t.Errorf("expected ErrEmptyCredential, got %v", err)
		}
	})

	t.Run("clear is idempotent", func(t *testing.T) {
		store := newStore(t)
		if err := store.Save("a.b.c", &session.User{Name: "Ada"}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		store.Clear()
		store.Clear()

		credential, user := store.Load()
		if credential != "" || user != nil {
			t.Errorf("Load after Clear = (%q, %+v), want absent", credential, user)
		}
	})

	t.Run("clear if matching credential", func(t *testing.T) {
		store := newStore(t)
		if err := store.Save("a.b.c", &session.User{Name: "Ada"}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		store.ClearIf("a.b.c")

		credential, user := store.Load()
		if credential != "" || user != nil {
			t.Errorf("Load after ClearIf = (%q, %+v), want absent", credential, user)
		}
	})

	t.Run("clear if keeps a replaced credential", func(t *testing.T) {
		store := newStore(t)
		if err := store.Save("fresh.a.b", &session.User{Name: "fresh"}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		store.ClearIf("stale.a.b")
		store.ClearIf("")

		credential, user := store.Load()
		if credential != "fresh.a.b" || user == nil || user.Name != "fresh" {
			t.Errorf("Load = (%q, %+v), want fresh session kept", credential, user)
		}
	})

	t.Run("clear if on empty store", func(t *testing.T) {
		store := newStore(t)
		store.ClearIf("")
		store.ClearIf("a.b.c")

		credential, user := store.Load()
		if credential != "" || user != nil {
			t.Errorf("Load = (%q, %+v), want absent", credential, user)
		}
	})
}

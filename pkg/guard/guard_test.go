package guard_test

import (
	"testing"
	"time"

	"git.sr.ht/~jakintosh/craftcart-admin/pkg/guard"
	"git.sr.ht/~jakintosh/craftcart-admin/pkg/guardtest"
	"git.sr.ht/~jakintosh/craftcart-admin/pkg/session"
)

var fixedNow = time.Unix(1700000000, 0)

func setupGuard(t *testing.T) (*guard.Guard, *session.MemoryStore) {
	t.Helper()
	store := session.NewMemoryStore()
	g := guard.New(store, guard.Config{
		Clock: func() time.Time { return fixedNow },
	})
	return g, store
}

func expectCleared(t *testing.T, store session.Store) {
	t.Helper()
	credential, user := store.Load()
	if credential != "" || user != nil {
		t.Errorf("store not cleared: (%q, %+v)", credential, user)
	}
}

func TestEvaluate_Scenarios(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		credential string
		state      session.State
		reason     session.Reason
	}{
		{
			name:       "valid admin",
			credential: "hdr.eyJleHAiOjk5OTk5OTk5OTksInJvbGUiOiJhZG1pbiJ9.sig",
			state:      session.Authorized,
			reason:     session.ReasonNone,
		},
		{
			name:       "expired admin",
			credential: guardtest.Credential(1, "admin"),
			state:      session.Unauthorized,
			reason:     session.ReasonExpired,
		},
		{
			name:       "unexpired user",
			credential: guardtest.Credential(9999999999, "user"),
			state:      session.Unauthorized,
			reason:     session.ReasonRoleMismatch,
		},
		{
			name:       "not a jwt",
			credential: "not-a-jwt",
			state:      session.Unauthorized,
			reason:     session.ReasonMalformedToken,
		},
		{
			name:       "missing exp",
			credential: guardtest.RawCredential(map[string]any{"role": "admin"}),
			state:      session.Unauthorized,
			reason:     session.ReasonExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g, store := setupGuard(t)
			seeded := guardtest.Seed(store, tt.credential)

			outcome := g.Evaluate()
			if outcome.State != tt.state {
				t.Errorf("State = %v, want %v", outcome.State, tt.state)
			}
			if outcome.Reason != tt.reason {
				t.Errorf("Reason = %v, want %v", outcome.Reason, tt.reason)
			}

			if tt.state == session.Authorized {
				// authorized sessions are left in place and exposed
				credential, _ := store.Load()
				if credential != tt.credential {
					t.Error("authorized evaluation modified the store")
				}
				if outcome.User == nil || outcome.User.Email != seeded.Email {
					t.Errorf("User = %+v, want seeded user", outcome.User)
				}
				if outcome.Claims == nil || outcome.Claims.Role != "admin" {
					t.Errorf("Claims = %+v", outcome.Claims)
				}
			} else {
				// every unauthorized outcome is fail-closed
				expectCleared(t, store)
				if outcome.Err() == nil {
					t.Error("expected a non-nil Err for unauthorized outcome")
				}
			}
		})
	}
}

func TestEvaluate_AbsentCredential(t *testing.T) {
	t.Parallel()
	g, store := setupGuard(t)

	outcome := g.Evaluate()
	if outcome.State != session.Unauthorized || outcome.Reason != session.ReasonAbsentCredential {
		t.Errorf("outcome = %+v, want unauthorized/absent", outcome)
	}
	expectCleared(t, store)
}

// danglingStore holds a user record without a credential.
type danglingStore struct {
	session.MemoryStore
	cleared bool
}

func (s *danglingStore) Load() (string, *session.User) {
	if s.cleared {
		return "", nil
	}
	return "", &session.User{Name: "ghost"}
}

func (s *danglingStore) Clear() { s.cleared = true }

func (s *danglingStore) ClearIf(credential string) {
	if credential == "" {
		s.cleared = true
	}
}

func TestEvaluate_DanglingUserIsCleared(t *testing.T) {
	t.Parallel()
	store := &danglingStore{}
	g := guard.New(store, guard.Config{})

	outcome := g.Evaluate()
	if outcome.Reason != session.ReasonAbsentCredential {
		t.Errorf("Reason = %v, want absent_credential", outcome.Reason)
	}
	if !store.cleared {
		t.Error("dangling user record was not cleared")
	}
}

// pausingStore hands control back to the test between the guard's Load and
// whatever it does next.
type pausingStore struct {
	*session.MemoryStore
	loaded chan struct{}
	resume chan struct{}
}

func (s *pausingStore) Load() (string, *session.User) {
	credential, user := s.MemoryStore.Load()
	close(s.loaded)
	<-s.resume
	return credential, user
}

func TestEvaluate_StaleRejectionKeepsConcurrentLogin(t *testing.T) {
	t.Parallel()
	store := &pausingStore{
		MemoryStore: session.NewMemoryStore(),
		loaded:      make(chan struct{}),
		resume:      make(chan struct{}),
	}
	g := guard.New(store, guard.Config{Clock: func() time.Time { return fixedNow }})
	guardtest.Seed(store.MemoryStore, guardtest.Credential(fixedNow.Add(-time.Minute).Unix(), "admin"))

	done := make(chan guard.Outcome)
	go func() { done <- g.Evaluate() }()

	// a login lands after the guard read the expired credential
	<-store.loaded
	fresh := guardtest.Credential(9999999999, "admin")
	if err := store.Save(fresh, &session.User{Name: "Ada"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	close(store.resume)

	outcome := <-done
	if outcome.Reason != session.ReasonExpired {
		t.Errorf("Reason = %v, want expired", outcome.Reason)
	}

	credential, user := store.MemoryStore.Load()
	if credential != fresh {
		t.Errorf("credential after stale evaluation = %q, want the fresh one", credential)
	}
	if user == nil || user.Name != "Ada" {
		t.Errorf("user after stale evaluation = %+v", user)
	}
}

func TestPeek_LeavesStoreAndObserverAlone(t *testing.T) {
	t.Parallel()
	store := session.NewMemoryStore()
	resolved := 0
	g := guard.New(store, guard.Config{
		Clock:     func() time.Time { return fixedNow },
		OnResolve: func(guard.Outcome) { resolved++ },
	})

	expired := guardtest.Credential(fixedNow.Unix()-60, "admin")
	guardtest.Seed(store, expired)
	if outcome := g.Peek(); outcome.Reason != session.ReasonExpired {
		t.Errorf("Reason = %v, want expired", outcome.Reason)
	}
	if credential, _ := store.Load(); credential != expired {
		t.Errorf("Peek changed the stored credential to %q", credential)
	}

	valid := guardtest.Credential(9999999999, "admin")
	guardtest.Seed(store, valid)
	if outcome := g.Peek(); !outcome.Authorized() || outcome.User == nil {
		t.Errorf("outcome = %+v, want authorized with user", outcome)
	}
	if resolved != 0 {
		t.Errorf("observer called %d times, want 0", resolved)
	}
}

func TestEvaluate_SamplesClockOncePerEvaluation(t *testing.T) {
	t.Parallel()
	store := session.NewMemoryStore()
	calls := 0
	g := guard.New(store, guard.Config{
		Clock: func() time.Time {
			calls++
			return fixedNow
		},
	})
	guardtest.Seed(store, guardtest.Credential(9999999999, "admin"))

	g.Evaluate()
	if calls != 1 {
		t.Errorf("clock sampled %d times, want 1", calls)
	}
}

func TestEvaluate_CustomRoleAndObserver(t *testing.T) {
	t.Parallel()
	store := session.NewMemoryStore()
	var seen []guard.Outcome
	g := guard.New(store, guard.Config{
		RequiredRole: "editor",
		Clock:        func() time.Time { return fixedNow },
		OnResolve:    func(o guard.Outcome) { seen = append(seen, o) },
	})

	guardtest.Seed(store, guardtest.Credential(9999999999, "editor"))
	if outcome := g.Evaluate(); !outcome.Authorized() {
		t.Errorf("expected authorized for editor, got %+v", outcome)
	}

	guardtest.Seed(store, guardtest.Credential(9999999999, "admin"))
	if outcome := g.Evaluate(); outcome.Reason != session.ReasonRoleMismatch {
		t.Errorf("Reason = %v, want role_mismatch", outcome.Reason)
	}

	if len(seen) != 2 {
		t.Fatalf("observer saw %d outcomes, want 2", len(seen))
	}
	if !seen[0].Authorized() || seen[1].Authorized() {
		t.Errorf("observer saw %+v", seen)
	}
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()
	g := guard.New(session.NewMemoryStore(), guard.Config{})

	if g.RequiredRole() != "admin" {
		t.Errorf("RequiredRole = %s, want admin", g.RequiredRole())
	}
	if g.UnauthorizedPath() != "/unauthorized" {
		t.Errorf("UnauthorizedPath = %s, want /unauthorized", g.UnauthorizedPath())
	}
}

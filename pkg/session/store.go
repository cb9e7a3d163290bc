package session

import (
	"errors"
	"sync"
)

var ErrEmptyCredential = errors.New("empty credential")

// Fixed storage keys shared by every [Store] implementation.
const (
	CredentialKey = "token"
	UserKey       = "user"
)

// Store persists the credential and user record of the single local session.
//
// Save writes both as one unit, replacing whatever was there; a nil user
// removes the stored record. Load never fails: an unreachable backend or an
// unreadable entry reads as absent, so callers fail closed. Clear is
// idempotent and only logs its failures.
//
// ClearIf clears only while the stored credential still equals credential
// ("" matches an absent one), as a single step against concurrent Saves. A
// credential that was replaced after it was loaded is left in place.
type Store interface {
	Save(credential string, user *User) error
	Load() (credential string, user *User)
	Clear()
	ClearIf(credential string)
}

// MemoryStore is a process local [Store].
type MemoryStore struct {
	mu         sync.Mutex
	credential string
	user       *User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(credential string, user *User) error {
	if credential == "" {
		return ErrEmptyCredential
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.credential = credential
	s.user = cloneUser(user)
	return nil
}

func (s *MemoryStore) Load() (string, *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.credential, cloneUser(s.user)
}

func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credential = ""
	s.user = nil
}

func (s *MemoryStore) ClearIf(credential string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.credential != credential {
		return
	}
	s.credential = ""
	s.user = nil
}

func cloneUser(user *User) *User {
	if user == nil {
		return nil
	}
	clone := *user
	if user.Extra != nil {
		clone.Extra = make(map[string]any, len(user.Extra))
		for k, v := range user.Extra {
			clone.Extra[k] = v
		}
	}
	return &clone
}

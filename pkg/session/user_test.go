package session_test

import (
	"encoding/json"
	"testing"

	"git.sr.ht/~jakintosh/craftcart-admin/pkg/session"
)

func TestUser_PreservesUnknownFields(t *testing.T) {
	t.Parallel()
	input := `{"_id":"u1","name":"Ada","email":"ada@craftcart.test","role":"admin","phone":"555","verified":true}`

	var user session.User
	if err := json.Unmarshal([]byte(input), &user); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if user.ID != "u1" || user.Name != "Ada" || user.Email != "ada@craftcart.test" || user.Role != "admin" {
		t.Errorf("known fields not decoded: %+v", user)
	}
	if user.Extra["phone"] != "555" || user.Extra["verified"] != true {
		t.Errorf("extra fields not kept: %+v", user.Extra)
	}

	// re-encoding produces the same object
	out, err := json.Marshal(user)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var want, got map[string]any
	_ = json.Unmarshal([]byte(input), &want)
	_ = json.Unmarshal(out, &got)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("field %s = %v, want %v", k, got[k], v)
		}
	}
}

func TestUser_KnownFieldsWinOverExtra(t *testing.T) {
	t.Parallel()
	user := session.User{Name: "Ada", Extra: map[string]any{"name": "shadow"}}

	out, err := json.Marshal(user)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(out) != `{"name":"Ada"}` {
		t.Errorf("Marshal = %s", out)
	}
}

func TestUser_DisplayName(t *testing.T) {
	t.Parallel()

	var nilUser *session.User
	if nilUser.DisplayName() != "" {
		t.Error("nil user should have empty display name")
	}
	if (&session.User{ID: "u1", Email: "a@b.c"}).DisplayName() != "a@b.c" {
		t.Error("expected email fallback")
	}
	if (&session.User{ID: "u1"}).DisplayName() != "u1" {
		t.Error("expected id fallback")
	}
}

package tui

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"git.sr.ht/~jakintosh/craftcart-admin/pkg/client"
	"git.sr.ht/~jakintosh/craftcart-admin/pkg/guard"
	"git.sr.ht/~jakintosh/craftcart-admin/pkg/guardtest"
	"git.sr.ht/~jakintosh/craftcart-admin/pkg/session"
	"git.sr.ht/~jakintosh/craftcart-admin/pkg/tokens"
)

type testEnv struct {
	backend *guardtest.Backend
	store   *session.MemoryStore
	app     App
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	issuer := tokens.NewIssuer([]byte("test-signing-key"), "api.craftcart.test")
	backend := guardtest.NewBackend(issuer, time.Hour)
	if err := backend.AddAccount("Ada", "ada@craftcart.test", "password123", "admin"); err != nil {
		t.Fatalf("failed to add admin: %v", err)
	}
	if err := backend.AddAccount("Bob", "bob@craftcart.test", "password123", "user"); err != nil {
		t.Fatalf("failed to add user: %v", err)
	}
	server := httptest.NewServer(backend.Handler())
	t.Cleanup(server.Close)

	c := client.New(server.URL)
	c.SetHTTPClient(server.Client())
	store := session.NewMemoryStore()
	a := NewApp(c, guard.New(store, guard.Config{}))
	a.width = 80
	a.height = 30

	return &testEnv{backend: backend, store: store, app: a}
}

func press(t *testing.T, a App, key string) (App, tea.Cmd) {
	t.Helper()
	var msg tea.KeyMsg
	switch key {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+c":
		msg = tea.KeyMsg{Type: tea.KeyCtrlC}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	model, cmd := a.Update(msg)
	return model.(App), cmd
}

// run executes cmd and feeds its message back, following any command the
// update returns.
func run(t *testing.T, a App, cmd tea.Cmd) App {
	t.Helper()
	for cmd != nil {
		msg := cmd()
		var model tea.Model
		model, cmd = a.Update(msg)
		a = model.(App)
	}
	return a
}

func login(t *testing.T, a App, email string) App {
	t.Helper()
	a, _ = press(t, a, "l")
	if a.screen() != screenLogin {
		t.Fatalf("expected login screen, got path %s", a.path)
	}
	a, _ = press(t, a, email)
	a, _ = press(t, a, "tab")
	a, _ = press(t, a, "password123")
	a, cmd := press(t, a, "enter")
	if cmd == nil {
		t.Fatal("expected login command on submit")
	}
	return run(t, a, cmd)
}

func TestApp_StartsHome(t *testing.T) {
	env := newTestEnv(t)
	if env.app.screen() != screenHome {
		t.Fatalf("expected home screen, got path %s", env.app.path)
	}
	if !strings.Contains(env.app.View(), "Craft-Cart Admin") {
		t.Error("expected header in view")
	}
}

func TestApp_DashboardWithoutSession(t *testing.T) {
	env := newTestEnv(t)

	a, _ := press(t, env.app, "d")
	if a.screen() != screenUnauthorized {
		t.Fatalf("expected unauthorized screen, got path %s", a.path)
	}
	if a.outcome.Reason != session.ReasonAbsentCredential {
		t.Errorf("reason = %s, want absent_credential", a.outcome.Reason)
	}
}

func TestApp_LoginAsAdmin(t *testing.T) {
	env := newTestEnv(t)

	a := login(t, env.app, "ada@craftcart.test")
	if a.screen() != screenDashboard {
		t.Fatalf("expected dashboard, got path %s (status %q)", a.path, a.login.statusMsg)
	}
	if credential, _ := env.store.Load(); credential == "" {
		t.Error("expected credential in store")
	}
	if !strings.Contains(a.View(), "Ada") {
		t.Error("expected display name in header")
	}
}

func TestApp_LoginAsNonAdmin(t *testing.T) {
	env := newTestEnv(t)

	a := login(t, env.app, "bob@craftcart.test")
	if a.screen() != screenUnauthorized {
		t.Fatalf("expected unauthorized, got path %s", a.path)
	}
	if a.outcome.Reason != session.ReasonRoleMismatch {
		t.Errorf("reason = %s, want role_mismatch", a.outcome.Reason)
	}
	if credential, user := env.store.Load(); credential != "" || user != nil {
		t.Error("expected store cleared after role mismatch")
	}
}

func TestApp_LoginWrongPassword(t *testing.T) {
	env := newTestEnv(t)

	a, _ := press(t, env.app, "l")
	a, _ = press(t, a, "ada@craftcart.test")
	a, _ = press(t, a, "tab")
	a, _ = press(t, a, "nope")
	a, cmd := press(t, a, "enter")
	a = run(t, a, cmd)

	if a.screen() != screenLogin {
		t.Fatalf("expected to stay on login, got path %s", a.path)
	}
	if a.login.statusMsg != "invalid email or password" {
		t.Errorf("statusMsg = %q", a.login.statusMsg)
	}
	if a.login.fields[fieldPassword] != "" {
		t.Error("expected password field cleared")
	}
}

func TestApp_LoginRequiresFields(t *testing.T) {
	env := newTestEnv(t)

	a, _ := press(t, env.app, "l")
	a, _ = press(t, a, "tab")
	a, cmd := press(t, a, "enter")
	if cmd != nil {
		t.Fatal("expected no command for empty form")
	}
	if a.login.statusMsg == "" {
		t.Error("expected validation message")
	}
}

func TestApp_OpenResourceAndDelete(t *testing.T) {
	env := newTestEnv(t)
	a := login(t, env.app, "ada@craftcart.test")

	// products is the second resource
	a, _ = press(t, a, "j")
	a, cmd := press(t, a, "enter")
	if a.screen() != screenResource || a.resource.name != "products" {
		t.Fatalf("expected products screen, got path %s", a.path)
	}
	a = run(t, a, cmd)
	if len(a.resource.records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(a.resource.records))
	}

	a, _ = press(t, a, "j")
	a, cmd = press(t, a, "x")
	a = run(t, a, cmd)
	if len(a.resource.records) != 1 || a.resource.records[0].ID() != "products-1" {
		t.Errorf("unexpected records after delete: %v", a.resource.records)
	}
	if n := len(env.backend.Records("products")); n != 1 {
		t.Errorf("backend has %d products, want 1", n)
	}
}

func TestApp_BackendRejectsCredential(t *testing.T) {
	env := newTestEnv(t)

	// admitted locally, refused by the backend
	guardtest.Seed(env.store, guardtest.ValidAdmin(time.Hour))
	a, cmd := env.app.navigate("/admin/orders")
	if a.screen() != screenResource {
		t.Fatalf("expected resource screen, got path %s", a.path)
	}
	a = run(t, a, cmd)

	if a.screen() != screenUnauthorized {
		t.Fatalf("expected unauthorized after backend 401, got path %s", a.path)
	}
	if credential, _ := env.store.Load(); credential != "" {
		t.Error("expected store cleared")
	}
}

func TestApp_BackRechecksGuard(t *testing.T) {
	env := newTestEnv(t)
	a := login(t, env.app, "ada@craftcart.test")

	a, cmd := press(t, a, "enter")
	a = run(t, a, cmd)

	// session disappears while a resource is on screen
	env.store.Clear()
	a, _ = press(t, a, "esc")
	if a.screen() != screenUnauthorized {
		t.Fatalf("expected back to re-check and deny, got path %s", a.path)
	}
}

func TestApp_Logout(t *testing.T) {
	env := newTestEnv(t)
	a := login(t, env.app, "ada@craftcart.test")

	a, _ = press(t, a, "o")
	if a.screen() != screenLogin {
		t.Fatalf("expected login screen, got path %s", a.path)
	}
	if credential, _ := env.store.Load(); credential != "" {
		t.Error("expected store cleared on logout")
	}

	// history was reset, so there is nothing to go back to
	a, _ = press(t, a, "esc")
	if a.screen() != screenLogin {
		t.Errorf("expected to stay on login, got path %s", a.path)
	}
}

func TestApp_QuitKeys(t *testing.T) {
	env := newTestEnv(t)

	if _, cmd := press(t, env.app, "q"); cmd == nil {
		t.Error("expected quit command on 'q'")
	}
	if _, cmd := press(t, env.app, "ctrl+c"); cmd == nil {
		t.Error("expected quit command on ctrl+c")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdef", 4); got != "abc…" {
		t.Errorf("truncate = %q, want abc…", got)
	}
	if got := truncate("abc", 10); got != "abc" {
		t.Errorf("truncate = %q, want abc", got)
	}
}

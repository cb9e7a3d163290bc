// Package testutil provides test environment setup and utilities for internal package tests.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"git.sr.ht/~jakintosh/craftcart-admin/internal/app"
	"git.sr.ht/~jakintosh/craftcart-admin/internal/obs"
	"git.sr.ht/~jakintosh/craftcart-admin/internal/resources"
	"git.sr.ht/~jakintosh/craftcart-admin/internal/routing"
	"git.sr.ht/~jakintosh/craftcart-admin/pkg/client"
	"git.sr.ht/~jakintosh/craftcart-admin/pkg/guard"
	"git.sr.ht/~jakintosh/craftcart-admin/pkg/guardtest"
	"git.sr.ht/~jakintosh/craftcart-admin/pkg/session"
	"git.sr.ht/~jakintosh/craftcart-admin/pkg/tokens"
)

const (
	AdminEmail = "ada@craftcart.test"
	UserEmail  = "bob@craftcart.test"
	Password   = "password123"
)

var (
	sharedTemplates     *resources.Templates
	sharedTemplatesErr  error
	sharedTemplatesOnce sync.Once
)

// getSharedTemplates parses the embedded templates once across all tests.
func getSharedTemplates(t *testing.T) *resources.Templates {
	t.Helper()
	sharedTemplatesOnce.Do(func() {
		sharedTemplates, sharedTemplatesErr = resources.NewEmbeddedTemplates()
	})
	if sharedTemplatesErr != nil {
		t.Fatalf("failed to load templates: %v", sharedTemplatesErr)
	}
	return sharedTemplates
}

// TestEnv provides all dependencies needed for testing
type TestEnv struct {
	Backend *guardtest.Backend
	Issuer  *tokens.Issuer
	Store   *session.MemoryStore
	Guard   *guard.Guard
	Client  *client.Client
	App     *app.App
	Metrics *obs.Metrics
	Router  http.Handler
}

// SetupTestEnv creates an isolated environment: a fake backend with one
// admin and one plain user, an in memory store, and the console app.
func SetupTestEnv(
	t *testing.T,
) *TestEnv {
	t.Helper()
	return SetupTestEnvWithOptions(t, app.Options{})
}

func SetupTestEnvWithOptions(
	t *testing.T,
	options app.Options,
) *TestEnv {
	t.Helper()

	issuer := tokens.NewIssuer([]byte("test-signing-key"), "api.craftcart.test")
	backend := guardtest.NewBackend(issuer, time.Hour)
	if err := backend.AddAccount("Ada", AdminEmail, Password, "admin"); err != nil {
		t.Fatalf("failed to add admin account: %v", err)
	}
	if err := backend.AddAccount("Bob", UserEmail, Password, "user"); err != nil {
		t.Fatalf("failed to add user account: %v", err)
	}

	server := httptest.NewServer(backend.Handler())
	t.Cleanup(server.Close)

	api := client.New(server.URL)
	api.SetHTTPClient(server.Client())

	metrics := obs.NewMetrics()
	store := session.NewMemoryStore()
	g := guard.New(store, guard.Config{OnResolve: metrics.ObserveGuard})
	a := app.New(g, api, getSharedTemplates(t), options)

	return &TestEnv{
		Backend: backend,
		Issuer:  issuer,
		Store:   store,
		Guard:   g,
		Client:  api,
		App:     a,
		Metrics: metrics,
	}
}

// SetupTestEnvWithRouter creates TestEnv and configures the console router
func SetupTestEnvWithRouter(
	t *testing.T,
) *TestEnv {
	t.Helper()
	env := SetupTestEnv(t)
	env.Router = routing.BuildRouter(env.App, env.Guard, env.Metrics)
	return env
}

// LoginAs submits the login form for email and expects the redirect to /admin.
func (env *TestEnv) LoginAs(
	t *testing.T,
	email string,
) {
	t.Helper()
	form := url.Values{"email": {email}, "password": {Password}}
	result := PostForm(env.Router, "/login", form, nil)
	location := ExpectRedirect(t, result)
	if location != "/admin" {
		t.Fatalf("login redirected to %s, want /admin", location)
	}
}

// IssueCredential signs a credential the fake backend will accept.
func (env *TestEnv) IssueCredential(
	t *testing.T,
	role string,
	lifetime time.Duration,
) string {
	t.Helper()
	credential, _, err := env.Issuer.Issue("u-1", role, lifetime)
	if err != nil {
		t.Fatalf("failed to issue test credential: %v", err)
	}
	return credential
}

// ExpectStoreEmpty fails if a credential or user is still stored.
func (env *TestEnv) ExpectStoreEmpty(
	t *testing.T,
) {
	t.Helper()
	if credential, user := env.Store.Load(); credential != "" || user != nil {
		t.Fatalf("expected empty store, got credential=%q user=%v", credential, user)
	}
}

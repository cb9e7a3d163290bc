package guard

import (
	"time"

	"git.sr.ht/~jakintosh/craftcart-admin/pkg/session"
	"git.sr.ht/~jakintosh/craftcart-admin/pkg/tokens"
)

const (
	DefaultRequiredRole     = "admin"
	DefaultUnauthorizedPath = "/unauthorized"
)

type Config struct {
	RequiredRole     string
	UnauthorizedPath string

	// Clock is sampled once per evaluation. Defaults to time.Now.
	Clock func() time.Time

	// OnResolve, if set, sees every resolved outcome (metrics, audit).
	OnResolve func(Outcome)
}

// Outcome is the resolved state of one evaluation. Credential, Claims and
// User are only set when State is Authorized.
type Outcome struct {
	State      session.State
	Reason     session.Reason
	Credential string
	Claims     *tokens.Claims
	User       *session.User
}

func (o Outcome) Authorized() bool {
	return o.State == session.Authorized
}

// Err returns nil when authorized and the deny [session.Reason] otherwise.
func (o Outcome) Err() error {
	return session.Result{State: o.State, Reason: o.Reason}.Err()
}

type Guard struct {
	store  session.Store
	config Config
}

func New(store session.Store, config Config) *Guard {
	if config.RequiredRole == "" {
		config.RequiredRole = DefaultRequiredRole
	}
	if config.UnauthorizedPath == "" {
		config.UnauthorizedPath = DefaultUnauthorizedPath
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}
	return &Guard{store: store, config: config}
}

func (g *Guard) RequiredRole() string {
	return g.config.RequiredRole
}

func (g *Guard) UnauthorizedPath() string {
	return g.config.UnauthorizedPath
}

func (g *Guard) Store() session.Store {
	return g.store
}

// Evaluate resolves the stored session against the guard's policy. Any
// unauthorized outcome clears the credential it rejected; a session saved
// in the meantime is left alone.
func (g *Guard) Evaluate() Outcome {
	outcome := g.evaluate()
	if !outcome.Authorized() {
		_log(LogLevelInfo, "guard: unauthorized (%s)\n", outcome.Reason.String())
	}
	if g.config.OnResolve != nil {
		g.config.OnResolve(outcome)
	}
	return outcome
}

// Peek resolves the stored session like [Guard.Evaluate] but never clears
// the store or notifies OnResolve. It suits pages that only display state.
func (g *Guard) Peek() Outcome {
	credential, user := g.store.Load()
	outcome, _ := g.resolve(credential, user)
	return outcome
}

func (g *Guard) evaluate() Outcome {
	credential, user := g.store.Load()
	outcome, stale := g.resolve(credential, user)
	if stale {
		g.store.ClearIf(credential)
	}
	return outcome
}

// resolve reports whether the loaded pair should be cleared.
func (g *Guard) resolve(credential string, user *session.User) (Outcome, bool) {
	if credential == "" {
		// a dangling user record goes as well
		return deny(session.ReasonAbsentCredential), user != nil
	}

	claims, err := tokens.Decode(credential)
	if err != nil {
		_log(LogLevelDebug, "guard: %v\n", err)
		return deny(session.ReasonMalformedToken), true
	}

	result := session.Validate(claims, g.config.RequiredRole, g.config.Clock())
	if !result.Authorized() {
		return deny(result.Reason), true
	}

	return Outcome{
		State:      session.Authorized,
		Credential: credential,
		Claims:     claims,
		User:       user,
	}, false
}

func deny(reason session.Reason) Outcome {
	return Outcome{State: session.Unauthorized, Reason: reason}
}

// Package app serves the admin console pages. Public pages (home, login,
// signup, password reset, unauthorized) are plain handlers; admin pages
// expect to run behind [guard.Guard.Middleware] and read the authorized
// outcome from the request context.
package app

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"git.sr.ht/~jakintosh/craftcart-admin/pkg/client"
	"git.sr.ht/~jakintosh/craftcart-admin/pkg/guard"
	"git.sr.ht/~jakintosh/craftcart-admin/pkg/session"
	"golang.org/x/time/rate"
)

const serverErrorHTML = `<!DOCTYPE html>
<html><head><title>Server Error</title></head>
<body><h1>Something went wrong</h1><p>Please try again later.</p></body></html>`

const badRequestHTML = `<!DOCTYPE html>
<html><head><title>Bad Request</title></head>
<body><h1>Bad request</h1><p>The request could not be understood.</p></body></html>`

const notFoundHTML = `<!DOCTYPE html>
<html><head><title>Not Found</title></head>
<body><h1>Not found</h1><p><a href="/admin">Back to dashboard</a></p></body></html>`

// Renderer executes a named page template.
type Renderer interface {
	Render(w io.Writer, name string, data any) error
}

type Options struct {
	// LoginRate is the sustained number of login attempts allowed per
	// second. Zero or less disables the limit.
	LoginRate  float64
	LoginBurst int
}

type App struct {
	guard     *guard.Guard
	store     session.Store
	api       *client.Client
	templates Renderer
	limiter   *rate.Limiter
}

func New(
	g *guard.Guard,
	api *client.Client,
	templates Renderer,
	options Options,
) *App {
	limit := rate.Inf
	if options.LoginRate > 0 {
		limit = rate.Limit(options.LoginRate)
	}
	burst := options.LoginBurst
	if burst < 1 {
		burst = 1
	}
	return &App{
		guard:     g,
		store:     g.Store(),
		api:       api,
		templates: templates,
		limiter:   rate.NewLimiter(limit, burst),
	}
}

type page struct {
	Title     string
	User      *session.User
	Error     string
	Message   string
	Form      map[string]string
	Resources []string

	// admin pages
	ExpiresAt int64
	Resource  string
	Columns   []string
	Records   []client.Record

	ResetToken string
}

func (a *App) render(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	name string,
	model page,
) {
	if a.templates == nil {
		logAppErr(r, "templates are invalid")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(serverErrorHTML))
		return
	}

	var buf bytes.Buffer
	if err := a.templates.Render(&buf, name, model); err != nil {
		logAppErr(r, fmt.Sprintf("couldn't render template: %v", err))
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(serverErrorHTML))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// expireSession handles a backend 401 on an admin call: the stored session
// is no longer accepted upstream, so it is dropped locally as well, unless a
// newer login already replaced it.
func (a *App) expireSession(w http.ResponseWriter, r *http.Request, credential string) {
	logAppErr(r, "backend rejected credential, clearing session")
	a.store.ClearIf(credential)
	http.Redirect(w, r, a.guard.UnauthorizedPath(), http.StatusSeeOther)
}

// validateModel reads the named form fields, failing if any is empty.
// Values are returned even on failure so forms can be refilled.
func validateModel(r *http.Request, schema []string) (map[string]string, error) {
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("bad form: %v", err)
	}

	model := make(map[string]string, len(schema))
	var missing []string
	for _, field := range schema {
		value := r.PostForm.Get(field)
		if field != "password" {
			value = strings.TrimSpace(value)
		}
		if value == "" {
			missing = append(missing, field)
		}
		model[field] = value
	}
	if len(missing) > 0 {
		return model, fmt.Errorf("missing %s", strings.Join(missing, ", "))
	}
	return model, nil
}

// refill drops secrets from a submitted form before echoing it back.
func refill(model map[string]string) map[string]string {
	form := make(map[string]string, len(model))
	for k, v := range model {
		if k != "password" {
			form[k] = v
		}
	}
	return form
}

// backendFailure picks the status and message shown for a failed API call.
// Client errors pass through with the backend's message; anything else is
// reported as a bad gateway.
func backendFailure(err error) (int, string) {
	var httpErr *client.HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode >= 400 && httpErr.StatusCode < 500 {
		msg := httpErr.Message
		if msg == "" {
			msg = http.StatusText(httpErr.StatusCode)
		}
		return httpErr.StatusCode, msg
	}
	return http.StatusBadGateway, "The Craft-Cart API is unavailable."
}

func logAppErr(r *http.Request, msg string) {
	log.Printf("%s %s: %s\n", r.Method, r.RequestURI, msg)
}

package guard

import (
	"context"
	"net/http"
)

type outcomeContextKey struct{}

// FromContext returns the outcome [Guard.Middleware] attached to an
// authorized request.
func FromContext(ctx context.Context) (Outcome, bool) {
	outcome, ok := ctx.Value(outcomeContextKey{}).(Outcome)
	return outcome, ok
}

// Middleware evaluates the guard for every request. Unauthorized requests
// are redirected with 303 See Other to the unauthorized path; the store has
// already been cleared by then.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		outcome := g.Evaluate()
		if !outcome.Authorized() {
			http.Redirect(w, r, g.config.UnauthorizedPath, http.StatusSeeOther)
			return
		}

		// guarded pages must not be served from history or caches
		w.Header().Set("Cache-Control", "no-store")

		ctx := context.WithValue(r.Context(), outcomeContextKey{}, outcome)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

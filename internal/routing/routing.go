// Package routing assembles the console's HTTP surface.
package routing

import (
	"git.sr.ht/~jakintosh/craftcart-admin/internal/app"
	"git.sr.ht/~jakintosh/craftcart-admin/internal/obs"
	"git.sr.ht/~jakintosh/craftcart-admin/pkg/guard"
	"github.com/gorilla/mux"
)

// BuildRouter mounts the public pages at the root and every admin page
// under /admin behind the guard. metrics may be nil.
func BuildRouter(
	a *app.App,
	g *guard.Guard,
	metrics *obs.Metrics,
) *mux.Router {
	r := mux.NewRouter()
	r.Use(obs.AccessLog)
	if metrics != nil {
		r.Use(metrics.Instrument)
		r.Handle("/metrics", metrics.Handler()).Methods("GET")
	}

	// public
	r.HandleFunc("/", a.Home()).Methods("GET")
	r.HandleFunc("/login", a.LoginPage()).Methods("GET")
	r.HandleFunc("/login", a.Login()).Methods("POST")
	r.HandleFunc("/logout", a.Logout()).Methods("POST")
	r.HandleFunc("/signup", a.SignupPage()).Methods("GET")
	r.HandleFunc("/signup", a.Signup()).Methods("POST")
	r.HandleFunc("/forgot-password", a.ForgotPage()).Methods("GET")
	r.HandleFunc("/forgot-password", a.Forgot()).Methods("POST")
	r.HandleFunc("/reset-password/{token}", a.ResetPage()).Methods("GET")
	r.HandleFunc("/reset-password/{token}", a.Reset()).Methods("POST")
	r.HandleFunc(g.UnauthorizedPath(), a.Unauthorized()).Methods("GET")

	// guarded
	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(g.Middleware)
	admin.HandleFunc("", a.Dashboard()).Methods("GET")
	admin.HandleFunc("/{resource}", a.Resource()).Methods("GET")
	admin.HandleFunc("/{resource}/{id}/delete", a.DeleteRecord()).Methods("POST")

	return r
}

package app

import (
	"errors"
	"fmt"
	"net/http"

	"git.sr.ht/~jakintosh/craftcart-admin/pkg/client"
	"github.com/gorilla/mux"
)

var (
	loginSchema  = []string{"email", "password"}
	signupSchema = []string{"email", "password"}
	forgotSchema = []string{"email"}
	resetSchema  = []string{"password"}
)

// Home greets an admitted session. It peeks at the guard, so a stale
// session is only cleared once /admin is visited.
func (a *App) Home() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		model := page{Title: "Home"}
		if outcome := a.guard.Peek(); outcome.Authorized() {
			model.User = outcome.User
		}
		a.render(w, r, http.StatusOK, "home.html", model)
	}
}

func (a *App) LoginPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.render(w, r, http.StatusOK, "login.html", page{Title: "Log in"})
	}
}

// Login forwards the credentials to the backend and, on success, stores the
// returned credential and user record before sending the browser to /admin.
// Whether the session is actually admitted is left to the guard.
func (a *App) Login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		model := page{Title: "Log in"}

		if !a.limiter.Allow() {
			logAppErr(r, "login rate limit exceeded")
			model.Error = "Too many login attempts. Try again shortly."
			a.render(w, r, http.StatusTooManyRequests, "login.html", model)
			return
		}

		form, err := validateModel(r, loginSchema)
		model.Form = refill(form)
		if err != nil {
			logAppErr(r, fmt.Sprintf("couldn't build page model: %v", err))
			model.Error = "Email and password are required."
			a.render(w, r, http.StatusBadRequest, "login.html", model)
			return
		}

		res, err := a.api.Login(r.Context(), form["email"], form["password"])
		if errors.Is(err, client.ErrUnauthorized) {
			logAppErr(r, fmt.Sprintf("'%s' failed to authenticate", form["email"]))
			model.Error = "Invalid email or password."
			a.render(w, r, http.StatusUnauthorized, "login.html", model)
			return
		}
		if err != nil {
			logAppErr(r, fmt.Sprintf("login failed: %v", err))
			status, msg := backendFailure(err)
			model.Error = msg
			a.render(w, r, status, "login.html", model)
			return
		}

		if err := a.store.Save(res.Token, &res.User); err != nil {
			logAppErr(r, fmt.Sprintf("couldn't store session: %v", err))
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(serverErrorHTML))
			return
		}

		http.Redirect(w, r, "/admin", http.StatusSeeOther)
	}
}

func (a *App) Logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.store.Clear()
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	}
}

func (a *App) SignupPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.render(w, r, http.StatusOK, "signup.html", page{Title: "Sign up"})
	}
}

func (a *App) Signup() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		model := page{Title: "Sign up"}

		form, err := validateModel(r, signupSchema)
		name := r.PostForm.Get("name")
		model.Form = refill(form)
		if model.Form != nil {
			model.Form["name"] = name
		}
		if err != nil {
			logAppErr(r, fmt.Sprintf("couldn't build page model: %v", err))
			model.Error = "Email and password are required."
			a.render(w, r, http.StatusBadRequest, "signup.html", model)
			return
		}

		msg, err := a.api.Signup(r.Context(), client.SignupRequest{
			Name:     name,
			Email:    form["email"],
			Password: form["password"],
		})
		if err != nil {
			logAppErr(r, fmt.Sprintf("signup failed: %v", err))
			status, errMsg := backendFailure(err)
			model.Error = errMsg
			a.render(w, r, status, "signup.html", model)
			return
		}

		if msg == "" {
			msg = "Account created."
		}
		a.render(w, r, http.StatusOK, "login.html", page{
			Title:   "Log in",
			Message: msg + " Log in to continue.",
			Form:    map[string]string{"email": form["email"]},
		})
	}
}

func (a *App) ForgotPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.render(w, r, http.StatusOK, "forgot.html", page{Title: "Forgot password"})
	}
}

func (a *App) Forgot() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		model := page{Title: "Forgot password"}

		form, err := validateModel(r, forgotSchema)
		model.Form = refill(form)
		if err != nil {
			model.Error = "Email is required."
			a.render(w, r, http.StatusBadRequest, "forgot.html", model)
			return
		}

		msg, err := a.api.ForgotPassword(r.Context(), form["email"])
		if err != nil {
			logAppErr(r, fmt.Sprintf("forgot password failed: %v", err))
			status, errMsg := backendFailure(err)
			model.Error = errMsg
			a.render(w, r, status, "forgot.html", model)
			return
		}

		if msg == "" {
			msg = "Check your email for a reset link."
		}
		model.Message = msg
		a.render(w, r, http.StatusOK, "forgot.html", model)
	}
}

func (a *App) ResetPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.render(w, r, http.StatusOK, "reset.html", page{
			Title:      "Reset password",
			ResetToken: mux.Vars(r)["token"],
		})
	}
}

func (a *App) Reset() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resetToken := mux.Vars(r)["token"]
		model := page{Title: "Reset password", ResetToken: resetToken}

		form, err := validateModel(r, resetSchema)
		if err != nil {
			model.Error = "A new password is required."
			a.render(w, r, http.StatusBadRequest, "reset.html", model)
			return
		}

		if _, err := a.api.ResetPassword(r.Context(), resetToken, form["password"]); err != nil {
			logAppErr(r, fmt.Sprintf("reset password failed: %v", err))
			status, errMsg := backendFailure(err)
			model.Error = errMsg
			a.render(w, r, status, "reset.html", model)
			return
		}

		a.render(w, r, http.StatusOK, "login.html", page{
			Title:   "Log in",
			Message: "Password updated. Log in with your new password.",
		})
	}
}

// Unauthorized is the single landing page for every denied navigation.
func (a *App) Unauthorized() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.render(w, r, http.StatusOK, "unauthorized.html", page{Title: "Unauthorized"})
	}
}

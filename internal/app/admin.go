package app

import (
	"errors"
	"fmt"
	"net/http"
	"sort"

	"git.sr.ht/~jakintosh/craftcart-admin/pkg/client"
	"git.sr.ht/~jakintosh/craftcart-admin/pkg/guard"
	"github.com/gorilla/mux"
)

// authorized returns the outcome the guard attached to r. Admin handlers
// mounted without the guard fail closed.
func (a *App) authorized(w http.ResponseWriter, r *http.Request) (guard.Outcome, bool) {
	outcome, ok := guard.FromContext(r.Context())
	if !ok || !outcome.Authorized() {
		logAppErr(r, "admin page reached without an authorized session")
		http.Redirect(w, r, a.guard.UnauthorizedPath(), http.StatusSeeOther)
		return guard.Outcome{}, false
	}
	return outcome, true
}

func (a *App) Dashboard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		outcome, ok := a.authorized(w, r)
		if !ok {
			return
		}

		a.render(w, r, http.StatusOK, "dashboard.html", page{
			Title:     "Dashboard",
			User:      outcome.User,
			Resources: client.Resources,
			ExpiresAt: outcome.Claims.Expiration,
		})
	}
}

func (a *App) Resource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		outcome, ok := a.authorized(w, r)
		if !ok {
			return
		}

		resource := mux.Vars(r)["resource"]
		if !client.IsResource(resource) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(notFoundHTML))
			return
		}

		a.renderResource(w, r, outcome, resource, http.StatusOK, "")
	}
}

func (a *App) DeleteRecord() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		outcome, ok := a.authorized(w, r)
		if !ok {
			return
		}

		vars := mux.Vars(r)
		resource, id := vars["resource"], vars["id"]
		if !client.IsResource(resource) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(notFoundHTML))
			return
		}

		err := a.api.Delete(r.Context(), outcome.Credential, resource, id)
		if errors.Is(err, client.ErrUnauthorized) {
			a.expireSession(w, r, outcome.Credential)
			return
		}
		if err != nil {
			logAppErr(r, fmt.Sprintf("couldn't delete %s/%s: %v", resource, id, err))
			status, msg := backendFailure(err)
			a.renderResource(w, r, outcome, resource, status, msg)
			return
		}

		http.Redirect(w, r, "/admin/"+resource, http.StatusSeeOther)
	}
}

// renderResource lists resource. A non-empty notice is shown as an error
// above the table.
func (a *App) renderResource(
	w http.ResponseWriter,
	r *http.Request,
	outcome guard.Outcome,
	resource string,
	status int,
	notice string,
) {
	model := page{
		Title:    resource,
		User:     outcome.User,
		Resource: resource,
		Error:    notice,
	}

	records, err := a.api.List(r.Context(), outcome.Credential, resource)
	if errors.Is(err, client.ErrUnauthorized) {
		a.expireSession(w, r, outcome.Credential)
		return
	}
	if err != nil {
		logAppErr(r, fmt.Sprintf("couldn't list %s: %v", resource, err))
		status, msg := backendFailure(err)
		model.Error = msg
		a.render(w, r, status, "resource.html", model)
		return
	}

	model.Records = records
	model.Columns = columnsOf(records)
	a.render(w, r, status, "resource.html", model)
}

// columnsOf returns the union of record keys, identifier first, the rest
// sorted.
func columnsOf(records []client.Record) []string {
	seen := make(map[string]bool)
	var columns []string
	for _, record := range records {
		for key := range record {
			if key == "_id" || key == "__v" || seen[key] {
				continue
			}
			seen[key] = true
			columns = append(columns, key)
		}
	}
	sort.Strings(columns)

	for _, record := range records {
		if _, ok := record["_id"]; ok {
			return append([]string{"_id"}, columns...)
		}
	}
	return columns
}

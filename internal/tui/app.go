// Package tui is the terminal rendition of the admin console. Every screen
// change is a navigation through a [guard.Navigator], so admin screens are
// re-checked each time they are entered, the same as the HTTP console.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"git.sr.ht/~jakintosh/craftcart-admin/pkg/client"
	"git.sr.ht/~jakintosh/craftcart-admin/pkg/guard"
	"git.sr.ht/~jakintosh/craftcart-admin/pkg/session"
)

const (
	pathHome      = "/"
	pathLogin     = "/login"
	pathDashboard = "/admin"
)

type screen int

const (
	screenHome screen = iota
	screenLogin
	screenDashboard
	screenResource
	screenUnauthorized
)

// recordsLoadedMsg carries the result of listing a resource.
type recordsLoadedMsg struct {
	resource string
	records  []client.Record
	err      error
}

// recordDeletedMsg carries the result of deleting one record.
type recordDeletedMsg struct {
	resource string
	id       string
	err      error
}

// App is the root Bubbletea model.
type App struct {
	client  *client.Client
	guard   *guard.Guard
	nav     *guard.Navigator
	path    string
	outcome guard.Outcome

	login    loginModel
	cursor   int // dashboard selection
	resource resourceModel

	statusMsg string
	width     int
	height    int
}

// NewApp creates the console on the home screen. Paths under /admin are
// guarded.
func NewApp(c *client.Client, g *guard.Guard) App {
	a := App{
		client: c,
		guard:  g,
		nav:    guard.NewNavigator(g, guard.PrefixGuarded(pathDashboard)),
		login:  newLoginModel(c),
	}
	a.path, a.outcome = a.nav.Navigate(pathHome)
	return a
}

func (a App) Init() tea.Cmd {
	return nil
}

func (a App) screen() screen {
	switch {
	case a.path == pathLogin:
		return screenLogin
	case a.path == a.guard.UnauthorizedPath():
		return screenUnauthorized
	case a.path == pathDashboard:
		return screenDashboard
	case strings.HasPrefix(a.path, pathDashboard+"/"):
		return screenResource
	default:
		return screenHome
	}
}

// navigate moves to path and starts whatever loading the landed screen needs.
func (a App) navigate(path string) (App, tea.Cmd) {
	a.path, a.outcome = a.nav.Navigate(path)
	return a.entered()
}

func (a App) back() (App, tea.Cmd) {
	path, outcome, ok := a.nav.Back()
	if !ok {
		return a, nil
	}
	a.path, a.outcome = path, outcome
	return a.entered()
}

func (a App) entered() (App, tea.Cmd) {
	a.statusMsg = ""
	switch a.screen() {
	case screenLogin:
		a.login = newLoginModel(a.client)
	case screenResource:
		name := strings.TrimPrefix(a.path, pathDashboard+"/")
		a.resource = newResourceModel(name)
		return a, a.loadRecords(name)
	}
	return a, nil
}

func (a App) loadRecords(resource string) tea.Cmd {
	c := a.client
	credential := a.outcome.Credential
	return func() tea.Msg {
		records, err := c.List(context.Background(), credential, resource)
		return recordsLoadedMsg{resource: resource, records: records, err: err}
	}
}

func (a App) deleteRecord(resource, id string) tea.Cmd {
	c := a.client
	credential := a.outcome.Credential
	return func() tea.Msg {
		err := c.Delete(context.Background(), credential, resource, id)
		return recordDeletedMsg{resource: resource, id: id, err: err}
	}
}

// expire drops a session the backend refused and lands on the unauthorized
// screen.
func (a App) expire() (App, tea.Cmd) {
	a.guard.Store().ClearIf(a.outcome.Credential)
	return a.navigate(a.guard.UnauthorizedPath())
}

func (a App) logout() (App, tea.Cmd) {
	a.guard.Store().Clear()
	a.nav.Reset()
	return a.navigate(pathLogin)
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case loginResultMsg:
		var cmd tea.Cmd
		a.login, cmd = a.login.Update(msg)
		if msg.err != nil {
			return a, cmd
		}
		if err := a.guard.Store().Save(msg.res.Token, &msg.res.User); err != nil {
			a.login.statusMsg = fmt.Sprintf("couldn't store session: %v", err)
			return a, nil
		}
		return a.navigate(pathDashboard)

	case recordsLoadedMsg:
		if a.screen() != screenResource || msg.resource != a.resource.name {
			return a, nil
		}
		if errors.Is(msg.err, client.ErrUnauthorized) {
			return a.expire()
		}
		a.resource = a.resource.loaded(msg.records, msg.err)
		return a, nil

	case recordDeletedMsg:
		if errors.Is(msg.err, client.ErrUnauthorized) {
			return a.expire()
		}
		if msg.err != nil {
			a.statusMsg = fmt.Sprintf("couldn't delete %s: %v", msg.id, msg.err)
			return a, nil
		}
		a.statusMsg = fmt.Sprintf("deleted %s", msg.id)
		if a.screen() == screenResource && msg.resource == a.resource.name {
			return a, a.loadRecords(msg.resource)
		}
		return a, nil

	case tea.KeyMsg:
		return a.updateKeys(msg)
	}
	return a, nil
}

func (a App) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return a, tea.Quit
	}

	// the login form takes every other key
	if a.screen() == screenLogin {
		if key == "esc" {
			return a.back()
		}
		var cmd tea.Cmd
		a.login, cmd = a.login.Update(msg)
		return a, cmd
	}

	switch key {
	case "q":
		return a, tea.Quit
	case "esc", "backspace":
		return a.back()
	}

	switch a.screen() {
	case screenHome, screenUnauthorized:
		switch key {
		case "l":
			return a.navigate(pathLogin)
		case "d", "enter":
			return a.navigate(pathDashboard)
		}

	case screenDashboard:
		switch key {
		case "j", "down":
			if a.cursor < len(client.Resources)-1 {
				a.cursor++
			}
		case "k", "up":
			if a.cursor > 0 {
				a.cursor--
			}
		case "enter":
			return a.navigate(pathDashboard + "/" + client.Resources[a.cursor])
		case "o":
			return a.logout()
		}

	case screenResource:
		switch key {
		case "j", "down", "k", "up":
			a.resource = a.resource.move(key)
		case "r":
			a.resource.loading = true
			return a, a.loadRecords(a.resource.name)
		case "x":
			if id := a.resource.selectedID(); id != "" {
				a.statusMsg = fmt.Sprintf("deleting %s...", id)
				return a, a.deleteRecord(a.resource.name, id)
			}
		case "o":
			return a.logout()
		}
	}
	return a, nil
}

func (a App) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(a.header()))
	b.WriteString("\n\n")

	switch a.screen() {
	case screenHome:
		b.WriteString("Administrators manage users, products, orders and storefront content here.\n\n")
		b.WriteString(metaStyle.Render("l log in · d dashboard · q quit"))

	case screenLogin:
		b.WriteString(titleStyle.Render("Log in"))
		b.WriteString("\n\n")
		b.WriteString(a.login.View())
		b.WriteString("\n\n")
		b.WriteString(metaStyle.Render("tab switch field · enter submit · esc back"))

	case screenUnauthorized:
		b.WriteString(errorStyle.Render("Unauthorized"))
		b.WriteString("\n\nYour session is missing, expired, or does not have administrator access.\n\n")
		b.WriteString(metaStyle.Render("l log in · esc back · q quit"))

	case screenDashboard:
		b.WriteString(titleStyle.Render("Dashboard"))
		b.WriteString("\n\n")
		for i, name := range client.Resources {
			if i == a.cursor {
				b.WriteString(selectedStyle.Render("> " + name))
			} else {
				b.WriteString("  " + name)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(metaStyle.Render("j/k move · enter open · o log out · q quit"))

	case screenResource:
		b.WriteString(a.resource.View(a.width))
		b.WriteString("\n")
		b.WriteString(metaStyle.Render("j/k move · x delete · r reload · esc back · o log out"))
	}

	if a.statusMsg != "" {
		b.WriteString("\n")
		b.WriteString(dimStyle.Render(a.statusMsg))
	}
	return b.String()
}

func (a App) header() string {
	title := titleStyle.Render("Craft-Cart Admin")
	if a.outcome.Authorized() && a.outcome.User != nil {
		return title + "  " + metaStyle.Render(a.outcome.User.DisplayName())
	}
	if a.outcome.State == session.Unauthorized {
		return title + "  " + dimStyle.Render("signed out")
	}
	return title
}

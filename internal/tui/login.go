package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"git.sr.ht/~jakintosh/craftcart-admin/pkg/client"
)

type loginField int

const (
	fieldEmail loginField = iota
	fieldPassword
	numLoginFields
)

type loginModel struct {
	client    *client.Client
	fields    [numLoginFields]string
	focus     loginField
	statusMsg string
	submitted bool
}

// loginResultMsg carries the backend's answer to a login attempt.
type loginResultMsg struct {
	res *client.LoginResponse
	err error
}

func newLoginModel(c *client.Client) loginModel {
	return loginModel{client: c}
}

func (m loginModel) Update(msg tea.Msg) (loginModel, tea.Cmd) {
	switch msg := msg.(type) {
	case loginResultMsg:
		m.submitted = false
		m.fields[fieldPassword] = ""
		if msg.err != nil {
			m.statusMsg = loginError(msg.err)
		}
		return m, nil

	case tea.KeyMsg:
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m loginModel) updateKeys(msg tea.KeyMsg) (loginModel, tea.Cmd) {
	if m.submitted {
		return m, nil
	}
	m.statusMsg = ""

	switch msg.String() {
	case "tab", "down", "shift+tab", "up":
		m.focus = (m.focus + 1) % numLoginFields
	case "backspace":
		f := &m.fields[m.focus]
		if runes := []rune(*f); len(runes) > 0 {
			*f = string(runes[:len(runes)-1])
		}
	case "enter":
		if m.focus == fieldEmail {
			m.focus = fieldPassword
			return m, nil
		}
		return m.submit()
	default:
		if msg.Type == tea.KeyRunes {
			m.fields[m.focus] += string(msg.Runes)
		}
	}
	return m, nil
}

func (m loginModel) submit() (loginModel, tea.Cmd) {
	email := strings.TrimSpace(m.fields[fieldEmail])
	password := m.fields[fieldPassword]
	if email == "" || password == "" {
		m.statusMsg = "email and password are required"
		return m, nil
	}

	m.submitted = true
	c := m.client
	return m, func() tea.Msg {
		res, err := c.Login(context.Background(), email, password)
		return loginResultMsg{res: res, err: err}
	}
}

func (m loginModel) View() string {
	var b strings.Builder

	labels := [numLoginFields]string{"email", "password"}
	for i := loginField(0); i < numLoginFields; i++ {
		value := m.fields[i]
		if i == fieldPassword {
			value = strings.Repeat("•", len([]rune(value)))
		}
		cursor := " "
		style := metaStyle
		if i == m.focus {
			cursor = ">"
			style = selectedStyle
			value += "█"
		}
		fmt.Fprintf(&b, "%s %s: %s\n", cursor, style.Render(labels[i]), value)
	}

	b.WriteString("\n")
	if m.submitted {
		b.WriteString(dimStyle.Render("logging in..."))
	} else if m.statusMsg != "" {
		b.WriteString(errorStyle.Render(m.statusMsg))
	}
	return b.String()
}

func loginError(err error) string {
	if errors.Is(err, client.ErrUnauthorized) {
		return "invalid email or password"
	}
	return fmt.Sprintf("login failed: %v", err)
}

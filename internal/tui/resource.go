package tui

import (
	"fmt"
	"strings"

	"git.sr.ht/~jakintosh/craftcart-admin/pkg/client"
)

type resourceModel struct {
	name    string
	records []client.Record
	cursor  int
	loading bool
	err     error
}

func newResourceModel(name string) resourceModel {
	return resourceModel{name: name, loading: true}
}

func (m resourceModel) loaded(records []client.Record, err error) resourceModel {
	m.loading = false
	m.err = err
	if err == nil {
		m.records = records
	}
	if m.cursor >= len(m.records) {
		m.cursor = max(len(m.records)-1, 0)
	}
	return m
}

func (m resourceModel) move(key string) resourceModel {
	switch key {
	case "j", "down":
		if m.cursor < len(m.records)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	}
	return m
}

func (m resourceModel) selectedID() string {
	if m.cursor < 0 || m.cursor >= len(m.records) {
		return ""
	}
	return m.records[m.cursor].ID()
}

func (m resourceModel) View(width int) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(m.name))
	b.WriteString("\n\n")

	switch {
	case m.loading:
		b.WriteString(dimStyle.Render("loading..."))
		b.WriteString("\n")
		return b.String()
	case m.err != nil:
		b.WriteString(errorStyle.Render(fmt.Sprintf("couldn't load %s: %v", m.name, m.err)))
		b.WriteString("\n")
		return b.String()
	case len(m.records) == 0:
		b.WriteString(metaStyle.Render(fmt.Sprintf("no %s yet", m.name)))
		b.WriteString("\n")
		return b.String()
	}

	for i, record := range m.records {
		line := fmt.Sprintf("%s  %s", record.ID(), summary(record))
		line = truncate(line, width-2)
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// summary picks the first human readable field of a record.
func summary(record client.Record) string {
	for _, key := range []string{"name", "title", "email", "code", "status"} {
		if v, ok := record[key]; ok && v != nil {
			return fmt.Sprint(v)
		}
	}
	return ""
}

package main

import (
	"fmt"
	"io"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"git.sr.ht/~jakintosh/craftcart-admin/internal/database"
	"git.sr.ht/~jakintosh/craftcart-admin/internal/tui"
	"git.sr.ht/~jakintosh/craftcart-admin/pkg/client"
	"git.sr.ht/~jakintosh/craftcart-admin/pkg/guard"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	apiURL := os.Getenv("API_URL")
	if apiURL == "" {
		apiURL = "http://localhost:5000"
	}
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "craftcart-admin.sqlite"
	}
	requiredRole := os.Getenv("REQUIRED_ROLE")

	// the alt screen owns the terminal
	log.SetOutput(io.Discard)

	store, err := database.NewSQLiteStore(dbPath)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer store.Close()

	g := guard.New(store, guard.Config{RequiredRole: requiredRole})
	app := tui.NewApp(client.New(apiURL), g)

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}

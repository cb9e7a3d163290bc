// Package testharness runs a guard-testserver process for end-to-end tests
// of code that talks to the Craft-Cart API.
package testharness

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"testing"
	"time"
)

// Config holds configuration for starting the test harness.
type Config struct {
	IssuerDomain string
	Lifetime     time.Duration
	Users        []User
	ListenAddr   string
	BinaryPath   string
	Quiet        bool
}

// User holds test account credentials. Role defaults to admin.
type User struct {
	Email    string
	Password string
	Role     string
}

// Harness represents a running guard-testserver instance.
type Harness struct {
	BaseURL      string
	IssuerDomain string
	Lifetime     time.Duration
	Users        []User

	// Internal state
	cmd    *exec.Cmd
	cancel context.CancelFunc
}

// outputContract matches the JSON structure from guard-testserver
type outputContract struct {
	BaseURL      string       `json:"base_url"`
	IssuerDomain string       `json:"issuer_domain"`
	Lifetime     string       `json:"credential_lifetime"`
	Users        []outputUser `json:"users"`
}

type outputUser struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Available reports whether a guard-testserver binary can be found for cfg.
func Available(cfg Config) bool {
	return findBinary(cfg.BinaryPath) != ""
}

// Start spawns a guard-testserver and returns a handle to it.
// It registers cleanup with t.Cleanup().
func Start(t *testing.T, cfg Config) *Harness {
	t.Helper()

	binaryPath := findBinary(cfg.BinaryPath)
	if binaryPath == "" {
		t.Fatal("guard-testserver binary not found (check PATH or set Config.BinaryPath or GUARD_TESTSERVER_BIN)")
	}

	args := buildArgs(cfg)

	ctx, cancel := context.WithCancel(context.Background())

	cmd := exec.CommandContext(ctx, binaryPath, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		t.Fatalf("failed to create stdout pipe: %v", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		t.Fatalf("failed to create stderr pipe: %v", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		t.Fatalf("failed to start guard-testserver: %v", err)
	}

	// first line of stdout is the JSON contract
	scanner := bufio.NewScanner(stdout)
	if !scanner.Scan() {
		cancel()
		cmd.Wait()
		t.Fatal("failed to read JSON contract from guard-testserver")
	}

	var contract outputContract
	if err := json.Unmarshal(scanner.Bytes(), &contract); err != nil {
		cancel()
		cmd.Wait()
		t.Fatalf("failed to parse JSON contract: %v", err)
	}

	lifetime, err := time.ParseDuration(contract.Lifetime)
	if err != nil {
		cancel()
		cmd.Wait()
		t.Fatalf("failed to parse credential lifetime %q: %v", contract.Lifetime, err)
	}

	if !cfg.Quiet {
		go func() {
			for scanner.Scan() {
				t.Logf("[guard-testserver] %s", scanner.Text())
			}
		}()

		go func() {
			stderrScanner := bufio.NewScanner(stderr)
			for stderrScanner.Scan() {
				t.Logf("[guard-testserver stderr] %s", stderrScanner.Text())
			}
		}()
	}

	harness := &Harness{
		BaseURL:      contract.BaseURL,
		IssuerDomain: contract.IssuerDomain,
		Lifetime:     lifetime,
		Users:        make([]User, len(contract.Users)),
		cmd:          cmd,
		cancel:       cancel,
	}

	for i, user := range contract.Users {
		harness.Users[i] = User{Email: user.Email, Password: user.Password, Role: user.Role}
	}

	t.Cleanup(func() {
		if err := harness.Close(); err != nil {
			t.Logf("warning: harness cleanup failed: %v", err)
		}
	})

	return harness
}

// Close terminates the guard-testserver process.
func (h *Harness) Close() error {
	if h.cancel != nil {
		h.cancel()
	}

	if h.cmd == nil || h.cmd.Process == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- h.cmd.Wait()
	}()

	select {
	case <-done:
		// killed by the cancelled context; the exit status carries no news
		return nil
	case <-time.After(5 * time.Second):
		if err := h.cmd.Process.Kill(); err != nil {
			return fmt.Errorf("force kill: %w", err)
		}
		return fmt.Errorf("timeout waiting for shutdown, process killed")
	}
}

func findBinary(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
	}

	if envPath := os.Getenv("GUARD_TESTSERVER_BIN"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	if pathBinary, err := exec.LookPath("guard-testserver"); err == nil {
		return pathBinary
	}

	return ""
}

func buildArgs(cfg Config) []string {
	var args []string

	if cfg.IssuerDomain != "" {
		args = append(args, "--issuer-domain", cfg.IssuerDomain)
	}

	if cfg.Lifetime > 0 {
		args = append(args, "--lifetime", cfg.Lifetime.String())
	}

	if cfg.ListenAddr != "" {
		args = append(args, "--listen", cfg.ListenAddr)
	}

	if cfg.Quiet {
		args = append(args, "--quiet")
	}

	for _, user := range cfg.Users {
		role := user.Role
		if role == "" {
			role = "admin"
		}
		args = append(args, "--user", fmt.Sprintf("%s:%s:%s", user.Email, user.Password, role))
	}

	return args
}

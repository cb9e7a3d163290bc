package main

import (
	"crypto/rand"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"git.sr.ht/~jakintosh/craftcart-admin/pkg/guardtest"
	"git.sr.ht/~jakintosh/craftcart-admin/pkg/tokens"
	"golang.org/x/crypto/bcrypt"
)

// Config holds all command-line configuration
type Config struct {
	ListenAddr   string
	IssuerDomain string
	Lifetime     time.Duration
	Users        []UserCredentials
	Quiet        bool
}

type UserCredentials struct {
	Email    string
	Password string
	Role     string
}

// OutputContract is the JSON structure emitted on stdout
type OutputContract struct {
	BaseURL      string       `json:"base_url"`
	IssuerDomain string       `json:"issuer_domain"`
	Lifetime     string       `json:"credential_lifetime"`
	Users        []OutputUser `json:"users"`
}

type OutputUser struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// UserFlag is a custom flag type for repeatable --user flags
type UserFlag []UserCredentials

func (u *UserFlag) String() string {
	return fmt.Sprintf("%v", *u)
}

func (u *UserFlag) Set(value string) error {
	parts := strings.SplitN(value, ":", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("user must be in format 'email:password[:role]'")
	}
	user := UserCredentials{Email: parts[0], Password: parts[1], Role: "admin"}
	if len(parts) == 3 && parts[2] != "" {
		user.Role = parts[2]
	}
	*u = append(*u, user)
	return nil
}

func main() {
	cfg := parseFlags()

	if cfg.Quiet {
		log.SetOutput(io.Discard)
	}

	signingKey := make([]byte, 32)
	if _, err := rand.Read(signingKey); err != nil {
		log.Fatalf("failed to generate signing key: %v\n", err)
	}
	issuer := tokens.NewIssuer(signingKey, cfg.IssuerDomain)

	backend := guardtest.NewBackend(issuer, cfg.Lifetime)
	backend.SetPasswordCost(bcrypt.DefaultCost)
	for _, user := range cfg.Users {
		name, _, _ := strings.Cut(user.Email, "@")
		if err := backend.AddAccount(name, user.Email, user.Password, user.Role); err != nil {
			log.Fatalf("failed to seed user: %v\n", err)
		}
	}

	// Start HTTP server with ephemeral port
	listener, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		log.Fatalf("failed to listen: %v\n", err)
	}
	defer listener.Close()

	addr := listener.Addr().(*net.TCPAddr)
	baseURL := fmt.Sprintf("http://%s:%d", addr.IP, addr.Port)

	contract := OutputContract{
		BaseURL:      baseURL,
		IssuerDomain: cfg.IssuerDomain,
		Lifetime:     cfg.Lifetime.String(),
		Users:        make([]OutputUser, len(cfg.Users)),
	}
	for i, user := range cfg.Users {
		contract.Users[i] = OutputUser{Email: user.Email, Password: user.Password, Role: user.Role}
	}

	encoder := json.NewEncoder(os.Stdout)
	if err := encoder.Encode(contract); err != nil {
		log.Fatalf("failed to encode JSON contract: %v\n", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- http.Serve(listener, backend.Handler())
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatalf("server error: %v\n", err)
	case sig := <-sigChan:
		log.Printf("received signal %v, shutting down\n", sig)
	}
}

func parseFlags() Config {
	var cfg Config
	var users UserFlag

	flag.StringVar(&cfg.ListenAddr, "listen", "127.0.0.1:0", "Listen address (default uses ephemeral port)")
	flag.StringVar(&cfg.IssuerDomain, "issuer-domain", "api.craftcart.test", "Issuer domain for signed credentials")
	flag.DurationVar(&cfg.Lifetime, "lifetime", time.Hour, "Lifetime of issued credentials")
	flag.Var(&users, "user", "User in format 'email:password[:role]', role defaults to admin (repeatable)")
	flag.BoolVar(&cfg.Quiet, "quiet", false, "Suppress log output")

	flag.Parse()

	if cfg.Lifetime <= 0 {
		log.Fatal("--lifetime must be positive")
	}

	if len(users) == 0 {
		cfg.Users = []UserCredentials{{Email: "admin@craftcart.test", Password: "admin", Role: "admin"}}
	} else {
		cfg.Users = users
	}

	return cfg
}

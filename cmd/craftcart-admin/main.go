package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"git.sr.ht/~jakintosh/craftcart-admin/internal/app"
	"git.sr.ht/~jakintosh/craftcart-admin/internal/database"
	"git.sr.ht/~jakintosh/craftcart-admin/internal/obs"
	"git.sr.ht/~jakintosh/craftcart-admin/internal/resources"
	"git.sr.ht/~jakintosh/craftcart-admin/internal/routing"
	"git.sr.ht/~jakintosh/craftcart-admin/pkg/client"
	"git.sr.ht/~jakintosh/craftcart-admin/pkg/guard"
	"git.sr.ht/~jakintosh/craftcart-admin/pkg/session"
	"github.com/redis/go-redis/v9"
)

func main() {
	apiURL := readEnvVar("API_URL")
	addr := net.JoinHostPort(readEnvOr("HOST", "127.0.0.1"), readEnvOr("PORT", "8080"))
	requiredRole := readEnvOr("REQUIRED_ROLE", guard.DefaultRequiredRole)
	loginRate := readEnvFloat("LOGIN_RATE", 1)
	configureLogging(readEnvOr("LOG_LEVEL", "error"))

	store, closeStore := openStore()
	defer closeStore()

	templates := loadTemplates(os.Getenv("TEMPLATES_DIR"))
	defer templates.Close()

	metrics := obs.NewMetrics()
	g := guard.New(store, guard.Config{
		RequiredRole: requiredRole,
		OnResolve:    metrics.ObserveGuard,
	})
	a := app.New(g, client.New(apiURL), templates, app.Options{
		LoginRate:  loginRate,
		LoginBurst: readEnvInt("LOGIN_BURST", 5),
	})
	r := routing.BuildRouter(a, g, metrics)

	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("craftcart-admin listening on http://%s (api %s)\n", addr, apiURL)
		serverErr <- server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v\n", err)
		}
	case sig := <-sigChan:
		log.Printf("received signal %v, shutting down\n", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("shutdown: %v\n", err)
		}
	}
}

// openStore prefers Redis when REDIS_ADDR is set, otherwise a SQLite file.
func openStore() (session.Store, func()) {
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("failed to reach redis at %s: %v\n", redisAddr, err)
		}
		prefix := readEnvOr("REDIS_PREFIX", database.DefaultRedisPrefix)
		return database.NewRedisStore(rdb, prefix), func() { rdb.Close() }
	}

	dbPath := readEnvOr("DB_PATH", "craftcart-admin.sqlite")
	store, err := database.NewSQLiteStore(dbPath)
	if err != nil {
		log.Fatalf("failed to open session store: %v\n", err)
	}
	return store, func() { store.Close() }
}

// loadTemplates serves the embedded templates unless dir is set. An empty
// dir is seeded with the defaults first so they can be edited live.
func loadTemplates(dir string) *resources.Templates {
	if dir == "" {
		templates, err := resources.NewEmbeddedTemplates()
		if err != nil {
			log.Fatalf("%v\n", err)
		}
		return templates
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Fatalf("failed to create templates dir: %v\n", err)
	}
	if matches, _ := filepath.Glob(filepath.Join(dir, "*.html")); len(matches) == 0 {
		if err := resources.WriteDefaults(dir); err != nil {
			log.Fatalf("failed to write default templates: %v\n", err)
		}
	}
	templates, err := resources.NewDynamicTemplates(dir)
	if err != nil {
		log.Fatalf("%v\n", err)
	}
	return templates
}

func configureLogging(name string) {
	level, ok := guard.ParseLogLevel(name)
	if !ok {
		log.Fatalf("unknown LOG_LEVEL '%s'\n", name)
	}
	guard.SetLogLevel(level)
	client.SetLogLevel(client.LogLevel(level))
}

func readEnvVar(name string) string {
	var present bool
	str, present := os.LookupEnv(name)
	if !present {
		log.Fatalf("missing required env var '%s'\n", name)
	}
	return str
}

func readEnvOr(name string, fallback string) string {
	if str, present := os.LookupEnv(name); present && str != "" {
		return str
	}
	return fallback
}

func readEnvInt(name string, fallback int) int {
	v := readEnvOr(name, strconv.Itoa(fallback))
	i, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("env var '%s' could not be parsed as integer (\"%v\")\n", name, v)
	}
	return i
}

func readEnvFloat(name string, fallback float64) float64 {
	v := readEnvOr(name, fmt.Sprint(fallback))
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Fatalf("env var '%s' could not be parsed as number (\"%v\")\n", name, v)
	}
	return f
}

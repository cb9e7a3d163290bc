package database_test

import (
	"testing"

	"git.sr.ht/~jakintosh/craftcart-admin/internal/database"
	"git.sr.ht/~jakintosh/craftcart-admin/pkg/guardtest"
	"git.sr.ht/~jakintosh/craftcart-admin/pkg/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	t.Parallel()
	guardtest.RunStoreContract(t, func(t *testing.T) session.Store {
		_, client := newTestRedis(t)
		return database.NewRedisStore(client, "")
	})
}

func TestRedisStore_UsesPrefixedKeys(t *testing.T) {
	t.Parallel()
	mr, client := newTestRedis(t)
	store := database.NewRedisStore(client, "test:")

	if err := store.Save("a.b.c", &session.User{Name: "Ada"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := mr.Get("test:token")
	if err != nil || got != "a.b.c" {
		t.Errorf("test:token = %q (%v), want a.b.c", got, err)
	}
	if !mr.Exists("test:user") {
		t.Error("expected test:user key")
	}

	store.Clear()
	if mr.Exists("test:token") || mr.Exists("test:user") {
		t.Error("Clear left keys behind")
	}
}

func TestRedisStore_UnavailableReadsAbsent(t *testing.T) {
	t.Parallel()
	mr, client := newTestRedis(t)
	store := database.NewRedisStore(client, "")

	if err := store.Save("a.b.c", &session.User{Name: "Ada"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// redis goes away: reads fail closed, writes report errors
	mr.Close()

	credential, user := store.Load()
	if credential != "" || user != nil {
		t.Errorf("Load = (%q, %+v), want absent", credential, user)
	}
	if err := store.Save("d.e.f", nil); err == nil {
		t.Error("expected Save to fail while redis is down")
	}
	store.Clear()
}

func TestRedisStore_ClearIfUsesPrefixedKeys(t *testing.T) {
	t.Parallel()
	mr, client := newTestRedis(t)
	store := database.NewRedisStore(client, "test:")

	if err := store.Save("fresh.a.b", &session.User{Name: "Ada"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	store.ClearIf("stale.a.b")
	if !mr.Exists("test:token") || !mr.Exists("test:user") {
		t.Fatal("ClearIf removed a credential it did not match")
	}

	store.ClearIf("fresh.a.b")
	if mr.Exists("test:token") || mr.Exists("test:user") {
		t.Error("ClearIf left keys behind")
	}
}

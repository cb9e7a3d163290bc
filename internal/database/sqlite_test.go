package database_test

import (
	"errors"
	"path/filepath"
	"regexp"
	"testing"

	"git.sr.ht/~jakintosh/craftcart-admin/internal/database"
	"git.sr.ht/~jakintosh/craftcart-admin/pkg/guardtest"
	"git.sr.ht/~jakintosh/craftcart-admin/pkg/session"
	"github.com/DATA-DOG/go-sqlmock"
)

func setupStore(t *testing.T) *database.SQLiteStore {
	t.Helper()
	store, err := database.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_Contract(t *testing.T) {
	t.Parallel()
	guardtest.RunStoreContract(t, func(t *testing.T) session.Store {
		return setupStore(t)
	})
}

func TestSQLiteStore_Durable(t *testing.T) {
	t.Parallel()
	dbPath := filepath.Join(t.TempDir(), "session.sqlite")

	store, err := database.NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	if err := store.Save("a.b.c", &session.User{Email: "ada@craftcart.test"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// the session survives a reopen
	reopened, err := database.NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { _ = reopened.Close() })

	credential, user := reopened.Load()
	if credential != "a.b.c" {
		t.Errorf("credential = %q, want a.b.c", credential)
	}
	if user == nil || user.Email != "ada@craftcart.test" {
		t.Errorf("user = %+v", user)
	}
}

func setupMockStore(t *testing.T) (*database.SQLiteStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS local_storage").
		WillReturnResult(sqlmock.NewResult(0, 0))
	store, err := database.NewSQLiteStoreWithDB(db)
	if err != nil {
		t.Fatalf("NewSQLiteStoreWithDB: %v", err)
	}
	return store, mock
}

func TestSQLiteStore_LoadFailureReadsAbsent(t *testing.T) {
	t.Parallel()
	store, mock := setupMockStore(t)

	// storage unavailable: absent, no error surfaces
	mock.ExpectQuery("SELECT key, value").
		WillReturnError(errors.New("disk I/O error"))

	credential, user := store.Load()
	if credential != "" || user != nil {
		t.Errorf("Load = (%q, %+v), want absent", credential, user)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSQLiteStore_UnreadableUserRecord(t *testing.T) {
	t.Parallel()
	store, mock := setupMockStore(t)

	rows := sqlmock.NewRows([]string{"key", "value"}).
		AddRow("token", "a.b.c").
		AddRow("user", "{not json")
	mock.ExpectQuery("SELECT key, value").WillReturnRows(rows)

	// the credential is still returned; the user record reads as absent
	credential, user := store.Load()
	if credential != "a.b.c" {
		t.Errorf("credential = %q, want a.b.c", credential)
	}
	if user != nil {
		t.Errorf("user = %+v, want nil", user)
	}
}

func TestSQLiteStore_SaveRollsBackPartialWrite(t *testing.T) {
	t.Parallel()
	store, mock := setupMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO local_storage")).
		WithArgs("token", "a.b.c").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO local_storage")).
		WithArgs("user", sqlmock.AnyArg()).
		WillReturnError(errors.New("database is locked"))
	mock.ExpectRollback()

	// second write fails: the whole pair is rolled back
	if err := store.Save("a.b.c", &session.User{Name: "Ada"}); err == nil {
		t.Fatal("expected Save to fail")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSQLiteStore_ClearFailureIsSwallowed(t *testing.T) {
	t.Parallel()
	store, mock := setupMockStore(t)

	mock.ExpectExec("DELETE FROM local_storage").
		WillReturnError(errors.New("disk I/O error"))

	// Clear never fails to the caller
	store.Clear()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSQLiteStore_ClearIfSkipsReplacedCredential(t *testing.T) {
	t.Parallel()
	store, mock := setupMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT value")).
		WithArgs("token").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("fresh.a.b"))
	mock.ExpectRollback()

	// no DELETE is issued for a credential that changed since it was read
	store.ClearIf("stale.a.b")
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSQLiteStore_ClearIfDeletesInTransaction(t *testing.T) {
	t.Parallel()
	store, mock := setupMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT value")).
		WithArgs("token").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("a.b.c"))
	mock.ExpectExec("DELETE FROM local_storage").
		WithArgs("token", "user").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	store.ClearIf("a.b.c")
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSQLiteStore_ClearIfFailureIsSwallowed(t *testing.T) {
	t.Parallel()
	store, mock := setupMockStore(t)

	mock.ExpectBegin().WillReturnError(errors.New("database is locked"))

	store.ClearIf("a.b.c")
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

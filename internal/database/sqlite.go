// Package database provides durable local storage for the admin console's
// session: the credential and the user record, under fixed keys.
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"git.sr.ht/~jakintosh/craftcart-admin/pkg/session"
	_ "modernc.org/sqlite"
)

const queryTimeout = 5 * time.Second

// SQLiteStore keeps the session in a key/value table, one row per key.
type SQLiteStore struct {
	db *sql.DB
}

var _ session.Store = (*SQLiteStore)(nil)

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	// one connection: `:memory:` databases are per connection, and writes
	// serialize anyway
	db.SetMaxOpenConns(1)

	store, err := NewSQLiteStoreWithDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLiteStoreWithDB wraps an open handle and ensures the schema exists.
func NewSQLiteStoreWithDB(db *sql.DB) (*SQLiteStore, error) {
	if err := initSchema(db); err != nil {
		return nil, fmt.Errorf("failed to init database: %v", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func initSchema(db *sql.DB) error {
	return initTable(db, "local_storage", `
		CREATE TABLE IF NOT EXISTS local_storage (
			key         TEXT PRIMARY KEY,
			value       TEXT NOT NULL
		);`,
	)
}

func initTable(
	db *sql.DB,
	name string,
	sql string,
) error {
	if _, err := db.Exec(sql); err != nil {
		return fmt.Errorf("failed to init '%s' table schema: %v", name, err)
	}
	return nil
}

func (s *SQLiteStore) Save(
	credential string,
	user *session.User,
) error {
	if credential == "" {
		return session.ErrEmptyCredential
	}

	var userJSON []byte
	if user != nil {
		var err error
		if userJSON, err = json.Marshal(user); err != nil {
			return fmt.Errorf("couldn't encode user record: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("couldn't begin session write: %v", err)
	}
	defer tx.Rollback()

	if err := upsert(ctx, tx, session.CredentialKey, credential); err != nil {
		return err
	}
	if user != nil {
		err = upsert(ctx, tx, session.UserKey, string(userJSON))
	} else {
		_, err = tx.ExecContext(ctx, `
			DELETE FROM local_storage
			WHERE key=?1;`,
			session.UserKey,
		)
	}
	if err != nil {
		return fmt.Errorf("couldn't write user record: %v", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("couldn't commit session write: %v", err)
	}
	return nil
}

func upsert(
	ctx context.Context,
	tx *sql.Tx,
	key string,
	value string,
) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO local_storage (key, value)
		VALUES (?1, ?2)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value;`,
		key,
		value,
	)
	if err != nil {
		return fmt.Errorf("couldn't upsert '%s': %v", key, err)
	}
	return nil
}

func (s *SQLiteStore) Load() (string, *session.User) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT key, value
		FROM local_storage
		WHERE key IN (?1, ?2);`,
		session.CredentialKey,
		session.UserKey,
	)
	if err != nil {
		log.Printf("database: couldn't load session: %v\n", err)
		return "", nil
	}
	defer rows.Close()

	values := make(map[string]string, 2)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			log.Printf("database: couldn't scan session row: %v\n", err)
			return "", nil
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		log.Printf("database: couldn't read session rows: %v\n", err)
		return "", nil
	}

	return values[session.CredentialKey], decodeUser(values[session.UserKey])
}

func (s *SQLiteStore) Clear() {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		DELETE FROM local_storage
		WHERE key IN (?1, ?2);`,
		session.CredentialKey,
		session.UserKey,
	)
	if err != nil {
		log.Printf("database: couldn't clear session: %v\n", err)
	}
}

// ClearIf reads and deletes inside one transaction so a credential saved
// between the two statements survives.
func (s *SQLiteStore) ClearIf(credential string) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	if err := s.clearIf(ctx, credential); err != nil {
		log.Printf("database: couldn't clear session: %v\n", err)
	}
}

func (s *SQLiteStore) clearIf(ctx context.Context, credential string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var stored string
	err = tx.QueryRowContext(ctx, `
		SELECT value
		FROM local_storage
		WHERE key=?1;`,
		session.CredentialKey,
	).Scan(&stored)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if stored != credential {
		return nil
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM local_storage
		WHERE key IN (?1, ?2);`,
		session.CredentialKey,
		session.UserKey,
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func decodeUser(value string) *session.User {
	if value == "" {
		return nil
	}
	user := &session.User{}
	if err := json.Unmarshal([]byte(value), user); err != nil {
		log.Printf("database: discarding unreadable user record: %v\n", err)
		return nil
	}
	return user
}

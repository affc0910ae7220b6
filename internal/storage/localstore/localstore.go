// Package localstore is the local persistence layer: a small sqlite file that
// plays the role the browser's key/value storage plays for the original wallet.
// It holds the four persisted session slots and the registered-user overlay;
// balance and the transaction log deliberately never land here.
package localstore

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"

	"github.com/luqea/luqea-wallet/internal/domain/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Store struct {
	db *sql.DB
}

func New(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("can not create storage directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("can not open local store: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("can not connect to local store: %w", err)
	}
	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("failed to migrate local store: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to set up migrate driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create iofs source driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to set up migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// GetSlot returns the value stored under key, or ErrSlotNotFound.
func (s *Store) GetSlot(key string) (string, error) {
	const op = "localstore.GetSlot"

	var value string
	err := s.db.QueryRow("SELECT value FROM slots WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrSlotNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return value, nil
}

func (s *Store) SetSlot(key, value string) error {
	const op = "localstore.SetSlot"

	_, err := s.db.Exec(
		"INSERT INTO slots(key, value) VALUES(?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Store) DeleteSlot(key string) error {
	const op = "localstore.DeleteSlot"

	if _, err := s.db.Exec("DELETE FROM slots WHERE key = ?", key); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// LoadUsers returns the registered-user overlay in registration order.
func (s *Store) LoadUsers() ([]models.User, error) {
	const op = "localstore.LoadUsers"

	rows, err := s.db.Query(
		"SELECT first_name, last_name, email, password, role FROM registered_users ORDER BY id",
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.FirstName, &u.LastName, &u.Email, &u.Password, &u.Role); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return users, nil
}

// SaveUser appends one record to the overlay. Records are never updated or
// deleted; the email uniqueness constraint is enforced above this layer.
func (s *Store) SaveUser(user models.User) error {
	const op = "localstore.SaveUser"

	_, err := s.db.Exec(
		"INSERT INTO registered_users(first_name, last_name, email, password, role) VALUES(?, ?, ?, ?, ?)",
		user.FirstName, user.LastName, user.Email, user.Password, user.Role,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Package directory is the credential directory: a static seeded user list
// bundled with the binary plus a locally persisted overlay of accounts
// registered at runtime. The seed list is never mutated; the overlay is
// append-only.
package directory

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/luqea/luqea-wallet/internal/domain/models"
)

//go:embed users.json
var seedData []byte

// OverlayStore persists registered accounts across restarts.
type OverlayStore interface {
	LoadUsers() ([]models.User, error)
	SaveUser(user models.User) error
}

type Directory struct {
	mu         sync.Mutex
	logger     *slog.Logger
	overlay    OverlayStore
	seeded     []models.User
	registered []models.User
}

func New(overlay OverlayStore, logger *slog.Logger) (*Directory, error) {
	var seeded []models.User
	if err := json.Unmarshal(seedData, &seeded); err != nil {
		return nil, fmt.Errorf("directory: bad seed data: %w", err)
	}

	registered, err := overlay.LoadUsers()
	if err != nil {
		return nil, fmt.Errorf("directory: load overlay: %w", err)
	}

	return &Directory{
		logger:     logger,
		overlay:    overlay,
		seeded:     seeded,
		registered: registered,
	}, nil
}

// NormalizeEmail is the canonical form used as the unique key everywhere:
// surrounding whitespace trimmed, case folded.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Lookup finds the record whose normalized email matches. Seeded records win
// over registered ones, though a collision can never be registered anyway.
func (d *Directory) Lookup(email string) (models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lookupLocked(email)
}

func (d *Directory) lookupLocked(email string) (models.User, error) {
	normalized := NormalizeEmail(email)
	for _, u := range d.seeded {
		if NormalizeEmail(u.Email) == normalized {
			return u, nil
		}
	}
	for _, u := range d.registered {
		if NormalizeEmail(u.Email) == normalized {
			return u, nil
		}
	}
	return models.User{}, ErrNotFound
}

// Authenticate matches normalized email and verbatim password. The error does
// not distinguish an unknown email from a wrong password.
func (d *Directory) Authenticate(email, password string) (models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	user, err := d.lookupLocked(email)
	if err != nil || user.Password != password {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// Register appends user to the overlay and persists it. The record's email is
// stored normalized so the uniqueness key survives restarts unchanged.
func (d *Directory) Register(user models.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.lookupLocked(user.Email); err == nil {
		return ErrDuplicateAccount
	}

	user.Email = NormalizeEmail(user.Email)
	if err := d.overlay.SaveUser(user); err != nil {
		return fmt.Errorf("directory: persist registration: %w", err)
	}
	d.registered = append(d.registered, user)

	d.logger.Info("Registered new account", slog.String("email", user.Email))
	return nil
}

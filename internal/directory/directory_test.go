package directory

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/luqea/luqea-wallet/internal/domain/models"
)

// ========================================================
// Fake overlay store
// ========================================================

type fakeOverlay struct {
	users []models.User
}

func (f *fakeOverlay) LoadUsers() ([]models.User, error) {
	return append([]models.User(nil), f.users...), nil
}

func (f *fakeOverlay) SaveUser(user models.User) error {
	f.users = append(f.users, user)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDirectory(t *testing.T, overlay *fakeOverlay) *Directory {
	t.Helper()
	d, err := New(overlay, testLogger())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return d
}

// ========================================================
// Tests
// ========================================================

func TestAuthenticateSeededUser(t *testing.T) {
	d := newTestDirectory(t, &fakeOverlay{})

	user, err := d.Authenticate("  MARIA.TORRES@luqea.pe ", "luqea2024")
	if err != nil {
		t.Fatalf("Authenticate() with normalized email failed: %v", err)
	}
	if user.FirstName != "María" {
		t.Errorf("got first name %q, want María", user.FirstName)
	}

	if _, err := d.Authenticate("maria.torres@luqea.pe", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: got %v, want ErrInvalidCredentials", err)
	}
	if _, err := d.Authenticate("nobody@luqea.pe", "luqea2024"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email: got %v, want ErrInvalidCredentials", err)
	}
}

func TestAuthenticateDoesNotMutateDirectory(t *testing.T) {
	d := newTestDirectory(t, &fakeOverlay{})

	before := len(d.seeded) + len(d.registered)
	d.Authenticate("maria.torres@luqea.pe", "luqea2024")
	d.Authenticate("maria.torres@luqea.pe", "nope")
	after := len(d.seeded) + len(d.registered)

	if before != after {
		t.Errorf("directory size changed from %d to %d", before, after)
	}
}

func TestRegisterDuplicateFailsEveryTime(t *testing.T) {
	overlay := &fakeOverlay{}
	d := newTestDirectory(t, overlay)

	user := models.User{FirstName: "Nuevo", Email: "nuevo@luqea.pe", Password: "pw1", Role: "user"}
	if err := d.Register(user); err != nil {
		t.Fatalf("first Register() failed: %v", err)
	}

	// Same normalized email, different password and casing.
	dup := models.User{FirstName: "Otro", Email: " NUEVO@Luqea.pe ", Password: "pw2", Role: "user"}
	if err := d.Register(dup); !errors.Is(err, ErrDuplicateAccount) {
		t.Errorf("second Register(): got %v, want ErrDuplicateAccount", err)
	}
	if err := d.Register(dup); !errors.Is(err, ErrDuplicateAccount) {
		t.Errorf("third Register(): got %v, want ErrDuplicateAccount", err)
	}

	if len(overlay.users) != 1 {
		t.Errorf("overlay holds %d records, want 1", len(overlay.users))
	}
}

func TestRegisterCollidingWithSeededAccount(t *testing.T) {
	d := newTestDirectory(t, &fakeOverlay{})

	err := d.Register(models.User{FirstName: "X", Email: "demo@luqea.pe", Password: "other"})
	if !errors.Is(err, ErrDuplicateAccount) {
		t.Errorf("got %v, want ErrDuplicateAccount", err)
	}
}

func TestRegisteredAccountSurvivesReload(t *testing.T) {
	overlay := &fakeOverlay{}
	d := newTestDirectory(t, overlay)

	if err := d.Register(models.User{FirstName: "Ana", Email: "ana@luqea.pe", Password: "pw", Role: "user"}); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	reloaded := newTestDirectory(t, overlay)
	if _, err := reloaded.Authenticate("ana@luqea.pe", "pw"); err != nil {
		t.Errorf("registered account lost after reload: %v", err)
	}
}

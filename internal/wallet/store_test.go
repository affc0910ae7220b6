package wallet

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/luqea/luqea-wallet/internal/directory"
	"github.com/luqea/luqea-wallet/internal/domain/models"
)

// ========================================================
// Fakes: overlay store and slot store
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

type fakeSlots struct {
	values map[string]string
}

func newFakeSlots() *fakeSlots {
	return &fakeSlots{values: make(map[string]string)}
}

func (f *fakeSlots) GetSlot(key string) (string, error) {
	v, ok := f.values[key]
	if !ok {
		return "", errors.New("slot not found")
	}
	return v, nil
}

func (f *fakeSlots) SetSlot(key, value string) error {
	f.values[key] = value
	return nil
}

func (f *fakeSlots) DeleteSlot(key string) error {
	delete(f.values, key)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T, overlay *fakeOverlay, slots *fakeSlots) *Store {
	t.Helper()
	dir, err := directory.New(overlay, testLogger())
	if err != nil {
		t.Fatalf("directory.New() error: %v", err)
	}
	return New(dir, slots, testLogger())
}

// ========================================================
// Session
// ========================================================

func TestLoginPersistsSession(t *testing.T) {
	slots := newFakeSlots()
	s := newTestStore(t, &fakeOverlay{}, slots)

	if err := s.Login("maria.torres@luqea.pe", "luqea2024"); err != nil {
		t.Fatalf("Login() failed: %v", err)
	}

	session := s.Session()
	if !session.Authenticated {
		t.Error("session not authenticated after login")
	}
	if session.Email != "maria.torres@luqea.pe" {
		t.Errorf("session email %q", session.Email)
	}
	if session.DisplayName != "María Torres" {
		t.Errorf("session display name %q", session.DisplayName)
	}
	if slots.values[slotAuthenticated] != "true" || slots.values[slotEmail] != session.Email {
		t.Errorf("session slots not persisted: %v", slots.values)
	}
}

func TestLoginFailureLeavesSessionUntouched(t *testing.T) {
	s := newTestStore(t, &fakeOverlay{}, newFakeSlots())

	if err := s.Login("maria.torres@luqea.pe", "wrong"); !errors.Is(err, directory.ErrInvalidCredentials) {
		t.Fatalf("got %v, want ErrInvalidCredentials", err)
	}
	if s.Session().Authenticated {
		t.Error("failed login must not authenticate")
	}
}

func TestRegisterDoublesAsLogin(t *testing.T) {
	overlay := &fakeOverlay{}
	s := newTestStore(t, overlay, newFakeSlots())

	if err := s.Register("Rosa María Paredes", "rosa@luqea.pe", "pw123"); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	session := s.Session()
	if !session.Authenticated || session.Email != "rosa@luqea.pe" {
		t.Errorf("registration did not establish a session: %+v", session)
	}
	if session.DisplayName != "Rosa María Paredes" {
		t.Errorf("display name %q", session.DisplayName)
	}
	if overlay.users[0].FirstName != "Rosa" || overlay.users[0].LastName != "María Paredes" {
		t.Errorf("name split wrong: %+v", overlay.users[0])
	}

	// Immediately usable without reload.
	if err := s.Login("rosa@luqea.pe", "pw123"); err != nil {
		t.Errorf("Login() after Register() failed: %v", err)
	}
}

func TestRegisterSingleTokenName(t *testing.T) {
	overlay := &fakeOverlay{}
	s := newTestStore(t, overlay, newFakeSlots())

	if err := s.Register("Madonna", "m@luqea.pe", "pw"); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	if overlay.users[0].FirstName != "Madonna" || overlay.users[0].LastName != "" {
		t.Errorf("name split wrong: %+v", overlay.users[0])
	}
}

func TestRegisterDuplicate(t *testing.T) {
	s := newTestStore(t, &fakeOverlay{}, newFakeSlots())

	if err := s.Register("A Name", "demo@luqea.pe", "newpw"); !errors.Is(err, directory.ErrDuplicateAccount) {
		t.Errorf("got %v, want ErrDuplicateAccount", err)
	}
	if s.Session().Authenticated {
		t.Error("failed registration must not authenticate")
	}
}

func TestLogoutClearsSessionAndSlots(t *testing.T) {
	slots := newFakeSlots()
	s := newTestStore(t, &fakeOverlay{}, slots)

	if err := s.Login("demo@luqea.pe", "demo123"); err != nil {
		t.Fatalf("Login() failed: %v", err)
	}
	s.Logout()

	if s.Session().Authenticated {
		t.Error("session still authenticated after logout")
	}
	if len(slots.values) != 0 {
		t.Errorf("slots not cleared: %v", slots.values)
	}
}

func TestRehydrateSession(t *testing.T) {
	overlay := &fakeOverlay{}
	slots := newFakeSlots()

	s := newTestStore(t, overlay, slots)
	if err := s.Login("demo@luqea.pe", "demo123"); err != nil {
		t.Fatalf("Login() failed: %v", err)
	}

	restarted := newTestStore(t, overlay, slots)
	session := restarted.Session()
	if !session.Authenticated || session.Email != "demo@luqea.pe" {
		t.Errorf("session not rehydrated: %+v", session)
	}
}

func TestRehydrateDropsUnresolvableSession(t *testing.T) {
	slots := newFakeSlots()
	slots.SetSlot(slotAuthenticated, "true")
	slots.SetSlot(slotEmail, "ghost@luqea.pe")

	s := newTestStore(t, &fakeOverlay{}, slots)
	if s.Session().Authenticated {
		t.Error("unresolvable persisted session must be dropped")
	}
	if len(slots.values) != 0 {
		t.Errorf("stale slots not cleared: %v", slots.values)
	}
}

// ========================================================
// Ledger
// ========================================================

func TestAddTransactionPrepends(t *testing.T) {
	s := newTestStore(t, &fakeOverlay{}, newFakeSlots())

	before := s.Transactions()
	tx := s.AddTransaction(models.Transaction{
		Kind:        models.KindTopup,
		Amount:      decimal.NewFromInt(100),
		Status:      models.StatusSuccess,
		Description: "Wallet top up",
	})

	after := s.Transactions()
	if len(after) != len(before)+1 {
		t.Fatalf("log length %d, want %d", len(after), len(before)+1)
	}
	if after[0].ID != tx.ID {
		t.Error("newest entry is not at the front")
	}
	if tx.ID == "" || tx.Date.IsZero() {
		t.Errorf("entry missing id or timestamp: %+v", tx)
	}
	if !after[0].Amount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("front entry amount %s, want 100", after[0].Amount)
	}

	// Prior entries untouched.
	for i, old := range before {
		if after[i+1].ID != old.ID || !after[i+1].Amount.Equal(old.Amount) {
			t.Errorf("entry %d mutated: %+v vs %+v", i, after[i+1], old)
		}
	}
}

func TestBalanceArithmetic(t *testing.T) {
	s := newTestStore(t, &fakeOverlay{}, newFakeSlots())

	if !s.Balance().Equal(decimal.NewFromFloat(2547.89)) {
		t.Fatalf("seed balance %s, want 2547.89", s.Balance())
	}

	if err := s.Debit(decimal.NewFromInt(50)); err != nil {
		t.Fatalf("Debit(50) failed: %v", err)
	}
	if err := s.Credit(decimal.NewFromInt(20)); err != nil {
		t.Fatalf("Credit(20) failed: %v", err)
	}

	if !s.Balance().Equal(decimal.NewFromFloat(2517.89)) {
		t.Errorf("balance %s, want 2517.89", s.Balance())
	}
}

func TestDebitRefusesToGoNegative(t *testing.T) {
	s := newTestStore(t, &fakeOverlay{}, newFakeSlots())
	before := s.Balance()

	err := s.Debit(before.Add(decimal.NewFromFloat(0.01)))
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("got %v, want ErrInsufficientFunds", err)
	}
	if !s.Balance().Equal(before) {
		t.Errorf("balance changed on refused debit: %s", s.Balance())
	}
}

func TestBadAmounts(t *testing.T) {
	s := newTestStore(t, &fakeOverlay{}, newFakeSlots())

	if err := s.Credit(decimal.Zero); !errors.Is(err, ErrBadAmount) {
		t.Errorf("Credit(0): got %v, want ErrBadAmount", err)
	}
	if err := s.Debit(decimal.NewFromInt(-5)); !errors.Is(err, ErrBadAmount) {
		t.Errorf("Debit(-5): got %v, want ErrBadAmount", err)
	}
}

// The session survives a restart; balance and the transaction log do not.
func TestLedgerIsEphemeralSessionIsNot(t *testing.T) {
	overlay := &fakeOverlay{}
	slots := newFakeSlots()

	s := newTestStore(t, overlay, slots)
	if err := s.Login("demo@luqea.pe", "demo123"); err != nil {
		t.Fatalf("Login() failed: %v", err)
	}
	s.Credit(decimal.NewFromInt(500))
	s.AddTransaction(models.Transaction{Kind: models.KindTopup, Amount: decimal.NewFromInt(500), Status: models.StatusSuccess})

	restarted := newTestStore(t, overlay, slots)
	if !restarted.Session().Authenticated {
		t.Error("session lost across restart")
	}
	if !restarted.Balance().Equal(decimal.NewFromFloat(2547.89)) {
		t.Errorf("balance survived restart: %s", restarted.Balance())
	}
	if len(restarted.Transactions()) != 5 {
		t.Errorf("transaction log survived restart: %d entries", len(restarted.Transactions()))
	}
}

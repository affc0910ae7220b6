// Package wallet is the session and ledger store: the single source of truth
// for who is logged in, the running balance, and the transaction log. Session
// fields are persisted through the slot store; balance and log reset to their
// seeded defaults on every start.
package wallet

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/luqea/luqea-wallet/internal/directory"
	"github.com/luqea/luqea-wallet/internal/domain/models"
)

// Persisted slot keys, one per session field.
const (
	slotAuthenticated = "isAuthenticated"
	slotEmail         = "userEmail"
	slotName          = "userName"
	slotRole          = "userRole"
)

// SlotStore is the persisted key/value storage behind the session fields.
type SlotStore interface {
	GetSlot(key string) (string, error)
	SetSlot(key, value string) error
	DeleteSlot(key string) error
}

type Store struct {
	mu     sync.Mutex
	logger *slog.Logger
	dir    *directory.Directory
	slots  SlotStore

	session      models.Session
	balance      decimal.Decimal
	transactions []models.Transaction
}

// New builds a store with the seeded balance and demo transaction log, then
// rehydrates the session from the persisted slots. A persisted session whose
// email no longer resolves in the directory is discarded.
func New(dir *directory.Directory, slots SlotStore, logger *slog.Logger) *Store {
	s := &Store{
		logger:       logger,
		dir:          dir,
		slots:        slots,
		balance:      defaultBalance(),
		transactions: seedTransactions(),
	}
	s.rehydrate()
	return s
}

func (s *Store) rehydrate() {
	auth, err := s.slots.GetSlot(slotAuthenticated)
	if err != nil || auth != "true" {
		return
	}
	email, err := s.slots.GetSlot(slotEmail)
	if err != nil {
		return
	}

	user, err := s.dir.Lookup(email)
	if err != nil {
		s.logger.Warn("Dropping stale persisted session", slog.String("email", email))
		s.clearSlots()
		return
	}

	s.session = models.Session{
		Authenticated: true,
		Email:         user.Email,
		DisplayName:   user.DisplayName(),
		Role:          user.Role,
	}
	s.logger.Info("Rehydrated session", slog.String("email", user.Email))
}

// Login resolves the credentials against the directory. On failure the
// session is left untouched; any number of attempts is permitted.
func (s *Store) Login(email, password string) error {
	user, err := s.dir.Authenticate(email, password)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.establishSession(user)
	s.logger.Info("Login", slog.String("email", user.Email))
	return nil
}

// Register creates an account and immediately establishes its session, so a
// fresh signup is usable without a separate login.
func (s *Store) Register(fullName, email, password string) error {
	first, last := splitFullName(fullName)
	user := models.User{
		FirstName: first,
		LastName:  last,
		Email:     directory.NormalizeEmail(email),
		Password:  password,
		Role:      "user",
	}

	if err := s.dir.Register(user); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.establishSession(user)
	return nil
}

// Logout clears the session and its persisted copies. Unconditional.
func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := s.session.Email
	s.session = models.Session{}
	s.clearSlots()
	s.logger.Info("Logout", slog.String("email", email))
}

func (s *Store) establishSession(user models.User) {
	s.session = models.Session{
		Authenticated: true,
		Email:         user.Email,
		DisplayName:   user.DisplayName(),
		Role:          user.Role,
	}
	s.persistSlots()
}

func (s *Store) persistSlots() {
	pairs := [][2]string{
		{slotAuthenticated, "true"},
		{slotEmail, s.session.Email},
		{slotName, s.session.DisplayName},
		{slotRole, s.session.Role},
	}
	for _, p := range pairs {
		if err := s.slots.SetSlot(p[0], p[1]); err != nil {
			s.logger.Error("Failed to persist session slot", slog.String("key", p[0]), "error", err)
		}
	}
}

func (s *Store) clearSlots() {
	for _, key := range []string{slotAuthenticated, slotEmail, slotName, slotRole} {
		if err := s.slots.DeleteSlot(key); err != nil {
			s.logger.Error("Failed to clear session slot", slog.String("key", key), "error", err)
		}
	}
}

// AddTransaction assigns a fresh ID and timestamp and prepends the entry, so
// the log stays newest-first. Amount sign and status are the caller's
// contract, not validated here.
func (s *Store) AddTransaction(entry models.Transaction) models.Transaction {
	entry.ID = uuid.NewString()
	entry.Date = time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = append([]models.Transaction{entry}, s.transactions...)
	return entry
}

// Credit adds amount to the balance. Amount must be positive.
func (s *Store) Credit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrBadAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.balance = s.balance.Add(amount)
	return nil
}

// Debit subtracts amount from the balance, refusing to drive it negative.
func (s *Store) Debit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrBadAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.balance.LessThan(amount) {
		return fmt.Errorf("%w: balance %s, requested %s", ErrInsufficientFunds, s.balance, amount)
	}
	s.balance = s.balance.Sub(amount)
	return nil
}

func (s *Store) Session() models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

func (s *Store) Balance() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance
}

// Transactions returns a copy of the log, newest first.
func (s *Store) Transactions() []models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Transaction, len(s.transactions))
	copy(out, s.transactions)
	return out
}

// splitFullName takes the first whitespace token as the first name and joins
// the rest as the last name, which is empty for a single-token input.
func splitFullName(fullName string) (first, last string) {
	parts := strings.Fields(fullName)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

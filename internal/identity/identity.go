// Package identity owns credential storage: it hashes passwords on account
// creation and verifies them on login. Plaintext never leaves this package.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/gravadigital/bienestar-api/internal/domain/account"
	"github.com/gravadigital/bienestar-api/internal/logger"
	"github.com/gravadigital/bienestar-api/internal/storage/postgres"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type Store struct {
	accounts postgres.AccountRepository
	cost     int
	log      *log.Logger
}

// NewStore creates an identity store hashing with bcrypt.DefaultCost
func NewStore(accounts postgres.AccountRepository) *Store {
	return NewStoreWithCost(accounts, bcrypt.DefaultCost)
}

// NewStoreWithCost allows a cheaper cost in tests
func NewStoreWithCost(accounts postgres.AccountRepository, cost int) *Store {
	return &Store{accounts: accounts, cost: cost, log: logger.Service("identity")}
}

// CreateAccount hashes the password and persists a new active account.
// A taken username surfaces as postgres.ErrDuplicate.
func (s *Store) CreateAccount(ctx context.Context, username, email, password string) (*account.Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		s.log.Error("Failed to hash password", "error", err)
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	acc := account.NewAccount(username, email)
	acc.PasswordHash = string(hash)

	if err := s.accounts.Create(ctx, acc); err != nil {
		return nil, err
	}

	s.log.Info("Account created", "account_id", acc.ID, "username", acc.Username)
	return acc, nil
}

// Verify checks username and password. Unknown usernames and wrong
// passwords both yield ErrInvalidCredentials.
func (s *Store) Verify(ctx context.Context, username, password string) (*account.Account, error) {
	acc, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			s.log.Info("Login attempt with unknown username", "username", username)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		s.log.Info("Login failed with wrong password", "username", username)
		return nil, ErrInvalidCredentials
	}
	return acc, nil
}

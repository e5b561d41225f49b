package service

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/mpelkone/timeclock/internal/domain"
)

// AccountStore defines the account data access interface consumed by AuthService.
type AccountStore interface {
	FindByName(ctx context.Context, name string) (*domain.Account, error)
	FindByID(ctx context.Context, id int64) (*domain.Account, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, name, passwordDigest string) (*domain.Account, error)
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) bool
}

const passwordMinLen = 10

// AuthService handles registration and credential checks.
type AuthService struct {
	accounts AccountStore
	hasher   PasswordHasher
}

// NewAuthService creates a new AuthService.
func NewAuthService(accounts AccountStore, hasher PasswordHasher) *AuthService {
	return &AuthService{accounts: accounts, hasher: hasher}
}

// Authenticate checks name and password and returns the account id.
// Unknown names and wrong passwords both come back as ErrInvalidCredentials
// so the caller cannot tell which field was wrong.
func (s *AuthService) Authenticate(ctx context.Context, name, password string) (int64, error) {
	if name == "" || password == "" {
		return 0, domain.ErrInvalidCredentials
	}

	account, err := s.accounts.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, domain.ErrInvalidCredentials
		}
		return 0, fmt.Errorf("authenticate %q: %w", name, err)
	}

	if !s.hasher.Verify(password, account.PasswordDigest) {
		return 0, domain.ErrInvalidCredentials
	}
	return account.ID, nil
}

// Register validates the requested credentials and creates the account.
// Validation failures come back as *domain.ValidationError; a taken name as
// domain.ErrConflict.
func (s *AuthService) Register(ctx context.Context, name, password, repeat string) error {
	if !domain.ValidUsername(name) {
		return &domain.ValidationError{
			Field:   "username",
			Message: "Invalid username. Please refer to instructions for username.",
		}
	}
	// The minimum length counts characters, not bytes, so multibyte
	// passwords are not over-credited.
	if utf8.RuneCountInString(password) < passwordMinLen {
		return &domain.ValidationError{
			Field:   "password",
			Message: "Password must be at least 10 characters.",
		}
	}
	if password != repeat {
		return &domain.ValidationError{
			Field:   "repeat_pw",
			Message: "Please enter matching passwords!",
		}
	}

	taken, err := s.accounts.ExistsByName(ctx, name)
	if err != nil {
		return fmt.Errorf("check name %q: %w", name, err)
	}
	if taken {
		return domain.ErrConflict
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	// The unique constraint turns a racing duplicate registration into
	// ErrConflict even though the existence check above passed.
	if _, err := s.accounts.Create(ctx, name, digest); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return domain.ErrConflict
		}
		return fmt.Errorf("create account %q: %w", name, err)
	}
	return nil
}

// GetAccount retrieves an account by id.
func (s *AuthService) GetAccount(ctx context.Context, id int64) (*domain.Account, error) {
	return s.accounts.FindByID(ctx, id)
}

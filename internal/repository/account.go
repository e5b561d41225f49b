package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/mpelkone/timeclock/internal/domain"
)

const pgUniqueViolation = "23505"

// AccountRepository handles account data access operations.
type AccountRepository struct {
	db *sqlx.DB
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db *sqlx.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// FindByName retrieves an account by its unique name.
func (r *AccountRepository) FindByName(ctx context.Context, name string) (*domain.Account, error) {
	var account domain.Account
	err := r.db.GetContext(ctx, &account,
		`SELECT id, name, password_digest FROM account WHERE name = $1`, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find account by name %q: %w", name, err)
	}
	return &account, nil
}

// FindByID retrieves an account by its id.
func (r *AccountRepository) FindByID(ctx context.Context, id int64) (*domain.Account, error) {
	var account domain.Account
	err := r.db.GetContext(ctx, &account,
		`SELECT id, name, password_digest FROM account WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find account by id %d: %w", id, err)
	}
	return &account, nil
}

// ExistsByName reports whether an account with the given name exists.
func (r *AccountRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM account WHERE name = $1)`, name)
	if err != nil {
		return false, fmt.Errorf("check account name %q: %w", name, err)
	}
	return exists, nil
}

// Create inserts a new account and returns it with its assigned id.
// A concurrent registration of the same name surfaces as domain.ErrConflict
// through the unique constraint.
func (r *AccountRepository) Create(ctx context.Context, name, passwordDigest string) (*domain.Account, error) {
	var account domain.Account
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO account (name, password_digest) VALUES ($1, $2)
		 RETURNING id, name, password_digest`,
		name, passwordDigest,
	).StructScan(&account)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrConflict
		}
		return nil, fmt.Errorf("create account %q: %w", name, err)
	}
	return &account, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

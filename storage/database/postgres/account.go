package pgrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/admissions/core/account"
)

const accountColumns = "id, name, email, role, is_active, password_hash, created_at, updated_at, last_login"

type accountRow struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	Role         string    `db:"role"`
	IsActive     bool      `db:"is_active"`
	PasswordHash []byte    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
	LastLogin    null.Time `db:"last_login"`
}

func toAccountRow(acc account.Account) accountRow {
	if acc.PasswordHash == nil {
		acc.PasswordHash = []byte{} // column is NOT NULL
	}
	return accountRow{
		ID:           acc.ID,
		Name:         acc.Name,
		Email:        acc.Email,
		Role:         acc.Role,
		IsActive:     acc.IsActive,
		PasswordHash: acc.PasswordHash,
		CreatedAt:    acc.CreatedAt.UTC(),
		UpdatedAt:    acc.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(acc.LastLogin.UTC(), !acc.LastLogin.IsZero()),
	}
}

func (row accountRow) toAccount() account.Account {
	return account.Account{
		ID:           row.ID,
		Name:         row.Name,
		Email:        row.Email,
		Role:         row.Role,
		IsActive:     row.IsActive,
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
		LastLogin:    row.LastLogin.Time.UTC(),
	}
}

type accountRepository struct {
	db *sqlx.DB
}

var _ account.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(db *sqlx.DB) *accountRepository {
	return &accountRepository{db: db}
}

func (repo accountRepository) CreateAccount(ctx context.Context, acc account.Account) (account.Account, error) {
	q := "INSERT INTO account (" + accountColumns + ") " +
		"VALUES (:id, :name, :email, :role, :is_active, :password_hash, :created_at, :updated_at, :last_login)"
	if _, err := repo.db.NamedExecContext(ctx, q, toAccountRow(acc)); err != nil {
		if uniqueViolationOn(err, "account_email_key") {
			return account.Account{}, account.ErrEmailExists
		}
		return account.Account{}, errors.Wrap(err, "inserting account")
	}
	return acc, nil
}

func (repo accountRepository) GetAccount(ctx context.Context, filter account.GetFilter) (account.Account, error) {
	var (
		row  accountRow
		cond string
		arg  interface{}
	)
	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return account.Account{}, account.ErrNotFound
		}
		cond, arg = "id = $1", filter.ID
	case filter.Email != "":
		cond, arg = "email = $1", filter.Email
	default:
		return account.Account{}, account.ErrNotFound
	}

	if err := repo.db.GetContext(ctx, &row, "SELECT "+accountColumns+" FROM account WHERE "+cond, arg); err != nil {
		if err == sql.ErrNoRows {
			return account.Account{}, account.ErrNotFound
		}
		return account.Account{}, errors.Wrap(err, "finding account")
	}
	return row.toAccount(), nil
}

func (repo accountRepository) UpdateAccount(ctx context.Context, acc account.Account) (account.Account, error) {
	q := "UPDATE account SET name = :name, email = :email, role = :role, is_active = :is_active, " +
		"password_hash = :password_hash, updated_at = :updated_at, last_login = :last_login WHERE id = :id"
	res, err := repo.db.NamedExecContext(ctx, q, toAccountRow(acc))
	if err != nil {
		if uniqueViolationOn(err, "account_email_key") {
			return account.Account{}, account.ErrEmailExists
		}
		return account.Account{}, errors.Wrap(err, "updating account")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return account.Account{}, account.ErrNotFound
	}
	return acc, nil
}

func (repo accountRepository) DeleteAccount(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return nil
	}
	if _, err := repo.db.ExecContext(ctx, "DELETE FROM account WHERE id = $1", id); err != nil {
		return errors.Wrap(err, "deleting account")
	}
	return nil
}
